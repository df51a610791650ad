package election

import (
	"log"
	"time"

	"go.uber.org/atomic"

	"fastelect/internal/election/quorum"
)

// workerPollTimeout bounds how long the workers block on their queues, so a
// halted worker exits within one poll interval.
const workerPollTimeout = 3 * time.Second

// messenger owns the two worker goroutines that bridge the election queues
// to the Transport.
type messenger struct {
	ws *workerSender
	wr *workerReceiver
}

func newMessenger(e *FastLeaderElection) *messenger {
	return &messenger{
		ws: &workerSender{e: e},
		wr: &workerReceiver{e: e},
	}
}

// start launches the sender and receiver goroutines.
func (m *messenger) start() {
	go m.ws.run()
	go m.wr.run()
}

// halt flags both workers to stop. They exit at their next poll timeout.
func (m *messenger) halt() {
	m.ws.stop.Store(true)
	m.wr.stop.Store(true)
}

// workerSender dequeues outbound notifications, encodes them, and hands them
// to the Transport.
type workerSender struct {
	e    *FastLeaderElection
	stop atomic.Bool
}

func (w *workerSender) run() {
	for !w.stop.Load() {
		m, ok := w.e.sendqueue.poll(workerPollTimeout)
		if !ok {
			continue
		}
		w.process(m)
	}
	log.Printf("[SENDER] Worker sender is down")
}

func (w *workerSender) process(m ToSend) {
	frame := BuildFrame(m.State, m.Leader, m.Zxid, m.ElectionEpoch, m.PeerEpoch, m.ConfigData)
	w.e.transport.SendTo(m.Sid, frame)
	if w.e.metrics != nil {
		w.e.metrics.RecordNotificationSent()
	}
}

// workerReceiver pulls raw frames from the Transport, decodes them, applies
// reconfiguration side effects, answers peers that need answering, and posts
// the decoded notifications onto the election loop's inbound queue.
type workerReceiver struct {
	e    *FastLeaderElection
	stop atomic.Bool
}

func (w *workerReceiver) run() {
	for !w.stop.Load() {
		sid, frame, ok := w.e.transport.PollRecv(workerPollTimeout)
		if !ok {
			continue
		}
		if !w.process(sid, frame) {
			break
		}
	}
	log.Printf("[RECEIVER] Worker receiver is down")
}

// process handles a single raw frame. It returns false when the receiver
// must shut down because a reconfiguration invalidated the current election.
func (w *workerReceiver) process(sid int64, frame []byte) bool {
	e := w.e

	// Every protocol generation sends at least 28 bytes.
	if len(frame) < frameLenV0 {
		log.Printf("[RECEIVER] Got a short response from server %d: %d bytes", sid, len(frame))
		return true
	}

	f, err := ParseFrame(frame)
	if err != nil {
		log.Printf("[RECEIVER] Skipping a partial / malformed message sent by sid=%d (message length: %d): %v",
			sid, len(frame), err)
		return true
	}
	if e.metrics != nil {
		e.metrics.RecordNotificationReceived()
	}

	// A frame with a config trailer may announce a configuration newer than
	// ours. Applying it while we are mid-election invalidates the round: the
	// quorum we are counting towards no longer exists.
	cfg := w.applyConfig(sid, f)
	if cfg.abandoned {
		log.Printf("[RECEIVER] Membership changed, restarting leader election")
		e.Shutdown()
		return false
	}

	// Non-voting senders get an immediate courtesy reply with our best-known
	// vote, and nothing else.
	if !e.validVoter(sid) {
		current := e.self.CurrentVote()
		qv := e.self.QuorumVerifier()
		e.sendqueue.offer(ToSend{
			Sid:           sid,
			Leader:        current.ID,
			Zxid:          current.Zxid,
			ElectionEpoch: e.logicalClock.Load(),
			PeerEpoch:     current.PeerEpoch,
			State:         e.self.PeerState(),
			ConfigData:    []byte(qv.String()),
		})
		return true
	}

	var senderState ServerState
	switch f.State {
	case 0:
		senderState = Looking
	case 1:
		senderState = Following
	case 2:
		senderState = Leading
	case 3:
		senderState = Observing
	default:
		// Unrecognized sender state: drop the frame.
		return true
	}

	n := &Notification{
		Sid:           sid,
		Leader:        f.Leader,
		Zxid:          f.Zxid,
		ElectionEpoch: f.ElectionEpoch,
		PeerEpoch:     f.PeerEpoch,
		State:         senderState,
		Version:       f.Version,
		Config:        cfg.verifier,
	}

	log.Printf("[RECEIVER] Notification: my state:%s; n.sid:%d, n.state:%s, n.leader:%d, n.round:0x%x, n.peerEpoch:0x%x, n.zxid:0x%x, version:0x%x",
		e.self.PeerState(), n.Sid, n.State, n.Leader, n.ElectionEpoch, n.PeerEpoch, n.Zxid, n.Version)

	e.recvqueue.offer(n)

	if e.self.PeerState() == Looking {
		// A fellow looker stuck in an older round gets our current vote so
		// it can catch up.
		if senderState == Looking && n.ElectionEpoch < e.logicalClock.Load() {
			v := e.GetVote()
			qv := e.self.QuorumVerifier()
			e.sendqueue.offer(ToSend{
				Sid:           sid,
				Leader:        v.ID,
				Zxid:          v.Zxid,
				ElectionEpoch: e.logicalClock.Load(),
				PeerEpoch:     v.PeerEpoch,
				State:         e.self.PeerState(),
				ConfigData:    []byte(qv.String()),
			})
		}
	} else if senderState == Looking {
		// We already follow or lead; tell the looker who we believe the
		// leader is.
		current := e.self.CurrentVote()
		if hooks := e.self.Leader(); hooks != nil {
			if voteSet := e.takeLeadingVoteSet(); voteSet != nil {
				hooks.SetLeadingVoteSet(voteSet)
			}
			hooks.ReportLookingSid(sid)
		}

		log.Printf("[RECEIVER] Sending new notification. My id = %d recipient=%d zxid=0x%x leader=%d config version = %x",
			e.self.ID(), sid, current.Zxid, current.ID, e.self.QuorumVerifier().Version())

		qv := e.self.QuorumVerifier()
		e.sendqueue.offer(ToSend{
			Sid:           sid,
			Leader:        current.ID,
			Zxid:          current.Zxid,
			ElectionEpoch: current.ElectionEpoch,
			PeerEpoch:     current.PeerEpoch,
			State:         e.self.PeerState(),
			ConfigData:    []byte(qv.String()),
		})
	}
	return true
}

// configResult is what applyConfig learned from a frame's config trailer.
type configResult struct {
	verifier  quorum.Verifier
	abandoned bool
}

// applyConfig parses the config trailer, if any, and applies it as a
// reconfiguration when its version is newer than ours while we are looking.
func (w *workerReceiver) applyConfig(sid int64, f *WireFrame) configResult {
	e := w.e

	if f.Version <= versionLegacy || len(f.ConfigData) == 0 {
		return configResult{}
	}

	rqv, err := e.self.ConfigFromString(string(f.ConfigData))
	if err != nil {
		log.Printf("[RECEIVER] Something went wrong while processing config received from %d: %v", sid, err)
		return configResult{}
	}

	if rqv.Version() > e.self.QuorumVerifier().Version() {
		log.Printf("[RECEIVER] %d Received version: %x my version: %x",
			e.self.ID(), rqv.Version(), e.self.QuorumVerifier().Version())
		if e.self.PeerState() == Looking {
			changed, err := e.self.ProcessReconfig(rqv)
			if err != nil {
				log.Printf("[RECEIVER] Reconfig failed for config from %d: %v", sid, err)
				return configResult{verifier: rqv}
			}
			if changed {
				return configResult{verifier: rqv, abandoned: true}
			}
		}
	}
	return configResult{verifier: rqv}
}
