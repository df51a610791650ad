package election

import (
	"log"
	"math"
	"sync"
	"time"

	"go.uber.org/atomic"

	"fastelect/internal/election/quorum"
)

const (
	// FinalizeWait is how long a peer keeps listening for a strictly better
	// vote after it has already assembled a quorum behind its proposal. A
	// better vote arriving inside this window preempts the commit.
	FinalizeWait = 200 * time.Millisecond

	// DefaultMinNotificationInterval is the initial (and floor) timeout for
	// polling the inbound notification queue.
	DefaultMinNotificationInterval = FinalizeWait

	// DefaultMaxNotificationInterval caps the exponential backoff of the
	// notification poll timeout. It bounds how long the ensemble takes to
	// knit itself back together after a long partition.
	DefaultMaxNotificationInterval = 60 * time.Second
)

// MetricsCollector is an optional interface for collecting election metrics.
type MetricsCollector interface {
	RecordElection()
	RecordElectionDuration(duration time.Duration)
	RecordNotificationSent()
	RecordNotificationReceived()
}

// Options tunes a FastLeaderElection instance. The zero value selects the
// defaults.
type Options struct {
	// MinNotificationInterval is the initial and floor poll timeout.
	MinNotificationInterval time.Duration
	// MaxNotificationInterval is the poll timeout ceiling after backoff.
	MaxNotificationInterval time.Duration
	// Metrics receives election metrics when non-nil.
	Metrics MetricsCollector
}

// FastLeaderElection is the election state machine of a single peer. It owns
// the two message queues and the worker goroutines that bridge them to the
// Transport; the thread that calls LookForLeader drives the state machine
// itself.
type FastLeaderElection struct {
	self      QuorumPeer
	transport Transport

	sendqueue *pollQueue[ToSend]
	recvqueue *pollQueue[*Notification]
	messenger *messenger

	// logicalClock labels the current election round. It only ever moves
	// forward: once per LookForLeader invocation, or to catch up with a
	// newer round seen in a notification.
	logicalClock atomic.Int64

	// mu guards the proposal triple and leadingVoteSet. Workers read the
	// proposal through GetVote under the same lock.
	mu             sync.Mutex
	proposedLeader int64
	proposedZxid   int64
	proposedEpoch  int64
	leadingVoteSet *quorum.Tracker

	minNotificationInterval time.Duration
	maxNotificationInterval time.Duration
	finalizeWait            time.Duration

	stop    atomic.Bool
	metrics MetricsCollector
}

// New creates the election state machine for the given peer. Start must be
// called before LookForLeader so that the worker goroutines are running.
func New(self QuorumPeer, transport Transport, opts Options) *FastLeaderElection {
	if opts.MinNotificationInterval <= 0 {
		opts.MinNotificationInterval = DefaultMinNotificationInterval
	}
	if opts.MaxNotificationInterval <= 0 {
		opts.MaxNotificationInterval = DefaultMaxNotificationInterval
	}

	e := &FastLeaderElection{
		self:                    self,
		transport:               transport,
		sendqueue:               newPollQueue[ToSend](),
		recvqueue:               newPollQueue[*Notification](),
		proposedLeader:          -1,
		proposedZxid:            -1,
		minNotificationInterval: opts.MinNotificationInterval,
		maxNotificationInterval: opts.MaxNotificationInterval,
		finalizeWait:            FinalizeWait,
		metrics:                 opts.Metrics,
	}
	e.messenger = newMessenger(e)
	return e
}

// Start launches the send and receive workers.
func (e *FastLeaderElection) Start() {
	e.messenger.start()
}

// Shutdown stops the election loop and both workers and tears the transport
// down. A LookForLeader in flight returns nil at its next loop check.
func (e *FastLeaderElection) Shutdown() {
	e.stop.Store(true)

	e.mu.Lock()
	e.proposedLeader = -1
	e.proposedZxid = -1
	e.leadingVoteSet = nil
	e.mu.Unlock()

	log.Printf("[FLE] Shutting down transport")
	e.transport.Halt()
	log.Printf("[FLE] Shutting down messenger")
	e.messenger.halt()
	log.Printf("[FLE] Election is down")
}

// GetLogicalClock returns the current value of the logical clock counter.
func (e *FastLeaderElection) GetLogicalClock() int64 {
	return e.logicalClock.Load()
}

// GetVote returns the current proposal as a Vote.
func (e *FastLeaderElection) GetVote() *Vote {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &Vote{ID: e.proposedLeader, Zxid: e.proposedZxid, PeerEpoch: e.proposedEpoch}
}

func (e *FastLeaderElection) updateProposal(leader, zxid, epoch int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	log.Printf("[FLE] Updating proposal: %d (newleader), 0x%x (newzxid), %d (oldleader), 0x%x (oldzxid)",
		leader, zxid, e.proposedLeader, e.proposedZxid)
	e.proposedLeader = leader
	e.proposedZxid = zxid
	e.proposedEpoch = epoch
}

// takeLeadingVoteSet hands the vote set that elected this leader to exactly
// one caller; later calls return nil until a new election concludes.
func (e *FastLeaderElection) takeLeadingVoteSet() *quorum.Tracker {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.leadingVoteSet
	e.leadingVoteSet = nil
	return t
}

// sendNotifications queues the current proposal for every voter in the
// current and next configuration. The transport loops the copy addressed to
// ourselves back into our own inbound queue, so our ballot counts too.
func (e *FastLeaderElection) sendNotifications() {
	proposal := e.GetVote()
	clock := e.logicalClock.Load()
	for sid := range e.self.CurrentAndNextConfigVoters() {
		qv := e.self.QuorumVerifier()
		e.sendqueue.offer(ToSend{
			Sid:           sid,
			Leader:        proposal.ID,
			Zxid:          proposal.Zxid,
			ElectionEpoch: clock,
			PeerEpoch:     proposal.PeerEpoch,
			State:         Looking,
			ConfigData:    []byte(qv.String()),
		})
	}
}

// totalOrderPredicate reports whether the candidate (newID, newZxid,
// newEpoch) beats the incumbent (curID, curZxid, curEpoch). A candidate with
// zero voting weight never wins; otherwise the comparison is lexicographic on
// (peerEpoch, zxid, sid). Every peer applies exactly this rule, which is what
// makes the outcome converge.
func (e *FastLeaderElection) totalOrderPredicate(newID, newZxid, newEpoch, curID, curZxid, curEpoch int64) bool {
	if e.self.QuorumVerifier().Weight(newID) == 0 {
		return false
	}
	return newEpoch > curEpoch ||
		(newEpoch == curEpoch &&
			(newZxid > curZxid ||
				(newZxid == curZxid && newID > curID)))
}

// getVoteTracker builds a quorum tracker for the given candidate over a vote
// map. The tracker carries the committed verifier and, if a reconfiguration
// is in flight, the pending one too, so the candidate must win under both.
func (e *FastLeaderElection) getVoteTracker(votes map[int64]*Vote, vote *Vote) *quorum.Tracker {
	t := quorum.NewTracker()
	t.AddVerifier(e.self.QuorumVerifier())
	if lastSeen := e.self.LastSeenQuorumVerifier(); lastSeen != nil &&
		lastSeen.Version() > e.self.QuorumVerifier().Version() {
		t.AddVerifier(lastSeen)
	}
	for sid, v := range votes {
		if vote.Equals(v) {
			t.AddAck(sid)
		}
	}
	return t
}

// checkLeader guards against re-electing a peer that has crashed: a vote map
// may still be full of ballots naming it. Electing someone else requires a
// ballot from the named leader itself stating that it is leading; electing
// ourselves requires that the round is current.
func (e *FastLeaderElection) checkLeader(votes map[int64]*Vote, leader, electionEpoch int64) bool {
	if leader != e.self.ID() {
		v, ok := votes[leader]
		if !ok {
			return false
		}
		return v.State == Leading
	}
	return e.logicalClock.Load() == electionEpoch
}

// learningState decides which state a non-leading peer lands in once the
// election concludes.
func (e *FastLeaderElection) learningState() ServerState {
	if e.self.LearnerType() == Participant {
		return Following
	}
	return Observing
}

// initID returns the identity this peer initially proposes. Non-voting peers
// propose a sentinel that can never win.
func (e *FastLeaderElection) initID() int64 {
	if _, ok := e.self.QuorumVerifier().VotingMembers()[e.self.ID()]; ok {
		return e.self.ID()
	}
	return math.MinInt64
}

func (e *FastLeaderElection) initLastLoggedZxid() int64 {
	if e.self.LearnerType() == Participant {
		return e.self.LastLoggedZxid()
	}
	return math.MinInt64
}

func (e *FastLeaderElection) initPeerEpoch() int64 {
	if e.self.LearnerType() != Participant {
		return math.MinInt64
	}
	epoch, err := e.self.CurrentEpoch()
	if err != nil {
		// A peer that cannot read its own accepted epoch cannot safely
		// propose anything.
		panic(err)
	}
	return epoch
}

// setPeerState moves the parent peer into its post-election state and, when
// that state is Leading, parks the winning vote set for the leader subsystem
// to pick up.
func (e *FastLeaderElection) setPeerState(proposedLeader int64, voteSet *quorum.Tracker) {
	state := e.learningState()
	if proposedLeader == e.self.ID() {
		state = Leading
	}
	e.self.SetPeerState(state)
	if state == Leading {
		e.mu.Lock()
		e.leadingVoteSet = voteSet
		e.mu.Unlock()
	}
}

// leaveInstance drains the inbound queue on the way out of an election.
func (e *FastLeaderElection) leaveInstance(v *Vote) {
	log.Printf("[FLE] Leaving election instance: leader=%d, zxid=0x%x, my id=%d, my state=%s",
		v.ID, v.Zxid, e.self.ID(), e.self.PeerState())
	e.recvqueue.clear()
}

func (e *FastLeaderElection) validVoter(sid int64) bool {
	_, ok := e.self.CurrentAndNextConfigVoters()[sid]
	return ok
}

// LookForLeader starts a new round of leader election. It is invoked
// whenever the parent peer transitions to Looking, broadcasts this peer's
// proposal, and exchanges notifications until either a leader emerges or the
// election is shut down. It returns the winning Vote, or nil when the
// election was aborted by Shutdown or by a mid-election reconfiguration.
func (e *FastLeaderElection) LookForLeader() *Vote {
	electionStart := time.Now()
	if e.metrics != nil {
		e.metrics.RecordElection()
		defer func() {
			e.metrics.RecordElectionDuration(time.Since(electionStart))
		}()
	}

	// recvset holds the latest ballot from every peer voting in the current
	// round: a vote v is in recvset only if v.ElectionEpoch == logicalClock.
	recvset := make(map[int64]*Vote)

	// outofelection holds ballots from peers that already follow or lead,
	// regardless of round. A peer that arrives late to a concluded election
	// learns the leader from here.
	outofelection := make(map[int64]*Vote)

	notTimeout := e.minNotificationInterval

	e.mu.Lock()
	e.logicalClock.Inc()
	e.proposedLeader = e.initID()
	e.proposedZxid = e.initLastLoggedZxid()
	e.proposedEpoch = e.initPeerEpoch()
	e.mu.Unlock()

	log.Printf("[FLE] New election. My id = %d, proposed zxid=0x%x", e.self.ID(), e.GetVote().Zxid)
	e.sendNotifications()

	var voteSet *quorum.Tracker

	for e.self.PeerState() == Looking && !e.stop.Load() {
		n, ok := e.recvqueue.poll(notTimeout)
		if !ok {
			// No notifications: either everything we queued went out and the
			// ensemble is quiet, or connections are down.
			if e.transport.HaveDelivered() {
				e.sendNotifications()
			} else {
				e.transport.ConnectAll()
			}
			notTimeout = min(notTimeout<<1, e.maxNotificationInterval)

			// A two-node ensemble can lose its counted majority forever when
			// one member dies; once timeouts start stretching, give the
			// oracle a chance to conclude the round with what we have.
			if o, isOracle := e.self.QuorumVerifier().(quorum.Oracle); isOracle &&
				o.RevalidateVoteSet(voteSet, notTimeout != e.minNotificationInterval) {
				proposal := e.GetVote()
				e.setPeerState(proposal.ID, voteSet)
				endVote := &Vote{
					ID:            proposal.ID,
					Zxid:          proposal.Zxid,
					ElectionEpoch: e.logicalClock.Load(),
					PeerEpoch:     proposal.PeerEpoch,
				}
				e.leaveInstance(endVote)
				return endVote
			}

			log.Printf("[FLE] Notification timeout: %v", notTimeout)
			continue
		}

		if !e.validVoter(n.Sid) || !e.validVoter(n.Leader) {
			if !e.validVoter(n.Leader) {
				log.Printf("[FLE] Ignoring notification for non-cluster member sid %d from sid %d", n.Leader, n.Sid)
			}
			if !e.validVoter(n.Sid) {
				log.Printf("[FLE] Ignoring notification for sid %d from non-quorum member sid %d", n.Leader, n.Sid)
			}
			continue
		}

		switch n.State {
		case Looking:
			if endVote := e.receivedLookingNotification(recvset, &voteSet, n); endVote != nil {
				return endVote
			}
		case Observing:
			log.Printf("[FLE] Notification from observer: %d", n.Sid)
		case Following:
			if endVote := e.receivedFollowingNotification(recvset, outofelection, n); endVote != nil {
				return endVote
			}
		case Leading:
			if endVote := e.receivedLeadingNotification(recvset, outofelection, voteSet, n); endVote != nil {
				return endVote
			}
		default:
			log.Printf("[FLE] Notification state unrecognized: %d (n.state), %d (n.sid)", n.State, n.Sid)
		}
	}
	return nil
}

// receivedLookingNotification processes a ballot from a peer that is itself
// still looking. It reconciles rounds, lets the better candidate win, and
// once the current proposal holds a quorum, runs the finalization window
// before committing. voteSet is threaded back to the caller so the oracle
// timeout path can revalidate the most recent quorum evaluation.
func (e *FastLeaderElection) receivedLookingNotification(recvset map[int64]*Vote, voteSet **quorum.Tracker, n *Notification) *Vote {
	// A local log in an unusable state, or a ballot advertising one, cannot
	// be compared meaningfully.
	if e.initLastLoggedZxid() == -1 {
		log.Printf("[FLE] Ignoring notification as our zxid is -1")
		return nil
	}
	if n.Zxid == -1 {
		log.Printf("[FLE] Ignoring notification from member with -1 zxid %d", n.Sid)
		return nil
	}

	switch clock := e.logicalClock.Load(); {
	case n.ElectionEpoch > clock:
		// The sender is in a newer round: jump to it and start over with a
		// clean slate of this-round votes.
		e.logicalClock.Store(n.ElectionEpoch)
		clear(recvset)
		if e.totalOrderPredicate(n.Leader, n.Zxid, n.PeerEpoch, e.initID(), e.initLastLoggedZxid(), e.initPeerEpoch()) {
			e.updateProposal(n.Leader, n.Zxid, n.PeerEpoch)
		} else {
			e.updateProposal(e.initID(), e.initLastLoggedZxid(), e.initPeerEpoch())
		}
		e.sendNotifications()
	case n.ElectionEpoch < clock:
		log.Printf("[FLE] Notification election epoch is smaller than logicalclock. n.electionEpoch = 0x%x, logicalclock=0x%x",
			n.ElectionEpoch, clock)
		return nil
	default:
		proposal := e.GetVote()
		if e.totalOrderPredicate(n.Leader, n.Zxid, n.PeerEpoch, proposal.ID, proposal.Zxid, proposal.PeerEpoch) {
			e.updateProposal(n.Leader, n.Zxid, n.PeerEpoch)
			e.sendNotifications()
		}
	}

	log.Printf("[FLE] Adding vote: from=%d, proposed leader=%d, proposed zxid=0x%x, proposed election epoch=0x%x",
		n.Sid, n.Leader, n.Zxid, n.ElectionEpoch)
	recvset[n.Sid] = &Vote{ID: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch}

	proposal := e.GetVote()
	candidate := &Vote{
		ID:            proposal.ID,
		Zxid:          proposal.Zxid,
		ElectionEpoch: e.logicalClock.Load(),
		PeerEpoch:     proposal.PeerEpoch,
	}
	*voteSet = e.getVoteTracker(recvset, candidate)

	if !(*voteSet).HasAllQuorums() {
		return nil
	}

	// Quorum reached: hold the commit open for one more window in case a
	// strictly better candidate is still in flight. Such a candidate is put
	// back at the head of the queue so the outer loop re-evaluates it.
	for {
		nn, got := e.recvqueue.poll(e.finalizeWait)
		if !got {
			break
		}
		proposal = e.GetVote()
		if e.totalOrderPredicate(nn.Leader, nn.Zxid, nn.PeerEpoch, proposal.ID, proposal.Zxid, proposal.PeerEpoch) {
			e.recvqueue.offerFront(nn)
			return nil
		}
	}

	proposal = e.GetVote()
	e.setPeerState(proposal.ID, *voteSet)
	endVote := &Vote{
		ID:            proposal.ID,
		Zxid:          proposal.Zxid,
		ElectionEpoch: e.logicalClock.Load(),
		PeerEpoch:     proposal.PeerEpoch,
	}
	e.leaveInstance(endVote)
	return endVote
}

// receivedFollowingNotification processes a ballot from a peer that reports
// an already concluded election. If a quorum agrees on that leader — in the
// current round, or across rounds via outofelection — and the leader itself
// has acked that it is leading, this peer joins the concluded election.
func (e *FastLeaderElection) receivedFollowingNotification(recvset, outofelection map[int64]*Vote, n *Notification) *Vote {
	if n.ElectionEpoch == e.logicalClock.Load() {
		recvset[n.Sid] = &Vote{ID: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch, State: n.State}
		voteSet := e.getVoteTracker(recvset, &Vote{ID: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch, State: n.State})
		if voteSet.HasAllQuorums() && e.checkLeader(recvset, n.Leader, n.ElectionEpoch) {
			e.setPeerState(n.Leader, voteSet)
			endVote := &Vote{ID: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch}
			e.leaveInstance(endVote)
			return endVote
		}
	}

	// Before joining an established ensemble, verify that a majority follows
	// the same leader. outofelection also collects votes from the current
	// round, so a mixed set of Following and Leading ballots counts.
	outofelection[n.Sid] = &Vote{ID: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch, State: n.State}
	voteSet := e.getVoteTracker(outofelection, &Vote{ID: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch, State: n.State})
	if voteSet.HasAllQuorums() && e.checkLeader(outofelection, n.Leader, n.ElectionEpoch) {
		e.mu.Lock()
		e.logicalClock.Store(n.ElectionEpoch)
		e.mu.Unlock()
		e.setPeerState(n.Leader, voteSet)
		endVote := &Vote{ID: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch}
		e.leaveInstance(endVote)
		return endVote
	}

	return nil
}

// receivedLeadingNotification is receivedFollowingNotification plus the
// two-node recovery path: when the quorum math cannot admit us and the
// oracle's honour already belongs to the peer that says it is leading, we
// follow that leader on the oracle's word alone. voteSet is the tracker from
// earlier in the call and may be stale here; that is intentional, as the
// oracle path does not depend on its contents.
func (e *FastLeaderElection) receivedLeadingNotification(recvset, outofelection map[int64]*Vote, voteSet *quorum.Tracker, n *Notification) *Vote {
	if endVote := e.receivedFollowingNotification(recvset, outofelection, n); endVote != nil {
		return endVote
	}

	if o, isOracle := e.self.QuorumVerifier().(quorum.Oracle); isOracle && o.NeedsOracle() && !o.AskOracle() {
		log.Printf("[FLE] Oracle indicates to follow")
		e.setPeerState(n.Leader, voteSet)
		endVote := &Vote{ID: n.Leader, Zxid: n.Zxid, ElectionEpoch: n.ElectionEpoch, PeerEpoch: n.PeerEpoch}
		e.leaveInstance(endVote)
		return endVote
	}
	log.Printf("[FLE] Oracle indicates not to follow")
	return nil
}
