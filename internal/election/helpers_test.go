package election

import (
	"sync"
	"time"

	"fastelect/internal/election/quorum"
)

// stubPeer is a minimal in-package QuorumPeer for unit tests.
type stubPeer struct {
	mu       sync.RWMutex
	sid      int64
	learner  LearnerType
	zxid     int64
	epoch    int64
	state    ServerState
	vote     *Vote
	verifier quorum.Verifier
	lastSeen quorum.Verifier
	hooks    LeaderHooks

	reconfigChanged bool
	reconfigs       []quorum.Verifier
}

func newStubPeer(sid int64, verifier quorum.Verifier) *stubPeer {
	return &stubPeer{
		sid:      sid,
		state:    Looking,
		vote:     &Vote{ID: sid},
		verifier: verifier,
	}
}

func (p *stubPeer) ID() int64                { return p.sid }
func (p *stubPeer) LearnerType() LearnerType { return p.learner }

func (p *stubPeer) LastLoggedZxid() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.zxid
}

func (p *stubPeer) CurrentEpoch() (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.epoch, nil
}

func (p *stubPeer) PeerState() ServerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *stubPeer) SetPeerState(state ServerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

func (p *stubPeer) CurrentVote() *Vote {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vote
}

func (p *stubPeer) CurrentAndNextConfigVoters() map[int64]struct{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	voters := make(map[int64]struct{})
	for sid := range p.verifier.VotingMembers() {
		voters[sid] = struct{}{}
	}
	if p.lastSeen != nil {
		for sid := range p.lastSeen.VotingMembers() {
			voters[sid] = struct{}{}
		}
	}
	return voters
}

func (p *stubPeer) QuorumVerifier() quorum.Verifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.verifier
}

func (p *stubPeer) LastSeenQuorumVerifier() quorum.Verifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSeen
}

func (p *stubPeer) ConfigFromString(s string) (quorum.Verifier, error) {
	return quorum.Parse(s)
}

func (p *stubPeer) ProcessReconfig(qv quorum.Verifier) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reconfigs = append(p.reconfigs, qv)
	p.verifier = qv
	return p.reconfigChanged, nil
}

func (p *stubPeer) Leader() LeaderHooks {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hooks
}

// stubLeaderHooks records the leader-subsystem calls made by the receive
// worker.
type stubLeaderHooks struct {
	mu          sync.Mutex
	voteSet     *quorum.Tracker
	lookingSids []int64
}

func (h *stubLeaderHooks) SetLeadingVoteSet(t *quorum.Tracker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.voteSet = t
}

func (h *stubLeaderHooks) ReportLookingSid(sid int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lookingSids = append(h.lookingSids, sid)
}

// stubTransport records outbound frames and serves scripted inbound ones.
type stubTransport struct {
	mu        sync.Mutex
	sent      []sentFrame
	delivered bool
	connects  int
	halted    bool
	inbound   chan sentFrame
}

type sentFrame struct {
	sid   int64
	frame []byte
}

func newStubTransport() *stubTransport {
	return &stubTransport{delivered: true, inbound: make(chan sentFrame, 64)}
}

func (t *stubTransport) SendTo(sid int64, frame []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sentFrame{sid: sid, frame: frame})
}

func (t *stubTransport) PollRecv(timeout time.Duration) (int64, []byte, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case in := <-t.inbound:
		return in.sid, in.frame, true
	case <-deadline.C:
		return 0, nil, false
	}
}

func (t *stubTransport) HaveDelivered() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delivered
}

func (t *stubTransport) ConnectAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
}

func (t *stubTransport) Halt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halted = true
}

func (t *stubTransport) sentFrames() []sentFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]sentFrame, len(t.sent))
	copy(out, t.sent)
	return out
}

// majority3 is the {1,2,3} all-participant verifier most tests use.
func majority3() *quorum.Majority {
	return quorum.NewMajority([]quorum.Server{
		{ID: 1, Addr: "127.0.0.1:5001", Role: quorum.Participant},
		{ID: 2, Addr: "127.0.0.1:5002", Role: quorum.Participant},
		{ID: 3, Addr: "127.0.0.1:5003", Role: quorum.Participant},
	}, 1)
}

func newTestElection(p *stubPeer) (*FastLeaderElection, *stubTransport) {
	tr := newStubTransport()
	return New(p, tr, Options{}), tr
}
