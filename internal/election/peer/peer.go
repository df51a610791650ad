// Package peer provides the concrete ensemble member the election core is
// constructed around. It owns the peer's externally visible state, its
// committed vote, the active quorum configuration, and the persistent
// election inputs, and it publishes lifecycle events for anything observing
// the peer.
package peer

import (
	"fmt"
	"log"
	"sync"

	"fastelect/internal/election"
	"fastelect/internal/election/quorum"
	"fastelect/internal/election/storage"
	"fastelect/internal/pubsub"
)

const (
	// StateChanged fires on every peer state transition. Payload:
	// StateChangedPayload.
	StateChanged pubsub.EventType = iota
	// VoteCommitted fires when the peer commits a new current vote at the
	// end of an election. Payload: *election.Vote.
	VoteCommitted
	// ReconfigApplied fires when a newer quorum configuration replaces the
	// active one. Payload: ReconfigAppliedPayload.
	ReconfigApplied
)

// StateChangedPayload travels with StateChanged events.
type StateChangedPayload struct {
	Sid   int64
	State election.ServerState
}

// ReconfigAppliedPayload travels with ReconfigApplied events.
type ReconfigAppliedPayload struct {
	Version int64
}

// Peer is an ensemble member. It implements election.QuorumPeer.
type Peer struct {
	id          int64
	learnerType election.LearnerType

	// mu guards state, the committed vote, the verifiers and the leader
	// hooks. The receive worker mutates the verifiers through
	// ProcessReconfig under this same lock.
	mu               sync.RWMutex
	state            election.ServerState
	currentVote      *election.Vote
	verifier         quorum.Verifier
	lastSeenVerifier quorum.Verifier
	leader           *LeaderState

	store *storage.BoltStore
	bus   *pubsub.Bus
}

// New creates a peer in the Looking state. Its initial committed vote names
// itself with the log position and epoch recovered from the store.
func New(id int64, learnerType election.LearnerType, verifier quorum.Verifier, store *storage.BoltStore, bus *pubsub.Bus) (*Peer, error) {
	zxid, err := store.LastLoggedZxid()
	if err != nil {
		return nil, fmt.Errorf("failed to read last logged zxid: %w", err)
	}
	epoch, err := store.CurrentEpoch()
	if err != nil {
		return nil, fmt.Errorf("failed to read current epoch: %w", err)
	}

	return &Peer{
		id:          id,
		learnerType: learnerType,
		state:       election.Looking,
		currentVote: &election.Vote{ID: id, Zxid: zxid, PeerEpoch: epoch},
		verifier:    verifier,
		store:       store,
		bus:         bus,
	}, nil
}

func (p *Peer) ID() int64 {
	return p.id
}

func (p *Peer) LearnerType() election.LearnerType {
	return p.learnerType
}

// LastLoggedZxid returns the last transaction id in the local log, or -1
// when the log cannot be read. A -1 zxid makes the election skip this peer's
// ballots rather than compare against a broken log.
func (p *Peer) LastLoggedZxid() (zxid int64) {
	zxid, err := p.store.LastLoggedZxid()
	if err != nil {
		log.Printf("[PEER-%d] Failed to read last logged zxid: %v", p.id, err)
		return -1
	}
	return zxid
}

func (p *Peer) CurrentEpoch() (int64, error) {
	return p.store.CurrentEpoch()
}

func (p *Peer) PeerState() election.ServerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetPeerState transitions the peer. Entering Leading creates the leader
// hooks; leaving it discards them.
func (p *Peer) SetPeerState(state election.ServerState) {
	p.mu.Lock()
	p.state = state
	if state == election.Leading {
		p.leader = &LeaderState{}
	} else {
		p.leader = nil
	}
	p.mu.Unlock()

	log.Printf("[PEER-%d] State transition to %s", p.id, state)
	p.bus.Publish(pubsub.Event{Type: StateChanged, Payload: StateChangedPayload{Sid: p.id, State: state}})
}

func (p *Peer) CurrentVote() *election.Vote {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentVote
}

// SetCurrentVote commits the vote an election concluded with.
func (p *Peer) SetCurrentVote(v *election.Vote) {
	p.mu.Lock()
	p.currentVote = v
	p.mu.Unlock()
	p.bus.Publish(pubsub.Event{Type: VoteCommitted, Payload: v})
}

// CurrentAndNextConfigVoters returns the union of voter sids across the
// committed configuration and any pending one.
func (p *Peer) CurrentAndNextConfigVoters() map[int64]struct{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	voters := make(map[int64]struct{})
	for sid := range p.verifier.VotingMembers() {
		voters[sid] = struct{}{}
	}
	if p.lastSeenVerifier != nil {
		for sid := range p.lastSeenVerifier.VotingMembers() {
			voters[sid] = struct{}{}
		}
	}
	return voters
}

func (p *Peer) QuorumVerifier() quorum.Verifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.verifier
}

func (p *Peer) LastSeenQuorumVerifier() quorum.Verifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSeenVerifier
}

// SetLastSeenQuorumVerifier records a proposed configuration that is not yet
// committed. Elections then require quorums under both configurations.
func (p *Peer) SetLastSeenQuorumVerifier(qv quorum.Verifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeenVerifier = qv
}

func (p *Peer) ConfigFromString(s string) (quorum.Verifier, error) {
	return quorum.Parse(s)
}

// ProcessReconfig installs a configuration with a newer version as the
// committed one. It returns true when the membership actually changed, which
// tells a mid-election receive worker that the current round is void.
func (p *Peer) ProcessReconfig(qv quorum.Verifier) (bool, error) {
	p.mu.Lock()
	if qv.Version() <= p.verifier.Version() {
		p.mu.Unlock()
		return false, nil
	}

	changed := !quorum.SameMembers(qv, p.verifier)
	p.verifier = qv
	if p.lastSeenVerifier != nil && p.lastSeenVerifier.Version() <= qv.Version() {
		p.lastSeenVerifier = nil
	}
	p.mu.Unlock()

	log.Printf("[PEER-%d] Applied configuration version %x (membership changed: %v)", p.id, qv.Version(), changed)
	p.bus.Publish(pubsub.Event{Type: ReconfigApplied, Payload: ReconfigAppliedPayload{Version: qv.Version()}})
	return changed, nil
}

// Leader returns the leader subsystem hooks while the peer is leading, nil
// otherwise.
func (p *Peer) Leader() election.LeaderHooks {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.leader == nil {
		return nil
	}
	return p.leader
}

// LeaderState is the slice of the leader subsystem the election talks to:
// the vote set that elected this leader, and the peers observed to still be
// looking, which the leader will chase during synchronization.
type LeaderState struct {
	mu          sync.Mutex
	voteSet     *quorum.Tracker
	lookingSids map[int64]struct{}
}

func (l *LeaderState) SetLeadingVoteSet(t *quorum.Tracker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.voteSet = t
}

func (l *LeaderState) ReportLookingSid(sid int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookingSids == nil {
		l.lookingSids = make(map[int64]struct{})
	}
	l.lookingSids[sid] = struct{}{}
}

// LeadingVoteSet returns the vote set handed over after the election.
func (l *LeaderState) LeadingVoteSet() *quorum.Tracker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.voteSet
}

// LookingSids returns the sids reported as still looking.
func (l *LeaderState) LookingSids() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	sids := make([]int64, 0, len(l.lookingSids))
	for sid := range l.lookingSids {
		sids = append(sids, sid)
	}
	return sids
}
