// Package mocks provides hand-written test doubles for the election
// contracts.
package mocks

import (
	"sync"

	"fastelect/internal/election"
	"fastelect/internal/election/quorum"
)

// MockQuorumPeer is a mock implementation of election.QuorumPeer for
// testing.
type MockQuorumPeer struct {
	mu sync.RWMutex

	Sid         int64
	Learner     election.LearnerType
	Zxid        int64
	Epoch       int64
	state       election.ServerState
	Vote        *election.Vote
	Verifier    quorum.Verifier
	LastSeen    quorum.Verifier
	LeaderHooks election.LeaderHooks

	// Error injection for testing
	CurrentEpochError   error
	ProcessReconfigErr  error
	ConfigFromStringErr error

	// stateTransitions records every SetPeerState call in order.
	stateTransitions []election.ServerState
}

// NewMockQuorumPeer creates a looking participant peer with the given
// identity and verifier.
func NewMockQuorumPeer(sid int64, verifier quorum.Verifier) *MockQuorumPeer {
	return &MockQuorumPeer{
		Sid:      sid,
		state:    election.Looking,
		Vote:     &election.Vote{ID: sid},
		Verifier: verifier,
	}
}

func (m *MockQuorumPeer) ID() int64 {
	return m.Sid
}

func (m *MockQuorumPeer) LearnerType() election.LearnerType {
	return m.Learner
}

func (m *MockQuorumPeer) LastLoggedZxid() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Zxid
}

func (m *MockQuorumPeer) CurrentEpoch() (int64, error) {
	if m.CurrentEpochError != nil {
		return 0, m.CurrentEpochError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Epoch, nil
}

func (m *MockQuorumPeer) PeerState() election.ServerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *MockQuorumPeer) SetPeerState(state election.ServerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.stateTransitions = append(m.stateTransitions, state)
}

// StateTransitions returns every SetPeerState call so far, in order.
func (m *MockQuorumPeer) StateTransitions() []election.ServerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]election.ServerState, len(m.stateTransitions))
	copy(out, m.stateTransitions)
	return out
}

func (m *MockQuorumPeer) CurrentVote() *election.Vote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Vote
}

// SetCurrentVote updates the committed vote the mock reports.
func (m *MockQuorumPeer) SetCurrentVote(v *election.Vote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Vote = v
}

func (m *MockQuorumPeer) CurrentAndNextConfigVoters() map[int64]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	voters := make(map[int64]struct{})
	for sid := range m.Verifier.VotingMembers() {
		voters[sid] = struct{}{}
	}
	if m.LastSeen != nil {
		for sid := range m.LastSeen.VotingMembers() {
			voters[sid] = struct{}{}
		}
	}
	return voters
}

func (m *MockQuorumPeer) QuorumVerifier() quorum.Verifier {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Verifier
}

func (m *MockQuorumPeer) LastSeenQuorumVerifier() quorum.Verifier {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastSeen
}

func (m *MockQuorumPeer) ConfigFromString(s string) (quorum.Verifier, error) {
	if m.ConfigFromStringErr != nil {
		return nil, m.ConfigFromStringErr
	}
	return quorum.Parse(s)
}

func (m *MockQuorumPeer) ProcessReconfig(qv quorum.Verifier) (bool, error) {
	if m.ProcessReconfigErr != nil {
		return false, m.ProcessReconfigErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if qv.Version() <= m.Verifier.Version() {
		return false, nil
	}
	changed := !quorum.SameMembers(qv, m.Verifier)
	m.Verifier = qv
	return changed, nil
}

func (m *MockQuorumPeer) Leader() election.LeaderHooks {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LeaderHooks
}
