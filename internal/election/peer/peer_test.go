package peer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastelect/internal/election"
	"fastelect/internal/election/quorum"
	"fastelect/internal/election/storage"
	"fastelect/internal/pubsub"
)

func testVerifier(version int64, sids ...int64) *quorum.Majority {
	servers := make([]quorum.Server, 0, len(sids))
	for _, sid := range sids {
		servers = append(servers, quorum.Server{ID: sid, Addr: "127.0.0.1:5001", Role: quorum.Participant})
	}
	return quorum.NewMajority(servers, version)
}

func newTestPeer(t *testing.T, sid int64, bus *pubsub.Bus) *Peer {
	t.Helper()
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "peer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SetLastLoggedZxid(0x100000002))
	require.NoError(t, store.SetCurrentEpoch(1))

	p, err := New(sid, election.Participant, testVerifier(1, 1, 2, 3), store, bus)
	require.NoError(t, err)
	return p
}

func TestPeer_InitialState(t *testing.T) {
	p := newTestPeer(t, 2, pubsub.NewBus())

	assert.Equal(t, int64(2), p.ID())
	assert.Equal(t, election.Looking, p.PeerState())
	assert.Equal(t, int64(0x100000002), p.LastLoggedZxid())

	epoch, err := p.CurrentEpoch()
	require.NoError(t, err)
	assert.Equal(t, int64(1), epoch)

	// The boot vote names the peer itself at its recovered log position.
	v := p.CurrentVote()
	assert.Equal(t, int64(2), v.ID)
	assert.Equal(t, int64(0x100000002), v.Zxid)
	assert.Equal(t, int64(1), v.PeerEpoch)
}

func TestPeer_SetPeerStatePublishesEvent(t *testing.T) {
	bus := pubsub.NewBus()
	events := bus.Subscribe(StateChanged, 4)
	p := newTestPeer(t, 2, bus)

	p.SetPeerState(election.Following)

	ev := <-events
	payload := ev.Payload.(StateChangedPayload)
	assert.Equal(t, int64(2), payload.Sid)
	assert.Equal(t, election.Following, payload.State)
}

func TestPeer_LeaderHooksOnlyWhileLeading(t *testing.T) {
	p := newTestPeer(t, 2, pubsub.NewBus())

	assert.Nil(t, p.Leader())

	p.SetPeerState(election.Leading)
	hooks := p.Leader()
	require.NotNil(t, hooks)

	hooks.ReportLookingSid(3)
	hooks.ReportLookingSid(3)
	tracker := quorum.NewTracker()
	hooks.SetLeadingVoteSet(tracker)

	leader := p.leader
	assert.Equal(t, []int64{3}, leader.LookingSids())
	assert.Same(t, tracker, leader.LeadingVoteSet())

	p.SetPeerState(election.Looking)
	assert.Nil(t, p.Leader())
}

func TestPeer_CurrentAndNextConfigVoters(t *testing.T) {
	p := newTestPeer(t, 2, pubsub.NewBus())

	assert.Len(t, p.CurrentAndNextConfigVoters(), 3)

	p.SetLastSeenQuorumVerifier(testVerifier(2, 3, 4, 5))
	voters := p.CurrentAndNextConfigVoters()
	assert.Len(t, voters, 5)
	_, ok := voters[5]
	assert.True(t, ok)
}

func TestPeer_ProcessReconfig(t *testing.T) {
	bus := pubsub.NewBus()
	events := bus.Subscribe(ReconfigApplied, 4)
	p := newTestPeer(t, 2, bus)

	t.Run("stale version ignored", func(t *testing.T) {
		changed, err := p.ProcessReconfig(testVerifier(1, 1, 2, 4))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, int64(1), p.QuorumVerifier().Version())
	})

	t.Run("newer version with same membership", func(t *testing.T) {
		changed, err := p.ProcessReconfig(testVerifier(2, 1, 2, 3))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, int64(2), p.QuorumVerifier().Version())
		ev := <-events
		assert.Equal(t, int64(2), ev.Payload.(ReconfigAppliedPayload).Version)
	})

	t.Run("newer version with new membership", func(t *testing.T) {
		changed, err := p.ProcessReconfig(testVerifier(3, 1, 2, 4))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, int64(3), p.QuorumVerifier().Version())
	})

	t.Run("pending verifier cleared once committed", func(t *testing.T) {
		p.SetLastSeenQuorumVerifier(testVerifier(4, 1, 2, 5))
		changed, err := p.ProcessReconfig(testVerifier(4, 1, 2, 5))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Nil(t, p.LastSeenQuorumVerifier())
	})
}

func TestPeer_ConfigFromString(t *testing.T) {
	p := newTestPeer(t, 2, pubsub.NewBus())

	qv, err := p.ConfigFromString(testVerifier(7, 1, 2, 3).String())
	require.NoError(t, err)
	assert.Equal(t, int64(7), qv.Version())

	_, err = p.ConfigFromString("not a config")
	assert.Error(t, err)
}
