package election

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVote_Equals(t *testing.T) {
	v := &Vote{ID: 2, Zxid: 5, ElectionEpoch: 1, PeerEpoch: 3}

	t.Run("same ballot matches regardless of round and state", func(t *testing.T) {
		assert.True(t, v.Equals(&Vote{ID: 2, Zxid: 5, ElectionEpoch: 9, PeerEpoch: 3, State: Leading}))
	})

	t.Run("different leader, zxid or peer epoch differ", func(t *testing.T) {
		assert.False(t, v.Equals(&Vote{ID: 3, Zxid: 5, PeerEpoch: 3}))
		assert.False(t, v.Equals(&Vote{ID: 2, Zxid: 6, PeerEpoch: 3}))
		assert.False(t, v.Equals(&Vote{ID: 2, Zxid: 5, PeerEpoch: 4}))
	})
}

func TestFastLeaderElection_TotalOrderPredicate(t *testing.T) {
	e, _ := newTestElection(newStubPeer(1, majority3()))

	type vote struct{ id, zxid, epoch int64 }
	cur := vote{id: 1, zxid: 5, epoch: 1}

	cases := []struct {
		name string
		new  vote
		wins bool
	}{
		{"higher epoch wins", vote{id: 1, zxid: 0, epoch: 2}, true},
		{"lower epoch loses", vote{id: 3, zxid: 99, epoch: 0}, false},
		{"equal epoch, higher zxid wins", vote{id: 1, zxid: 6, epoch: 1}, true},
		{"equal epoch, lower zxid loses", vote{id: 3, zxid: 4, epoch: 1}, false},
		{"equal epoch and zxid, higher sid wins", vote{id: 2, zxid: 5, epoch: 1}, true},
		{"identical vote does not win", vote{id: 1, zxid: 5, epoch: 1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.totalOrderPredicate(tc.new.id, tc.new.zxid, tc.new.epoch, cur.id, cur.zxid, cur.epoch)
			assert.Equal(t, tc.wins, got)
		})
	}

	t.Run("zero-weight candidate never wins", func(t *testing.T) {
		// sid 9 is not a voting member, so even a far better tuple loses.
		assert.False(t, e.totalOrderPredicate(9, 100, 100, cur.id, cur.zxid, cur.epoch))
	})

	t.Run("strict order is asymmetric", func(t *testing.T) {
		a := vote{id: 2, zxid: 7, epoch: 1}
		b := vote{id: 3, zxid: 5, epoch: 1}
		assert.True(t, e.totalOrderPredicate(a.id, a.zxid, a.epoch, b.id, b.zxid, b.epoch))
		assert.False(t, e.totalOrderPredicate(b.id, b.zxid, b.epoch, a.id, a.zxid, a.epoch))
	})
}

func TestFastLeaderElection_CheckLeader(t *testing.T) {
	e, _ := newTestElection(newStubPeer(1, majority3()))
	e.logicalClock.Store(5)

	t.Run("electing self requires the current round", func(t *testing.T) {
		assert.True(t, e.checkLeader(map[int64]*Vote{}, 1, 5))
		assert.False(t, e.checkLeader(map[int64]*Vote{}, 1, 4))
	})

	t.Run("absent leader vote rejects", func(t *testing.T) {
		votes := map[int64]*Vote{
			2: {ID: 3, Zxid: 5, State: Following},
		}
		assert.False(t, e.checkLeader(votes, 3, 5))
	})

	t.Run("leader vote must state it is leading", func(t *testing.T) {
		votes := map[int64]*Vote{
			3: {ID: 3, Zxid: 5, State: Following},
		}
		assert.False(t, e.checkLeader(votes, 3, 5))

		votes[3] = &Vote{ID: 3, Zxid: 5, State: Leading}
		assert.True(t, e.checkLeader(votes, 3, 5))
	})
}

func TestFastLeaderElection_GetVote(t *testing.T) {
	e, _ := newTestElection(newStubPeer(1, majority3()))
	e.updateProposal(2, 0x500000001, 5)

	v := e.GetVote()
	assert.Equal(t, int64(2), v.ID)
	assert.Equal(t, int64(0x500000001), v.Zxid)
	assert.Equal(t, int64(5), v.PeerEpoch)
}

func TestFastLeaderElection_SendNotifications(t *testing.T) {
	p := newStubPeer(1, majority3())
	e, _ := newTestElection(p)
	e.logicalClock.Store(3)
	e.updateProposal(1, 7, 2)

	e.sendNotifications()

	recipients := make(map[int64]bool)
	for i := 0; i < 3; i++ {
		m, ok := e.sendqueue.poll(0)
		require.True(t, ok)
		recipients[m.Sid] = true
		assert.Equal(t, Looking, m.State)
		assert.Equal(t, int64(1), m.Leader)
		assert.Equal(t, int64(7), m.Zxid)
		assert.Equal(t, int64(3), m.ElectionEpoch)
		assert.Equal(t, int64(2), m.PeerEpoch)
		assert.NotEmpty(t, m.ConfigData)
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, recipients)
	assert.Equal(t, 0, e.sendqueue.len())
}

func TestFastLeaderElection_ObserverProposesSentinels(t *testing.T) {
	p := newStubPeer(4, majority3())
	p.learner = Observer
	p.zxid = 42
	p.epoch = 7
	e, _ := newTestElection(p)

	// A non-voting peer must never propose itself.
	assert.Equal(t, int64(math.MinInt64), e.initID())
	assert.Equal(t, int64(math.MinInt64), e.initLastLoggedZxid())
	assert.Equal(t, int64(math.MinInt64), e.initPeerEpoch())
}

func TestFastLeaderElection_ParticipantProposesItself(t *testing.T) {
	p := newStubPeer(2, majority3())
	p.zxid = 42
	p.epoch = 7
	e, _ := newTestElection(p)

	assert.Equal(t, int64(2), e.initID())
	assert.Equal(t, int64(42), e.initLastLoggedZxid())
	assert.Equal(t, int64(7), e.initPeerEpoch())
}

func TestFastLeaderElection_SetPeerState(t *testing.T) {
	t.Run("proposal naming self leads", func(t *testing.T) {
		p := newStubPeer(1, majority3())
		e, _ := newTestElection(p)
		e.setPeerState(1, nil)
		assert.Equal(t, Leading, p.PeerState())
	})

	t.Run("proposal naming another follows", func(t *testing.T) {
		p := newStubPeer(1, majority3())
		e, _ := newTestElection(p)
		e.setPeerState(3, nil)
		assert.Equal(t, Following, p.PeerState())
	})

	t.Run("observer observes", func(t *testing.T) {
		p := newStubPeer(1, majority3())
		p.learner = Observer
		e, _ := newTestElection(p)
		e.setPeerState(3, nil)
		assert.Equal(t, Observing, p.PeerState())
	})
}

func TestFastLeaderElection_ShutdownClearsProposal(t *testing.T) {
	p := newStubPeer(1, majority3())
	e, tr := newTestElection(p)
	e.updateProposal(2, 5, 1)

	e.Shutdown()

	assert.True(t, e.stop.Load())
	assert.True(t, tr.halted)
	v := e.GetVote()
	assert.Equal(t, int64(-1), v.ID)
	assert.Equal(t, int64(-1), v.Zxid)
}
