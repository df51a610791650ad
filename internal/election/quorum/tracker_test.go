package quorum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_SingleVerifier(t *testing.T) {
	tracker := NewTracker()
	tracker.AddVerifier(NewMajority(testServers(3), 1))

	t.Run("no acks is not a quorum", func(t *testing.T) {
		assert.False(t, tracker.HasAllQuorums())
	})

	t.Run("majority of acks is a quorum", func(t *testing.T) {
		tracker.AddAck(1)
		assert.False(t, tracker.HasAllQuorums())
		tracker.AddAck(3)
		assert.True(t, tracker.HasAllQuorums())
	})
}

func TestTracker_DualVerifier(t *testing.T) {
	// A reconfiguration in flight: {1,2,3} is committed, {3,4,5} proposed.
	old := NewMajority(testServers(3), 1)
	next := NewMajority([]Server{
		{ID: 3, Addr: "127.0.0.1:5003", Role: Participant},
		{ID: 4, Addr: "127.0.0.1:5004", Role: Participant},
		{ID: 5, Addr: "127.0.0.1:5005", Role: Participant},
	}, 2)

	tracker := NewTracker()
	tracker.AddVerifier(old)
	tracker.AddVerifier(next)

	t.Run("quorum in only one config is insufficient", func(t *testing.T) {
		tracker.AddAck(1)
		tracker.AddAck(2)
		assert.False(t, tracker.HasAllQuorums())
	})

	t.Run("overlapping quorums satisfy both configs", func(t *testing.T) {
		tracker.AddAck(3)
		assert.False(t, tracker.HasAllQuorums())
		tracker.AddAck(4)
		assert.True(t, tracker.HasAllQuorums())
	})
}

func TestTracker_AddVerifier_DeduplicatesByVersion(t *testing.T) {
	tracker := NewTracker()
	tracker.AddVerifier(NewMajority(testServers(3), 5))
	tracker.AddVerifier(NewMajority(testServers(5), 5))

	assert.Len(t, tracker.ackSets, 1)
}

func TestTracker_HasSid(t *testing.T) {
	tracker := NewTracker()
	tracker.AddVerifier(NewMajority(testServers(3), 1))

	assert.True(t, tracker.HasSid(2))
	assert.False(t, tracker.HasSid(9))
}

func TestTracker_EmptyHasNoQuorums(t *testing.T) {
	assert.False(t, NewTracker().HasAllQuorums())
}
