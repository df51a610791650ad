package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetwork_DeliversBetweenEndpoints(t *testing.T) {
	net := NewNetwork()
	a := net.Endpoint(1)
	b := net.Endpoint(2)

	a.SendTo(2, []byte("ballot"))

	sid, frame, ok := b.PollRecv(time.Second)
	require.True(t, ok)
	assert.Equal(t, int64(1), sid)
	assert.Equal(t, []byte("ballot"), frame)
}

func TestNetwork_LoopsBackToSelf(t *testing.T) {
	net := NewNetwork()
	a := net.Endpoint(1)

	a.SendTo(1, []byte("own vote"))

	sid, frame, ok := a.PollRecv(time.Second)
	require.True(t, ok)
	assert.Equal(t, int64(1), sid)
	assert.Equal(t, []byte("own vote"), frame)
}

func TestNetwork_UnknownDestinationDropped(t *testing.T) {
	net := NewNetwork()
	a := net.Endpoint(1)

	a.SendTo(9, []byte("nowhere"))

	_, _, ok := a.PollRecv(50 * time.Millisecond)
	assert.False(t, ok)
}

func TestEndpoint_PollRecvTimesOut(t *testing.T) {
	net := NewNetwork()
	a := net.Endpoint(1)

	start := time.Now()
	_, _, ok := a.PollRecv(50 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestEndpoint_HaltStopsDelivery(t *testing.T) {
	net := NewNetwork()
	a := net.Endpoint(1)
	b := net.Endpoint(2)

	b.Halt()
	a.SendTo(2, []byte("late"))

	_, _, ok := b.PollRecv(50 * time.Millisecond)
	assert.False(t, ok)
}

func TestEndpoint_SameEndpointPerSid(t *testing.T) {
	net := NewNetwork()
	assert.Same(t, net.Endpoint(1), net.Endpoint(1))
}

func TestEndpoint_HaveDelivered(t *testing.T) {
	net := NewNetwork()
	assert.True(t, net.Endpoint(1).HaveDelivered())
}
