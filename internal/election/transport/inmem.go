// Package transport provides the concrete message fabrics the election core
// runs on: a gRPC transport for real deployments and an in-process network
// for tests and demos. Both satisfy the election.Transport contract: SendTo
// never blocks, per-destination queueing is the transport's problem, and
// frames addressed to the local peer are looped back without touching the
// network.
package transport

import (
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// recvQueueCapacity bounds the inbound frame buffer. The election protocol
// is idempotent and rebroadcasts on timeout, so dropping under pressure is
// safe.
const recvQueueCapacity = 256

type inboundFrame struct {
	sid   int64
	frame []byte
}

// Network is an in-process message fabric connecting the endpoints of an
// ensemble that all live in one process.
type Network struct {
	mu        sync.Mutex
	endpoints map[int64]*Endpoint
}

// NewNetwork creates an empty in-process network.
func NewNetwork() *Network {
	return &Network{endpoints: make(map[int64]*Endpoint)}
}

// Endpoint returns the endpoint for the given sid, creating it on first use.
func (n *Network) Endpoint(sid int64) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ep, ok := n.endpoints[sid]; ok {
		return ep
	}
	ep := &Endpoint{
		sid:  sid,
		net:  n,
		recv: make(chan inboundFrame, recvQueueCapacity),
	}
	n.endpoints[sid] = ep
	return ep
}

func (n *Network) lookup(sid int64) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.endpoints[sid]
}

// Endpoint is one peer's attachment to a Network.
type Endpoint struct {
	sid    int64
	net    *Network
	recv   chan inboundFrame
	halted atomic.Bool
}

// SendTo delivers a frame to the named peer's inbound queue. Frames to self
// are looped back locally. Delivery is best effort: a full or halted
// destination drops the frame.
func (ep *Endpoint) SendTo(sid int64, frame []byte) {
	if ep.halted.Load() {
		return
	}
	dst := ep
	if sid != ep.sid {
		dst = ep.net.lookup(sid)
		if dst == nil || dst.halted.Load() {
			return
		}
	}
	select {
	case dst.recv <- inboundFrame{sid: ep.sid, frame: frame}:
	default:
		log.Printf("[TRANSPORT] Dropping frame for %d: inbound queue full", sid)
	}
}

// PollRecv waits up to timeout for an inbound frame.
func (ep *Endpoint) PollRecv(timeout time.Duration) (int64, []byte, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case in := <-ep.recv:
		return in.sid, in.frame, true
	case <-deadline.C:
		return 0, nil, false
	}
}

// HaveDelivered always reports true: frames are handed to the destination
// synchronously, so there is no outbound queue to drain.
func (ep *Endpoint) HaveDelivered() bool {
	return true
}

// ConnectAll is a no-op; in-process endpoints are always connected.
func (ep *Endpoint) ConnectAll() {}

// Halt detaches the endpoint. Frames sent to or from it are dropped from
// then on.
func (ep *Endpoint) Halt() {
	ep.halted.Store(true)
}
