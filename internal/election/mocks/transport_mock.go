package mocks

import (
	"sync"
	"time"
)

// SentFrame records one SendTo call on the MockTransport.
type SentFrame struct {
	Sid   int64
	Frame []byte
}

type queuedFrame struct {
	sid   int64
	frame []byte
}

// MockTransport is a scriptable implementation of election.Transport. Tests
// queue inbound frames with QueueFrame and inspect outbound traffic with
// Sent.
type MockTransport struct {
	mu   sync.Mutex
	sent []SentFrame

	inbound chan queuedFrame

	// Delivered controls HaveDelivered.
	Delivered bool

	connectAllCalls int
	halted          bool
}

// NewMockTransport creates a transport with room for 64 queued inbound
// frames.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		inbound:   make(chan queuedFrame, 64),
		Delivered: true,
	}
}

// QueueFrame schedules an inbound frame as if sent by the given peer.
func (t *MockTransport) QueueFrame(sid int64, frame []byte) {
	t.inbound <- queuedFrame{sid: sid, frame: frame}
}

func (t *MockTransport) SendTo(sid int64, frame []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, SentFrame{Sid: sid, Frame: frame})
}

func (t *MockTransport) PollRecv(timeout time.Duration) (int64, []byte, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case in := <-t.inbound:
		return in.sid, in.frame, true
	case <-deadline.C:
		return 0, nil, false
	}
}

func (t *MockTransport) HaveDelivered() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Delivered
}

func (t *MockTransport) ConnectAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectAllCalls++
}

func (t *MockTransport) Halt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halted = true
}

// Sent returns a copy of every frame handed to SendTo so far.
func (t *MockTransport) Sent() []SentFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SentFrame, len(t.sent))
	copy(out, t.sent)
	return out
}

// SentTo returns the frames addressed to a specific peer.
func (t *MockTransport) SentTo(sid int64) []SentFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []SentFrame
	for _, s := range t.sent {
		if s.Sid == sid {
			out = append(out, s)
		}
	}
	return out
}

// ConnectAllCalls returns how many times ConnectAll was invoked.
func (t *MockTransport) ConnectAllCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectAllCalls
}

// Halted reports whether Halt was called.
func (t *MockTransport) Halted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.halted
}
