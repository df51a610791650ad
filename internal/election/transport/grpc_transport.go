package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"fastelect/internal/election/proto"
)

const (
	// rpcTimeout bounds a single Deliver attempt. Election frames are tiny
	// and the protocol rebroadcasts on timeout, so there is no point waiting
	// long for a slow peer.
	rpcTimeout = 50 * time.Millisecond

	// maxDeliverRetries is the number of attempts per frame before the
	// sender gives up and relies on the next rebroadcast.
	maxDeliverRetries = 3

	// retryBackoffBase is the base duration for backoff between retries.
	retryBackoffBase = 10 * time.Millisecond

	// senderPollTimeout is how long a per-peer sender blocks on its queue
	// before re-checking the stop flag.
	senderPollTimeout = time.Second
)

// GrpcTransport delivers election frames between peers over gRPC. Each known
// peer gets an outbound queue of capacity one — the election only ever cares
// about a peer's most recent vote, so a newer frame replaces an undelivered
// older one — drained by a dedicated sender goroutine. Frames addressed to
// the local peer are looped straight into the inbound queue.
type GrpcTransport struct {
	proto.UnimplementedElectionTransportServer

	sid int64

	// mu guards peers and outbound; both change when membership does.
	mu       sync.RWMutex
	peers    map[int64]string
	outbound map[int64]chan []byte
	started  bool

	// clientsConnPool stores a *grpc.ClientConn per peer. sync.Map keeps
	// access cheap for the read-mostly send path.
	clientsConnPool *sync.Map

	inFlight atomic.Int64
	recv     chan inboundFrame

	grpcServer *grpc.Server
	listener   net.Listener

	stop atomic.Bool
	wg   sync.WaitGroup
}

// NewGrpcTransport creates a transport for the given peer. peers maps every
// ensemble member's sid to its election address; the local sid may be
// present and is ignored for dialing. Further peers can join later through
// AddPeer.
func NewGrpcTransport(sid int64, listenAddr string, peers map[int64]string) (*GrpcTransport, error) {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}

	t := &GrpcTransport{
		sid:             sid,
		peers:           make(map[int64]string),
		outbound:        make(map[int64]chan []byte),
		clientsConnPool: &sync.Map{},
		recv:            make(chan inboundFrame, recvQueueCapacity),
		grpcServer:      grpc.NewServer(grpc.ConnectionTimeout(30 * time.Second)),
		listener:        lis,
	}
	proto.RegisterElectionTransportServer(t.grpcServer, t)

	for peerSid, addr := range peers {
		if peerSid == sid {
			continue
		}
		t.peers[peerSid] = addr
		t.outbound[peerSid] = make(chan []byte, 1)
	}
	return t, nil
}

// Addr returns the address the transport is listening on.
func (t *GrpcTransport) Addr() string {
	return t.listener.Addr().String()
}

// Start begins serving inbound frames and launches one sender goroutine per
// known peer.
func (t *GrpcTransport) Start() {
	t.ConnectAll()

	t.mu.Lock()
	t.started = true
	for peerSid, queue := range t.outbound {
		t.wg.Add(1)
		go t.runSender(peerSid, queue)
	}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.grpcServer.Serve(t.listener); err != nil {
			log.Printf("[TRANSPORT] Server for sid %d stopped: %v", t.sid, err)
		}
	}()

	log.Printf("[TRANSPORT] Election transport for sid %d listening on %s", t.sid, t.Addr())
}

// AddPeer registers a peer that joined after construction and connects to
// it.
func (t *GrpcTransport) AddPeer(peerSid int64, addr string) {
	if peerSid == t.sid {
		return
	}
	t.mu.Lock()
	if _, ok := t.peers[peerSid]; ok {
		t.mu.Unlock()
		return
	}
	t.peers[peerSid] = addr
	queue := make(chan []byte, 1)
	t.outbound[peerSid] = queue
	started := t.started
	if started {
		t.wg.Add(1)
		go t.runSender(peerSid, queue)
	}
	t.mu.Unlock()

	t.connect(peerSid, addr)
	log.Printf("[TRANSPORT] Added peer %d at %s", peerSid, addr)
}

// Deliver handles the inbound RPC from a peer. Delivery into the local queue
// is best effort; the protocol tolerates drops.
func (t *GrpcTransport) Deliver(_ context.Context, frame *proto.Frame) (*proto.Ack, error) {
	select {
	case t.recv <- inboundFrame{sid: frame.SenderSid, frame: frame.Payload}:
		return &proto.Ack{Accepted: true}, nil
	default:
		return &proto.Ack{Accepted: false}, nil
	}
}

// SendTo queues a frame for the given peer, replacing any older frame still
// waiting for that peer. It never blocks.
func (t *GrpcTransport) SendTo(sid int64, frame []byte) {
	if sid == t.sid {
		// Loopback: our own vote counts too, and it never crosses the wire.
		select {
		case t.recv <- inboundFrame{sid: t.sid, frame: frame}:
		default:
			log.Printf("[TRANSPORT] Dropping loopback frame: inbound queue full")
		}
		return
	}

	t.mu.RLock()
	queue, ok := t.outbound[sid]
	t.mu.RUnlock()
	if !ok {
		log.Printf("[TRANSPORT] No outbound queue for unknown peer %d", sid)
		return
	}
	for {
		select {
		case queue <- frame:
			return
		default:
			// Displace the undelivered older frame.
			select {
			case <-queue:
			default:
			}
		}
	}
}

// PollRecv waits up to timeout for an inbound frame.
func (t *GrpcTransport) PollRecv(timeout time.Duration) (int64, []byte, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case in := <-t.recv:
		return in.sid, in.frame, true
	case <-deadline.C:
		return 0, nil, false
	}
}

// HaveDelivered reports whether every outbound queue is drained and no frame
// is mid-delivery.
func (t *GrpcTransport) HaveDelivered() bool {
	if t.inFlight.Load() > 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, queue := range t.outbound {
		if len(queue) > 0 {
			return false
		}
	}
	return true
}

// ConnectAll (re)establishes a gRPC channel to every known peer. Failing to
// reach a single peer must not prevent connections to the others.
func (t *GrpcTransport) ConnectAll() {
	t.mu.RLock()
	peers := make(map[int64]string, len(t.peers))
	for sid, addr := range t.peers {
		peers[sid] = addr
	}
	t.mu.RUnlock()

	for peerSid, addr := range peers {
		t.connect(peerSid, addr)
	}
}

func (t *GrpcTransport) connect(peerSid int64, addr string) {
	if _, ok := t.clientsConnPool.Load(peerSid); ok {
		return
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Printf("[TRANSPORT] Failed establishing a gRPC channel to peer %d at %s: %v", peerSid, addr, err)
		return
	}
	t.clientsConnPool.Store(peerSid, conn)
}

// Halt shuts the transport down: senders stop, the server stops accepting,
// and all client connections are closed.
func (t *GrpcTransport) Halt() {
	if t.stop.Swap(true) {
		return
	}
	t.grpcServer.Stop()
	t.clientsConnPool.Range(func(key, value any) bool {
		if conn, ok := value.(*grpc.ClientConn); ok {
			if err := conn.Close(); err != nil {
				log.Printf("[TRANSPORT] Failed to close connection to %v: %v", key, err)
			}
		}
		return true
	})
	t.wg.Wait()
	log.Printf("[TRANSPORT] Election transport for sid %d is down", t.sid)
}

func (t *GrpcTransport) runSender(peerSid int64, queue chan []byte) {
	defer t.wg.Done()
	for !t.stop.Load() {
		deadline := time.NewTimer(senderPollTimeout)
		select {
		case frame := <-queue:
			deadline.Stop()
			t.inFlight.Inc()
			t.deliver(peerSid, frame)
			t.inFlight.Dec()
		case <-deadline.C:
		}
	}
}

// deliver pushes one frame to a peer, retrying a few times with backoff.
// After the final failure the frame is dropped: the election core
// rebroadcasts on timeout, so delivery here is best effort.
func (t *GrpcTransport) deliver(peerSid int64, frame []byte) {
	conn, err := t.getClientConn(peerSid)
	if err != nil {
		log.Printf("[TRANSPORT] Deliver to %d skipped: %v", peerSid, err)
		return
	}
	client := proto.NewElectionTransportClient(conn)

	var lastErr error
	for attempt := 0; attempt < maxDeliverRetries; attempt++ {
		rpcCtx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		_, lastErr = client.Deliver(rpcCtx, &proto.Frame{SenderSid: t.sid, Payload: frame})
		cancel()

		if lastErr == nil {
			return
		}
		if t.stop.Load() {
			return
		}
		if attempt < maxDeliverRetries-1 {
			time.Sleep(retryBackoffBase * time.Duration(attempt+1))
		}
	}
	log.Printf("[TRANSPORT] Deliver to %d failed after %d attempts: %v", peerSid, maxDeliverRetries, lastErr)
}

func (t *GrpcTransport) getClientConn(peerSid int64) (*grpc.ClientConn, error) {
	value, ok := t.clientsConnPool.Load(peerSid)
	if !ok {
		return nil, fmt.Errorf("gRPC client connection not found for peer %d", peerSid)
	}
	conn, ok := value.(*grpc.ClientConn)
	if !ok {
		return nil, fmt.Errorf("invalid clientConn type for peer %d: %T", peerSid, value)
	}
	return conn, nil
}
