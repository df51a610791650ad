// Command fle runs a small in-process ensemble through a full leader
// election over the gRPC transport and prints the outcome. With -config it
// loads the ensemble from a YAML file and runs a single member instead.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"fastelect/internal/config"
	"fastelect/internal/election"
	"fastelect/internal/election/metrics"
	"fastelect/internal/election/peer"
	"fastelect/internal/election/quorum"
	"fastelect/internal/election/storage"
	"fastelect/internal/election/transport"
	"fastelect/internal/pubsub"
)

type member struct {
	peer      *peer.Peer
	transport *transport.GrpcTransport
	election  *election.FastLeaderElection
	store     *storage.BoltStore
	metrics   *metrics.Metrics
}

func main() {
	configPath := flag.String("config", "", "ensemble config file; runs member -id against it")
	memberID := flag.Int64("id", 0, "member id to run when -config is given")
	flag.Parse()

	if *configPath != "" {
		if err := runFromConfig(*configPath, *memberID); err != nil {
			log.Fatalf("member %d failed: %v", *memberID, err)
		}
		return
	}

	if err := runDemo(); err != nil {
		log.Fatalf("demo failed: %v", err)
	}
}

// runDemo brings up a three-member ensemble in one process, with member 2
// holding the most advanced log so the election has a determined winner.
func runDemo() error {
	addrs := map[int64]string{
		1: "127.0.0.1:15701",
		2: "127.0.0.1:15702",
		3: "127.0.0.1:15703",
	}
	zxids := map[int64]int64{1: 0x100000005, 2: 0x100000008, 3: 0x100000003}

	servers := make([]quorum.Server, 0, len(addrs))
	for sid, addr := range addrs {
		servers = append(servers, quorum.Server{ID: sid, Addr: addr, Role: quorum.Participant})
	}
	verifier := quorum.NewMajority(servers, 1)

	scratch := filepath.Join(os.TempDir(), "fle-demo-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0700); err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	bus := pubsub.NewBus()
	stateEvents := bus.Subscribe(peer.StateChanged, 16)

	members := make(map[int64]*member, len(addrs))
	for sid, addr := range addrs {
		m, err := newMember(sid, addr, addrs, verifier, scratch, bus, zxids[sid])
		if err != nil {
			return err
		}
		members[sid] = m
	}

	var wg sync.WaitGroup
	votes := make(map[int64]*election.Vote, len(members))
	var votesMu sync.Mutex

	for sid, m := range members {
		m.transport.Start()
		m.election.Start()

		wg.Add(1)
		go func(sid int64, m *member) {
			defer wg.Done()
			vote := m.election.LookForLeader()
			if vote == nil {
				log.Printf("member %d: election aborted", sid)
				return
			}
			m.peer.SetCurrentVote(vote)
			votesMu.Lock()
			votes[sid] = vote
			votesMu.Unlock()
		}(sid, m)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	go func() {
		for ev := range stateEvents {
			p := ev.Payload.(peer.StateChangedPayload)
			fmt.Printf("member %d -> %s\n", p.Sid, p.State)
		}
	}()
	<-done

	fmt.Println()
	for sid, vote := range votes {
		fmt.Printf("member %d elected leader %d (zxid=0x%x, round=0x%x)\n", sid, vote.ID, vote.Zxid, vote.ElectionEpoch)
	}
	for sid, m := range members {
		report := m.metrics.GetReport()
		fmt.Printf("member %d: %d election(s), %d notifications sent, %d received\n",
			sid, report.ElectionCount, report.NotificationsSent, report.NotificationsReceived)
		m.election.Shutdown()
		m.store.Close()
	}
	return nil
}

// runFromConfig runs a single ensemble member against a YAML config until
// its election concludes.
func runFromConfig(path string, sid int64) error {
	cfg, err := config.Read(path)
	if err != nil {
		return err
	}
	self, err := cfg.Member(sid)
	if err != nil {
		return err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), "fle-"+uuid.NewString())
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return err
	}

	bus := pubsub.NewBus()
	m, err := newMember(sid, self.Address, cfg.Addresses(), cfg.Verifier(), dataDir, bus, 0)
	if err != nil {
		return err
	}
	defer m.store.Close()

	m.transport.Start()
	m.election.Start()

	vote := m.election.LookForLeader()
	if vote == nil {
		return fmt.Errorf("election aborted")
	}
	m.peer.SetCurrentVote(vote)
	fmt.Printf("member %d elected leader %d (zxid=0x%x, round=0x%x); my state: %s\n",
		sid, vote.ID, vote.Zxid, vote.ElectionEpoch, m.peer.PeerState())
	return nil
}

func newMember(sid int64, addr string, addrs map[int64]string, verifier quorum.Verifier, dataDir string, bus *pubsub.Bus, zxid int64) (*member, error) {
	store, err := storage.NewBoltStore(filepath.Join(dataDir, fmt.Sprintf("member-%d.db", sid)))
	if err != nil {
		return nil, err
	}
	if zxid != 0 {
		if err := store.SetLastLoggedZxid(zxid); err != nil {
			return nil, err
		}
		if err := store.SetCurrentEpoch(zxid >> 32); err != nil {
			return nil, err
		}
	}

	p, err := peer.New(sid, election.Participant, verifier, store, bus)
	if err != nil {
		return nil, err
	}

	tr, err := transport.NewGrpcTransport(sid, addr, addrs)
	if err != nil {
		return nil, err
	}

	mtr := metrics.NewMetrics()
	fle := election.New(p, tr, election.Options{Metrics: mtr})

	return &member{peer: p, transport: tr, election: fle, store: store, metrics: mtr}, nil
}
