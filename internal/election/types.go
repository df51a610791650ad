// Package election implements fast leader election for a replicated
// coordination ensemble. Peers exchange vote notifications over a Transport
// until a quorum of them agrees on the peer whose log is at least as
// up-to-date as any other reachable peer; that peer becomes the leader and
// the rest follow it.
package election

import (
	"fmt"
	"time"

	"fastelect/internal/election/quorum"
)

// ServerState is the externally visible role of a peer at any given moment.
// Its integer values are fixed by the wire format.
type ServerState int32

const (
	// Looking peers are searching for a leader.
	Looking ServerState = iota
	// Following peers are synced with an elected leader.
	Following
	// Leading is the elected leader itself.
	Leading
	// Observing peers track the ensemble without voting.
	Observing
)

// String returns the string representation of the ServerState.
func (s ServerState) String() string {
	switch s {
	case Looking:
		return "LOOKING"
	case Following:
		return "FOLLOWING"
	case Leading:
		return "LEADING"
	case Observing:
		return "OBSERVING"
	default:
		return "UNKNOWN"
	}
}

// LearnerType determines which state a peer adopts once an election has
// concluded and it is not the leader.
type LearnerType int

const (
	// Participant peers vote and follow the leader.
	Participant LearnerType = iota
	// Observer peers only observe; they never vote and never lead.
	Observer
)

// A Vote names a candidate leader together with the log position and epoch
// that candidate advertised. Votes are immutable once created.
type Vote struct {
	// ID is the sid of the proposed leader.
	ID int64
	// Zxid is the last transaction id in the proposed leader's log. Its
	// upper 32 bits encode the epoch in which it was written.
	Zxid int64
	// ElectionEpoch is the logical-clock round this vote belongs to.
	ElectionEpoch int64
	// PeerEpoch is the accepted leader-tenure counter of the proposed leader.
	PeerEpoch int64
	// State is the sender's state, carried only on votes built from inbound
	// notifications. Locally constructed votes are Looking.
	State ServerState
}

// Equals reports vote equality for election purposes: two votes are the same
// ballot iff they name the same leader at the same zxid and peer epoch. The
// election epoch and sender state are deliberately excluded so that votes
// from peers that already concluded an earlier round still match.
func (v *Vote) Equals(other *Vote) bool {
	return v.ID == other.ID && v.Zxid == other.Zxid && v.PeerEpoch == other.PeerEpoch
}

// String returns a compact log representation of the Vote.
func (v *Vote) String() string {
	return fmt.Sprintf("(%d, 0x%x, 0x%x, 0x%x, %s)", v.ID, v.Zxid, v.ElectionEpoch, v.PeerEpoch, v.State)
}

// Notification is the decoded form of a received vote frame.
type Notification struct {
	// Sid identifies the sender.
	Sid int64
	// Leader is the sender's proposed leader.
	Leader int64
	// Zxid is the proposed leader's last logged transaction id.
	Zxid int64
	// ElectionEpoch is the sender's logical clock.
	ElectionEpoch int64
	// PeerEpoch is the proposed leader's accepted epoch.
	PeerEpoch int64
	// State is the sender's state at the time it sent the frame.
	State ServerState
	// Version is the frame format version the sender used.
	Version int32
	// Config is the sender's quorum configuration, present on v2 frames.
	Config quorum.Verifier
}

// ToSend is an outbound notification addressed to a single peer.
type ToSend struct {
	// Sid identifies the recipient.
	Sid int64
	// Leader is the proposed leader.
	Leader int64
	// Zxid is the proposed leader's last logged transaction id.
	Zxid int64
	// ElectionEpoch is the sender's logical clock.
	ElectionEpoch int64
	// PeerEpoch is the proposed leader's accepted epoch.
	PeerEpoch int64
	// State is the local peer's state.
	State ServerState
	// ConfigData is the serialized local quorum configuration.
	ConfigData []byte
}

// Transport moves raw election frames between peers. Implementations own
// per-destination queueing, connection establishment and teardown; SendTo
// must never block the caller, and frames addressed to the local peer must be
// looped back rather than dropped.
type Transport interface {
	// SendTo queues a frame for best-effort delivery to the given peer.
	SendTo(sid int64, frame []byte)
	// PollRecv waits up to timeout for an inbound frame. The third return
	// is false if the timeout elapsed.
	PollRecv(timeout time.Duration) (sid int64, frame []byte, ok bool)
	// HaveDelivered reports whether every outbound queue is empty.
	HaveDelivered() bool
	// ConnectAll (re)initiates connections to every known peer.
	ConnectAll()
	// Halt tears the transport down.
	Halt()
}

// LeaderHooks is the slice of the leader subsystem the receive worker talks
// to while the local peer is leading.
type LeaderHooks interface {
	// SetLeadingVoteSet hands over the vote set that elected this leader.
	SetLeadingVoteSet(t *quorum.Tracker)
	// ReportLookingSid records that the given peer is still looking.
	ReportLookingSid(sid int64)
}

// QuorumPeer is the parent peer object shared by the election and the other
// subsystems of the ensemble member. The election core only ever talks to
// this interface; it never reaches into ambient process state.
type QuorumPeer interface {
	// ID returns this peer's sid.
	ID() int64
	// LearnerType reports whether this peer is a participant or an observer.
	LearnerType() LearnerType
	// LastLoggedZxid returns the last transaction id in the local log.
	LastLoggedZxid() int64
	// CurrentEpoch returns the current epoch from persistent state.
	CurrentEpoch() (int64, error)
	// PeerState returns the peer's current state.
	PeerState() ServerState
	// SetPeerState transitions the peer to the given state.
	SetPeerState(state ServerState)
	// CurrentVote returns the peer's current committed vote.
	CurrentVote() *Vote
	// CurrentAndNextConfigVoters returns the union of voter sids across the
	// committed and any pending configuration.
	CurrentAndNextConfigVoters() map[int64]struct{}
	// QuorumVerifier returns the committed quorum configuration.
	QuorumVerifier() quorum.Verifier
	// LastSeenQuorumVerifier returns the pending configuration, or nil if no
	// reconfiguration is in flight.
	LastSeenQuorumVerifier() quorum.Verifier
	// ConfigFromString parses a serialized quorum configuration received on
	// the wire.
	ConfigFromString(s string) (quorum.Verifier, error)
	// ProcessReconfig applies a configuration with a newer version. It
	// returns true when the active configuration actually changed.
	ProcessReconfig(qv quorum.Verifier) (bool, error)
	// Leader returns the leader subsystem hooks while this peer is leading,
	// nil otherwise.
	Leader() LeaderHooks
}
