// Package quorum provides the pluggable majority predicates used by leader
// election, together with the tracker that evaluates a candidate vote against
// one or more of them. Two verifiers are active at once while a membership
// change is in flight: a vote only wins if it holds a quorum under both the
// committed and the proposed configuration.
package quorum

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Role describes how a member participates in the ensemble.
type Role int

const (
	// Participant members vote in elections and count towards quorums.
	Participant Role = iota
	// Observer members receive the replicated stream but never vote.
	Observer
)

// String returns the serialized form of the Role.
func (r Role) String() string {
	switch r {
	case Participant:
		return "participant"
	case Observer:
		return "observer"
	default:
		return "unknown"
	}
}

// Server is a single ensemble member as carried in a serialized configuration.
type Server struct {
	ID   int64
	Addr string
	Role Role
}

// Verifier is the majority predicate consulted by the election core. Its
// String form is what travels on the wire inside v2 notification frames, so
// Parse must be able to reconstruct an equivalent Verifier from it.
type Verifier interface {
	// Weight returns the voting weight of a member. Zero means non-voter;
	// a candidate with zero weight can never win an election.
	Weight(sid int64) int64
	// ContainsQuorum reports whether the given set of acking sids forms a
	// quorum under this verifier's weights.
	ContainsQuorum(acks map[int64]struct{}) bool
	// VotingMembers returns the members with positive weight.
	VotingMembers() map[int64]Server
	// Version is the configuration version, monotonically increasing across
	// reconfigurations.
	Version() int64
	// String serializes the configuration to its UTF-8 wire form.
	String() string
}

// Oracle is implemented by verifiers that consult an external arbiter to
// break ties in two-member ensembles, where a lone survivor can never reach
// a counted majority on its own.
type Oracle interface {
	// NeedsOracle reports whether this configuration is small enough that
	// the arbiter has to be consulted.
	NeedsOracle() bool
	// AskOracle consults the arbiter. True means this peer holds the honour
	// and may make progress on its own.
	AskOracle() bool
	// RevalidateVoteSet re-evaluates a previously collected vote set once a
	// notification timeout has fired, giving the arbiter a chance to grant
	// the honour late.
	RevalidateVoteSet(t *Tracker, extendedTimeout bool) bool
}

// Majority is the standard verifier: every participant has weight one and a
// quorum is any strict majority of the voting members.
type Majority struct {
	version int64
	members map[int64]Server
	voting  map[int64]Server
}

// NewMajority builds a majority verifier over the given members. Observers
// are retained in the member list but excluded from the voting view.
func NewMajority(servers []Server, version int64) *Majority {
	m := &Majority{
		version: version,
		members: make(map[int64]Server, len(servers)),
		voting:  make(map[int64]Server),
	}
	for _, s := range servers {
		m.members[s.ID] = s
		if s.Role == Participant {
			m.voting[s.ID] = s
		}
	}
	return m
}

func (m *Majority) Weight(sid int64) int64 {
	if _, ok := m.voting[sid]; ok {
		return 1
	}
	return 0
}

func (m *Majority) ContainsQuorum(acks map[int64]struct{}) bool {
	votes := 0
	for sid := range acks {
		if _, ok := m.voting[sid]; ok {
			votes++
		}
	}
	return votes > len(m.voting)/2
}

func (m *Majority) VotingMembers() map[int64]Server {
	return m.voting
}

func (m *Majority) Version() int64 {
	return m.version
}

// String serializes the configuration as one "server.<sid>=<addr>:<role>"
// line per member, sorted by sid, followed by a "version=<hex>" line.
func (m *Majority) String() string {
	sids := make([]int64, 0, len(m.members))
	for sid := range m.members {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })

	var b strings.Builder
	for _, sid := range sids {
		s := m.members[sid]
		fmt.Fprintf(&b, "server.%d=%s:%s\n", s.ID, s.Addr, s.Role)
	}
	fmt.Fprintf(&b, "version=%x", m.version)
	return b.String()
}

// Parse reconstructs a Majority verifier from its String form. Frames built
// by older peers may omit the role suffix, in which case the member is a
// participant.
func Parse(s string) (*Majority, error) {
	var servers []Server
	var version int64

	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if v, ok := strings.CutPrefix(line, "version="); ok {
			parsed, err := strconv.ParseInt(v, 16, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid version %q: %w", v, err)
			}
			version = parsed
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed config line %q", line)
		}
		sidStr, ok := strings.CutPrefix(key, "server.")
		if !ok {
			return nil, fmt.Errorf("unknown config key %q", key)
		}
		sid, err := strconv.ParseInt(sidStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sid %q: %w", sidStr, err)
		}

		addr := value
		role := Participant
		if suffix, rest, found := lastSegment(value); found {
			switch suffix {
			case "participant":
				addr = rest
			case "observer":
				addr = rest
				role = Observer
			}
		}
		servers = append(servers, Server{ID: sid, Addr: addr, Role: role})
	}

	if len(servers) == 0 {
		return nil, fmt.Errorf("config %q contains no servers", s)
	}
	return NewMajority(servers, version), nil
}

// SameMembers reports whether two verifiers describe the same voting
// membership, ignoring the configuration version.
func SameMembers(a, b Verifier) bool {
	av, bv := a.VotingMembers(), b.VotingMembers()
	if len(av) != len(bv) {
		return false
	}
	for sid, s := range av {
		other, ok := bv[sid]
		if !ok || other.Addr != s.Addr {
			return false
		}
	}
	return true
}

// lastSegment splits off the text after the final colon.
func lastSegment(s string) (suffix, rest string, found bool) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return "", s, false
	}
	return s[i+1:], s[:i], true
}
