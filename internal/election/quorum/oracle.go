package quorum

import (
	"log"
	"os"
	"strings"
)

// OracleMajority is a majority verifier backed by an external arbiter for
// two-member ensembles. With two voting members the counted majority is still
// two, so a lone survivor could never elect itself; the arbiter decides which
// of the two may keep making progress.
//
// The arbiter is a file: it contains "1" when this peer holds the honour and
// "0" otherwise. The file is re-read on every consultation because the honour
// can move while the process is running.
type OracleMajority struct {
	*Majority
	oraclePath string
}

// NewOracleMajority wraps a majority verifier with a file-backed arbiter.
func NewOracleMajority(m *Majority, oraclePath string) *OracleMajority {
	return &OracleMajority{Majority: m, oraclePath: oraclePath}
}

// ContainsQuorum first applies the counted-majority rule. When that fails in
// a two-member configuration with a single ack, the arbiter is consulted and
// its grant stands in for the missing second vote.
func (o *OracleMajority) ContainsQuorum(acks map[int64]struct{}) bool {
	if o.Majority.ContainsQuorum(acks) {
		return true
	}
	if o.NeedsOracle() && len(acks) == 1 {
		return o.AskOracle()
	}
	return false
}

// NeedsOracle reports whether the configuration is a two-member ensemble.
func (o *OracleMajority) NeedsOracle() bool {
	return len(o.voting) == 2
}

// AskOracle reads the arbiter file. Any read failure is treated as the
// honour not being granted.
func (o *OracleMajority) AskOracle() bool {
	data, err := os.ReadFile(o.oraclePath)
	if err != nil {
		log.Printf("[QUORUM] Failed to consult oracle at %s: %v", o.oraclePath, err)
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// RevalidateVoteSet re-evaluates a vote set collected earlier in the round.
// It only fires after the notification timeout has been extended at least
// once, so a delayed honour grant can still conclude the election.
func (o *OracleMajority) RevalidateVoteSet(t *Tracker, extendedTimeout bool) bool {
	return t != nil && extendedTimeout && t.HasAllQuorums()
}
