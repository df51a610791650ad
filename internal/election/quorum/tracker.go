package quorum

// Tracker accumulates acks for a single candidate vote and answers whether
// the candidate holds a quorum under every registered verifier. During a
// reconfiguration two verifiers are registered, so a candidate must win a
// majority in both the old and the new configuration before the election can
// conclude.
type Tracker struct {
	ackSets []*ackSet
}

type ackSet struct {
	qv   Verifier
	acks map[int64]struct{}
}

// NewTracker returns an empty tracker with no verifiers registered.
func NewTracker() *Tracker {
	return &Tracker{}
}

// AddVerifier registers a verifier the candidate must satisfy. A verifier
// with the same version as one already registered is ignored.
func (t *Tracker) AddVerifier(qv Verifier) {
	for _, s := range t.ackSets {
		if s.qv.Version() == qv.Version() {
			return
		}
	}
	t.ackSets = append(t.ackSets, &ackSet{qv: qv, acks: make(map[int64]struct{})})
}

// AddAck records that the given sid voted for the tracked candidate.
func (t *Tracker) AddAck(sid int64) {
	for _, s := range t.ackSets {
		s.acks[sid] = struct{}{}
	}
}

// HasSid reports whether sid is a voting member of any registered verifier.
func (t *Tracker) HasSid(sid int64) bool {
	for _, s := range t.ackSets {
		if _, ok := s.qv.VotingMembers()[sid]; ok {
			return true
		}
	}
	return false
}

// HasAllQuorums reports whether the recorded acks form a quorum under every
// registered verifier. With no verifiers registered there is nothing to
// satisfy and the answer is false.
func (t *Tracker) HasAllQuorums() bool {
	if len(t.ackSets) == 0 {
		return false
	}
	for _, s := range t.ackSets {
		if !s.qv.ContainsQuorum(s.acks) {
			return false
		}
	}
	return true
}
