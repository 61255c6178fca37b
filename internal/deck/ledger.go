package deck

import "fmt"

// Entry is one recorded verdict.
type Entry struct {
	CandidateID string  `json:"candidateId"`
	Verdict     Verdict `json:"verdict"`
}

// Ledger is the append-only record of verdicts for one pass.
type Ledger struct {
	entries []Entry
	seen    map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Record appends a verdict. A second verdict for the same candidate is rejected.
func (l *Ledger) Record(candidateID string, v Verdict) error {
	if _, ok := l.seen[candidateID]; ok {
		return fmt.Errorf("%w: candidate %s", ErrDuplicateVerdict, candidateID)
	}
	l.seen[candidateID] = struct{}{}
	l.entries = append(l.entries, Entry{CandidateID: candidateID, Verdict: v})
	return nil
}

// Entries returns a copy of the recorded verdicts in recording order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	return len(l.entries)
}

func (l *Ledger) Clear() {
	l.entries = nil
	l.seen = make(map[string]struct{})
}
