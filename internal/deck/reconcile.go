package deck

import "fmt"

// Reconcile translates a completed pass into persistence ops, one per ledger
// entry and in ledger order. Every candidate must have exactly one entry.
func Reconcile(entries []Entry, candidates []Candidate) ([]PersistOp, error) {
	if len(entries) != len(candidates) {
		return nil, fmt.Errorf("%w: %d verdicts for %d candidates", ErrIncompleteLedger, len(entries), len(candidates))
	}

	byID := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	ops := make([]PersistOp, 0, len(entries))
	covered := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		c, ok := byID[e.CandidateID]
		if !ok {
			return nil, fmt.Errorf("%w: verdict for unknown candidate %s", ErrIncompleteLedger, e.CandidateID)
		}
		if _, dup := covered[e.CandidateID]; dup {
			return nil, fmt.Errorf("%w: candidate %s", ErrDuplicateVerdict, e.CandidateID)
		}
		covered[e.CandidateID] = struct{}{}

		switch e.Verdict {
		case VerdictYes:
			ops = append(ops, PersistOp{ID: c.ID, Count: intPtr(c.Count + 1), IsYES: boolPtr(true)})
		case VerdictNo:
			ops = append(ops, PersistOp{ID: c.ID, Count: intPtr(c.Count), IsYES: boolPtr(false)})
		default:
			return nil, fmt.Errorf("deck: invalid verdict %q for candidate %s", e.Verdict, e.CandidateID)
		}
	}
	return ops, nil
}

// RestartReset clears the persisted isYES flag of every candidate without
// touching counts.
func RestartReset(candidates []Candidate) []PersistOp {
	ops := make([]PersistOp, 0, len(candidates))
	for _, c := range candidates {
		ops = append(ops, PersistOp{ID: c.ID, IsYES: boolPtr(false)})
	}
	return ops
}
