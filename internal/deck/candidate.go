// Package deck implements the swipe elimination deck: a pass over a category's
// songs where every card is resolved into a YES or NO verdict by a drag gesture
// (or by its preview playing to the end), and the verdicts are folded into
// persisted counters once the pass completes.
package deck

import "context"

// Verdict is the binary outcome of one candidate's evaluation.
type Verdict string

const (
	VerdictYes Verdict = "YES"
	VerdictNo  Verdict = "NO"
)

func (v Verdict) Valid() bool {
	return v == VerdictYes || v == VerdictNo
}

// Candidate is one song eligible for the current pass.
type Candidate struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	MediaRef string `json:"mediaRef"`
	Count    int    `json:"count"`
	IsYES    bool   `json:"isYES"`
}

// PersistOp is a partial update of one stored song. Nil fields are left untouched.
type PersistOp struct {
	ID    string `json:"id"`
	Count *int   `json:"count,omitempty"`
	IsYES *bool  `json:"isYES,omitempty"`
}

// CandidateSource loads the songs of a category.
type CandidateSource interface {
	LoadCandidates(ctx context.Context, categoryID string) ([]Candidate, error)
}

// PersistenceSink applies partial updates to stored songs.
type PersistenceSink interface {
	ApplyOps(ctx context.Context, categoryID string, ops []PersistOp) error
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
