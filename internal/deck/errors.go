package deck

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateVerdict is returned when a candidate already has a verdict in the current pass.
	ErrDuplicateVerdict = errors.New("deck: duplicate verdict")
	// ErrIncompleteLedger is returned when reconciliation runs before every candidate has a verdict.
	ErrIncompleteLedger = errors.New("deck: incomplete ledger")

	ErrPassFinished   = errors.New("deck: pass already finished")
	ErrPassInProgress = errors.New("deck: pass in progress")
	ErrPassAborted    = errors.New("deck: pass aborted")
	ErrNoCandidates   = errors.New("deck: no candidates")
	ErrCommitPending  = errors.New("deck: commit animation in flight")
)

// LoadError reports that the candidate source could not provide a deck.
type LoadError struct {
	CategoryID string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("deck: load category %s: %v", e.CategoryID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// PersistError reports that the persistence sink rejected a batch of ops.
type PersistError struct {
	CategoryID string
	Ops        int
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("deck: persist %d ops for category %s: %v", e.Ops, e.CategoryID, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
