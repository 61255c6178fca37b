package deck

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const defaultLookahead = 2

// PassResult is what a completed pass produced.
type PassResult struct {
	CategoryID string      `json:"categoryId"`
	Ledger     []Entry     `json:"ledger"`
	Ops        []PersistOp `json:"ops"`
	Liked      []Candidate `json:"liked"`
}

// Options tunes a Controller. Zero values take defaults.
type Options struct {
	Config         Config
	Lookahead      int
	PersistTimeout time.Duration
	// OnFinish runs synchronously right after a pass has been reconciled.
	OnFinish func(PassResult)
}

// Controller runs passes over a category's deck. It is not safe for
// concurrent use: every input event must arrive on one goroutine (or under one
// lock). Persistence is the only work done elsewhere.
type Controller struct {
	source    CandidateSource
	sink      PersistenceSink
	cfg       Config
	lookahead int
	onFinish  func(PassResult)

	loop    *Loop
	ledger  *Ledger
	model   *Model
	gesture *Gesture
	stack   *Stack
	persist *persister

	categoryID string
	started    bool
	reconciled bool
	aborted    error
	commitErr  error
	result     *PassResult
}

func NewController(source CandidateSource, sink PersistenceSink, opts Options) *Controller {
	c := &Controller{
		source:    source,
		sink:      sink,
		cfg:       opts.Config.withDefaults(),
		lookahead: opts.Lookahead,
		onFinish:  opts.OnFinish,
		loop:      NewLoop(),
		ledger:    NewLedger(),
	}
	if c.lookahead <= 0 {
		c.lookahead = defaultLookahead
	}
	c.model = NewModel(c.ledger)
	c.gesture = NewGesture(c.loop, c.cfg, c.handleCommit)
	c.stack = NewStack(c.loop)
	if sink != nil {
		c.persist = newPersister(sink, opts.PersistTimeout)
	}
	return c
}

// Load fetches the category's candidates and starts a pass over them.
func (c *Controller) Load(ctx context.Context, categoryID string) error {
	if c.source == nil {
		return &LoadError{CategoryID: categoryID, Err: errors.New("no candidate source")}
	}
	candidates, err := c.source.LoadCandidates(ctx, categoryID)
	if err != nil {
		return &LoadError{CategoryID: categoryID, Err: err}
	}
	if len(candidates) == 0 {
		return &LoadError{CategoryID: categoryID, Err: ErrNoCandidates}
	}
	if err := c.Start(candidates); err != nil {
		return err
	}
	c.categoryID = categoryID
	return nil
}

// Start begins a pass over candidates, discarding any pass in progress.
func (c *Controller) Start(candidates []Candidate) error {
	if len(candidates) == 0 {
		return ErrNoCandidates
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		if _, dup := seen[cand.ID]; dup {
			return fmt.Errorf("deck: candidate %s listed twice", cand.ID)
		}
		seen[cand.ID] = struct{}{}
	}

	c.gesture.Unbind()
	c.model.Initialize(candidates)
	c.started = true
	c.resetPass()
	c.bindCurrent()
	return nil
}

// Decide records a verdict for the current candidate without a gesture, e.g.
// from a YES/NO button.
func (c *Controller) Decide(v Verdict) error {
	if !v.Valid() {
		return fmt.Errorf("deck: invalid verdict %q", v)
	}
	if c.aborted != nil {
		return fmt.Errorf("%w: %v", ErrPassAborted, c.aborted)
	}
	if c.gesture.Committing() {
		return ErrCommitPending
	}
	return c.decide(v)
}

// Move, Release and MediaEnded feed the front card's gesture.
func (c *Controller) Move(dx, dy float64) {
	if c.aborted != nil {
		return
	}
	c.gesture.Move(dx, dy)
}

func (c *Controller) Release(dx, dy float64) Resolution {
	if c.aborted != nil {
		return ResolutionIgnored
	}
	return c.gesture.Release(dx, dy)
}

func (c *Controller) MediaEnded(mediaRef string) Resolution {
	if c.aborted != nil {
		return ResolutionIgnored
	}
	return c.gesture.MediaEnded(mediaRef)
}

// Step advances animations by one frame. A commit whose animation completes
// during the step is decided here; a ledger error from that decision
// is returned.
func (c *Controller) Step(dt time.Duration) error {
	c.loop.Step(dt)
	err := c.commitErr
	c.commitErr = nil
	return err
}

func (c *Controller) Animating() bool {
	return c.loop.Animating()
}

// Restart clears the pass: stored isYES flags are reset, local flags cleared,
// cursor rewound. Counts stay at their reconciled values.
func (c *Controller) Restart() error {
	if !c.started {
		return ErrNoCandidates
	}
	c.gesture.Unbind()
	if c.persist != nil {
		c.persist.submit(c.categoryID, RestartReset(c.model.Candidates()))
	}
	c.model.Restart()
	c.resetPass()
	c.bindCurrent()
	return nil
}

// Shuffle reorders the deck. Only legal before the first verdict of a pass.
func (c *Controller) Shuffle(rng *rand.Rand) error {
	if c.gesture.Committing() {
		return ErrPassInProgress
	}
	if err := c.model.Shuffle(rng); err != nil {
		return err
	}
	c.bindCurrent()
	return nil
}

// Flush waits for outstanding persistence. A failed batch keeps being
// reported until RetryPersist applies it.
func (c *Controller) Flush(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	return c.persist.flush(ctx)
}

// RetryPersist resubmits the failed batch and every batch held behind it, in
// their original order, and waits for them.
func (c *Controller) RetryPersist(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	return c.persist.retry(ctx)
}

// Close drains pending persistence and stops the worker.
func (c *Controller) Close() {
	if c.persist != nil {
		c.persist.close()
	}
}

func (c *Controller) CategoryID() string {
	return c.categoryID
}

func (c *Controller) Current() (Candidate, bool) {
	return c.model.Current()
}

func (c *Controller) Lookahead() (Candidate, bool) {
	return c.model.Peek(1)
}

func (c *Controller) Peek(n int) (Candidate, bool) {
	return c.model.Peek(n)
}

func (c *Controller) IsFinished() bool {
	return c.started && c.model.IsFinished()
}

func (c *Controller) Cursor() int {
	return c.model.Cursor()
}

func (c *Controller) Len() int {
	return c.model.Len()
}

func (c *Controller) Candidates() []Candidate {
	return c.model.Candidates()
}

func (c *Controller) Ledger() []Entry {
	return c.ledger.Entries()
}

func (c *Controller) Feedback() Feedback {
	return c.gesture.Feedback()
}

func (c *Controller) GestureState() GestureState {
	return c.gesture.State()
}

func (c *Controller) Stack() []CardView {
	return c.stack.Views()
}

func (c *Controller) Aborted() error {
	return c.aborted
}

func (c *Controller) Config() Config {
	return c.cfg
}

// LikedList returns the candidates that received YES in this pass, in deck order.
func (c *Controller) LikedList() []Candidate {
	var out []Candidate
	for _, cand := range c.model.Candidates() {
		if cand.IsYES {
			out = append(out, cand)
		}
	}
	return out
}

// Result returns the reconciled outcome once the pass is finished.
func (c *Controller) Result() (PassResult, bool) {
	if c.result == nil {
		return PassResult{}, false
	}
	return *c.result, true
}

func (c *Controller) handleCommit(candidateID string, v Verdict) {
	cur, ok := c.model.Current()
	if !ok || cur.ID != candidateID {
		c.commitErr = fmt.Errorf("%w: commit for %s but front card is %s", ErrDuplicateVerdict, candidateID, cur.ID)
		c.aborted = c.commitErr
		return
	}
	if err := c.decide(v); err != nil {
		c.commitErr = err
	}
}

func (c *Controller) decide(v Verdict) error {
	cur, ok := c.model.Current()
	if !ok {
		return ErrPassFinished
	}
	if err := c.ledger.Record(cur.ID, v); err != nil {
		c.aborted = err
		c.gesture.Unbind()
		return err
	}
	if v == VerdictYes {
		c.model.markYES(c.model.Cursor())
	}
	c.model.Advance()

	if c.model.IsFinished() {
		if err := c.finish(); err != nil {
			c.aborted = err
			c.gesture.Unbind()
			return err
		}
	}
	c.bindCurrent()
	return nil
}

func (c *Controller) finish() error {
	if c.reconciled {
		return nil
	}
	ops, err := Reconcile(c.ledger.Entries(), c.model.Candidates())
	if err != nil {
		return err
	}
	c.reconciled = true
	for _, op := range ops {
		if op.Count != nil {
			c.model.setCount(op.ID, *op.Count)
		}
	}

	res := PassResult{
		CategoryID: c.categoryID,
		Ledger:     c.ledger.Entries(),
		Ops:        ops,
		Liked:      c.LikedList(),
	}
	c.result = &res
	if c.persist != nil {
		c.persist.submit(c.categoryID, ops)
	}
	if c.onFinish != nil {
		c.onFinish(res)
	}
	return nil
}

func (c *Controller) bindCurrent() {
	if cur, ok := c.model.Current(); ok {
		// Bind only fails mid-commit, and every caller runs after the commit resolved.
		_ = c.gesture.Bind(cur)
	} else {
		c.gesture.Unbind()
	}

	visible := make([]Candidate, 0, c.lookahead+1)
	for i := 0; i <= c.lookahead; i++ {
		cand, ok := c.model.Peek(i)
		if !ok {
			break
		}
		visible = append(visible, cand)
	}
	c.stack.Sync(visible)
}

func (c *Controller) resetPass() {
	c.reconciled = false
	c.aborted = nil
	c.commitErr = nil
	c.result = nil
}
