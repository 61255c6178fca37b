package deck

import "math"

// GestureState is the state of the front card's drag gesture.
type GestureState int

const (
	GestureIdle GestureState = iota
	GestureDragging
	GestureCommittedYES
	GestureCommittedNO
)

func (s GestureState) String() string {
	switch s {
	case GestureIdle:
		return "idle"
	case GestureDragging:
		return "dragging"
	case GestureCommittedYES:
		return "committed_yes"
	case GestureCommittedNO:
		return "committed_no"
	default:
		return "unknown"
	}
}

// Resolution is what a release or media-end event did to the gesture.
type Resolution int

const (
	// ResolutionIgnored means the event had no effect (tap, stale or busy).
	ResolutionIgnored Resolution = iota
	ResolutionCancel
	ResolutionCommitYES
	ResolutionCommitNO
)

func (r Resolution) String() string {
	switch r {
	case ResolutionCancel:
		return "cancel"
	case ResolutionCommitYES:
		return "commit_yes"
	case ResolutionCommitNO:
		return "commit_no"
	default:
		return "ignored"
	}
}

// CommitTrigger is what asks the gesture to resolve: a pointer release or the
// preview reaching its natural end.
type CommitTrigger interface {
	commitTrigger()
}

type GestureRelease struct {
	DX, DY float64
}

type MediaEnded struct {
	MediaRef string
}

func (GestureRelease) commitTrigger() {}
func (MediaEnded) commitTrigger()     {}

// Gesture turns drag input on the front card into a verdict. It is bound to
// one candidate at a time and fires onCommit once per commit, after the
// off-screen animation has finished.
type Gesture struct {
	cfg      Config
	state    GestureState
	bound    bool
	cardID   string
	mediaRef string
	x, y     *Signal
	onCommit func(candidateID string, v Verdict)
}

func NewGesture(loop *Loop, cfg Config, onCommit func(candidateID string, v Verdict)) *Gesture {
	return &Gesture{
		cfg:      cfg.withDefaults(),
		x:        loop.NewSignal(0),
		y:        loop.NewSignal(0),
		onCommit: onCommit,
	}
}

// Bind attaches the gesture to a new front card. It fails while a commit
// animation is still running.
func (g *Gesture) Bind(c Candidate) error {
	if g.Committing() {
		return ErrCommitPending
	}
	g.reset()
	g.bound = true
	g.cardID = c.ID
	g.mediaRef = c.MediaRef
	return nil
}

// Unbind detaches the gesture; all input is ignored until the next Bind.
func (g *Gesture) Unbind() {
	g.reset()
	g.bound = false
	g.cardID, g.mediaRef = "", ""
}

func (g *Gesture) State() GestureState {
	return g.state
}

func (g *Gesture) CandidateID() string {
	return g.cardID
}

func (g *Gesture) Committing() bool {
	return g.state == GestureCommittedYES || g.state == GestureCommittedNO
}

// Move feeds the cumulative displacement since the pointer went down.
func (g *Gesture) Move(dx, dy float64) {
	if !g.bound || g.Committing() {
		return
	}
	if g.state == GestureIdle {
		if math.Abs(dx) <= g.cfg.DeadZone && math.Abs(dy) <= g.cfg.DeadZone {
			return
		}
		g.state = GestureDragging
	}
	g.x.Set(dx)
	g.y.Set(dy)
}

// Release ends the pointer gesture at the given displacement.
func (g *Gesture) Release(dx, dy float64) Resolution {
	g.Move(dx, dy)
	if g.state != GestureDragging {
		return ResolutionIgnored
	}
	return g.resolveCommit(GestureRelease{DX: dx, DY: dy})
}

// MediaEnded treats the preview's natural end as a YES release. It is ignored
// while the user is dragging, while a commit is running, or when ref belongs
// to a card that is no longer in front.
func (g *Gesture) MediaEnded(ref string) Resolution {
	if !g.bound || g.state != GestureIdle || ref != g.mediaRef {
		return ResolutionIgnored
	}
	return g.resolveCommit(MediaEnded{MediaRef: ref})
}

// Feedback returns the current visual state of the card.
func (g *Gesture) Feedback() Feedback {
	return FeedbackAt(g.cfg, g.x.Value(), g.y.Value())
}

func (g *Gesture) resolveCommit(t CommitTrigger) Resolution {
	v, ok := g.verdictFor(t)
	if !ok {
		g.state = GestureIdle
		g.x.SpringTo(0, nil)
		g.y.SpringTo(0, nil)
		return ResolutionCancel
	}

	target := g.cfg.ScreenWidth
	res := ResolutionCommitYES
	g.state = GestureCommittedYES
	if v == VerdictNo {
		target = -target
		res = ResolutionCommitNO
		g.state = GestureCommittedNO
	}

	id := g.cardID
	g.y.TimingTo(0, g.cfg.CommitDuration, nil)
	g.x.TimingTo(target, g.cfg.CommitDuration, func() {
		g.reset()
		if g.onCommit != nil {
			g.onCommit(id, v)
		}
	})
	return res
}

func (g *Gesture) verdictFor(t CommitTrigger) (Verdict, bool) {
	switch t := t.(type) {
	case GestureRelease:
		th := g.cfg.Threshold()
		if t.DX > th {
			return VerdictYes, true
		}
		if t.DX < -th {
			return VerdictNo, true
		}
	case MediaEnded:
		return VerdictYes, true
	}
	return "", false
}

func (g *Gesture) reset() {
	g.state = GestureIdle
	g.x.Set(0)
	g.y.Set(0)
}
