package deck

import (
	"math"
	"time"
)

// Loop steps every animated Signal it owns. It stands in for the platform's
// animation timer: the view layer (or a frame goroutine) calls Step once per frame.
type Loop struct {
	signals []*Signal
}

func NewLoop() *Loop {
	return &Loop{}
}

// NewSignal creates a numeric cell driven by this loop.
func (l *Loop) NewSignal(v float64) *Signal {
	s := &Signal{value: v}
	l.signals = append(l.signals, s)
	return s
}

// Drop detaches signals from the loop. Their animations stop without callbacks.
func (l *Loop) Drop(signals ...*Signal) {
	for _, d := range signals {
		for i, s := range l.signals {
			if s == d {
				l.signals = append(l.signals[:i], l.signals[i+1:]...)
				break
			}
		}
		d.anim, d.onDone = nil, nil
	}
}

// Animating reports whether any signal still has an active animation.
func (l *Loop) Animating() bool {
	for _, s := range l.signals {
		if s.anim != nil {
			return true
		}
	}
	return false
}

// Step advances all animations by dt. Completion callbacks run after every
// signal has been stepped, in signal creation order.
func (l *Loop) Step(dt time.Duration) {
	var done []func()
	for _, s := range l.signals {
		if s.anim == nil {
			continue
		}
		v, finished := s.anim.step(s.value, dt)
		s.write(v)
		if finished {
			cb := s.onDone
			s.anim, s.onDone = nil, nil
			if cb != nil {
				done = append(done, cb)
			}
		}
	}
	for _, cb := range done {
		cb()
	}
}

// Settle steps at the given frame interval until nothing animates, up to
// maxFrames. It returns the number of frames stepped.
func (l *Loop) Settle(frame time.Duration, maxFrames int) int {
	n := 0
	for l.Animating() && n < maxFrames {
		l.Step(frame)
		n++
	}
	return n
}

// Signal is an observable numeric value that can be set directly or animated
// towards a target.
type Signal struct {
	value     float64
	anim      animation
	onDone    func()
	observers []func(float64)
}

func (s *Signal) Value() float64 {
	return s.value
}

// Set jumps to v and cancels any running animation without firing its callback.
func (s *Signal) Set(v float64) {
	s.anim, s.onDone = nil, nil
	s.write(v)
}

// Subscribe registers fn to be called on every value change.
func (s *Signal) Subscribe(fn func(float64)) {
	s.observers = append(s.observers, fn)
}

// TimingTo eases towards target over d, then calls done.
func (s *Signal) TimingTo(target float64, d time.Duration, done func()) {
	s.anim = &timing{from: s.value, to: target, duration: d}
	s.onDone = done
}

// SpringTo moves towards target with a damped spring, then calls done.
func (s *Signal) SpringTo(target float64, done func()) {
	s.anim = &spring{to: target, stiffness: springStiffness, damping: springDamping}
	s.onDone = done
}

// Interpolate maps the current value through piecewise-linear ranges, clamped.
func (s *Signal) Interpolate(in, out []float64) float64 {
	return Interpolate(s.value, in, out)
}

func (s *Signal) Animating() bool {
	return s.anim != nil
}

func (s *Signal) write(v float64) {
	if v == s.value {
		return
	}
	s.value = v
	for _, fn := range s.observers {
		fn(v)
	}
}

// Interpolate maps v through the piecewise-linear function defined by the
// ascending input range in and output range out. Values outside in are clamped.
func Interpolate(v float64, in, out []float64) float64 {
	if len(in) == 0 || len(in) != len(out) {
		return v
	}
	if v <= in[0] {
		return out[0]
	}
	last := len(in) - 1
	if v >= in[last] {
		return out[last]
	}
	for i := 1; i <= last; i++ {
		if v <= in[i] {
			span := in[i] - in[i-1]
			if span == 0 {
				return out[i]
			}
			t := (v - in[i-1]) / span
			return out[i-1] + t*(out[i]-out[i-1])
		}
	}
	return out[last]
}

type animation interface {
	step(current float64, dt time.Duration) (float64, bool)
}

type timing struct {
	from, to float64
	duration time.Duration
	elapsed  time.Duration
}

func (t *timing) step(_ float64, dt time.Duration) (float64, bool) {
	t.elapsed += dt
	if t.duration <= 0 || t.elapsed >= t.duration {
		return t.to, true
	}
	p := easeInOut(float64(t.elapsed) / float64(t.duration))
	return t.from + (t.to-t.from)*p, false
}

func easeInOut(p float64) float64 {
	if p < 0.5 {
		return 2 * p * p
	}
	return 1 - math.Pow(-2*p+2, 2)/2
}

const (
	springStiffness = 170.0
	springDamping   = 26.0
	springRest      = 0.01
	springSubstep   = time.Millisecond
)

type spring struct {
	to                 float64
	velocity           float64
	stiffness, damping float64
}

func (s *spring) step(current float64, dt time.Duration) (float64, bool) {
	x := current
	for dt > 0 {
		h := springSubstep
		if dt < h {
			h = dt
		}
		sec := h.Seconds()
		accel := -s.stiffness*(x-s.to) - s.damping*s.velocity
		s.velocity += accel * sec
		x += s.velocity * sec
		dt -= h
	}
	if math.Abs(x-s.to) < springRest && math.Abs(s.velocity) < springRest {
		s.velocity = 0
		return s.to, true
	}
	return x, false
}
