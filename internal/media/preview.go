package media

import (
	"context"
	"log"
	"sync"
	"time"
)

// DurationLookup resolves how long a media ref plays.
type DurationLookup interface {
	Duration(ctx context.Context, ref string) (time.Duration, error)
}

// Preview plays one media ref at a time and reports when it reaches its
// natural end. Starting a new ref or stopping cancels the pending end.
type Preview struct {
	lookup  DurationLookup
	onEnded func(ref string)

	mu    sync.Mutex
	ref   string
	gen   uint64
	timer *time.Timer
}

func NewPreview(lookup DurationLookup, onEnded func(ref string)) *Preview {
	return &Preview{lookup: lookup, onEnded: onEnded}
}

// Play starts ref. Its duration is looked up in the background; a ref with no
// known duration plays until replaced.
func (p *Preview) Play(ctx context.Context, ref string) {
	gen := p.start(ref)
	if p.lookup == nil || ref == "" {
		return
	}
	go func() {
		d, err := p.lookup.Duration(ctx, ref)
		if err != nil {
			log.Printf("worldcup-service: preview duration %s: %v", ref, err)
			return
		}
		p.arm(gen, ref, d)
	}()
}

// PlayFor starts ref with an already known duration.
func (p *Preview) PlayFor(ref string, d time.Duration) {
	gen := p.start(ref)
	p.arm(gen, ref, d)
}

// Stop cancels the current preview without reporting an end.
func (p *Preview) Stop() {
	p.start("")
}

// Current is the ref now playing, or "".
func (p *Preview) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ref
}

func (p *Preview) start(ref string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
	p.ref = ref
	return p.gen
}

func (p *Preview) arm(gen uint64, ref string, d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	p.timer = time.AfterFunc(d, func() { p.fire(gen, ref) })
}

func (p *Preview) fire(gen uint64, ref string) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.ref = ""
	p.mu.Unlock()

	if p.onEnded != nil {
		p.onEnded(ref)
	}
}
