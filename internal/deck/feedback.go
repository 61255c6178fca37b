package deck

import (
	"math"
	"time"
)

// Color is an sRGB color with alpha in [0,1].
type Color struct {
	R uint8   `json:"r"`
	G uint8   `json:"g"`
	B uint8   `json:"b"`
	A float64 `json:"a"`
}

// Blend linearly mixes a towards b by t in [0,1].
func Blend(a, b Color, t float64) Color {
	t = clamp(t, 0, 1)
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return Color{
		R: mix(a.R, b.R),
		G: mix(a.G, b.G),
		B: mix(a.B, b.B),
		A: a.A + (b.A-a.A)*t,
	}
}

// Config holds the gesture tuning. Zero fields take the defaults of DefaultConfig.
type Config struct {
	ScreenWidth       float64
	ThresholdFraction float64
	DeadZone          float64
	MaxRotation       float64
	CommitDuration    time.Duration

	NeutralColor Color
	YesColor     Color
	NoColor      Color
}

func DefaultConfig() Config {
	return Config{
		ScreenWidth:       390,
		ThresholdFraction: 0.25,
		DeadZone:          10,
		MaxRotation:       30,
		CommitDuration:    300 * time.Millisecond,
		NeutralColor:      Color{R: 0xF5, G: 0xF5, B: 0xF5, A: 1},
		YesColor:          Color{R: 0, G: 255, B: 0, A: 0.3},
		NoColor:           Color{R: 255, G: 0, B: 0, A: 0.3},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScreenWidth <= 0 {
		c.ScreenWidth = d.ScreenWidth
	}
	if c.ThresholdFraction <= 0 {
		c.ThresholdFraction = d.ThresholdFraction
	}
	if c.DeadZone <= 0 {
		c.DeadZone = d.DeadZone
	}
	if c.MaxRotation <= 0 {
		c.MaxRotation = d.MaxRotation
	}
	if c.CommitDuration <= 0 {
		c.CommitDuration = d.CommitDuration
	}
	if c.NeutralColor == (Color{}) {
		c.NeutralColor = d.NeutralColor
	}
	if c.YesColor == (Color{}) {
		c.YesColor = d.YesColor
	}
	if c.NoColor == (Color{}) {
		c.NoColor = d.NoColor
	}
	return c
}

// Threshold is the horizontal displacement a release must exceed to commit.
func (c Config) Threshold() float64 {
	return c.ScreenWidth * c.ThresholdFraction
}

// Feedback is the visual state of the front card for one displacement.
type Feedback struct {
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	Rotation   float64 `json:"rotation"`
	Progress   float64 `json:"progress"`
	Background Color   `json:"background"`
	YesOpacity float64 `json:"yesOpacity"`
	NoOpacity  float64 `json:"noOpacity"`
}

// FeedbackAt computes the card feedback for a displacement. It has no side effects.
func FeedbackAt(cfg Config, dx, dy float64) Feedback {
	progress := clamp(math.Abs(dx)/cfg.Threshold(), 0, 1)
	fb := Feedback{
		TranslateX: dx,
		TranslateY: dy,
		Rotation:   Interpolate(dx, []float64{-cfg.ScreenWidth, 0, cfg.ScreenWidth}, []float64{-cfg.MaxRotation, 0, cfg.MaxRotation}),
		Progress:   progress,
		Background: cfg.NeutralColor,
	}
	switch {
	case dx > 0:
		fb.Background = Blend(cfg.NeutralColor, cfg.YesColor, progress)
		fb.YesOpacity = progress
	case dx < 0:
		fb.Background = Blend(cfg.NeutralColor, cfg.NoColor, progress)
		fb.NoOpacity = progress
	}
	return fb
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
