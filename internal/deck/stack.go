package deck

import "time"

// CardStyle places a card in the stack. Depth 0 is the front card.
type CardStyle struct {
	OffsetY float64 `json:"offsetY"`
	Scale   float64 `json:"scale"`
	Opacity float64 `json:"opacity"`
}

// CardView is a visible card with its current stack style.
type CardView struct {
	Candidate Candidate `json:"candidate"`
	Depth     int       `json:"depth"`
	Style     CardStyle `json:"style"`
}

const (
	stackOffsetStep = 5.0
	stackBackScale  = 0.95
	stackBackAlpha  = 0.8
	stackPromote    = 200 * time.Millisecond
)

// StyleAt is the resting style of a card at the given depth.
func StyleAt(depth int) CardStyle {
	if depth <= 0 {
		return CardStyle{Scale: 1, Opacity: 1}
	}
	return CardStyle{OffsetY: stackOffsetStep * float64(depth), Scale: stackBackScale, Opacity: stackBackAlpha}
}

type stackCard struct {
	offset, scale, opacity *Signal
}

// Stack animates the cards behind the front one. Animation state is keyed by
// candidate id, so a card keeps its own signals when the cards in front of it
// leave, regardless of its index in the deck.
type Stack struct {
	loop  *Loop
	cards map[string]*stackCard
	order []Candidate
}

func NewStack(loop *Loop) *Stack {
	return &Stack{loop: loop, cards: make(map[string]*stackCard)}
}

// Sync makes visible (front card first) the current stack. Cards that moved
// forward ease into their new depth; new cards appear at rest; cards no
// longer visible are dropped.
func (s *Stack) Sync(visible []Candidate) {
	keep := make(map[string]struct{}, len(visible))
	for depth, c := range visible {
		keep[c.ID] = struct{}{}
		target := StyleAt(depth)
		card, ok := s.cards[c.ID]
		if !ok {
			s.cards[c.ID] = &stackCard{
				offset:  s.loop.NewSignal(target.OffsetY),
				scale:   s.loop.NewSignal(target.Scale),
				opacity: s.loop.NewSignal(target.Opacity),
			}
			continue
		}
		card.offset.TimingTo(target.OffsetY, stackPromote, nil)
		card.scale.TimingTo(target.Scale, stackPromote, nil)
		card.opacity.TimingTo(target.Opacity, stackPromote, nil)
	}
	for id, card := range s.cards {
		if _, ok := keep[id]; !ok {
			s.loop.Drop(card.offset, card.scale, card.opacity)
			delete(s.cards, id)
		}
	}
	s.order = append(s.order[:0], visible...)
}

// Views returns the visible cards, front first, with their current styles.
func (s *Stack) Views() []CardView {
	out := make([]CardView, 0, len(s.order))
	for depth, c := range s.order {
		card := s.cards[c.ID]
		out = append(out, CardView{
			Candidate: c,
			Depth:     depth,
			Style: CardStyle{
				OffsetY: card.offset.Value(),
				Scale:   card.scale.Value(),
				Opacity: card.opacity.Value(),
			},
		})
	}
	return out
}
