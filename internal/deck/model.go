package deck

import "math/rand"

// Model tracks pass progress over a candidate sequence that is fixed for the
// duration of the pass.
type Model struct {
	candidates []Candidate
	cursor     int
	ledger     *Ledger
}

func NewModel(ledger *Ledger) *Model {
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Model{ledger: ledger}
}

// Initialize replaces the sequence and starts a fresh pass. An empty slice is
// ignored; callers check IsEmpty before starting.
func (m *Model) Initialize(candidates []Candidate) {
	if len(candidates) == 0 {
		return
	}
	m.candidates = make([]Candidate, len(candidates))
	copy(m.candidates, candidates)
	for i := range m.candidates {
		m.candidates[i].IsYES = false
	}
	m.cursor = 0
	m.ledger.Clear()
}

// Current returns the candidate at the cursor, or false once the pass is finished.
func (m *Model) Current() (Candidate, bool) {
	return m.Peek(0)
}

// Peek returns the candidate n positions after the cursor.
func (m *Model) Peek(n int) (Candidate, bool) {
	i := m.cursor + n
	if n < 0 || i >= len(m.candidates) {
		return Candidate{}, false
	}
	return m.candidates[i], true
}

// Advance moves the cursor by one. It does nothing once the pass is finished.
func (m *Model) Advance() {
	if m.IsFinished() {
		return
	}
	m.cursor++
}

func (m *Model) IsFinished() bool {
	return m.cursor >= len(m.candidates)
}

func (m *Model) IsEmpty() bool {
	return len(m.candidates) == 0
}

func (m *Model) Len() int {
	return len(m.candidates)
}

func (m *Model) Cursor() int {
	return m.cursor
}

// Candidates returns a copy of the sequence.
func (m *Model) Candidates() []Candidate {
	out := make([]Candidate, len(m.candidates))
	copy(out, m.candidates)
	return out
}

// Restart rewinds the cursor, clears the ledger and every isYES flag.
// Counts are left as they are.
func (m *Model) Restart() {
	m.cursor = 0
	m.ledger.Clear()
	for i := range m.candidates {
		m.candidates[i].IsYES = false
	}
}

// Shuffle reorders the candidates. It is only legal between passes.
func (m *Model) Shuffle(rng *rand.Rand) error {
	if m.cursor != 0 || m.ledger.Len() != 0 {
		return ErrPassInProgress
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(m.candidates), func(i, j int) {
		m.candidates[i], m.candidates[j] = m.candidates[j], m.candidates[i]
	})
	return nil
}

func (m *Model) markYES(i int) {
	m.candidates[i].IsYES = true
}

func (m *Model) setCount(id string, count int) {
	for i := range m.candidates {
		if m.candidates[i].ID == id {
			m.candidates[i].Count = count
			return
		}
	}
}
