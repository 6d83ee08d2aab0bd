// Package review steps through a deck's cards one at a time.
package review

import "flashdeck/internal/deck"

type Side int

const (
	Front Side = iota
	Back
)

func (s Side) String() string {
	if s == Back {
		return "back"
	}
	return "front"
}

// Session cycles over cards in display order. Moving past either end wraps
// around, and every move shows the front side again.
type Session struct {
	cards []deck.ReconciledCard
	pos   int
	side  Side
}

func NewSession(cards []deck.ReconciledCard) *Session {
	return &Session{cards: cards}
}

func (s *Session) Len() int   { return len(s.cards) }
func (s *Session) Pos() int   { return s.pos }
func (s *Session) Side() Side { return s.side }

// Current returns the card under review; ok is false for an empty deck.
func (s *Session) Current() (card deck.ReconciledCard, ok bool) {
	if len(s.cards) == 0 {
		return deck.ReconciledCard{}, false
	}
	return s.cards[s.pos], true
}

func (s *Session) Flip() {
	if len(s.cards) == 0 {
		return
	}
	if s.side == Front {
		s.side = Back
	} else {
		s.side = Front
	}
}

func (s *Session) Next() { s.Seek(s.pos + 1) }
func (s *Session) Prev() { s.Seek(s.pos - 1) }

// Seek moves to pos, taken modulo the deck size.
func (s *Session) Seek(pos int) {
	n := len(s.cards)
	if n == 0 {
		return
	}
	s.pos = ((pos % n) + n) % n
	s.side = Front
}

// Reveal shows the back of the current card.
func (s *Session) Reveal() {
	if len(s.cards) > 0 {
		s.side = Back
	}
}
