package game

import "github.com/feltlabs/pitboss/internal/deck"

// Seat is one position at a table. Number is the index into Table.Seats and
// never changes; everything else is per-agent or per-hand state.
type Seat struct {
	Number int    `json:"number"`
	Agent  *Agent `json:"agent,omitempty"`

	Stack int64 `json:"stack"`
	// BuyIn is the cumulative amount deposited for this seat, including
	// rebuys. Used to reconcile escrow settlement on cash-out.
	BuyIn int64 `json:"buyIn"`

	// Per-hand state, reset by Table.StartHand.
	HoleCards      []deck.Card `json:"holeCards,omitempty"`
	CurrentBet     int64       `json:"currentBet"`
	TotalCommitted int64       `json:"totalCommitted"`
	StartingStack  int64       `json:"startingStack"`
	HasActed       bool        `json:"hasActed"`
	HasFolded      bool        `json:"hasFolded"`
	AllIn          bool        `json:"allIn"`

	// SittingOut seats stay occupied but are skipped by the dealer.
	// AutoResume marks the sit-out as provisional: the seat joined as an
	// observer and the manager wakes it before the next deal. An explicit
	// stand-up clears AutoResume and sticks until the agent resumes.
	SittingOut bool `json:"sittingOut"`
	AutoResume bool `json:"-"`
}

// Occupied reports whether an agent holds this seat.
func (s *Seat) Occupied() bool { return s.Agent != nil }

// CanPlay reports whether the seat should be dealt into the next hand.
func (s *Seat) CanPlay() bool {
	return s.Occupied() && !s.SittingOut && s.Stack > 0
}

// InHand reports whether the seat was dealt into the current hand and has
// not folded.
func (s *Seat) InHand() bool {
	return len(s.HoleCards) > 0 && !s.HasFolded
}

// CanAct reports whether the seat can still make a voluntary action this
// hand. All-in players and players with no chips behind only watch.
func (s *Seat) CanAct() bool {
	return s.InHand() && !s.AllIn && s.Stack > 0
}

// resetForHand clears per-hand state ahead of a new deal.
func (s *Seat) resetForHand() {
	s.HoleCards = nil
	s.CurrentBet = 0
	s.TotalCommitted = 0
	s.StartingStack = s.Stack
	s.HasActed = false
	s.HasFolded = false
	s.AllIn = false
}

// commit moves up to amount chips from the stack into the current bet,
// returning how many actually moved. A commit that empties the stack marks
// the seat all-in.
func (s *Seat) commit(amount int64) int64 {
	if amount > s.Stack {
		amount = s.Stack
	}
	s.Stack -= amount
	s.CurrentBet += amount
	s.TotalCommitted += amount
	if s.Stack == 0 {
		s.AllIn = true
	}
	return amount
}
