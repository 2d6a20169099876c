package game

import (
	"fmt"
	"time"
)

// Action is a player's move in a betting round.
type Action string

const (
	ActionFold  Action = "fold"
	ActionCheck Action = "check"
	ActionCall  Action = "call"
	ActionBet   Action = "bet"
	ActionRaise Action = "raise"
	ActionAllIn Action = "all-in"
)

// ParseAction maps a wire string onto an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise, ActionAllIn:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// ProcessAction applies one action for the seat whose turn it is. For bet
// and raise, amount is the seat's new total bet for the round; other
// actions ignore it. A raise must reach currentBet+minRaise unless it puts
// the seat all-in, and an all-in below that threshold does not reopen
// betting for players who already acted.
func (t *Table) ProcessAction(seatNumber int, action Action, amount int64, now time.Time) error {
	h := t.CurrentHand
	if h == nil {
		return ErrNoActiveHand
	}
	if !h.Phase.Betting() {
		return ErrHandNotActionable
	}
	if turn, ok := t.TurnSeat(); !ok || turn != seatNumber {
		return ErrNotYourTurn
	}
	seat := t.Seats[seatNumber]

	// Preflop the big blind is a live bet, so an opening "bet" is really
	// a raise over it.
	if action == ActionBet && h.CurrentBet > 0 {
		if h.Phase != PhasePreflop {
			return ErrBetAlreadyOpen
		}
		action = ActionRaise
	}

	switch action {
	case ActionFold:
		seat.HasFolded = true

	case ActionCheck:
		if seat.CurrentBet != h.CurrentBet {
			return ErrCannotCheck
		}

	case ActionCall:
		if h.CurrentBet <= seat.CurrentBet {
			return ErrNothingToCall
		}
		// A stack shorter than the call puts in everything and is all-in.
		t.potCommit(seat, h.CurrentBet-seat.CurrentBet)

	case ActionBet:
		if amount <= 0 {
			return ErrBetTooSmall
		}
		if amount > seat.Stack {
			return ErrInsufficientChips
		}
		if amount < t.Config.BigBlind && amount != seat.Stack {
			return ErrBetTooSmall
		}
		t.potCommit(seat, amount)
		h.CurrentBet = seat.CurrentBet
		h.MinRaise = seat.CurrentBet
		t.reopenAction(seat)

	case ActionRaise:
		if h.CurrentBet == 0 {
			return ErrNoBetToRaise
		}
		if seat.HasActed {
			return ErrRaiseNotReopened
		}
		if amount <= h.CurrentBet {
			return ErrRaiseTooSmall
		}
		need := amount - seat.CurrentBet
		if need > seat.Stack {
			return ErrInsufficientChips
		}
		if amount < h.CurrentBet+h.MinRaise && need != seat.Stack {
			return ErrRaiseTooSmall
		}
		raiseSize := amount - h.CurrentBet
		t.potCommit(seat, need)
		h.CurrentBet = seat.CurrentBet
		if raiseSize >= h.MinRaise {
			h.MinRaise = raiseSize
			t.reopenAction(seat)
		}

	case ActionAllIn:
		if seat.Stack <= 0 {
			return ErrInsufficientChips
		}
		t.potCommit(seat, seat.Stack)
		if seat.CurrentBet > h.CurrentBet {
			raiseSize := seat.CurrentBet - h.CurrentBet
			h.CurrentBet = seat.CurrentBet
			if raiseSize >= h.MinRaise {
				h.MinRaise = raiseSize
				t.reopenAction(seat)
			}
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	seat.HasActed = true
	h.Actions = append(h.Actions, ActionRecord{
		SeatNumber: seat.Number,
		AgentID:    seat.Agent.ID,
		AgentName:  seat.Agent.Name,
		Action:     action,
		Amount:     seat.CurrentBet,
		Phase:      h.Phase,
		At:         now,
	})
	t.afterAction(now, true)
	return nil
}

// reopenAction clears acted flags after a full bet or raise so every other
// live seat gets a chance to respond.
func (t *Table) reopenAction(actor *Seat) {
	for _, s := range t.Seats {
		if s != actor && s.CanAct() {
			s.HasActed = false
		}
	}
}

// ActionOption describes one currently legal action with its chip bounds.
// For bet and raise the bounds are the seat's new total bet for the round.
type ActionOption struct {
	Action Action `json:"action"`
	Min    int64  `json:"min,omitempty"`
	Max    int64  `json:"max,omitempty"`
}

// ValidActions lists what the seat may legally do right now. Empty unless
// it is the seat's turn.
func (t *Table) ValidActions(seatNumber int) []ActionOption {
	h := t.CurrentHand
	if h == nil || !h.Phase.Betting() {
		return nil
	}
	if turn, ok := t.TurnSeat(); !ok || turn != seatNumber {
		return nil
	}
	seat := t.Seats[seatNumber]

	opts := []ActionOption{{Action: ActionFold}}
	toCall := h.CurrentBet - seat.CurrentBet
	if toCall <= 0 {
		opts = append(opts, ActionOption{Action: ActionCheck})
	} else {
		call := min(toCall, seat.Stack)
		opts = append(opts, ActionOption{Action: ActionCall, Min: call, Max: call})
	}
	if h.CurrentBet == 0 {
		if seat.Stack > 0 {
			opts = append(opts, ActionOption{
				Action: ActionBet,
				Min:    min(t.Config.BigBlind, seat.Stack),
				Max:    seat.Stack,
			})
		}
	} else if !seat.HasActed {
		minTo := h.CurrentBet + h.MinRaise
		maxTo := seat.CurrentBet + seat.Stack
		if maxTo > h.CurrentBet {
			if minTo > maxTo {
				// Only an all-in shove below a full raise remains.
				minTo = maxTo
			}
			opts = append(opts, ActionOption{Action: ActionRaise, Min: minTo, Max: maxTo})
		}
	}
	if seat.Stack > 0 {
		opts = append(opts, ActionOption{Action: ActionAllIn, Min: seat.Stack, Max: seat.Stack})
	}
	return opts
}
