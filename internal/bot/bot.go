// Package bot implements the built-in table-filling players. The three
// policies (fish, tag, lag) are deliberately cheap heuristics driven by
// an injected rand source, so tables stay lively and tests stay
// deterministic. A policy only ever proposes actions present in the
// view's valid list; the table manager still falls back to
// check-else-fold if a proposal is rejected.
package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/evaluator"
	"github.com/feltlabs/pitboss/internal/game"
)

// View is what a bot is allowed to see when it acts: its own cards, the
// board, and the table's public betting state. Amounts follow the engine
// convention that bets and raises are totals for the betting round.
type View struct {
	HoleCards   []deck.Card
	Community   []deck.Card
	Phase       game.Phase
	Pot         int64
	CurrentBet  int64
	SeatBet     int64
	Stack       int64
	BigBlind    int64
	Opponents   int
	RoundRaises int
	Valid       []game.ActionOption
}

// ToCall is the amount needed to continue, capped at the stack.
func (v View) ToCall() int64 {
	c := v.CurrentBet - v.SeatBet
	if c < 0 {
		c = 0
	}
	if c > v.Stack {
		c = v.Stack
	}
	return c
}

// Decision is a bot's chosen action. Amount is the new total bet for the
// round and only meaningful for bet and raise.
type Decision struct {
	Action    game.Action
	Amount    int64
	Reasoning string
}

// Strategy picks an action from a view.
type Strategy interface {
	Decide(v View) Decision
}

// New returns the strategy for an agent type. Unknown types get the
// fish, which at least keeps the chips moving.
func New(t game.AgentType, rng *rand.Rand, logger *log.Logger) Strategy {
	switch t {
	case game.AgentTAG:
		return NewTAG(rng, logger)
	case game.AgentLAG:
		return NewLAG(rng, logger)
	default:
		return NewFish(rng, logger)
	}
}

// option returns the entry for an action if the view allows it.
func option(v View, a game.Action) (game.ActionOption, bool) {
	for _, o := range v.Valid {
		if o.Action == a {
			return o, true
		}
	}
	return game.ActionOption{}, false
}

// raiseTo raises (or bets, when nothing is open) to roughly the target
// total, clamped to the legal window. False when no aggressive action is
// available, which happens once a short all-in has locked the round.
func raiseTo(v View, target int64, why string) (Decision, bool) {
	if o, ok := option(v, game.ActionRaise); ok {
		return Decision{Action: game.ActionRaise, Amount: clamp(target, o.Min, o.Max), Reasoning: why}, true
	}
	if o, ok := option(v, game.ActionBet); ok {
		return Decision{Action: game.ActionBet, Amount: clamp(target, o.Min, o.Max), Reasoning: why}, true
	}
	return Decision{}, false
}

// checkElseFold is the universal safe exit.
func checkElseFold(v View, why string) Decision {
	if _, ok := option(v, game.ActionCheck); ok {
		return Decision{Action: game.ActionCheck, Reasoning: why}
	}
	return Decision{Action: game.ActionFold, Reasoning: why}
}

func clamp(x, lo, hi int64) int64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// strength scores the hand 0..1. Preflop it is the starting-hand
// percentile; after the flop, the made rank with a bonus for live draws.
func strength(v View) float64 {
	if len(v.HoleCards) < 2 {
		return 0
	}
	if len(v.Community) < 3 {
		return deck.Percentile(v.HoleCards[0], v.HoleCards[1])
	}
	cards := make([]deck.Card, 0, len(v.HoleCards)+len(v.Community))
	cards = append(cards, v.HoleCards...)
	cards = append(cards, v.Community...)
	eh, err := evaluator.Evaluate(cards...)
	if err != nil {
		return 0
	}
	var s float64
	switch eh.Rank {
	case evaluator.HighCard:
		s = 0.10
	case evaluator.OnePair:
		s = 0.45
		if pr := eh.Values[0]; int(v.HoleCards[0].Rank) != pr && int(v.HoleCards[1].Rank) != pr {
			// Pair is entirely on the board; we hold nothing.
			s = 0.25
		}
	case evaluator.TwoPair:
		s = 0.68
	case evaluator.ThreeOfAKind:
		s = 0.80
	case evaluator.Straight:
		s = 0.87
	case evaluator.Flush:
		s = 0.91
	case evaluator.FullHouse:
		s = 0.95
	default:
		s = 0.99
	}
	if s < 0.60 {
		s += 0.10 * float64(draws(v.HoleCards, v.Community))
	}
	return s
}

// draws counts flush and straight draws that use at least one hole card.
// At most one of each is counted.
func draws(hole, community []deck.Card) int {
	n := 0
	if flushDraw(hole, community) {
		n++
	}
	if straightDraw(hole, community) {
		n++
	}
	return n
}

func flushDraw(hole, community []deck.Card) bool {
	for _, h := range hole {
		count := 0
		for _, c := range hole {
			if c.Suit == h.Suit {
				count++
			}
		}
		for _, c := range community {
			if c.Suit == h.Suit {
				count++
			}
		}
		if count == 4 {
			return true
		}
	}
	return false
}

// straightDraw looks for four distinct consecutive ranks that include a
// hole card. The ace counts both high and low.
func straightDraw(hole, community []deck.Card) bool {
	var present, fromHole [15]bool
	mark := func(c deck.Card, isHole bool) {
		r := int(c.Rank)
		present[r] = true
		if isHole {
			fromHole[r] = true
		}
		if c.Rank == deck.Ace {
			present[1] = true
			if isHole {
				fromHole[1] = true
			}
		}
	}
	for _, c := range hole {
		mark(c, true)
	}
	for _, c := range community {
		mark(c, false)
	}
	for lo := 1; lo <= 11; lo++ {
		run, ours := true, false
		for r := lo; r < lo+4; r++ {
			if !present[r] {
				run = false
				break
			}
			if fromHole[r] {
				ours = true
			}
		}
		if run && ours {
			return true
		}
	}
	return false
}
