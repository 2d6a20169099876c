package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/evaluator"
)

// buildSidePots layers the pot by total contribution. Each distinct level
// among the unfolded players closes one pot; dead money from folded or
// departed players lands in the pot for its level, and only unfolded
// players who covered a level can win it.
func (t *Table) buildSidePots() []SidePot {
	h := t.CurrentHand

	var levels []int64
	seen := make(map[int64]bool)
	for _, s := range t.Seats {
		if s.InHand() && s.TotalCommitted > 0 && !seen[s.TotalCommitted] {
			seen[s.TotalCommitted] = true
			levels = append(levels, s.TotalCommitted)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []SidePot
	var prev, layered int64
	for _, level := range levels {
		var pot SidePot
		for _, s := range t.Seats {
			c := min(s.TotalCommitted, level) - min(s.TotalCommitted, prev)
			if c > 0 {
				pot.Amount += c
			}
			if s.InHand() && s.TotalCommitted >= level {
				pot.EligibleSeats = append(pot.EligibleSeats, s.Number)
			}
		}
		layered += pot.Amount
		pots = append(pots, pot)
		prev = level
	}

	// Contributions from seats vacated mid-hand are gone from the seat
	// records but still counted in h.Pot; sweep the difference into the
	// last pot so every chip is paid out.
	if rem := h.Pot - layered; rem > 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += rem
	}
	return pots
}

// resolveShowdown builds the side pots, pays each one to its best hand,
// and enters the showdown display hold.
func (t *Table) resolveShowdown(now time.Time) {
	h := t.CurrentHand
	h.SidePots = t.buildSidePots()
	for _, pot := range h.SidePots {
		t.payPot(pot)
	}
	h.Phase = PhaseShowdown
	h.ShowdownAt = now
}

// payPot finds the best hand among the pot's eligible seats and pays it,
// splitting ties evenly. Chips that cannot split go one each to the
// earliest winners clockwise from the dealer.
func (t *Table) payPot(pot SidePot) {
	h := t.CurrentHand

	type contender struct {
		seat *Seat
		hand evaluator.EvaluatedHand
	}
	var best []contender
	for _, num := range t.payoutOrder(pot.EligibleSeats) {
		s := t.Seats[num]
		cards := append(append([]deck.Card{}, s.HoleCards...), h.CommunityCards...)
		eh, err := evaluator.Evaluate(cards...)
		if err != nil {
			panic(fmt.Sprintf("game: evaluating seat %d in hand %s: %v", s.Number, h.ID, err))
		}
		switch {
		case len(best) == 0 || evaluator.Compare(eh, best[0].hand) > 0:
			best = []contender{{s, eh}}
		case evaluator.Compare(eh, best[0].hand) == 0:
			best = append(best, contender{s, eh})
		}
	}
	if len(best) == 0 {
		return
	}

	share := pot.Amount / int64(len(best))
	odd := pot.Amount % int64(len(best))
	for i, c := range best {
		amt := share
		if int64(i) < odd {
			amt++
		}
		c.seat.Stack += amt
		h.Winners = append(h.Winners, Winner{
			SeatNumber: c.seat.Number,
			AgentID:    c.seat.Agent.ID,
			AgentName:  c.seat.Agent.Name,
			Amount:     amt,
			HandName:   c.hand.Name,
		})
	}
}

// payoutOrder sorts seat numbers clockwise starting left of the dealer,
// the order in which showdown hands are revealed.
func (t *Table) payoutOrder(seats []int) []int {
	h := t.CurrentHand
	n := len(t.Seats)
	out := append([]int{}, seats...)
	sort.Slice(out, func(i, j int) bool {
		a := (out[i] - h.DealerSeat - 1 + n) % n
		b := (out[j] - h.DealerSeat - 1 + n) % n
		return a < b
	})
	return out
}
