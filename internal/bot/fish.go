package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/feltlabs/pitboss/internal/game"
)

// Fish is the loose-passive default: checks whatever it can, calls almost
// anything, and only raises near the very top of its range.
type Fish struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewFish creates a loose-passive bot.
func NewFish(rng *rand.Rand, logger *log.Logger) *Fish {
	return &Fish{rng: rng, logger: logger.WithPrefix("fish")}
}

func (b *Fish) Decide(v View) Decision {
	d := b.decide(v)
	b.logger.Debug("decision", "action", d.Action, "amount", d.Amount, "why", d.Reasoning)
	return d
}

func (b *Fish) decide(v View) Decision {
	s := strength(v)
	toCall := v.ToCall()

	// Rare value raise with a monster, about half pot.
	if s >= 0.90 && b.rng.Float64() < 0.25 {
		if d, ok := raiseTo(v, v.CurrentBet+v.Pot/2, "monster, raising"); ok {
			return d
		}
	}

	if toCall == 0 {
		return checkElseFold(v, "free to see")
	}

	// Folds only big bets with a bottom-of-range hand, and not always.
	if s <= 0.15 && toCall > 4*v.BigBlind && b.rng.Float64() < 0.80 {
		return Decision{Action: game.ActionFold, Reasoning: "too rich for rags"}
	}
	if o, ok := option(v, game.ActionCall); ok {
		return Decision{Action: game.ActionCall, Amount: o.Max, Reasoning: "calling station"}
	}
	return checkElseFold(v, "nothing to do")
}
