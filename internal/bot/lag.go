package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/feltlabs/pitboss/internal/game"
)

// LAG attacks constantly: most hands get played, raises come in at pot
// size, and a slice of pure bluffs keeps opponents honest. After a few
// raises in one round it stops reopening and just calls down.
type LAG struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewLAG creates a loose-aggressive bot.
func NewLAG(rng *rand.Rand, logger *log.Logger) *LAG {
	return &LAG{rng: rng, logger: logger.WithPrefix("lag")}
}

func (b *LAG) Decide(v View) Decision {
	d := b.decide(v)
	b.logger.Debug("decision", "action", d.Action, "amount", d.Amount, "why", d.Reasoning)
	return d
}

func (b *LAG) decide(v View) Decision {
	s := strength(v)
	toCall := v.ToCall()
	roll := b.rng.Float64()

	// Near the stack's end with a real hand, shove rather than nibble.
	if s >= 0.75 && toCall*2 >= v.Stack {
		if o, ok := option(v, game.ActionAllIn); ok {
			return Decision{Action: game.ActionAllIn, Amount: o.Max, Reasoning: "pot committed"}
		}
	}

	// Raise wars end after three raises in a round.
	if v.RoundRaises < 3 {
		bluff := roll < 0.20 && v.Opponents <= 2
		if s >= 0.55 || bluff {
			why := "value, pot it"
			if bluff && s < 0.55 {
				why = "taking a stab"
			}
			if d, ok := raiseTo(v, v.CurrentBet+v.Pot, why); ok {
				return d
			}
		}
	}

	if toCall == 0 {
		return checkElseFold(v, "checking back")
	}

	// Plays most hands; folds only junk facing real money.
	if s >= 0.30 || toCall <= 3*v.BigBlind {
		if o, ok := option(v, game.ActionCall); ok {
			return Decision{Action: game.ActionCall, Amount: o.Max, Reasoning: "sticky call"}
		}
	}
	return Decision{Action: game.ActionFold, Reasoning: "even lags fold sometimes"}
}
