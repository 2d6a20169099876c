package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/feltlabs/pitboss/internal/game"
)

// TAG plays few hands and plays them hard: strong holdings raise about
// two thirds of pot, medium ones call cheap bets, the rest folds unless
// the check is free.
type TAG struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewTAG creates a tight-aggressive bot.
func NewTAG(rng *rand.Rand, logger *log.Logger) *TAG {
	return &TAG{rng: rng, logger: logger.WithPrefix("tag")}
}

func (b *TAG) Decide(v View) Decision {
	d := b.decide(v)
	b.logger.Debug("decision", "action", d.Action, "amount", d.Amount, "why", d.Reasoning)
	return d
}

func (b *TAG) decide(v View) Decision {
	s := strength(v)
	toCall := v.ToCall()

	// More opponents, tighter range.
	strong := 0.85
	if v.Opponents >= 3 {
		strong = 0.88
	}

	if s >= strong {
		if d, ok := raiseTo(v, v.CurrentBet+(v.Pot*2)/3, "strong, raising"); ok {
			return d
		}
		// Raising is locked; a hand this good still calls anything.
		if o, ok := option(v, game.ActionCall); ok {
			return Decision{Action: game.ActionCall, Amount: o.Max, Reasoning: "strong, raise locked"}
		}
		return checkElseFold(v, "strong, nothing open")
	}

	if toCall == 0 {
		// Occasional probe with a decent hand, otherwise take the free card.
		if s >= 0.65 && b.rng.Float64() < 0.40 {
			if d, ok := raiseTo(v, (v.Pot*2)/3, "probing"); ok {
				return d
			}
		}
		return checkElseFold(v, "free card")
	}

	// Medium strength continues only when it is cheap.
	cheap := 2 * v.BigBlind
	if p := v.Pot / 4; p > cheap {
		cheap = p
	}
	if s >= 0.55 && toCall <= cheap {
		if o, ok := option(v, game.ActionCall); ok {
			return Decision{Action: game.ActionCall, Amount: o.Max, Reasoning: "priced in"}
		}
	}
	return Decision{Action: game.ActionFold, Reasoning: "out of range"}
}
