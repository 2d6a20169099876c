// Package evaluator ranks poker hands. Given five to seven cards it
// finds the best five-card hand and exposes a total order over results,
// with exact ties meaning the pot splits.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/feltlabs/pitboss/internal/deck"
)

// HandRank is a hand category in increasing strength.
type HandRank int

const (
	HighCard HandRank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the display name of the category.
func (r HandRank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// EvaluatedHand is the result of evaluating a set of cards.
// Values is the lexicographic tiebreaker within the category: for two
// pair it is [high pair, low pair, kicker], for a full house [trips,
// pair], for straights just the high card, and so on.
type EvaluatedHand struct {
	Rank     HandRank    `json:"rank"`
	Values   []int       `json:"values"`
	BestFive []deck.Card `json:"bestFive"`
	Name     string      `json:"name"`
}

// Evaluate returns the best five-card hand from the given cards.
// It accepts five to seven cards and is order-independent.
func Evaluate(cards ...deck.Card) (EvaluatedHand, error) {
	if len(cards) < 5 {
		return EvaluatedHand{}, fmt.Errorf("evaluate: need at least 5 cards, got %d", len(cards))
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if seen[c] {
			return EvaluatedHand{}, fmt.Errorf("evaluate: duplicate card %s", c)
		}
		seen[c] = true
	}

	best := EvaluatedHand{Rank: -1}
	var five [5]deck.Card
	n := len(cards)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five[0], five[1], five[2], five[3], five[4] =
							cards[a], cards[b], cards[c], cards[d], cards[e]
						eh := evaluateFive(five)
						if best.Rank < 0 || Compare(eh, best) > 0 {
							best = eh
						}
					}
				}
			}
		}
	}
	return best, nil
}

// Compare defines the total order: positive when a beats b, negative
// when b beats a, zero on an exact tie.
func Compare(a, b EvaluatedHand) int {
	if a.Rank != b.Rank {
		return int(a.Rank) - int(b.Rank)
	}
	for i := 0; i < len(a.Values) && i < len(b.Values); i++ {
		if a.Values[i] != b.Values[i] {
			return a.Values[i] - b.Values[i]
		}
	}
	return 0
}

// evaluateFive classifies exactly five cards.
func evaluateFive(five [5]deck.Card) EvaluatedHand {
	cards := make([]deck.Card, 5)
	copy(cards, five[:])
	sort.Slice(cards, func(i, j int) bool { return cards[i].Rank > cards[j].Rank })

	flush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	straightHigh, straight := straightHigh(cards)
	if straight {
		// Present the wheel as 5-4-3-2-A.
		if straightHigh == int(deck.Five) && cards[0].Rank == deck.Ace {
			wheel := make([]deck.Card, 0, 5)
			wheel = append(wheel, cards[1:]...)
			wheel = append(wheel, cards[0])
			cards = wheel
		}
		switch {
		case flush && straightHigh == int(deck.Ace):
			return EvaluatedHand{Rank: RoyalFlush, Values: []int{straightHigh}, BestFive: cards, Name: RoyalFlush.String()}
		case flush:
			return EvaluatedHand{Rank: StraightFlush, Values: []int{straightHigh}, BestFive: cards, Name: StraightFlush.String()}
		default:
			return EvaluatedHand{Rank: Straight, Values: []int{straightHigh}, BestFive: cards, Name: Straight.String()}
		}
	}

	// Group ranks by multiplicity, highest rank first within each group.
	counts := make(map[deck.Rank]int)
	for _, c := range cards {
		counts[c.Rank]++
	}
	var quads, trips, pairs, singles []int
	for _, c := range cards {
		switch counts[c.Rank] {
		case 4:
			quads = appendOnce(quads, int(c.Rank))
		case 3:
			trips = appendOnce(trips, int(c.Rank))
		case 2:
			pairs = appendOnce(pairs, int(c.Rank))
		case 1:
			singles = append(singles, int(c.Rank))
		}
	}

	switch {
	case len(quads) == 1:
		return result(FourOfAKind, cards, quads[0], singles[0])
	case len(trips) == 1 && len(pairs) == 1:
		return result(FullHouse, cards, trips[0], pairs[0])
	case flush:
		return result(Flush, cards, ranksOf(cards)...)
	case len(trips) == 1:
		return result(ThreeOfAKind, cards, trips[0], singles[0], singles[1])
	case len(pairs) == 2:
		return result(TwoPair, cards, pairs[0], pairs[1], singles[0])
	case len(pairs) == 1:
		return result(OnePair, cards, pairs[0], singles[0], singles[1], singles[2])
	default:
		return result(HighCard, cards, ranksOf(cards)...)
	}
}

// straightHigh reports whether the descending-sorted cards form a
// straight, and its high rank. The wheel A-5-4-3-2 is a 5-high straight.
func straightHigh(sorted []deck.Card) (int, bool) {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Rank == sorted[i-1].Rank {
			return 0, false
		}
	}
	if sorted[0].Rank-sorted[4].Rank == 4 {
		return int(sorted[0].Rank), true
	}
	if sorted[0].Rank == deck.Ace &&
		sorted[1].Rank == deck.Five && sorted[4].Rank == deck.Two &&
		sorted[1].Rank-sorted[4].Rank == 3 {
		return int(deck.Five), true
	}
	return 0, false
}

func result(rank HandRank, cards []deck.Card, values ...int) EvaluatedHand {
	return EvaluatedHand{Rank: rank, Values: values, BestFive: cards, Name: rank.String()}
}

func ranksOf(cards []deck.Card) []int {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	return ranks
}

func appendOnce(vals []int, v int) []int {
	for _, existing := range vals {
		if existing == v {
			return vals
		}
	}
	return append(vals, v)
}
