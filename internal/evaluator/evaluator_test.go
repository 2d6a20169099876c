package evaluator

import (
	"testing"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/randutil"
)

func mustEvaluate(t *testing.T, cards string) EvaluatedHand {
	t.Helper()
	eh, err := Evaluate(deck.MustParseCards(cards)...)
	if err != nil {
		t.Fatalf("Evaluate(%s): %v", cards, err)
	}
	return eh
}

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cards  string
		rank   HandRank
		values []int
	}{
		{"royal flush", "AsKsQsJsTs", RoyalFlush, []int{14}},
		{"straight flush", "9h8h7h6h5h", StraightFlush, []int{9}},
		{"four of a kind", "7c7d7h7s2c", FourOfAKind, []int{7, 2}},
		{"full house", "KdKhKc4s4h", FullHouse, []int{13, 4}},
		{"flush", "AdJd9d6d3d", Flush, []int{14, 11, 9, 6, 3}},
		{"straight", "Th9c8d7s6h", Straight, []int{10}},
		{"ace high straight", "AhKdQcJsTc", Straight, []int{14}},
		{"ace low straight", "Ah2c3d4s5c", Straight, []int{5}},
		{"steel wheel", "Ah2h3h4h5h", StraightFlush, []int{5}},
		{"three of a kind", "QcQdQh9s4c", ThreeOfAKind, []int{12, 9, 4}},
		{"two pair", "JcJd8h8s3c", TwoPair, []int{11, 8, 3}},
		{"one pair", "TcTd9h6s2c", OnePair, []int{10, 9, 6, 2}},
		{"high card", "AcJd9h6s2c", HighCard, []int{14, 11, 9, 6, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eh := mustEvaluate(t, tt.cards)
			if eh.Rank != tt.rank {
				t.Fatalf("rank = %v, want %v", eh.Rank, tt.rank)
			}
			if len(eh.Values) != len(tt.values) {
				t.Fatalf("values = %v, want %v", eh.Values, tt.values)
			}
			for i := range tt.values {
				if eh.Values[i] != tt.values[i] {
					t.Errorf("values = %v, want %v", eh.Values, tt.values)
					break
				}
			}
			if len(eh.BestFive) != 5 {
				t.Errorf("best five has %d cards", len(eh.BestFive))
			}
			if eh.Name != tt.rank.String() {
				t.Errorf("name = %q, want %q", eh.Name, tt.rank.String())
			}
		})
	}
}

func TestEvaluateSevenCardsFindsBestFive(t *testing.T) {
	t.Parallel()

	// Board makes a flush; hole cards are irrelevant.
	eh := mustEvaluate(t, "2c7d AdJd9d6d3d")
	if eh.Rank != Flush {
		t.Fatalf("rank = %v, want Flush", eh.Rank)
	}
	for _, c := range eh.BestFive {
		if c.Suit != deck.Diamonds {
			t.Errorf("best five contains off-suit card %s", c)
		}
	}

	// Pair on board plus a better pair in hand gives two pair.
	eh = mustEvaluate(t, "AhAs 8c8d 2h 3s 9c")
	if eh.Rank != TwoPair {
		t.Fatalf("rank = %v, want TwoPair", eh.Rank)
	}
	want := []int{14, 8, 9}
	for i := range want {
		if eh.Values[i] != want[i] {
			t.Fatalf("values = %v, want %v", eh.Values, want)
		}
	}
}

func TestEvaluateOrderIndependent(t *testing.T) {
	t.Parallel()

	cards := deck.MustParseCards("As2c 5c4h3s2d9h")
	rng := randutil.New(7)

	base, err := Evaluate(cards...)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		shuffled := make([]deck.Card, len(cards))
		copy(shuffled, cards)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		eh, err := Evaluate(shuffled...)
		if err != nil {
			t.Fatal(err)
		}
		if Compare(eh, base) != 0 {
			t.Fatalf("permutation changed result: %v vs %v", eh, base)
		}
	}
}

func TestCompareAntisymmetry(t *testing.T) {
	t.Parallel()

	a := mustEvaluate(t, "As2c 5c4h3s2d9h") // ace-low straight
	b := mustEvaluate(t, "KdKh 5c4h3s2d9h") // pair of kings

	if Compare(a, b) <= 0 {
		t.Error("straight should beat one pair")
	}
	if Compare(a, b) != -Compare(b, a) {
		t.Error("Compare is not antisymmetric")
	}
	if Compare(a, a) != 0 {
		t.Error("hand does not tie itself")
	}
}

func TestCompareKickers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		better string
		worse  string
	}{
		{"higher two pair", "JcJd8h8s3c", "TcTd9h9s8c"},
		{"two pair kicker", "JcJd8h8sKc", "JhJs8c8dQc"},
		{"pair kicker chain", "TcTd9h6s3c", "ThTs9c6d2c"},
		{"flush high card", "AdJd9d6d3d", "KhJh9h6h3h"},
		{"full house trips decide", "QdQhQc2s2h", "JdJhJcAsAh"},
		{"straight high card", "Th9c8d7s6h", "9h8c7d6s5c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			better := mustEvaluate(t, tt.better)
			worse := mustEvaluate(t, tt.worse)
			if Compare(better, worse) <= 0 {
				t.Errorf("%s (%v %v) should beat %s (%v %v)",
					tt.better, better.Rank, better.Values,
					tt.worse, worse.Rank, worse.Values)
			}
		})
	}
}

func TestExactTie(t *testing.T) {
	t.Parallel()

	// Same straight in different suits.
	a := mustEvaluate(t, "Th9c8d7s6h")
	b := mustEvaluate(t, "Td9h8c7d6s")
	if Compare(a, b) != 0 {
		t.Errorf("identical straights should tie, got %d", Compare(a, b))
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	if _, err := Evaluate(deck.MustParseCards("AhKh")...); err == nil {
		t.Error("expected error for fewer than 5 cards")
	}

	cards := deck.MustParseCards("AhKhQhJhTh")
	cards = append(cards, cards[0])
	if _, err := Evaluate(cards...); err == nil {
		t.Error("expected error for duplicate card")
	}
}
