package deck

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrExhausted is returned when drawing from an empty deck.
var ErrExhausted = errors.New("deck: no cards remaining")

// Deck is an ordered sequence of 52 unique cards. Cards are drawn by
// advancing a cursor; the deck is owned by exactly one hand at a time.
type Deck struct {
	cards [52]Card
	next  int
}

// New returns a freshly shuffled deck using the process's cryptographic
// random source. An error means randomness was unavailable and the
// caller must not start a hand.
func New() (*Deck, error) {
	return NewFromReader(rand.Reader)
}

// NewFromReader shuffles with indices drawn from src. Tests pass a
// deterministic byte stream through the same path production uses.
func NewFromReader(src io.Reader) (*Deck, error) {
	d := &Deck{}
	i := 0
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	if err := d.shuffle(src); err != nil {
		return nil, fmt.Errorf("shuffle deck: %w", err)
	}
	return d, nil
}

// Stacked returns an unshuffled deck that deals the given cards first,
// followed by the remaining cards in canonical order. Test helper.
func Stacked(cards ...Card) *Deck {
	d := &Deck{}
	seen := make(map[Card]bool, len(cards))
	i := 0
	for _, c := range cards {
		if seen[c] {
			panic(fmt.Sprintf("duplicate card %s in stacked deck", c))
		}
		seen[c] = true
		d.cards[i] = c
		i++
	}
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			c := NewCard(rank, suit)
			if !seen[c] {
				d.cards[i] = c
				i++
			}
		}
	}
	return d
}

// shuffle runs Fisher-Yates with uniform indices from src.
func (d *Deck) shuffle(src io.Reader) error {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		j, err := randIntn(src, i+1)
		if err != nil {
			return err
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return nil
}

// randIntn returns a uniform int in [0, n) using rejection sampling so
// the modulo introduces no bias.
func randIntn(src io.Reader, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("randIntn: invalid bound %d", n)
	}
	limit := (uint64(1) << 32) / uint64(n) * uint64(n)
	var buf [4]byte
	for {
		if _, err := io.ReadFull(src, buf[:]); err != nil {
			return 0, err
		}
		v := uint64(binary.BigEndian.Uint32(buf[:]))
		if v < limit {
			return int(v % uint64(n)), nil
		}
	}
}

// Draw removes and returns the next card.
func (d *Deck) Draw() (Card, error) {
	if d.next >= len(d.cards) {
		return Card{}, ErrExhausted
	}
	c := d.cards[d.next]
	d.next++
	return c, nil
}

// DrawN draws n cards at once.
func (d *Deck) DrawN(n int) ([]Card, error) {
	if d.next+n > len(d.cards) {
		return nil, ErrExhausted
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Remaining returns the number of undrawn cards.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
