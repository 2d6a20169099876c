package game

import (
	"fmt"
	"time"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/gameid"
)

// Phase names the stage a hand is in. The four betting rounds are followed
// by a showdown display hold and a terminal complete phase.
type Phase string

const (
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
	PhaseComplete Phase = "complete"
)

// Betting reports whether the phase accepts player actions.
func (p Phase) Betting() bool {
	switch p {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

// foldWinName labels a pot taken down without a showdown. The winner never
// has to show cards, so there is no hand rank to report.
const foldWinName = "Last player standing"

// SidePot is one contested pot. Amount includes dead money from folded
// players; EligibleSeats lists who can win it.
type SidePot struct {
	Amount        int64 `json:"amount"`
	EligibleSeats []int `json:"eligibleSeats"`
}

// ActionRecord is one audit log entry. Amount is the seat's total bet for
// the round after the action took effect.
type ActionRecord struct {
	SeatNumber int       `json:"seatNumber"`
	AgentID    string    `json:"agentId"`
	AgentName  string    `json:"agentName"`
	Action     Action    `json:"action"`
	Amount     int64     `json:"amount"`
	Phase      Phase     `json:"phase"`
	At         time.Time `json:"at"`
}

// Winner records a single payout at hand end. A hand may carry several
// entries for one agent when side pots split differently.
type Winner struct {
	SeatNumber int    `json:"seatNumber"`
	AgentID    string `json:"agentId"`
	AgentName  string `json:"agentName"`
	Amount     int64  `json:"amount"`
	HandName   string `json:"handName"`
}

// HandState is the complete state of one hand. Pot grows as chips are
// committed, so stacks plus Pot stays constant from deal to payout.
type HandState struct {
	ID             string      `json:"id"`
	HandNumber     uint64      `json:"handNumber"`
	Phase          Phase       `json:"phase"`
	CommunityCards []deck.Card `json:"communityCards"`
	Pot            int64       `json:"pot"`
	SidePots       []SidePot   `json:"sidePots,omitempty"`

	Actions []ActionRecord `json:"actions"`

	// ActivePlayerOrder lists the seats that could act when the current
	// betting round began; it is rebuilt each street. CurrentPlayerIndex
	// points into it.
	ActivePlayerOrder  []int `json:"activePlayerOrder"`
	CurrentPlayerIndex int   `json:"currentPlayerIndex"`

	DealerSeat     int `json:"dealerSeat"`
	SmallBlindSeat int `json:"smallBlindSeat"`
	BigBlindSeat   int `json:"bigBlindSeat"`

	CurrentBet int64 `json:"currentBet"`
	MinRaise   int64 `json:"minRaise"`

	Winners []Winner `json:"winners,omitempty"`

	StartedAt    time.Time `json:"startedAt"`
	LastActionAt time.Time `json:"lastActionAt"`
	ShowdownAt   time.Time `json:"showdownAt"`
	CompletedAt  time.Time `json:"completedAt"`

	deck *deck.Deck
}

// HandOption customizes a new hand.
type HandOption func(*handConfig)

type handConfig struct {
	deck *deck.Deck
}

// WithDeck deals from a prepared deck instead of a fresh shuffle. Tests
// pair this with deck.Stacked to script exact boards.
func WithDeck(d *deck.Deck) HandOption {
	return func(c *handConfig) { c.deck = d }
}

// StartHand deals a new hand: advances the button, posts blinds, deals
// hole cards, and opens preflop betting. Seats sitting out or without
// chips are skipped. If the blinds leave at most one player able to act,
// the board is run out immediately.
func (t *Table) StartHand(now time.Time, opts ...HandOption) error {
	if t.CurrentHand != nil {
		return ErrHandInProgress
	}

	var cfg handConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	d := cfg.deck
	if d == nil {
		var err error
		d, err = deck.New()
		if err != nil {
			return fmt.Errorf("shuffling deck: %w", err)
		}
	}

	// Advance the button before collecting players so the deal order below
	// starts left of the new dealer. The first hand seats the button at the
	// lowest playable seat.
	if t.dealer < 0 {
		t.dealer = t.nextPlayableSeat(len(t.Seats) - 1)
	} else {
		t.dealer = t.nextPlayableSeat(t.dealer)
	}
	if t.dealer < 0 {
		return ErrNotEnoughPlayers
	}

	playing := make([]*Seat, 0, len(t.Seats))
	n := len(t.Seats)
	for i := 1; i <= n; i++ {
		s := t.Seats[(t.dealer+i)%n]
		if s.CanPlay() {
			playing = append(playing, s)
		}
	}
	if len(playing) < 2 {
		return ErrNotEnoughPlayers
	}

	// Heads-up the dealer posts the small blind and acts first preflop.
	var sb int
	if len(playing) == 2 {
		sb = t.dealer
	} else {
		sb = t.nextPlayableSeat(t.dealer)
	}
	bb := t.nextPlayableSeat(sb)

	t.HandCount++
	h := &HandState{
		ID:             gameid.New(),
		HandNumber:     t.HandCount,
		Phase:          PhasePreflop,
		DealerSeat:     t.dealer,
		SmallBlindSeat: sb,
		BigBlindSeat:   bb,
		MinRaise:       t.Config.BigBlind,
		StartedAt:      now,
		LastActionAt:   now,
		deck:           d,
	}

	for _, s := range t.Seats {
		if s.Occupied() {
			s.resetForHand()
		}
	}
	t.CurrentHand = h

	// A stack shorter than its blind posts everything and is all-in;
	// currentBet stays at the full big blind either way.
	t.postBlind(sb, t.Config.SmallBlind)
	t.postBlind(bb, t.Config.BigBlind)
	h.CurrentBet = t.Config.BigBlind

	for _, s := range playing {
		s.HoleCards = t.mustDraw(2)
	}

	// Preflop action starts left of the big blind; the big blind acts
	// last and keeps the option to raise an unraised pot.
	h.ActivePlayerOrder = t.orderFrom(bb)
	if len(h.ActivePlayerOrder) <= 1 {
		t.advanceStreet(now)
	}
	return nil
}

// postBlind commits up to amount from the seat into the pot.
func (t *Table) postBlind(seatNumber int, amount int64) {
	s := t.Seats[seatNumber]
	t.CurrentHand.Pot += s.commit(amount)
}

// potCommit moves chips from the seat to the pot, clamped to the stack.
func (t *Table) potCommit(s *Seat, amount int64) {
	t.CurrentHand.Pot += s.commit(amount)
}

// mustDraw draws n cards from the live deck. Running out of cards means
// the deck was mis-stacked; the manager's recovery path catches the panic.
func (t *Table) mustDraw(n int) []deck.Card {
	cards, err := t.CurrentHand.deck.DrawN(n)
	if err != nil {
		panic(fmt.Sprintf("game: deck exhausted in hand %s: %v", t.CurrentHand.ID, err))
	}
	return cards
}

// orderFrom collects the seats still able to act, clockwise starting left
// of the given seat.
func (t *Table) orderFrom(after int) []int {
	var order []int
	n := len(t.Seats)
	for i := 1; i <= n; i++ {
		s := t.Seats[(after+i)%n]
		if s.CanAct() {
			order = append(order, s.Number)
		}
	}
	return order
}

// TurnSeat returns the seat whose action the hand is waiting on.
func (t *Table) TurnSeat() (int, bool) {
	h := t.CurrentHand
	if h == nil || !h.Phase.Betting() {
		return -1, false
	}
	if h.CurrentPlayerIndex < 0 || h.CurrentPlayerIndex >= len(h.ActivePlayerOrder) {
		return -1, false
	}
	return h.ActivePlayerOrder[h.CurrentPlayerIndex], true
}

// inHandCount counts seats dealt in and not folded.
func (t *Table) inHandCount() int {
	n := 0
	for _, s := range t.Seats {
		if s.InHand() {
			n++
		}
	}
	return n
}

// roundComplete reports whether every seat in the action order has either
// matched the current bet after acting, folded, or gone all-in. The big
// blind's forced post does not count as acting, which preserves its
// preflop option.
func (t *Table) roundComplete() bool {
	h := t.CurrentHand
	for _, num := range h.ActivePlayerOrder {
		s := t.Seats[num]
		if !s.CanAct() {
			continue
		}
		if !s.HasActed || s.CurrentBet != h.CurrentBet {
			return false
		}
	}
	return true
}

// advanceTurn moves CurrentPlayerIndex to the next seat owing an action.
// Callers check roundComplete first.
func (t *Table) advanceTurn() {
	h := t.CurrentHand
	n := len(h.ActivePlayerOrder)
	for i := 1; i <= n; i++ {
		j := (h.CurrentPlayerIndex + i) % n
		s := t.Seats[h.ActivePlayerOrder[j]]
		if !s.CanAct() {
			continue
		}
		if s.HasActed && s.CurrentBet == h.CurrentBet {
			continue
		}
		h.CurrentPlayerIndex = j
		return
	}
}

// afterAction runs the shared bookkeeping after any state change in a
// betting round: fold-outs end the hand, completed rounds advance the
// street, otherwise the turn moves on. wasActor is false when the change
// came from outside the normal turn flow, such as a player leaving.
func (t *Table) afterAction(now time.Time, wasActor bool) {
	h := t.CurrentHand
	h.LastActionAt = now
	if t.inHandCount() <= 1 {
		t.awardFoldWin(now)
		return
	}
	if t.roundComplete() {
		t.advanceStreet(now)
		return
	}
	if wasActor {
		t.advanceTurn()
	}
}

// advanceStreet closes the current betting round and deals the next
// street, or resolves the showdown after the river. When at most one
// player can still act, remaining streets are dealt without betting.
func (t *Table) advanceStreet(now time.Time) {
	h := t.CurrentHand
	for _, s := range t.Seats {
		s.CurrentBet = 0
		s.HasActed = false
	}
	h.CurrentBet = 0
	h.MinRaise = t.Config.BigBlind

	switch h.Phase {
	case PhasePreflop:
		h.CommunityCards = append(h.CommunityCards, t.mustDraw(3)...)
		h.Phase = PhaseFlop
	case PhaseFlop:
		h.CommunityCards = append(h.CommunityCards, t.mustDraw(1)...)
		h.Phase = PhaseTurn
	case PhaseTurn:
		h.CommunityCards = append(h.CommunityCards, t.mustDraw(1)...)
		h.Phase = PhaseRiver
	case PhaseRiver:
		t.resolveShowdown(now)
		return
	default:
		return
	}

	// Post-flop action starts with the first live seat left of the button.
	h.ActivePlayerOrder = t.orderFrom(h.DealerSeat)
	h.CurrentPlayerIndex = 0
	if len(h.ActivePlayerOrder) <= 1 {
		t.advanceStreet(now)
	}
}

// awardFoldWin pays the whole pot to the last unfolded player and moves
// the hand into its showdown hold. No cards are revealed.
func (t *Table) awardFoldWin(now time.Time) {
	h := t.CurrentHand
	var winner *Seat
	for _, s := range t.Seats {
		if s.InHand() {
			winner = s
			break
		}
	}
	if winner != nil {
		winner.Stack += h.Pot
		h.Winners = []Winner{{
			SeatNumber: winner.Number,
			AgentID:    winner.Agent.ID,
			AgentName:  winner.Agent.Name,
			Amount:     h.Pot,
			HandName:   foldWinName,
		}}
	}
	h.Phase = PhaseShowdown
	h.ShowdownAt = now
}

// foldSeat folds a player out of turn, used when an agent leaves
// mid-hand. Chips already committed stay in the pot.
func (t *Table) foldSeat(seat *Seat, now time.Time) {
	h := t.CurrentHand
	if h == nil || !h.Phase.Betting() || !seat.InHand() {
		return
	}
	turn, _ := t.TurnSeat()
	wasActor := turn == seat.Number
	seat.HasFolded = true
	h.Actions = append(h.Actions, ActionRecord{
		SeatNumber: seat.Number,
		AgentID:    seat.Agent.ID,
		AgentName:  seat.Agent.Name,
		Action:     ActionFold,
		Amount:     seat.CurrentBet,
		Phase:      h.Phase,
		At:         now,
	})
	t.afterAction(now, wasActor)
}

// SeatSnapshot is a seat's result for one completed hand, as persisted.
type SeatSnapshot struct {
	SeatNumber    int         `json:"seatNumber"`
	AgentID       string      `json:"agentId"`
	AgentName     string      `json:"agentName"`
	AgentType     AgentType   `json:"agentType"`
	StartingStack int64       `json:"startingStack"`
	EndingStack   int64       `json:"endingStack"`
	Profit        int64       `json:"profit"`
	HoleCards     []deck.Card `json:"holeCards"`
	Folded        bool        `json:"folded"`
	Won           bool        `json:"won"`
}

// Rebuy records an automatic bot top-up after busting.
type Rebuy struct {
	SeatNumber int
	AgentID    string
	AgentName  string
	Amount     int64
}

// CompletedHand carries everything the persistence layer needs after a
// hand finishes.
type CompletedHand struct {
	TableID string
	Hand    *HandState
	Seats   []SeatSnapshot
	Rebuys  []Rebuy
}

// CompleteShowdown ends the showdown display hold: agent counters update,
// the hand is archived, busted bots rebuy, and busted humans are sat out.
// The returned record is ready for persistence.
func (t *Table) CompleteShowdown(now time.Time) (*CompletedHand, error) {
	h := t.CurrentHand
	if h == nil {
		return nil, ErrNoActiveHand
	}
	if h.Phase != PhaseShowdown {
		return nil, ErrNotInShowdown
	}
	h.Phase = PhaseComplete
	h.CompletedAt = now

	won := make(map[string]bool, len(h.Winners))
	for _, w := range h.Winners {
		won[w.AgentID] = true
	}

	var seats []SeatSnapshot
	for _, s := range t.Seats {
		if !s.Occupied() || len(s.HoleCards) == 0 {
			continue
		}
		profit := s.Stack - s.StartingStack
		s.Agent.HandsPlayed++
		s.Agent.TotalProfit += profit
		if won[s.Agent.ID] {
			s.Agent.HandsWon++
		}
		seats = append(seats, SeatSnapshot{
			SeatNumber:    s.Number,
			AgentID:       s.Agent.ID,
			AgentName:     s.Agent.Name,
			AgentType:     s.Agent.Type,
			StartingStack: s.StartingStack,
			EndingStack:   s.Stack,
			Profit:        profit,
			HoleCards:     s.HoleCards,
			Folded:        s.HasFolded,
			Won:           won[s.Agent.ID],
		})
	}

	// Busted bots reload to the max buy-in so tables never drain below two
	// players; busted humans sit out until they rebuy.
	var rebuys []Rebuy
	for _, s := range t.Seats {
		if !s.Occupied() || s.Stack > 0 {
			continue
		}
		if s.Agent.Type.IsBot() {
			amount := t.Config.MaxBuyIn
			s.Stack = amount
			s.BuyIn += amount
			rebuys = append(rebuys, Rebuy{
				SeatNumber: s.Number,
				AgentID:    s.Agent.ID,
				AgentName:  s.Agent.Name,
				Amount:     amount,
			})
		} else {
			s.SittingOut = true
		}
	}

	h.deck = nil
	t.archiveHand(h)
	t.CurrentHand = nil
	return &CompletedHand{TableID: t.ID, Hand: h, Seats: seats, Rebuys: rebuys}, nil
}

// AbortHand unwinds a hand after an engine failure. Chips committed this
// hand go back to their stacks so nothing is lost; the hand itself is
// dropped without archiving. Hands that already paid out are just cleared.
func (t *Table) AbortHand() {
	h := t.CurrentHand
	if h == nil {
		return
	}
	if h.Phase.Betting() {
		for _, s := range t.Seats {
			if s.TotalCommitted > 0 {
				s.Stack += s.TotalCommitted
				h.Pot -= s.TotalCommitted
			}
		}
	}
	for _, s := range t.Seats {
		if s.Occupied() {
			s.resetForHand()
		}
	}
	t.CurrentHand = nil
}
