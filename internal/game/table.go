package game

import "time"

// maxHandHistory bounds the in-memory ring of completed hands per table.
const maxHandHistory = 50

// TableConfig fixes the stakes and seating limits for a table's lifetime.
type TableConfig struct {
	Stakes     string `json:"stakes"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MinBuyIn   int64  `json:"minBuyIn"`
	MaxBuyIn   int64  `json:"maxBuyIn"`
	MaxSeats   int    `json:"maxSeats"`
}

// Table holds the seats and hand state for one game. Tables are not safe
// for concurrent use; the manager serializes access.
type Table struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Config TableConfig `json:"config"`
	Seats  []*Seat     `json:"seats"`

	CurrentHand *HandState   `json:"currentHand,omitempty"`
	HandHistory []*HandState `json:"-"`

	// HandCount is the number of hands ever started here, including hands
	// persisted before a restart. The next hand gets HandCount+1.
	HandCount uint64 `json:"handCount"`

	dealer int
}

// CashOut reports what a departing agent walked away with, for escrow
// settlement.
type CashOut struct {
	AgentID       string
	AgentName     string
	WalletAddress string
	Stack         int64
	BuyIn         int64
}

// NewTable creates a table with cfg.MaxSeats empty seats.
func NewTable(id, name string, cfg TableConfig) *Table {
	seats := make([]*Seat, cfg.MaxSeats)
	for i := range seats {
		seats[i] = &Seat{Number: i}
	}
	return &Table{
		ID:     id,
		Name:   name,
		Config: cfg,
		Seats:  seats,
		dealer: -1,
	}
}

// Seat returns the seat at position n.
func (t *Table) Seat(n int) (*Seat, error) {
	if n < 0 || n >= len(t.Seats) {
		return nil, ErrSeatOutOfRange
	}
	return t.Seats[n], nil
}

// FindSeatByAgent returns the seat held by agentID, or nil.
func (t *Table) FindSeatByAgent(agentID string) *Seat {
	for _, s := range t.Seats {
		if s.Occupied() && s.Agent.ID == agentID {
			return s
		}
	}
	return nil
}

// OpenSeat returns the lowest-numbered empty seat, or -1 if the table is
// full.
func (t *Table) OpenSeat() int {
	for _, s := range t.Seats {
		if !s.Occupied() {
			return s.Number
		}
	}
	return -1
}

// PlayableCount counts seats that would be dealt into the next hand.
func (t *Table) PlayableCount() int {
	n := 0
	for _, s := range t.Seats {
		if s.CanPlay() {
			n++
		}
	}
	return n
}

// OccupiedCount counts seats holding an agent, sitting out or not.
func (t *Table) OccupiedCount() int {
	n := 0
	for _, s := range t.Seats {
		if s.Occupied() {
			n++
		}
	}
	return n
}

// HandInProgress reports whether a hand is live. Hands in the showdown
// display hold still count as in progress.
func (t *Table) HandInProgress() bool { return t.CurrentHand != nil }

// SeatAgent puts agent into seatNumber with the given buy-in. Pass
// seatNumber -1 to take the first open seat. The agent joins the next hand;
// a hand already underway is unaffected. With startSittingOut the seat
// begins as an observer and is woken by WakeWaitingSeats before a deal.
func (t *Table) SeatAgent(agent *Agent, seatNumber int, buyIn int64, startSittingOut bool) (*Seat, error) {
	if buyIn < t.Config.MinBuyIn || buyIn > t.Config.MaxBuyIn {
		return nil, ErrBuyInOutOfRange
	}
	if t.FindSeatByAgent(agent.ID) != nil {
		return nil, ErrAlreadySeated
	}
	if seatNumber == -1 {
		seatNumber = t.OpenSeat()
		if seatNumber == -1 {
			return nil, ErrTableFull
		}
	}
	seat, err := t.Seat(seatNumber)
	if err != nil {
		return nil, err
	}
	if seat.Occupied() {
		return nil, ErrSeatOccupied
	}
	seat.Agent = agent
	seat.Stack = buyIn
	seat.BuyIn = buyIn
	seat.SittingOut = startSittingOut
	seat.AutoResume = startSittingOut
	seat.resetForHand()
	seat.StartingStack = 0
	return seat, nil
}

// RemoveAgent takes agentID off the table and returns the cash-out. If the
// agent is in the current hand they are folded first; chips already
// committed stay in the pot.
func (t *Table) RemoveAgent(agentID string, now time.Time) (CashOut, error) {
	seat := t.FindSeatByAgent(agentID)
	if seat == nil {
		return CashOut{}, ErrSeatEmpty
	}
	t.foldSeat(seat, now)
	out := CashOut{
		AgentID:       seat.Agent.ID,
		AgentName:     seat.Agent.Name,
		WalletAddress: seat.Agent.WalletAddress,
		Stack:         seat.Stack,
		BuyIn:         seat.BuyIn,
	}
	seat.Agent = nil
	seat.Stack = 0
	seat.BuyIn = 0
	seat.SittingOut = false
	seat.AutoResume = false
	seat.resetForHand()
	seat.StartingStack = 0
	return out, nil
}

// Rebuy tops up a seat between hands. The stack may never exceed the
// table's maximum buy-in.
func (t *Table) Rebuy(seatNumber int, amount int64) error {
	seat, err := t.Seat(seatNumber)
	if err != nil {
		return err
	}
	if !seat.Occupied() {
		return ErrSeatEmpty
	}
	if t.CurrentHand != nil && seat.InHand() {
		return ErrRebuyDuringHand
	}
	if amount <= 0 || seat.Stack+amount > t.Config.MaxBuyIn {
		return ErrRebuyAboveMax
	}
	// Funding a felted seat puts it back in the game. A voluntary
	// sit-out topping up stays out.
	if seat.Stack == 0 {
		seat.SittingOut = false
	}
	seat.Stack += amount
	seat.BuyIn += amount
	return nil
}

// SetSittingOut toggles whether a seat is dealt into future hands. An
// explicit toggle always sticks, so it cancels any pending auto-resume.
func (t *Table) SetSittingOut(seatNumber int, sittingOut bool) error {
	seat, err := t.Seat(seatNumber)
	if err != nil {
		return err
	}
	if !seat.Occupied() {
		return ErrSeatEmpty
	}
	seat.SittingOut = sittingOut
	seat.AutoResume = false
	return nil
}

// WakeWaitingSeats clears provisional sit-outs so funded observers are
// dealt into the next hand. Seats that stood up explicitly stay out.
func (t *Table) WakeWaitingSeats() {
	for _, s := range t.Seats {
		if s.Occupied() && s.AutoResume && s.Stack > 0 {
			s.SittingOut = false
			s.AutoResume = false
		}
	}
}

// nextPlayableSeat returns the first seat clockwise of from that can be
// dealt in, or -1 if none.
func (t *Table) nextPlayableSeat(from int) int {
	n := len(t.Seats)
	for i := 1; i <= n; i++ {
		s := t.Seats[(from+i)%n]
		if s.CanPlay() {
			return s.Number
		}
	}
	return -1
}

// archiveHand appends h to the history ring, evicting the oldest entry
// once the ring is full.
func (t *Table) archiveHand(h *HandState) {
	t.HandHistory = append(t.HandHistory, h)
	if len(t.HandHistory) > maxHandHistory {
		t.HandHistory = t.HandHistory[1:]
	}
}
