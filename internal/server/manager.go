package server

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/sanity-io/litter"

	"github.com/feltlabs/pitboss/internal/bot"
	"github.com/feltlabs/pitboss/internal/game"
	"github.com/feltlabs/pitboss/internal/randutil"
	"github.com/feltlabs/pitboss/internal/store"
)

var (
	ErrTableNotFound   = errors.New("server: table not found")
	ErrAgentNotSeated  = errors.New("server: agent not seated at this table")
	ErrUnknownStrategy = errors.New("server: unknown bot strategy")
)

// Timings are the scheduler constants. Bots at mixed tables pace
// themselves like players; tables with only bots race through hands with
// short holds and no think delay.
type Timings struct {
	Tick         time.Duration
	TurnTimeout  time.Duration
	BotThink     time.Duration
	ShowdownHold time.Duration
	BotOnlyHold  time.Duration
	BotOnlyBurst int
}

// DefaultTimings returns the production constants.
func DefaultTimings() Timings {
	return Timings{
		Tick:         500 * time.Millisecond,
		TurnTimeout:  30 * time.Second,
		BotThink:     800 * time.Millisecond,
		ShowdownHold: 3 * time.Second,
		BotOnlyHold:  300 * time.Millisecond,
		BotOnlyBurst: 50,
	}
}

// managedTable pairs a table with its lock and the strategies driving its
// bot seats. The tick goroutine and request handlers both take mu; the
// engine itself is single-threaded under it.
type managedTable struct {
	mu    sync.Mutex
	table *game.Table
	bots  map[string]bot.Strategy
}

func (mt *managedTable) botOnly() bool {
	any := false
	for _, s := range mt.table.Seats {
		if !s.Occupied() {
			continue
		}
		if !s.Agent.Type.IsBot() {
			return false
		}
		any = true
	}
	return any
}

// Manager owns the table registry, the agent registry, and the tick loop
// that drives every game forward.
type Manager struct {
	logger  *log.Logger
	clock   quartz.Clock
	timings Timings
	store   store.Store
	queue   *store.Queue
	hub     *Hub
	rng     *rand.Rand

	mu     sync.RWMutex
	tables map[string]*managedTable
	order  []string
	agents map[string]*game.Agent

	startedAt     time.Time
	handsComplete atomic.Uint64
}

// NewManager builds the fixed table set from config, seeds the house
// bots, and resumes hand numbering from the store.
func NewManager(cfg *Config, st store.Store, queue *store.Queue, hub *Hub, clock quartz.Clock, logger *log.Logger) (*Manager, error) {
	m := &Manager{
		logger:    logger.WithPrefix("manager"),
		clock:     clock,
		timings:   DefaultTimings(),
		store:     st,
		queue:     queue,
		hub:       hub,
		rng:       randutil.New(time.Now().UnixNano()),
		tables:    make(map[string]*managedTable),
		agents:    make(map[string]*game.Agent),
		startedAt: clock.Now(),
	}

	handNumbers, err := st.GetMaxHandNumbers()
	if err != nil {
		return nil, fmt.Errorf("resuming hand numbers: %w", err)
	}

	for _, ts := range cfg.Tables {
		id := TableID(ts.Stakes)
		t := game.NewTable(id, ts.Name, ts.GameConfig())
		t.HandCount = handNumbers[id]
		m.tables[id] = &managedTable{table: t, bots: make(map[string]bot.Strategy)}
		m.order = append(m.order, id)
		if err := st.SaveTableConfig(id, ts.Name, t.Config); err != nil {
			m.logger.Error("saving table config", "table", id, "err", err)
		}
		m.logger.Info("table ready", "table", id, "stakes", ts.Stakes,
			"blinds", fmt.Sprintf("%d/%d", ts.SmallBlind, ts.BigBlind), "resumedHand", t.HandCount)
	}

	for _, seed := range cfg.Bots {
		if err := m.seedBot(seed); err != nil {
			return nil, fmt.Errorf("seeding bot %s: %w", seed.Name, err)
		}
	}
	return m, nil
}

// seedBot creates one configured house bot and seats it at each of its
// tables. The same agent identity sits everywhere it is listed.
func (m *Manager) seedBot(seed BotSeed) error {
	agent := &game.Agent{
		ID:   uuid.NewString(),
		Name: seed.Name,
		Type: game.AgentType(seed.Strategy),
	}
	m.mu.Lock()
	m.agents[agent.ID] = agent
	m.mu.Unlock()

	for _, stakes := range seed.Tables {
		mt, err := m.managed(TableID(stakes))
		if err != nil {
			return err
		}
		buyIn := seed.BuyIn
		if buyIn == 0 {
			buyIn = mt.table.Config.MaxBuyIn
		}
		buyIn = clampInt64(buyIn, mt.table.Config.MinBuyIn, mt.table.Config.MaxBuyIn)

		mt.mu.Lock()
		seat, err := mt.table.SeatAgent(agent, -1, buyIn, false)
		if err == nil {
			mt.bots[agent.ID] = bot.New(agent.Type, m.rng, m.logger)
		}
		mt.mu.Unlock()
		if err != nil {
			return err
		}
		m.recordChipTx(mt.table.ID, agent.ID, store.TxBuyIn, seat.Stack, "", "")
	}

	m.queue.EnqueueAgent(identityCopy(agent))
	return nil
}

// identityCopy clones the immutable identity fields for the persist
// queue. Counters belong to the tick goroutine and are advanced by hand
// persistence, never by upsert.
func identityCopy(a *game.Agent) *game.Agent {
	return &game.Agent{ID: a.ID, Name: a.Name, Type: a.Type, WalletAddress: a.WalletAddress}
}

// Run drives the tick loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("tick loop starting", "interval", m.timings.Tick)
	waiter := m.clock.TickerFunc(ctx, m.timings.Tick, func() error {
		m.tick()
		return nil
	}, "tick")
	if err := waiter.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// tick advances every table once. Tables are independent: a panic in one
// aborts that table's hand and the rest continue.
func (m *Manager) tick() {
	m.mu.RLock()
	tables := make([]*managedTable, 0, len(m.order))
	for _, id := range m.order {
		tables = append(tables, m.tables[id])
	}
	m.mu.RUnlock()

	for _, mt := range tables {
		m.processTable(mt)
	}
}

// processTable steps one table under its lock. Bot-only tables burst
// through up to BotOnlyBurst steps per tick so they are not limited to
// one action per 500ms.
func (m *Manager) processTable(mt *managedTable) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			m.abortAfterPanic(mt.table, r)
		}
	}()

	steps := 1
	if mt.botOnly() {
		steps = m.timings.BotOnlyBurst
	}
	for i := 0; i < steps; i++ {
		if !m.stepTable(mt) {
			return
		}
	}
}

// stepTable makes at most one state transition and reports whether it
// made one.
func (m *Manager) stepTable(mt *managedTable) bool {
	t := mt.table
	now := m.clock.Now()

	if !t.HandInProgress() {
		t.WakeWaitingSeats()
		if t.PlayableCount() < 2 {
			return false
		}
		if err := t.StartHand(now); err != nil {
			m.logger.Error("starting hand", "table", t.ID, "err", err)
			return false
		}
		h := t.CurrentHand
		m.hub.Broadcast(Event{Type: EventHandStarted, TableID: t.ID, At: now, Data: HandStartedData{
			HandID:         h.ID,
			HandNumber:     h.HandNumber,
			DealerSeat:     h.DealerSeat,
			SmallBlindSeat: h.SmallBlindSeat,
			BigBlindSeat:   h.BigBlindSeat,
			Pot:            h.Pot,
		}})
		m.emitDelta(t, handDelta{hand: h, phase: game.PhasePreflop}, now)
		return true
	}

	h := t.CurrentHand
	if h.Phase == game.PhaseShowdown {
		hold := m.timings.ShowdownHold
		if mt.botOnly() {
			hold = m.timings.BotOnlyHold
		}
		if now.Sub(h.ShowdownAt) < hold {
			return false
		}
		m.completeHand(mt, now)
		return true
	}
	if !h.Phase.Betting() {
		return false
	}

	turn, ok := t.TurnSeat()
	if !ok {
		return false
	}
	seat := t.Seats[turn]

	if seat.Agent.Type.IsBot() {
		if !mt.botOnly() && now.Sub(h.LastActionAt) < m.timings.BotThink {
			return false
		}
		m.actBot(mt, seat, now)
		return true
	}

	if now.Sub(h.LastActionAt) < m.timings.TurnTimeout {
		return false
	}
	m.timeoutHuman(mt, seat, now)
	return true
}

// completeHand ends the showdown hold: counters move, the record goes to
// the persist queue, and the table is free for the next deal.
func (m *Manager) completeHand(mt *managedTable, now time.Time) {
	t := mt.table
	rec, err := t.CompleteShowdown(now)
	if err != nil {
		m.logger.Error("completing showdown", "table", t.ID, "err", err)
		return
	}
	m.handsComplete.Add(1)
	m.queue.EnqueueHand(rec)
	m.hub.Broadcast(Event{Type: EventHandComplete, TableID: t.ID, At: now, Data: HandCompleteData{
		HandID:     rec.Hand.ID,
		HandNumber: rec.Hand.HandNumber,
	}})
	m.logger.Debug("hand complete", "table", t.ID, "hand", rec.Hand.ID,
		"number", rec.Hand.HandNumber, "pot", rec.Hand.Pot)
}

// actBot asks the seat's strategy for a decision and applies it. A
// rejected decision falls back to check-else-fold, then to a forced fold,
// so a buggy policy can never stall the table.
func (m *Manager) actBot(mt *managedTable, seat *game.Seat, now time.Time) {
	t := mt.table
	strat, ok := mt.bots[seat.Agent.ID]
	if !ok {
		strat = bot.New(seat.Agent.Type, m.rng, m.logger)
		mt.bots[seat.Agent.ID] = strat
	}

	d := strat.Decide(m.botView(t, seat))
	before := m.delta(t)
	err := t.ProcessAction(seat.Number, d.Action, d.Amount, now)
	if err != nil {
		m.logger.Warn("bot action rejected", "table", t.ID, "bot", seat.Agent.Name,
			"action", d.Action, "amount", d.Amount, "err", err)
		fallback := game.ActionFold
		if t.CurrentHand.CurrentBet == seat.CurrentBet {
			fallback = game.ActionCheck
		}
		err = t.ProcessAction(seat.Number, fallback, 0, now)
	}
	if err != nil {
		err = t.ProcessAction(seat.Number, game.ActionFold, 0, now)
	}
	if err != nil {
		m.logger.Error("bot cannot act, aborting hand", "table", t.ID, "bot", seat.Agent.Name, "err", err)
		t.AbortHand()
		return
	}
	m.emitDelta(t, before, now)
}

// timeoutHuman acts for a human who let the turn clock run out: check
// when free, fold when facing a bet, and sit out until they come back.
func (m *Manager) timeoutHuman(mt *managedTable, seat *game.Seat, now time.Time) {
	t := mt.table
	action := game.ActionFold
	if t.CurrentHand.CurrentBet == seat.CurrentBet {
		action = game.ActionCheck
	}
	before := m.delta(t)
	if err := t.ProcessAction(seat.Number, action, 0, now); err != nil {
		m.logger.Error("timeout action rejected", "table", t.ID, "agent", seat.Agent.Name, "err", err)
		return
	}
	if err := t.SetSittingOut(seat.Number, true); err != nil {
		m.logger.Error("sitting out timed-out agent", "table", t.ID, "err", err)
	}
	m.logger.Info("turn timed out", "table", t.ID, "agent", seat.Agent.Name,
		"seat", seat.Number, "action", action)
	m.emitDelta(t, before, now)
}

// botView is the read-only slice of table state a strategy may see.
func (m *Manager) botView(t *game.Table, seat *game.Seat) bot.View {
	h := t.CurrentHand
	opponents := 0
	for _, s := range t.Seats {
		if s.InHand() && s.Number != seat.Number {
			opponents++
		}
	}
	raises := 0
	for _, rec := range h.Actions {
		if rec.Phase != h.Phase {
			continue
		}
		switch rec.Action {
		case game.ActionBet, game.ActionRaise, game.ActionAllIn:
			raises++
		}
	}
	return bot.View{
		HoleCards:   seat.HoleCards,
		Community:   h.CommunityCards,
		Phase:       h.Phase,
		Pot:         h.Pot,
		CurrentBet:  h.CurrentBet,
		SeatBet:     seat.CurrentBet,
		Stack:       seat.Stack,
		BigBlind:    t.Config.BigBlind,
		Opponents:   opponents,
		RoundRaises: raises,
		Valid:       t.ValidActions(seat.Number),
	}
}

// abortAfterPanic is the tick loop's last line of defense: dump the hand
// state, refund in-flight bets, and clear the hand so the table keeps
// dealing.
func (m *Manager) abortAfterPanic(t *game.Table, r any) {
	if h := t.CurrentHand; h != nil {
		m.logger.Error("panic processing table, aborting hand",
			"table", t.ID, "hand", h.ID, "panic", r)
		m.logger.Error("hand state at abort", "state", litter.Sdump(h))
	} else {
		m.logger.Error("panic processing table", "table", t.ID, "panic", r)
	}
	t.AbortHand()
}

// handDelta captures the observable state before an engine call so the
// right events can be emitted after it.
type handDelta struct {
	hand      *game.HandState
	phase     game.Phase
	actions   int
	community int
}

func (m *Manager) delta(t *game.Table) handDelta {
	h := t.CurrentHand
	if h == nil {
		return handDelta{}
	}
	return handDelta{hand: h, phase: h.Phase, actions: len(h.Actions), community: len(h.CommunityCards)}
}

// emitDelta broadcasts events for whatever changed since the delta was
// taken: appended actions, a new street, a resolved showdown.
func (m *Manager) emitDelta(t *game.Table, before handDelta, now time.Time) {
	h := t.CurrentHand
	if h == nil || h != before.hand {
		return
	}
	for _, rec := range h.Actions[before.actions:] {
		m.hub.Broadcast(Event{Type: EventAction, TableID: t.ID, At: now, Data: rec})
	}
	if h.Phase == before.phase {
		return
	}
	if len(h.CommunityCards) > before.community {
		m.hub.Broadcast(Event{Type: EventStreet, TableID: t.ID, At: now, Data: StreetData{
			Phase:          h.Phase,
			CommunityCards: copyCards(h.CommunityCards),
			Pot:            h.Pot,
		}})
	}
	if h.Phase == game.PhaseShowdown {
		m.hub.Broadcast(Event{Type: EventShowdown, TableID: t.ID, At: now, Data: ShowdownData{
			Winners: append([]game.Winner{}, h.Winners...),
			Pot:     h.Pot,
		}})
	}
}

func (m *Manager) managed(tableID string) (*managedTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.tables[tableID]
	if !ok {
		return nil, ErrTableNotFound
	}
	return mt, nil
}

// recordChipTx queues a ledger entry for a chip movement.
func (m *Manager) recordChipTx(tableID, agentID string, typ store.ChipTxType, amount int64, wallet, txHash string) {
	m.queue.EnqueueChipTx(store.ChipTx{
		ID:            uuid.NewString(),
		TableID:       tableID,
		AgentID:       agentID,
		Type:          typ,
		Amount:        amount,
		WalletAddress: wallet,
		TxHash:        txHash,
		At:            m.clock.Now(),
	})
}

// ListTables summarizes every table in configuration order.
func (m *Manager) ListTables() []TableSummary {
	m.mu.RLock()
	order := append([]string{}, m.order...)
	tables := m.tables
	m.mu.RUnlock()

	out := make([]TableSummary, 0, len(order))
	for _, id := range order {
		mt := tables[id]
		mt.mu.Lock()
		out = append(out, summarizeTable(mt.table))
		mt.mu.Unlock()
	}
	return out
}

// GetTable renders one table for a viewer. viewerID may be empty for the
// public spectator view.
func (m *Manager) GetTable(tableID, viewerID string) (TableView, error) {
	mt, err := m.managed(tableID)
	if err != nil {
		return TableView{}, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return viewTable(mt.table, viewerID, m.timings.TurnTimeout), nil
}

// RecentHands returns completed hands from the in-memory ring, newest
// first.
func (m *Manager) RecentHands(tableID string, limit int) ([]HandSummary, error) {
	mt, err := m.managed(tableID)
	if err != nil {
		return nil, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()

	hist := mt.table.HandHistory
	if limit <= 0 || limit > len(hist) {
		limit = len(hist)
	}
	out := make([]HandSummary, 0, limit)
	for i := len(hist) - 1; i >= len(hist)-limit; i-- {
		out = append(out, summarizeHand(hist[i]))
	}
	return out, nil
}

// AddBot seats a fresh bot of the given strategy at the first open seat,
// buying in for the table maximum.
func (m *Manager) AddBot(tableID, strategy string) (*AgentView, error) {
	typ := game.AgentType(strategy)
	if !typ.IsBot() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	mt, err := m.managed(tableID)
	if err != nil {
		return nil, err
	}

	agent := &game.Agent{
		ID:   uuid.NewString(),
		Name: fmt.Sprintf("bot-%s-%s", strategy, uuid.NewString()[:8]),
		Type: typ,
	}

	mt.mu.Lock()
	seat, err := mt.table.SeatAgent(agent, -1, mt.table.Config.MaxBuyIn, mt.table.HandInProgress())
	if err == nil {
		mt.bots[agent.ID] = bot.New(typ, m.rng, m.logger)
	}
	mt.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.agents[agent.ID] = agent
	m.mu.Unlock()

	m.queue.EnqueueAgent(identityCopy(agent))
	m.recordChipTx(tableID, agent.ID, store.TxBuyIn, seat.Stack, "", "")
	m.logger.Info("bot added", "table", tableID, "bot", agent.Name, "seat", seat.Number)
	return &AgentView{ID: agent.ID, Name: agent.Name, Type: agent.Type}, nil
}

// SitParams describes a sit-down request after escrow has cleared.
type SitParams struct {
	AgentID       string
	Name          string
	WalletAddress string
	SeatNumber    int
	BuyIn         int64
}

// SeatAssignment reports where a sit-down landed.
type SeatAssignment struct {
	TableID       string `json:"tableId"`
	AgentID       string `json:"agentId"`
	AgentName     string `json:"agentName"`
	SeatNumber    int    `json:"seatNumber"`
	Stack         int64  `json:"stack"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

// SitAgent seats a human or API agent. If a hand is underway the seat
// waits as an observer and is dealt in from the next hand. AgentID may
// be empty for an anonymous web player; a fresh identity is minted.
func (m *Manager) SitAgent(tableID string, p SitParams) (*SeatAssignment, error) {
	mt, err := m.managed(tableID)
	if err != nil {
		return nil, err
	}
	agent := m.resolveAgent(p.AgentID, p.Name, p.WalletAddress)

	mt.mu.Lock()
	seat, err := mt.table.SeatAgent(agent, p.SeatNumber, p.BuyIn, mt.table.HandInProgress())
	mt.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.queue.EnqueueAgent(identityCopy(agent))
	m.logger.Info("agent seated", "table", tableID, "agent", agent.Name,
		"seat", seat.Number, "buyIn", p.BuyIn)
	return &SeatAssignment{
		TableID:       tableID,
		AgentID:       agent.ID,
		AgentName:     agent.Name,
		SeatNumber:    seat.Number,
		Stack:         seat.Stack,
		WalletAddress: agent.WalletAddress,
	}, nil
}

// resolveAgent finds or creates a registry identity. Existing identities
// are never renamed here; counters would tear under a different lock.
func (m *Manager) resolveAgent(id, name, wallet string) *game.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if a, ok := m.agents[id]; ok {
			return a
		}
	} else {
		id = uuid.NewString()
	}
	if name == "" {
		name = "player-" + id[:8]
	}
	a := &game.Agent{ID: id, Name: name, Type: game.AgentHuman, WalletAddress: wallet}
	m.agents[id] = a
	return a
}

// StandAgent sits an agent out of future hands. A hand in progress is
// unaffected; the seat plays it to completion.
func (m *Manager) StandAgent(tableID, agentID string) error {
	return m.setSittingOut(tableID, agentID, true)
}

// ResumeAgent returns a sitting-out agent to the next deal.
func (m *Manager) ResumeAgent(tableID, agentID string) error {
	return m.setSittingOut(tableID, agentID, false)
}

func (m *Manager) setSittingOut(tableID, agentID string, out bool) error {
	mt, err := m.managed(tableID)
	if err != nil {
		return err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	seat := mt.table.FindSeatByAgent(agentID)
	if seat == nil {
		return ErrAgentNotSeated
	}
	return mt.table.SetSittingOut(seat.Number, out)
}

// SubmitAction applies a player's move. The engine validates turn order,
// legality, and amounts; callers map the sentinel errors to status
// codes.
func (m *Manager) SubmitAction(tableID, agentID string, action game.Action, amount int64) error {
	mt, err := m.managed(tableID)
	if err != nil {
		return err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()

	t := mt.table
	seat := t.FindSeatByAgent(agentID)
	if seat == nil {
		return ErrAgentNotSeated
	}
	if turn, ok := t.TurnSeat(); !ok || turn != seat.Number {
		return game.ErrNotYourTurn
	}
	now := m.clock.Now()
	before := m.delta(t)
	if err := t.ProcessAction(seat.Number, action, amount, now); err != nil {
		return err
	}
	m.emitDelta(t, before, now)
	return nil
}

// RebuyAgent tops up a seat between hands, up to the table maximum.
func (m *Manager) RebuyAgent(tableID, agentID string, amount int64) error {
	mt, err := m.managed(tableID)
	if err != nil {
		return err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	seat := mt.table.FindSeatByAgent(agentID)
	if seat == nil {
		return ErrAgentNotSeated
	}
	return mt.table.Rebuy(seat.Number, amount)
}

// LeaveAgent removes an agent from the table, folding them out of a live
// hand first. The returned cash-out is what escrow settlement owes them.
func (m *Manager) LeaveAgent(tableID, agentID string) (game.CashOut, error) {
	mt, err := m.managed(tableID)
	if err != nil {
		return game.CashOut{}, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()

	t := mt.table
	now := m.clock.Now()
	before := m.delta(t)
	out, err := t.RemoveAgent(agentID, now)
	if err != nil {
		if errors.Is(err, game.ErrSeatEmpty) {
			return game.CashOut{}, ErrAgentNotSeated
		}
		return game.CashOut{}, err
	}
	delete(mt.bots, agentID)
	m.emitDelta(t, before, now)
	m.logger.Info("agent left", "table", tableID, "agent", out.AgentName,
		"stack", out.Stack, "buyIn", out.BuyIn)
	return out, nil
}

// LeaderboardRow is one line of the profit board: persisted cumulative
// totals plus the unrealized swing of any hand in progress.
type LeaderboardRow struct {
	store.ProfitRow
	Unrealized int64 `json:"unrealized"`
	Total      int64 `json:"total"`
}

// Leaderboard merges the store's cumulative profits with live unrealized
// results, ordered by combined total.
func (m *Manager) Leaderboard() ([]LeaderboardRow, error) {
	persisted, err := m.store.CumulativeProfits()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(persisted))
	out := make([]LeaderboardRow, 0, len(persisted))
	for _, row := range persisted {
		index[row.AgentID] = len(out)
		out = append(out, LeaderboardRow{ProfitRow: row})
	}

	m.mu.RLock()
	tables := make([]*managedTable, 0, len(m.order))
	for _, id := range m.order {
		tables = append(tables, m.tables[id])
	}
	m.mu.RUnlock()

	for _, mt := range tables {
		mt.mu.Lock()
		t := mt.table
		for _, s := range t.Seats {
			if !s.Occupied() {
				continue
			}
			i, ok := index[s.Agent.ID]
			if !ok {
				i = len(out)
				index[s.Agent.ID] = i
				out = append(out, LeaderboardRow{ProfitRow: store.ProfitRow{
					AgentID:   s.Agent.ID,
					AgentName: s.Agent.Name,
					AgentType: s.Agent.Type,
				}})
			}
			if t.HandInProgress() && len(s.HoleCards) > 0 {
				out[i].Unrealized += s.Stack - s.StartingStack
			}
		}
		mt.mu.Unlock()
	}

	for i := range out {
		out[i].Total = out[i].Profit + out[i].Unrealized
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

// Health is the liveness payload.
type Health struct {
	Status           string  `json:"status"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
	Tables           int     `json:"tables"`
	HandsComplete    uint64  `json:"handsComplete"`
	QueueDropped     uint64  `json:"queueDropped"`
	EventsDropped    uint64  `json:"eventsDropped"`
	EventSubscribers int     `json:"eventSubscribers"`
}

// Health reports uptime and throughput.
func (m *Manager) Health() Health {
	m.mu.RLock()
	tables := len(m.tables)
	m.mu.RUnlock()
	return Health{
		Status:           "ok",
		UptimeSeconds:    m.clock.Since(m.startedAt).Seconds(),
		Tables:           tables,
		HandsComplete:    m.handsComplete.Load(),
		QueueDropped:     m.queue.Dropped(),
		EventsDropped:    m.hub.Dropped(),
		EventSubscribers: m.hub.Subscribers(),
	}
}

func clampInt64(x, lo, hi int64) int64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
