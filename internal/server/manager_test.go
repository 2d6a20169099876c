package server

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltlabs/pitboss/internal/game"
	"github.com/feltlabs/pitboss/internal/store"
)

func newTestManager(t *testing.T, cfg *Config) (*Manager, *quartz.Mock) {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "pitboss.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := log.New(io.Discard)
	mc := quartz.NewMock(t)
	m, err := NewManager(cfg, st, store.NewQueue(st, 64, logger), NewHub(logger), mc, logger)
	require.NoError(t, err)
	return m, mc
}

// microConfig is a single 1/2 table plus whatever bots a test seeds.
func microConfig(bots ...BotSeed) *Config {
	cfg := &Config{
		Tables: []TableSettings{{Stakes: "micro", Name: "Micro", SmallBlind: 1, BigBlind: 2}},
		Bots:   bots,
	}
	cfg.applyDefaults()
	return cfg
}

// advanceTick moves the mock clock by one tick interval and runs the
// scheduler once.
func advanceTick(t *testing.T, m *Manager, mc *quartz.Mock) {
	t.Helper()
	mc.Advance(m.timings.Tick).MustWait(context.Background())
	m.tick()
}

func TestManagerSeedsTablesAndBots(t *testing.T) {
	cfg := DefaultConfig()
	cfg.applyDefaults()
	m, _ := newTestManager(t, cfg)

	tables := m.ListTables()
	require.Len(t, tables, 4)
	assert.Equal(t, "table-micro", tables[0].ID)
	assert.Equal(t, "table-high", tables[3].ID)
	for _, ts := range tables {
		assert.Equal(t, 3, ts.Occupied, "every default bot sits at %s", ts.ID)
		assert.EqualValues(t, 0, ts.HandCount)
	}
}

func TestBotOnlyTablePlaysManyHands(t *testing.T) {
	cfg := microConfig(
		BotSeed{Name: "minnow", Strategy: "fish"},
		BotSeed{Name: "rock", Strategy: "tag"},
		BotSeed{Name: "gambler", Strategy: "lag"},
	)
	m, mc := newTestManager(t, cfg)

	for i := 0; i < 20; i++ {
		advanceTick(t, m, mc)
	}
	require.GreaterOrEqual(t, m.handsComplete.Load(), uint64(10))

	hands, err := m.RecentHands("table-micro", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hands)
	for i := 1; i < len(hands); i++ {
		assert.Greater(t, hands[i-1].HandNumber, hands[i].HandNumber, "newest first")
	}

	mt, err := m.managed("table-micro")
	require.NoError(t, err)
	for _, s := range mt.table.Seats {
		if s.Occupied() {
			assert.GreaterOrEqual(t, s.Stack, int64(0))
		}
	}
}

func TestHumanTurnTimeoutFoldsAndSitsOut(t *testing.T) {
	m, mc := newTestManager(t, microConfig())
	tid := "table-micro"
	_, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "alice", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	_, err = m.SitAgent(tid, SitParams{AgentID: "h2", Name: "bob", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)

	advanceTick(t, m, mc)
	mt, err := m.managed(tid)
	require.NoError(t, err)
	h := mt.table.CurrentHand
	require.NotNil(t, h)
	turn, ok := mt.table.TurnSeat()
	require.True(t, ok)
	timedOut := mt.table.Seats[turn].Agent

	// Heads-up the small blind acts first and faces the big blind, so
	// running out the clock folds rather than checks.
	mc.Advance(m.timings.TurnTimeout).MustWait(context.Background())
	m.tick()

	require.Equal(t, game.PhaseShowdown, h.Phase)
	require.Len(t, h.Actions, 1)
	assert.Equal(t, game.ActionFold, h.Actions[0].Action)
	assert.Equal(t, timedOut.ID, h.Actions[0].AgentID)
	assert.True(t, mt.table.Seats[turn].SittingOut)

	mc.Advance(m.timings.ShowdownHold).MustWait(context.Background())
	m.tick()
	assert.EqualValues(t, 1, m.handsComplete.Load())
	assert.Nil(t, mt.table.CurrentHand)

	// One player is sitting out, so nothing new deals.
	advanceTick(t, m, mc)
	assert.Nil(t, mt.table.CurrentHand)
}

func TestObserverDealtInAfterCurrentHand(t *testing.T) {
	cfg := microConfig(
		BotSeed{Name: "minnow", Strategy: "fish"},
		BotSeed{Name: "rock", Strategy: "tag"},
	)
	m, mc := newTestManager(t, cfg)
	tid := "table-micro"
	mt, err := m.managed(tid)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		advanceTick(t, m, mc)
		if h := mt.table.CurrentHand; h != nil && h.Phase == game.PhaseShowdown {
			break
		}
	}
	require.NotNil(t, mt.table.CurrentHand)
	require.Equal(t, game.PhaseShowdown, mt.table.CurrentHand.Phase)

	assigned, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "carol", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	seat := mt.table.Seats[assigned.SeatNumber]
	assert.True(t, seat.SittingOut, "joins as observer while a hand is live")

	mc.Advance(m.timings.ShowdownHold).MustWait(context.Background())
	m.tick()
	require.Nil(t, mt.table.CurrentHand)

	advanceTick(t, m, mc)
	require.NotNil(t, mt.table.CurrentHand)
	assert.False(t, seat.SittingOut)
	assert.Len(t, seat.HoleCards, 2, "observer is dealt into the next hand")
}

func TestLeaderboardIncludesUnrealized(t *testing.T) {
	m, mc := newTestManager(t, microConfig())
	tid := "table-micro"
	_, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "alice", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	_, err = m.SitAgent(tid, SitParams{AgentID: "h2", Name: "bob", SeatNumber: -1, BuyIn: 100})
	require.NoError(t, err)

	advanceTick(t, m, mc)
	mt, err := m.managed(tid)
	require.NoError(t, err)
	h := mt.table.CurrentHand
	require.NotNil(t, h)

	rows, err := m.Leaderboard()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byID := make(map[string]LeaderboardRow, len(rows))
	for _, r := range rows {
		byID[r.AgentID] = r
		assert.Equal(t, r.Profit+r.Unrealized, r.Total)
	}
	sb := mt.table.Seats[h.SmallBlindSeat].Agent.ID
	bb := mt.table.Seats[h.BigBlindSeat].Agent.ID
	assert.EqualValues(t, -1, byID[sb].Unrealized)
	assert.EqualValues(t, -2, byID[bb].Unrealized)
	assert.GreaterOrEqual(t, rows[0].Total, rows[1].Total)
}

func TestAddBot(t *testing.T) {
	m, _ := newTestManager(t, microConfig())
	tid := "table-micro"

	_, err := m.AddBot(tid, "martingale")
	require.ErrorIs(t, err, ErrUnknownStrategy)
	_, err = m.AddBot("table-nope", "fish")
	require.ErrorIs(t, err, ErrTableNotFound)

	added, err := m.AddBot(tid, "fish")
	require.NoError(t, err)
	assert.Equal(t, game.AgentFish, added.Type)
	assert.Contains(t, added.Name, "bot-fish-")

	mt, err := m.managed(tid)
	require.NoError(t, err)
	seat := mt.table.FindSeatByAgent(added.ID)
	require.NotNil(t, seat)
	assert.Equal(t, mt.table.Config.MaxBuyIn, seat.Stack)
	assert.Contains(t, mt.bots, added.ID)
}

func TestSubmitActionTurnEnforcement(t *testing.T) {
	m, mc := newTestManager(t, microConfig())
	tid := "table-micro"
	_, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "alice", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	_, err = m.SitAgent(tid, SitParams{AgentID: "h2", Name: "bob", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)

	require.ErrorIs(t, m.SubmitAction(tid, "h1", game.ActionCheck, 0), game.ErrNotYourTurn)

	advanceTick(t, m, mc)
	mt, err := m.managed(tid)
	require.NoError(t, err)
	turn, ok := mt.table.TurnSeat()
	require.True(t, ok)
	actor := mt.table.Seats[turn].Agent.ID
	other := "h1"
	if actor == "h1" {
		other = "h2"
	}

	require.ErrorIs(t, m.SubmitAction(tid, other, game.ActionCall, 0), game.ErrNotYourTurn)
	require.ErrorIs(t, m.SubmitAction(tid, "ghost", game.ActionCall, 0), ErrAgentNotSeated)
	require.ErrorIs(t, m.SubmitAction("table-nope", actor, game.ActionCall, 0), ErrTableNotFound)

	require.NoError(t, m.SubmitAction(tid, actor, game.ActionCall, 0))
	turn2, ok := mt.table.TurnSeat()
	require.True(t, ok)
	require.Equal(t, other, mt.table.Seats[turn2].Agent.ID, "big blind has the option")
	require.NoError(t, m.SubmitAction(tid, other, game.ActionCheck, 0))

	require.Equal(t, game.PhaseFlop, mt.table.CurrentHand.Phase)
	require.Len(t, mt.table.CurrentHand.CommunityCards, 3)
}

func TestLeaveMidHandFoldsAndCashesOut(t *testing.T) {
	m, mc := newTestManager(t, microConfig())
	tid := "table-micro"
	_, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "alice", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	_, err = m.SitAgent(tid, SitParams{AgentID: "h2", Name: "bob", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)

	advanceTick(t, m, mc)
	mt, err := m.managed(tid)
	require.NoError(t, err)
	h := mt.table.CurrentHand
	require.NotNil(t, h)
	leaver := mt.table.Seats[h.SmallBlindSeat].Agent.ID

	out, err := m.LeaveAgent(tid, leaver)
	require.NoError(t, err)
	assert.EqualValues(t, 199, out.Stack, "small blind stays in the pot")
	assert.EqualValues(t, 200, out.BuyIn)
	assert.Nil(t, mt.table.FindSeatByAgent(leaver))

	require.Equal(t, game.PhaseShowdown, h.Phase, "remaining player wins by fold")
	require.Len(t, h.Winners, 1)
	assert.EqualValues(t, 3, h.Winners[0].Amount)

	_, err = m.LeaveAgent(tid, "ghost")
	require.ErrorIs(t, err, ErrAgentNotSeated)
}

func TestPanicInTickAbortsHandAndRecovers(t *testing.T) {
	m, mc := newTestManager(t, microConfig())
	tid := "table-micro"
	_, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "alice", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	_, err = m.SitAgent(tid, SitParams{AgentID: "h2", Name: "bob", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)

	advanceTick(t, m, mc)
	mt, err := m.managed(tid)
	require.NoError(t, err)
	require.NotNil(t, mt.table.CurrentHand)

	// Corrupt the turn order so the next step indexes a seat that does
	// not exist.
	mt.table.CurrentHand.ActivePlayerOrder = []int{42}
	mt.table.CurrentHand.CurrentPlayerIndex = 0

	advanceTick(t, m, mc)
	assert.Nil(t, mt.table.CurrentHand, "hand aborted after panic")
	for _, id := range []string{"h1", "h2"} {
		seat := mt.table.FindSeatByAgent(id)
		require.NotNil(t, seat)
		assert.EqualValues(t, 200, seat.Stack, "blinds refunded on abort")
	}

	advanceTick(t, m, mc)
	require.NotNil(t, mt.table.CurrentHand, "table keeps dealing")
	assert.EqualValues(t, 2, mt.table.CurrentHand.HandNumber)
	assert.EqualValues(t, 0, m.handsComplete.Load())
}

func TestStandAndResume(t *testing.T) {
	m, mc := newTestManager(t, microConfig())
	tid := "table-micro"
	_, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "alice", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	_, err = m.SitAgent(tid, SitParams{AgentID: "h2", Name: "bob", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)

	require.ErrorIs(t, m.StandAgent(tid, "ghost"), ErrAgentNotSeated)
	require.NoError(t, m.StandAgent(tid, "h1"))

	mt, err := m.managed(tid)
	require.NoError(t, err)
	advanceTick(t, m, mc)
	assert.Nil(t, mt.table.CurrentHand, "standing player is not dealt in")

	require.NoError(t, m.ResumeAgent(tid, "h1"))
	advanceTick(t, m, mc)
	require.NotNil(t, mt.table.CurrentHand)
}

func TestRebuyBetweenHands(t *testing.T) {
	m, mc := newTestManager(t, microConfig())
	tid := "table-micro"
	_, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "alice", SeatNumber: -1, BuyIn: 100})
	require.NoError(t, err)
	_, err = m.SitAgent(tid, SitParams{AgentID: "h2", Name: "bob", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)

	require.NoError(t, m.RebuyAgent(tid, "h1", 50))
	mt, err := m.managed(tid)
	require.NoError(t, err)
	seat := mt.table.FindSeatByAgent("h1")
	assert.EqualValues(t, 150, seat.Stack)
	assert.EqualValues(t, 150, seat.BuyIn)

	require.ErrorIs(t, m.RebuyAgent(tid, "h1", 100), game.ErrRebuyAboveMax)
	require.ErrorIs(t, m.RebuyAgent(tid, "ghost", 10), ErrAgentNotSeated)

	advanceTick(t, m, mc)
	require.ErrorIs(t, m.RebuyAgent(tid, "h1", 10), game.ErrRebuyDuringHand)
}

func TestHandNumbersResumeAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pitboss.db")
	logger := log.New(io.Discard)
	cfg := microConfig(
		BotSeed{Name: "minnow", Strategy: "fish"},
		BotSeed{Name: "rock", Strategy: "tag"},
	)

	st, err := store.OpenSQLite(path)
	require.NoError(t, err)
	queue := store.NewQueue(st, 64, logger)
	mc := quartz.NewMock(t)
	m, err := NewManager(cfg, st, queue, NewHub(logger), mc, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		_ = queue.Run(ctx)
	}()

	for i := 0; i < 6; i++ {
		advanceTick(t, m, mc)
	}
	completed := m.handsComplete.Load()
	require.NotZero(t, completed)

	cancel()
	<-drained
	require.NoError(t, st.Close())

	st2, err := store.OpenSQLite(path)
	require.NoError(t, err)
	defer st2.Close()
	m2, err := NewManager(cfg, st2, store.NewQueue(st2, 64, logger), NewHub(logger), quartz.NewMock(t), logger)
	require.NoError(t, err)

	mt, err := m2.managed("table-micro")
	require.NoError(t, err)
	assert.EqualValues(t, completed, mt.table.HandCount, "counter resumes at the persisted maximum")
}

func TestGetTableMasksOpponentCards(t *testing.T) {
	m, mc := newTestManager(t, microConfig())
	tid := "table-micro"
	_, err := m.SitAgent(tid, SitParams{AgentID: "h1", Name: "alice", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	_, err = m.SitAgent(tid, SitParams{AgentID: "h2", Name: "bob", SeatNumber: -1, BuyIn: 200})
	require.NoError(t, err)
	advanceTick(t, m, mc)

	_, err = m.GetTable("table-nope", "")
	require.ErrorIs(t, err, ErrTableNotFound)

	view, err := m.GetTable(tid, "h1")
	require.NoError(t, err)
	require.NotNil(t, view.YourSeat)
	for _, s := range view.Seats {
		if s.Agent != nil && s.Agent.ID == "h1" {
			assert.Len(t, s.HoleCards, 2, "viewer sees their own cards")
		} else {
			assert.Empty(t, s.HoleCards, "opponent cards stay hidden")
		}
	}

	spectator, err := m.GetTable(tid, "")
	require.NoError(t, err)
	assert.Nil(t, spectator.YourSeat)
	for _, s := range spectator.Seats {
		assert.Empty(t, s.HoleCards)
	}
}
