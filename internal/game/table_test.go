package game

import (
	"errors"
	"testing"

	"github.com/feltlabs/pitboss/internal/deck"
)

func TestSeatAgentValidation(t *testing.T) {
	cfg := TableConfig{Stakes: "micro", SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200, MaxSeats: 3}
	tbl := NewTable("tbl-1", "micro one", cfg)

	alice := &Agent{ID: "a1", Name: "alice", Type: AgentHuman}
	if _, err := tbl.SeatAgent(alice, 0, 39, false); !errors.Is(err, ErrBuyInOutOfRange) {
		t.Errorf("short buy-in = %v, want ErrBuyInOutOfRange", err)
	}
	if _, err := tbl.SeatAgent(alice, 0, 201, false); !errors.Is(err, ErrBuyInOutOfRange) {
		t.Errorf("oversize buy-in = %v, want ErrBuyInOutOfRange", err)
	}
	if _, err := tbl.SeatAgent(alice, 5, 100, false); !errors.Is(err, ErrSeatOutOfRange) {
		t.Errorf("bad seat = %v, want ErrSeatOutOfRange", err)
	}

	seat, err := tbl.SeatAgent(alice, 1, 100, false)
	if err != nil {
		t.Fatalf("seating alice: %v", err)
	}
	if seat.Number != 1 || seat.Stack != 100 || seat.BuyIn != 100 {
		t.Errorf("seat = %+v, want number 1 stack 100", seat)
	}

	bob := &Agent{ID: "b1", Name: "bob", Type: AgentHuman}
	if _, err := tbl.SeatAgent(bob, 1, 100, false); !errors.Is(err, ErrSeatOccupied) {
		t.Errorf("taken seat = %v, want ErrSeatOccupied", err)
	}
	if _, err := tbl.SeatAgent(alice, 2, 100, false); !errors.Is(err, ErrAlreadySeated) {
		t.Errorf("double seat = %v, want ErrAlreadySeated", err)
	}

	// -1 picks the first open seat.
	seat, err = tbl.SeatAgent(bob, -1, 100, false)
	if err != nil {
		t.Fatalf("seating bob: %v", err)
	}
	if seat.Number != 0 {
		t.Errorf("auto seat = %d, want 0", seat.Number)
	}

	carol := &Agent{ID: "c1", Name: "carol", Type: AgentHuman}
	if _, err := tbl.SeatAgent(carol, -1, 100, false); err != nil {
		t.Fatalf("seating carol: %v", err)
	}
	dave := &Agent{ID: "d1", Name: "dave", Type: AgentHuman}
	if _, err := tbl.SeatAgent(dave, -1, 100, false); !errors.Is(err, ErrTableFull) {
		t.Errorf("full table = %v, want ErrTableFull", err)
	}

	if got := tbl.OccupiedCount(); got != 3 {
		t.Errorf("occupied = %d, want 3", got)
	}
}

func TestRebuyRules(t *testing.T) {
	cfg := TableConfig{Stakes: "micro", SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200, MaxSeats: 3}
	tbl := NewTable("tbl-1", "micro one", cfg)
	for i, id := range []string{"a1", "b1"} {
		if _, err := tbl.SeatAgent(&Agent{ID: id, Name: id, Type: AgentHuman}, i, 100, false); err != nil {
			t.Fatalf("seating: %v", err)
		}
	}

	if err := tbl.Rebuy(2, 50); !errors.Is(err, ErrSeatEmpty) {
		t.Errorf("rebuy empty seat = %v, want ErrSeatEmpty", err)
	}
	if err := tbl.Rebuy(0, 150); !errors.Is(err, ErrRebuyAboveMax) {
		t.Errorf("rebuy above max = %v, want ErrRebuyAboveMax", err)
	}
	if err := tbl.Rebuy(0, 100); err != nil {
		t.Fatalf("rebuy: %v", err)
	}
	if tbl.Seats[0].Stack != 200 || tbl.Seats[0].BuyIn != 200 {
		t.Errorf("after rebuy stack=%d buyIn=%d, want 200/200", tbl.Seats[0].Stack, tbl.Seats[0].BuyIn)
	}

	if err := tbl.StartHand(handNow); err != nil {
		t.Fatalf("starting hand: %v", err)
	}
	if err := tbl.Rebuy(0, 10); !errors.Is(err, ErrRebuyDuringHand) {
		t.Errorf("mid-hand rebuy = %v, want ErrRebuyDuringHand", err)
	}
}

func TestRebuySitOutInteraction(t *testing.T) {
	cfg := TableConfig{Stakes: "micro", SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200, MaxSeats: 3}
	tbl := NewTable("tbl-1", "micro one", cfg)
	if _, err := tbl.SeatAgent(&Agent{ID: "a1", Name: "a1", Type: AgentHuman}, 0, 100, false); err != nil {
		t.Fatalf("seating: %v", err)
	}

	// A felted seat returns to play when it refunds.
	tbl.Seats[0].Stack = 0
	tbl.Seats[0].SittingOut = true
	if err := tbl.Rebuy(0, 100); err != nil {
		t.Fatalf("rebuy: %v", err)
	}
	if tbl.Seats[0].SittingOut {
		t.Error("felted seat should rejoin play after a rebuy")
	}

	// A voluntary sit-out topping up stays out.
	tbl.Seats[0].SittingOut = true
	if err := tbl.Rebuy(0, 50); err != nil {
		t.Fatalf("rebuy: %v", err)
	}
	if !tbl.Seats[0].SittingOut {
		t.Error("voluntary sit-out should stay out after topping up")
	}
}

func TestObserverSeatWakesBeforeDeal(t *testing.T) {
	cfg := TableConfig{Stakes: "micro", SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200, MaxSeats: 3}
	tbl := NewTable("tbl-1", "micro one", cfg)

	if _, err := tbl.SeatAgent(&Agent{ID: "a1", Name: "alice", Type: AgentHuman}, 0, 100, true); err != nil {
		t.Fatalf("seating observer: %v", err)
	}
	if _, err := tbl.SeatAgent(&Agent{ID: "b1", Name: "bob", Type: AgentHuman}, 1, 100, false); err != nil {
		t.Fatalf("seating: %v", err)
	}
	if got := tbl.PlayableCount(); got != 1 {
		t.Fatalf("playable before wake = %d, want 1", got)
	}

	tbl.WakeWaitingSeats()
	if tbl.Seats[0].SittingOut {
		t.Error("observer still sitting out after wake")
	}
	if got := tbl.PlayableCount(); got != 2 {
		t.Errorf("playable after wake = %d, want 2", got)
	}

	// An explicit stand-up survives the wake pass.
	if err := tbl.SetSittingOut(1, true); err != nil {
		t.Fatalf("standing bob: %v", err)
	}
	tbl.WakeWaitingSeats()
	if !tbl.Seats[1].SittingOut {
		t.Error("explicit sit-out was woken")
	}
}

func TestRemoveAgentNotSeated(t *testing.T) {
	tbl := newTestTable(t, 1, 2, 100, 100)
	if _, err := tbl.RemoveAgent("nobody", handNow); !errors.Is(err, ErrSeatEmpty) {
		t.Errorf("remove unknown = %v, want ErrSeatEmpty", err)
	}
}

func TestBustedBotRebuysAndBustedHumanSitsOut(t *testing.T) {
	run := func(t *testing.T, loserType AgentType) *Table {
		cfg := TableConfig{Stakes: "micro", SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200, MaxSeats: 2}
		tbl := NewTable("tbl-bust", "bust table", cfg)
		winner := &Agent{ID: "w1", Name: "winner", Type: AgentHuman}
		loser := &Agent{ID: "l1", Name: "loser", Type: loserType}
		if _, err := tbl.SeatAgent(winner, 0, 200, false); err != nil {
			t.Fatalf("seating winner: %v", err)
		}
		if _, err := tbl.SeatAgent(loser, 1, 40, false); err != nil {
			t.Fatalf("seating loser: %v", err)
		}

		// Winner holds aces, loser seven-deuce, dry board.
		cards := deck.MustParseCards("7c2d AsAh KdQh9s5h4c")
		if err := tbl.StartHand(handNow, WithDeck(deck.Stacked(cards...))); err != nil {
			t.Fatalf("starting hand: %v", err)
		}
		mustAct(t, tbl, 0, ActionAllIn, 0)
		mustAct(t, tbl, 1, ActionCall, 0)
		if tbl.CurrentHand.Phase != PhaseShowdown {
			t.Fatalf("phase = %s, want showdown", tbl.CurrentHand.Phase)
		}
		return tbl
	}

	t.Run("bot rebuys", func(t *testing.T) {
		tbl := run(t, AgentFish)
		done, err := tbl.CompleteShowdown(handNow)
		if err != nil {
			t.Fatalf("completing: %v", err)
		}
		seat := tbl.Seats[1]
		if seat.Stack != 200 {
			t.Errorf("bot stack = %d, want rebought 200", seat.Stack)
		}
		if seat.BuyIn != 240 {
			t.Errorf("bot buyIn = %d, want 240", seat.BuyIn)
		}
		if seat.SittingOut {
			t.Error("bot sitting out after rebuy")
		}
		if len(done.Rebuys) != 1 || done.Rebuys[0].Amount != 200 || done.Rebuys[0].SeatNumber != 1 {
			t.Errorf("rebuys = %+v, want seat 1 for 200", done.Rebuys)
		}
	})

	t.Run("human sits out", func(t *testing.T) {
		tbl := run(t, AgentHuman)
		done, err := tbl.CompleteShowdown(handNow)
		if err != nil {
			t.Fatalf("completing: %v", err)
		}
		seat := tbl.Seats[1]
		if seat.Stack != 0 {
			t.Errorf("human stack = %d, want 0", seat.Stack)
		}
		if !seat.SittingOut {
			t.Error("busted human not sitting out")
		}
		if len(done.Rebuys) != 0 {
			t.Errorf("rebuys = %+v, want none", done.Rebuys)
		}
	})
}
