package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/game"
	"github.com/feltlabs/pitboss/internal/server"
)

func TestDescribeAction(t *testing.T) {
	tests := []struct {
		name     string
		record   game.ActionRecord
		expected string
	}{
		{
			name:     "fold",
			record:   game.ActionRecord{AgentName: "alice", Action: game.ActionFold},
			expected: "alice folds",
		},
		{
			name:     "check",
			record:   game.ActionRecord{AgentName: "bob", Action: game.ActionCheck},
			expected: "bob checks",
		},
		{
			name:     "call",
			record:   game.ActionRecord{AgentName: "carol", Action: game.ActionCall, Amount: 10},
			expected: "carol calls 10",
		},
		{
			name:     "raise is rendered as raise to",
			record:   game.ActionRecord{AgentName: "dave", Action: game.ActionRaise, Amount: 30},
			expected: "dave raises to 30",
		},
		{
			name:     "all in",
			record:   game.ActionRecord{AgentName: "eve", Action: game.ActionAllIn, Amount: 200},
			expected: "eve is all in for 200",
		},
		{
			name:     "anonymous seat falls back to seat number",
			record:   game.ActionRecord{SeatNumber: 3, Action: game.ActionBet, Amount: 12},
			expected: "seat 3 bets 12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, describeAction(tt.record))
		})
	}
}

func TestRenderEventKnownTypes(t *testing.T) {
	at := time.Date(2025, 6, 1, 19, 4, 5, 0, time.UTC)

	street, err := json.Marshal(server.StreetData{
		Phase: game.PhaseFlop,
		CommunityCards: []deck.Card{
			deck.NewCard(deck.Ace, deck.Hearts),
			deck.NewCard(deck.King, deck.Diamonds),
			deck.NewCard(deck.Two, deck.Clubs),
		},
		Pot: 12,
	})
	require.NoError(t, err)

	line := renderEvent(feedEvent{Type: server.EventStreet, At: at, Data: street})
	assert.Contains(t, line, "flop")
	assert.Contains(t, line, "Ah Kd 2c")
	assert.Contains(t, line, "pot 12")
	assert.Contains(t, line, "19:04:05")

	showdown, err := json.Marshal(server.ShowdownData{
		Winners: []game.Winner{{AgentName: "alice", Amount: 24, HandName: "Two Pair"}},
		Pot:     24,
	})
	require.NoError(t, err)

	line = renderEvent(feedEvent{Type: server.EventShowdown, At: at, Data: showdown})
	assert.Contains(t, line, "alice wins 24")
	assert.Contains(t, line, "(Two Pair)")
}

func TestRenderEventUnknownTypeFallsBack(t *testing.T) {
	line := renderEvent(feedEvent{Type: "table_paused", At: time.Now()})
	assert.Contains(t, line, "table_paused")
}
