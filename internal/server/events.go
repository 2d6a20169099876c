package server

import (
	"time"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/game"
)

// Event types broadcast on a table's live feed.
const (
	EventHandStarted  = "hand_started"
	EventAction       = "action"
	EventStreet       = "street"
	EventShowdown     = "showdown"
	EventHandComplete = "hand_complete"
)

// Event is one frame on a table's websocket feed. Data never contains
// hole cards before showdown.
type Event struct {
	Type    string    `json:"type"`
	TableID string    `json:"tableId"`
	At      time.Time `json:"at"`
	Data    any       `json:"data,omitempty"`
}

// HandStartedData announces a new deal.
type HandStartedData struct {
	HandID         string `json:"handId"`
	HandNumber     uint64 `json:"handNumber"`
	DealerSeat     int    `json:"dealerSeat"`
	SmallBlindSeat int    `json:"smallBlindSeat"`
	BigBlindSeat   int    `json:"bigBlindSeat"`
	Pot            int64  `json:"pot"`
}

// StreetData announces community cards for a new betting round.
type StreetData struct {
	Phase          game.Phase  `json:"phase"`
	CommunityCards []deck.Card `json:"communityCards"`
	Pot            int64       `json:"pot"`
}

// ShowdownData announces the payout. Winning hole cards are public at
// this point.
type ShowdownData struct {
	Winners []game.Winner `json:"winners"`
	Pot     int64         `json:"pot"`
}

// HandCompleteData closes out a hand on the feed.
type HandCompleteData struct {
	HandID     string `json:"handId"`
	HandNumber uint64 `json:"handNumber"`
}
