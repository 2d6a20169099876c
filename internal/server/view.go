package server

import (
	"time"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/game"
)

// TableSummary is the lobby listing entry for one table.
type TableSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Stakes         string `json:"stakes"`
	SmallBlind     int64  `json:"smallBlind"`
	BigBlind       int64  `json:"bigBlind"`
	MinBuyIn       int64  `json:"minBuyIn"`
	MaxBuyIn       int64  `json:"maxBuyIn"`
	MaxSeats       int    `json:"maxSeats"`
	Occupied       int    `json:"occupied"`
	Playing        int    `json:"playing"`
	HandCount      uint64 `json:"handCount"`
	HandInProgress bool   `json:"handInProgress"`
}

// AgentView is the public slice of an agent's identity.
type AgentView struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Type game.AgentType `json:"type"`
}

// SeatView is one seat as a given viewer may see it. HoleCards is empty
// unless the viewer owns the seat or the cards went public at showdown.
type SeatView struct {
	Number         int         `json:"number"`
	Agent          *AgentView  `json:"agent,omitempty"`
	Stack          int64       `json:"stack"`
	CurrentBet     int64       `json:"currentBet"`
	TotalCommitted int64       `json:"totalCommitted"`
	SittingOut     bool        `json:"sittingOut"`
	HasFolded      bool        `json:"hasFolded"`
	AllIn          bool        `json:"allIn"`
	IsTurn         bool        `json:"isTurn"`
	HoleCards      []deck.Card `json:"holeCards,omitempty"`
}

// HandView is the current hand's public state.
type HandView struct {
	ID             string              `json:"id"`
	HandNumber     uint64              `json:"handNumber"`
	Phase          game.Phase          `json:"phase"`
	CommunityCards []deck.Card         `json:"communityCards"`
	Pot            int64               `json:"pot"`
	SidePots       []game.SidePot      `json:"sidePots,omitempty"`
	CurrentBet     int64               `json:"currentBet"`
	MinRaise       int64               `json:"minRaise"`
	DealerSeat     int                 `json:"dealerSeat"`
	SmallBlindSeat int                 `json:"smallBlindSeat"`
	BigBlindSeat   int                 `json:"bigBlindSeat"`
	TurnSeat       *int                `json:"turnSeat,omitempty"`
	TurnExpiresAt  *time.Time          `json:"turnExpiresAt,omitempty"`
	Winners        []game.Winner       `json:"winners,omitempty"`
	Actions        []game.ActionRecord `json:"actions"`
	StartedAt      time.Time           `json:"startedAt"`
}

// TableView is a full table rendered for one viewer. ValidActions is
// present only when it is the viewer's turn.
type TableView struct {
	TableSummary
	Seats        []SeatView          `json:"seats"`
	Hand         *HandView           `json:"hand,omitempty"`
	YourSeat     *int                `json:"yourSeat,omitempty"`
	ValidActions []game.ActionOption `json:"validActions,omitempty"`
}

// HandSummary is one completed hand from the history ring.
type HandSummary struct {
	ID             string        `json:"id"`
	HandNumber     uint64        `json:"handNumber"`
	Pot            int64         `json:"pot"`
	CommunityCards []deck.Card   `json:"communityCards"`
	Winners        []game.Winner `json:"winners"`
	ActionCount    int           `json:"actionCount"`
	StartedAt      time.Time     `json:"startedAt"`
	CompletedAt    time.Time     `json:"completedAt"`
}

func summarizeTable(t *game.Table) TableSummary {
	return TableSummary{
		ID:             t.ID,
		Name:           t.Name,
		Stakes:         t.Config.Stakes,
		SmallBlind:     t.Config.SmallBlind,
		BigBlind:       t.Config.BigBlind,
		MinBuyIn:       t.Config.MinBuyIn,
		MaxBuyIn:       t.Config.MaxBuyIn,
		MaxSeats:       t.Config.MaxSeats,
		Occupied:       t.OccupiedCount(),
		Playing:        t.PlayableCount(),
		HandCount:      t.HandCount,
		HandInProgress: t.HandInProgress(),
	}
}

func summarizeHand(h *game.HandState) HandSummary {
	return HandSummary{
		ID:             h.ID,
		HandNumber:     h.HandNumber,
		Pot:            h.Pot,
		CommunityCards: copyCards(h.CommunityCards),
		Winners:        append([]game.Winner{}, h.Winners...),
		ActionCount:    len(h.Actions),
		StartedAt:      h.StartedAt,
		CompletedAt:    h.CompletedAt,
	}
}

// viewTable renders a table for viewerID, which may be empty for the
// public spectator view. Everything is copied, so the result stays
// stable after the table lock is released.
func viewTable(t *game.Table, viewerID string, turnTimeout time.Duration) TableView {
	view := TableView{TableSummary: summarizeTable(t)}

	h := t.CurrentHand
	turn := -1
	if h != nil && h.Phase.Betting() {
		if n, ok := t.TurnSeat(); ok {
			turn = n
		}
	}

	// A contested showdown turns every live hand face up. A hand ended
	// by folds reveals nothing, so the reveal needs two or more live
	// seats and no betting still open.
	live := 0
	for _, s := range t.Seats {
		if s.InHand() {
			live++
		}
	}
	revealAll := live >= 2 && (h == nil || !h.Phase.Betting())

	view.Seats = make([]SeatView, len(t.Seats))
	for i, s := range t.Seats {
		sv := SeatView{
			Number:         s.Number,
			Stack:          s.Stack,
			CurrentBet:     s.CurrentBet,
			TotalCommitted: s.TotalCommitted,
			SittingOut:     s.SittingOut,
			HasFolded:      s.HasFolded,
			AllIn:          s.AllIn,
			IsTurn:         s.Number == turn,
		}
		if s.Occupied() {
			sv.Agent = &AgentView{ID: s.Agent.ID, Name: s.Agent.Name, Type: s.Agent.Type}
			isViewer := viewerID != "" && s.Agent.ID == viewerID
			if isViewer {
				n := s.Number
				view.YourSeat = &n
			}
			if isViewer || (revealAll && !s.HasFolded) {
				sv.HoleCards = copyCards(s.HoleCards)
			}
		}
		view.Seats[i] = sv
	}

	if h != nil {
		hv := &HandView{
			ID:             h.ID,
			HandNumber:     h.HandNumber,
			Phase:          h.Phase,
			CommunityCards: copyCards(h.CommunityCards),
			Pot:            h.Pot,
			SidePots:       copySidePots(h.SidePots),
			CurrentBet:     h.CurrentBet,
			MinRaise:       h.MinRaise,
			DealerSeat:     h.DealerSeat,
			SmallBlindSeat: h.SmallBlindSeat,
			BigBlindSeat:   h.BigBlindSeat,
			Winners:        append([]game.Winner{}, h.Winners...),
			Actions:        append([]game.ActionRecord{}, h.Actions...),
			StartedAt:      h.StartedAt,
		}
		if turn >= 0 {
			n := turn
			hv.TurnSeat = &n
			if seat := t.Seats[turn]; seat.Occupied() && !seat.Agent.Type.IsBot() {
				deadline := h.LastActionAt.Add(turnTimeout)
				hv.TurnExpiresAt = &deadline
			}
		}
		view.Hand = hv

		if turn >= 0 && viewerID != "" && t.Seats[turn].Agent.ID == viewerID {
			view.ValidActions = t.ValidActions(turn)
		}
	}

	return view
}

func copyCards(cards []deck.Card) []deck.Card {
	if cards == nil {
		return nil
	}
	return append([]deck.Card{}, cards...)
}

func copySidePots(pots []game.SidePot) []game.SidePot {
	if pots == nil {
		return nil
	}
	out := make([]game.SidePot, len(pots))
	for i, p := range pots {
		out[i] = game.SidePot{
			Amount:        p.Amount,
			EligibleSeats: append([]int{}, p.EligibleSeats...),
		}
	}
	return out
}
