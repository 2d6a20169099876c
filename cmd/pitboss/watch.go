package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/game"
	"github.com/feltlabs/pitboss/internal/server"
)

type WatchCmd struct {
	Table string `arg:"" help:"Table id, e.g. table-micro"`
}

// feedEvent keeps the payload raw until the event type is known.
type feedEvent struct {
	Type    string          `json:"type"`
	TableID string          `json:"tableId"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data"`
}

func (c *WatchCmd) Run() error {
	u, err := url.Parse(cli.Server)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/tables/" + c.Table + "/events"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", u.String(), err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// Closing the connection unblocks ReadJSON.
		<-ctx.Done()
		conn.Close()
	}()

	fmt.Printf("watching %s (ctrl-c to stop)\n", idStyle.Render(c.Table))
	for {
		var ev feedEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading feed: %w", err)
		}
		fmt.Println(renderEvent(ev))
	}
}

func renderEvent(ev feedEvent) string {
	stamp := dimStyle.Render(ev.At.Format("15:04:05"))

	switch ev.Type {
	case server.EventHandStarted:
		var d server.HandStartedData
		if json.Unmarshal(ev.Data, &d) == nil {
			return fmt.Sprintf("%s %s hand #%d, dealer seat %d, pot %d",
				stamp, eventStyle.Render("deal"), d.HandNumber, d.DealerSeat, d.Pot)
		}
	case server.EventAction:
		var d game.ActionRecord
		if json.Unmarshal(ev.Data, &d) == nil {
			return fmt.Sprintf("%s %s %s", stamp, eventStyle.Render("action"), describeAction(d))
		}
	case server.EventStreet:
		var d server.StreetData
		if json.Unmarshal(ev.Data, &d) == nil {
			return fmt.Sprintf("%s %s %s [%s] pot %d",
				stamp, eventStyle.Render("board"), d.Phase, formatCards(d.CommunityCards), d.Pot)
		}
	case server.EventShowdown:
		var d server.ShowdownData
		if json.Unmarshal(ev.Data, &d) == nil {
			parts := make([]string, len(d.Winners))
			for i, win := range d.Winners {
				desc := fmt.Sprintf("%s wins %d", win.AgentName, win.Amount)
				if win.HandName != "" {
					desc += " (" + win.HandName + ")"
				}
				parts[i] = desc
			}
			return fmt.Sprintf("%s %s %s", stamp, eventStyle.Render("showdown"), strings.Join(parts, ", "))
		}
	case server.EventHandComplete:
		var d server.HandCompleteData
		if json.Unmarshal(ev.Data, &d) == nil {
			return fmt.Sprintf("%s %s hand #%d", stamp, eventStyle.Render("complete"), d.HandNumber)
		}
	}
	return fmt.Sprintf("%s %s", stamp, ev.Type)
}

// describeAction renders one audit entry. Amount is the seat's total bet
// for the round, so raises read as "raises to".
func describeAction(d game.ActionRecord) string {
	name := d.AgentName
	if name == "" {
		name = fmt.Sprintf("seat %d", d.SeatNumber)
	}
	switch d.Action {
	case game.ActionFold:
		return name + " folds"
	case game.ActionCheck:
		return name + " checks"
	case game.ActionCall:
		return fmt.Sprintf("%s calls %d", name, d.Amount)
	case game.ActionBet:
		return fmt.Sprintf("%s bets %d", name, d.Amount)
	case game.ActionRaise:
		return fmt.Sprintf("%s raises to %d", name, d.Amount)
	case game.ActionAllIn:
		return fmt.Sprintf("%s is all in for %d", name, d.Amount)
	}
	return fmt.Sprintf("%s %s %d", name, d.Action, d.Amount)
}

func formatCards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, card := range cards {
		parts[i] = card.String()
	}
	return strings.Join(parts, " ")
}
