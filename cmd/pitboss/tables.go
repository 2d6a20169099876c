package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/feltlabs/pitboss/internal/server"
)

type TablesCmd struct{}

func (c *TablesCmd) Run() error {
	var tables []server.TableSummary
	if err := apiGet("/tables", &tables); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("table"),
		headerStyle.Render("blinds"),
		headerStyle.Render("buy-in"),
		headerStyle.Render("seats"),
		headerStyle.Render("playing"),
		headerStyle.Render("hands"),
		headerStyle.Render("state"))

	for _, t := range tables {
		state := dimStyle.Render("idle")
		if t.HandInProgress {
			state = liveStyle.Render("in hand")
		}
		fmt.Fprintf(w, "%s\t%d/%d\t%d-%d\t%d/%d\t%d\t%d\t%s\n",
			idStyle.Render(t.ID),
			t.SmallBlind, t.BigBlind,
			t.MinBuyIn, t.MaxBuyIn,
			t.Occupied, t.MaxSeats,
			t.Playing,
			t.HandCount,
			state)
	}
	return w.Flush()
}
