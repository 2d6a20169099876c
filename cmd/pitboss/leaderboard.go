package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/feltlabs/pitboss/internal/server"
)

type LeaderboardCmd struct {
	Limit int `short:"n" default:"20" help:"Show at most this many rows"`
}

func (c *LeaderboardCmd) Run() error {
	var rows []server.LeaderboardRow
	if err := apiGet("/leaderboard", &rows); err != nil {
		return err
	}
	if c.Limit > 0 && len(rows) > c.Limit {
		rows = rows[:c.Limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("#"),
		headerStyle.Render("name"),
		headerStyle.Render("type"),
		headerStyle.Render("hands"),
		headerStyle.Render("won"),
		headerStyle.Render("banked"),
		headerStyle.Render("total"))

	for i, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			i+1,
			row.AgentName,
			row.AgentType,
			row.HandsPlayed,
			row.HandsWon,
			chips(row.Profit),
			chips(row.Total))
	}
	return w.Flush()
}

// chips renders a signed chip amount, green for up and red for down.
func chips(n int64) string {
	s := fmt.Sprintf("%+d", n)
	switch {
	case n > 0:
		return liveStyle.Render(s)
	case n < 0:
		return lossStyle.Render(s)
	default:
		return dimStyle.Render(s)
	}
}
