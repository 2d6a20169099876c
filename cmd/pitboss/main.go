package main

import (
	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  string           `short:"s" default:"http://localhost:8080" help:"Base URL of the pitboss server"`

	Tables      TablesCmd      `cmd:"" help:"List tables"`
	Watch       WatchCmd       `cmd:"" help:"Stream a table's live event feed"`
	Leaderboard LeaderboardCmd `cmd:"" help:"Show cumulative profit standings"`
	AddBot      AddBotCmd      `cmd:"add-bot" help:"Seat a house bot at a table"`
}

var cli CLI

var (
	// Style definitions
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("14"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("pitboss"),
		kong.Description("Operator CLI for the pitboss poker room"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
