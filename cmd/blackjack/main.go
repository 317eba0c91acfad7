package main

import (
	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	Config   string `short:"c" default:"blackjack.hcl" help:"HCL configuration file (defaults are used if it does not exist)" type:"path"`
	LogLevel string `help:"Log level (debug|info|warn|error), overrides the config file"`
	NoColor  bool   `help:"Disable colored output"`
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Train   TrainCmd         `cmd:"" help:"Train an agent and save its value table"`
	Eval    EvalCmd          `cmd:"" help:"Play a saved value table greedily and report statistics"`
	Inspect InspectCmd       `cmd:"" help:"Show the greedy policy of a saved value table"`
	Compare CompareCmd       `cmd:"" help:"Test whether one value table plays better than another"`
	Bust    BustCmd          `cmd:"" help:"Probability that one more card busts a hand"`
	History HistoryCmd       `cmd:"" help:"Browse recorded training runs"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Tabular reinforcement learning for Blackjack"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	if cli.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
