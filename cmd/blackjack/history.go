package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/blackjack-rl/internal/history"
	"github.com/lox/blackjack-rl/internal/tui"
)

type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" default:"1" help:"List recent runs"`
	Show   HistoryShowCmd   `cmd:"" help:"Show one run with its snapshots"`
	Delete HistoryDeleteCmd `cmd:"" name:"rm" help:"Delete a run"`
}

type HistoryListCmd struct {
	Agent string `help:"Only show runs of this agent"`
	Limit int    `short:"n" default:"20" help:"Maximum runs to show"`
}

type HistoryShowCmd struct {
	ID  string `arg:"" help:"Run id or unique prefix"`
	All bool   `help:"Show every snapshot instead of the last ten"`
}

type HistoryDeleteCmd struct {
	ID string `arg:"" help:"Run id"`
}

func openHistory(g *Globals) (*history.Store, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.Training.HistoryDB, nil)
}

func (c *HistoryListCmd) Run(g *Globals) error {
	store, err := openHistory(g)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), c.Agent, c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, tui.InfoStyle.Render("No runs recorded yet"))
		return nil
	}
	printRunList(os.Stdout, runs)
	return nil
}

func printRunList(w io.Writer, runs []*history.Run) {
	header := fmt.Sprintf("%-8s  %-19s  %-11s  %9s  %8s  %10s  %7s", "ID", "CREATED", "AGENT", "EPISODES", "WIN %", "REWARD", "STATES")
	fmt.Fprintln(w, tui.StatNameStyle.Render(header))
	for _, r := range runs {
		line := fmt.Sprintf("%-8s  %-19s  %-11s  %9d  %7.1f%%  %10.2f  %7d",
			r.ID[:min(8, len(r.ID))], r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Agent,
			r.Episodes, 100*r.WinRate(), r.TotalReward, r.TableSize)
		if r.Interrupted {
			line += " " + tui.WarningStyle.Render("interrupted")
		}
		fmt.Fprintln(w, line)
	}
}

func (c *HistoryShowCmd) Run(g *Globals) error {
	store, err := openHistory(g)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), c.ID)
	if err != nil {
		return err
	}
	printRun(os.Stdout, run, c.All)
	return nil
}

func printRun(w io.Writer, r *history.Run, all bool) {
	stat := func(name string, value any) string {
		return tui.StatNameStyle.Render(name+":") + " " + tui.StatValueStyle.Render(fmt.Sprint(value))
	}
	lines := []string{
		stat("Run", r.ID),
		stat("Session", r.Session),
		stat("Agent", r.Agent),
		stat("Created", r.CreatedAt.Local().Format("2006-01-02 15:04:05")),
		stat("Seed", r.Seed),
		stat("Episodes", r.Episodes),
		stat("Wins", r.Wins) + "  " + tui.StatNameStyle.Render("Losses:") + " " + tui.LossStyle.Render(fmt.Sprint(r.Losses)) + "  " + stat("Draws", r.Draws),
		stat("Win rate", fmt.Sprintf("%.2f%%", 100*r.WinRate())),
		stat("Hits", r.Hits) + "  " + stat("Stands", r.Stands),
		stat("Total reward", fmt.Sprintf("%.2f", r.TotalReward)),
		stat("Epsilon", fmt.Sprintf("%.4f", r.Epsilon)),
		stat("States", r.TableSize),
		stat("Value table", r.ModelPath),
	}
	if r.Interrupted {
		lines = append(lines, tui.WarningStyle.Render("Training was interrupted"))
	}
	fmt.Fprintln(w, tui.PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	snaps := r.Snapshots
	if len(snaps) == 0 {
		return
	}
	if !all && len(snaps) > 10 {
		snaps = snaps[len(snaps)-10:]
	}
	var b strings.Builder
	b.WriteString(tui.StatNameStyle.Render(fmt.Sprintf("%9s  %8s  %8s  %8s  %10s  %7s", "EPISODE", "WIN %", "EPSILON", "ALPHA", "REWARD", "STATES")))
	for _, s := range snaps {
		fmt.Fprintf(&b, "\n%9d  %7.1f%%  %8.4f  %8.4f  %10.2f  %7d",
			s.Episode, 100*s.WinRate, s.Epsilon, s.Alpha, s.TotalReward, s.TableSize)
	}
	fmt.Fprintln(w, b.String())
}

func (c *HistoryDeleteCmd) Run(g *Globals) error {
	store, err := openHistory(g)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteRun(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, tui.SuccessStyle.Render("Deleted run "+c.ID))
	return nil
}
