// Package plot renders an HTML report of a training run with go-echarts.
package plot

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/lox/blackjack-rl/internal/agent"
	"github.com/lox/blackjack-rl/internal/fileutil"
	"gonum.org/v1/gonum/floats"
)

// Report describes one training run to plot
type Report struct {
	Agent   string
	Session string
	Result  *agent.Result

	// RollingWindow is the width of the moving average over rewards
	RollingWindow int
	// MaxPoints caps how many reward points are drawn
	MaxPoints int
}

// Render writes the report as a standalone HTML page
func Render(w io.Writer, r Report) error {
	if r.Result == nil {
		return errors.New("no training result to plot")
	}
	window := max(1, r.RollingWindow)
	maxPoints := max(2, r.MaxPoints)

	page := components.NewPage()
	page.AddCharts(
		rewardChart(r, window, maxPoints),
		snapshotChart(r),
		outcomeChart(r),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	return nil
}

// Save writes the report to path atomically
func Save(path string, r Report) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Render(w, r)
	})
}

func rewardChart(r Report, window, maxPoints int) *charts.Line {
	rewards := r.Result.Rewards
	rolling := RollingAverage(rewards, window)
	idx := Downsample(len(rewards), maxPoints)

	xs := make([]string, len(idx))
	raw := make([]opts.LineData, len(idx))
	avg := make([]opts.LineData, len(idx))
	for i, j := range idx {
		xs[i] = strconv.Itoa(j + 1)
		raw[i] = opts.LineData{Value: rewards[j]}
		avg[i] = opts.LineData{Value: rolling[j]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "blackjack-rl " + r.Session}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s rewards per episode", r.Agent),
			Subtitle: fmt.Sprintf("session %s, %d episodes", r.Session, len(rewards)),
		}),
	)
	line.SetXAxis(xs).
		AddSeries("reward", raw).
		AddSeries(fmt.Sprintf("rolling mean (%d)", window), avg)
	return line
}

func snapshotChart(r Report) *charts.Line {
	snaps := r.Result.Snapshots
	xs := make([]string, len(snaps))
	winRate := make([]opts.LineData, len(snaps))
	epsilon := make([]opts.LineData, len(snaps))
	for i, s := range snaps {
		xs[i] = strconv.Itoa(s.Episode)
		winRate[i] = opts.LineData{Value: s.WinRate}
		epsilon[i] = opts.LineData{Value: s.Epsilon}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Win rate and exploration"}))
	line.SetXAxis(xs).
		AddSeries("win rate", winRate).
		AddSeries("epsilon", epsilon)
	return line
}

func outcomeChart(r Report) *charts.Bar {
	res := r.Result
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Outcomes"}))
	bar.SetXAxis([]string{"Wins", "Losses", "Draws"}).
		AddSeries("episodes", []opts.BarData{
			{Value: res.Wins},
			{Value: res.Losses},
			{Value: res.Draws},
		})
	return bar
}

// RollingAverage returns the trailing mean of values over window points.
// The first window-1 entries average over what is available.
func RollingAverage(values []float64, window int) []float64 {
	if len(values) == 0 {
		return nil
	}
	window = max(1, window)
	sums := floats.CumSum(make([]float64, len(values)), values)
	out := make([]float64, len(values))
	for i := range values {
		if i < window {
			out[i] = sums[i] / float64(i+1)
			continue
		}
		out[i] = (sums[i] - sums[i-window]) / float64(window)
	}
	return out
}

// Downsample picks at most maxPoints evenly spaced indices in [0, n). The
// first and last index are always kept.
func Downsample(n, maxPoints int) []int {
	if n <= 0 {
		return nil
	}
	if maxPoints < 2 || n <= maxPoints {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, maxPoints)
	step := float64(n-1) / float64(maxPoints-1)
	for i := range idx {
		idx[i] = int(float64(i)*step + 0.5)
	}
	idx[maxPoints-1] = n - 1
	return idx
}
