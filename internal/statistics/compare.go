package statistics

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Comparison is the result of a two-sample Welch t-test on per-round rewards
type Comparison struct {
	Difference float64 // mean of a minus mean of b
	StdError   float64
	TStatistic float64
	DF         float64
	PValue     float64 // two-tailed
	EffectSize float64 // Cohen's d
	CI95Low    float64
	CI95High   float64
}

// Compare tests whether a and b have different mean rewards
func Compare(a, b *Statistics) Comparison {
	diff := a.Mean() - b.Mean()
	sdA, sdB := a.StdDev(), b.StdDev()
	nA, nB := a.Rounds, b.Rounds

	c := Comparison{Difference: diff, PValue: 1}
	if pooled := pooledStdDev(sdA, nA, sdB, nB); pooled > 0 {
		c.EffectSize = diff / pooled
	}

	seA, seB := a.StdError(), b.StdError()
	c.StdError = math.Sqrt(seA*seA + seB*seB)
	c.DF = welchDF(sdA, nA, sdB, nB)
	if c.StdError == 0 || c.DF <= 0 {
		c.CI95Low, c.CI95High = diff, diff
		if diff != 0 && c.StdError == 0 {
			c.PValue = 0
		}
		return c
	}

	c.TStatistic = diff / c.StdError
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: c.DF}
	c.PValue = math.Min(1, math.Max(0, 2*(1-t.CDF(math.Abs(c.TStatistic)))))
	margin := t.Quantile(0.975) * c.StdError
	c.CI95Low, c.CI95High = diff-margin, diff+margin
	return c
}

// Significant reports whether the difference is significant at level alpha
func (c Comparison) Significant(alpha float64) bool {
	return c.PValue < alpha
}

func pooledStdDev(sd1 float64, n1 int, sd2 float64, n2 int) float64 {
	if n1+n2 <= 2 {
		return 0
	}
	v := (float64(n1-1)*sd1*sd1 + float64(n2-1)*sd2*sd2) / float64(n1+n2-2)
	return math.Sqrt(v)
}

// welchDF is the Welch–Satterthwaite approximation of the degrees of freedom
func welchDF(sd1 float64, n1 int, sd2 float64, n2 int) float64 {
	if n1 <= 1 || n2 <= 1 {
		return 0
	}
	v1 := sd1 * sd1 / float64(n1)
	v2 := sd2 * sd2 / float64(n2)
	den := v1*v1/float64(n1-1) + v2*v2/float64(n2-1)
	if den == 0 {
		return float64(n1 + n2 - 2)
	}
	return (v1 + v2) * (v1 + v2) / den
}

// InterpretEffectSize describes Cohen's d
func InterpretEffectSize(d float64) string {
	switch d = math.Abs(d); {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}
