// Package stats summarises the credit counts of the rows loaded so far.
package stats

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/castrank/castrank/pkg/model"
)

// Summary describes a set of credit counts.
type Summary struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	P90    float64
	Max    int
}

// Summarize computes a Summary over people's credit counts.
func Summarize(people []model.Person) Summary {
	if len(people) == 0 {
		return Summary{}
	}
	counts := make([]float64, len(people))
	maxCount := 0
	for i, p := range people {
		counts[i] = float64(p.Count)
		maxCount = max(maxCount, p.Count)
	}
	slices.Sort(counts)

	s := Summary{
		N:      len(counts),
		Mean:   stat.Mean(counts, nil),
		Median: stat.Quantile(0.5, stat.Empirical, counts, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, counts, nil),
		Max:    maxCount,
	}
	if len(counts) > 1 {
		s.StdDev = stat.StdDev(counts, nil)
	}
	return s
}

// String renders the summary for a status line.
func (s Summary) String() string {
	if s.N == 0 {
		return "no rows loaded"
	}
	return fmt.Sprintf("n=%d  mean %.1f  median %.0f  p90 %.0f  max %d", s.N, s.Mean, s.Median, s.P90, s.Max)
}
