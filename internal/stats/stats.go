// Package stats holds the descriptive statistics and the normality test used
// by the imputation and outlier stages. Every function works on the present
// (non-missing) values of a column only.
package stats

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyColumn is returned when a statistic needs at least one value and got none.
var ErrEmptyColumn = errors.New("column has no non-missing values")

// Mean returns the arithmetic mean.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyColumn
	}
	return stat.Mean(xs, nil), nil
}

// StdDev returns the sample standard deviation (n-1 denominator). A single
// value has zero spread.
func StdDev(xs []float64) (float64, error) {
	switch len(xs) {
	case 0:
		return 0, ErrEmptyColumn
	case 1:
		return 0, nil
	}
	return stat.StdDev(xs, nil), nil
}

// MeanStdDev returns both moments in one pass over the data.
func MeanStdDev(xs []float64) (mean, std float64, err error) {
	switch len(xs) {
	case 0:
		return 0, 0, ErrEmptyColumn
	case 1:
		return xs[0], 0, nil
	}
	mean, std = stat.MeanStdDev(xs, nil)
	return mean, std, nil
}

// Sorted returns an ascending copy of xs.
func Sorted(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}

// Median returns the middle value, averaging the two middle values for even n.
func Median(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyColumn
	}
	return medianSorted(Sorted(xs)), nil
}

func medianSorted(s []float64) float64 {
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Quartiles returns Q1 and Q3 as Tukey hinges: the medians of the lower and
// upper halves of the sorted data, with the overall median excluded from both
// halves when n is odd. A single value is both quartiles.
func Quartiles(xs []float64) (q1, q3 float64, err error) {
	n := len(xs)
	if n == 0 {
		return 0, 0, ErrEmptyColumn
	}
	if n == 1 {
		return xs[0], xs[0], nil
	}
	s := Sorted(xs)
	half := n / 2
	return medianSorted(s[:half]), medianSorted(s[n-half:]), nil
}

// Mode returns the most frequent value. Ties go to the value seen first.
func Mode[T comparable](xs []T) (T, error) {
	var zero T
	if len(xs) == 0 {
		return zero, ErrEmptyColumn
	}
	counts := make(map[T]int, len(xs))
	order := make([]T, 0)
	for _, x := range xs {
		if _, ok := counts[x]; !ok {
			order = append(order, x)
		}
		counts[x]++
	}
	best, bestN := order[0], counts[order[0]]
	for _, x := range order[1:] {
		if counts[x] > bestN {
			best, bestN = x, counts[x]
		}
	}
	return best, nil
}

// Distinct counts distinct values.
func Distinct[T comparable](xs []T) int {
	seen := make(map[T]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
