package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrTooFewValues is returned by KSNormal for fewer than two values.
	ErrTooFewValues = errors.New("normality test needs at least two values")
	// ErrZeroVariance is returned by KSNormal when every value is equal.
	ErrZeroVariance = errors.New("normality test undefined for zero variance")
)

// KSResult is the outcome of a one-sample Kolmogorov-Smirnov normality test.
type KSResult struct {
	N      int
	Mean   float64
	StdDev float64
	// D is the largest distance between the empirical CDF and the fitted Normal CDF.
	D float64
	// PValue comes from the Lilliefors null distribution since the Normal is
	// parameterized from the same sample. Values above 0.1 are approximate.
	PValue float64
}

// Normal reports whether the test fails to reject normality at alpha.
func (r KSResult) Normal(alpha float64) bool { return r.PValue > alpha }

// KSNormal tests xs against Normal(mean(xs), sd(xs)) with sd the sample
// standard deviation.
func KSNormal(xs []float64) (KSResult, error) {
	n := len(xs)
	if n < 2 {
		return KSResult{N: n}, ErrTooFewValues
	}
	mean, std, _ := MeanStdDev(xs)
	res := KSResult{N: n, Mean: mean, StdDev: std}
	if std == 0 || math.IsNaN(std) {
		return res, ErrZeroVariance
	}

	dist := distuv.Normal{Mu: mean, Sigma: std}
	s := Sorted(xs)
	fn := float64(n)
	d := 0.0
	for i, x := range s {
		f := dist.CDF(x)
		if up := float64(i+1)/fn - f; up > d {
			d = up
		}
		if down := f - float64(i)/fn; down > d {
			d = down
		}
	}
	res.D = d
	res.PValue = lillieforsPValue(d, n)
	return res, nil
}

// lillieforsPValue approximates P(D >= d) under the Lilliefors null using the
// Dallal-Wilkinson formula, falling back to Stephens' modified-statistic
// polynomials above 0.1.
func lillieforsPValue(d float64, n int) float64 {
	kd, nd := d, float64(n)
	if n > 100 {
		kd = d * math.Pow(float64(n)/100, 0.49)
		nd = 100
	}
	p := math.Exp(-7.01256*kd*kd*(nd+2.78019) +
		2.99587*kd*math.Sqrt(nd+2.78019) -
		0.122119 +
		0.974598/math.Sqrt(nd) +
		1.67997/nd)
	if p > 0.1 {
		sn := math.Sqrt(float64(n))
		kk := (sn - 0.01 + 0.85/sn) * d
		switch {
		case kk <= 0.302:
			p = 1
		case kk <= 0.5:
			p = 2.76773 - 19.828315*kk + 80.709644*kk*kk - 138.55152*kk*kk*kk + 81.218052*kk*kk*kk*kk
		case kk <= 0.9:
			p = -4.901232 + 40.662806*kk - 97.490286*kk*kk + 94.029866*kk*kk*kk - 32.355711*kk*kk*kk*kk
		case kk <= 1.31:
			p = 6.198765 - 19.558097*kk + 23.186922*kk*kk - 12.234627*kk*kk*kk + 2.423045*kk*kk*kk*kk
		default:
			p = 0
		}
	}
	return math.Max(0, math.Min(1, p))
}
