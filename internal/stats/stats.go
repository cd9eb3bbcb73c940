// Package stats reduces raw measurement samples into trustworthy
// aggregates without assuming a distribution shape.
//
// The pipeline is: IQR outlier detection (extreme points removed,
// moderate points kept but counted), a moment-based normality check,
// then either parametric statistics (mean, standard deviation,
// z-score CI) or robust statistics (median, scaled MAD, percentile
// CI). Everything here is a pure function of its input slice: calling
// Summarize twice on the same data yields identical results.
package stats

import (
	"math"
	"sort"
)

// Quartiles use linear interpolation at rank p*(n-1) over the sorted
// sample (R type-7, the numpy default used by the downstream
// hypothesis-testing scripts).
const (
	moderateFence = 1.5
	extremeFence  = 3.0

	skewnessLimit = 2.0
	kurtosisLimit = 7.0

	z95 = 1.96

	// minDetect is the smallest sample the outlier pass operates on.
	minDetect = 4
	// minRetained is the floor of points the outlier pass may leave.
	minRetained = 2

	// madScale makes the MAD a consistent sigma estimate under
	// normality.
	madScale = 1.4826
)

// State is the tri-state validity of a Summary.
type State uint8

const (
	// StateOK: aggregate fully defined.
	StateOK State = iota
	// StateDegenerate: a single retained sample; the central value is
	// reported but dispersion and CI are undefined (NaN).
	StateDegenerate
	// StateInsufficient: no samples at all; nothing is defined.
	StateInsufficient
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateDegenerate:
		return "degenerate"
	case StateInsufficient:
		return "insufficient"
	default:
		return "unknown"
	}
}

// Summary is the adaptive aggregate of one (configuration, metric)
// sample set.
type Summary struct {
	State State

	// Central is the mean (parametric) or median (robust).
	Central float64
	// Dispersion is the sample standard deviation (parametric) or
	// the scaled MAD (robust).
	Dispersion float64
	// CILow and CIHigh bound the 95% confidence interval.
	CILow, CIHigh float64
	// Robust reports whether the robust estimator path was used.
	Robust bool

	Skewness float64
	Kurtosis float64

	// SampleSize is the retained count after extreme-outlier removal.
	SampleSize       int
	ModerateOutliers int
	ExtremeOutliers  int
}

// CIHalfWidth returns (CIHigh-CILow)/2, the single-column CI form the
// result table uses.
func (s Summary) CIHalfWidth() float64 {
	return (s.CIHigh - s.CILow) / 2
}

// Summarize runs the full adaptive pipeline over data. The input
// slice is not modified.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{
			State:      StateInsufficient,
			Central:    math.NaN(),
			Dispersion: math.NaN(),
			CILow:      math.NaN(),
			CIHigh:     math.NaN(),
		}
	}

	retained, moderate, extreme := detectOutliers(data)

	s := Summary{
		SampleSize:       len(retained),
		ModerateOutliers: moderate,
		ExtremeOutliers:  extreme,
	}

	if len(retained) == 1 {
		s.State = StateDegenerate
		s.Central = retained[0]
		s.Dispersion = math.NaN()
		s.CILow = math.NaN()
		s.CIHigh = math.NaN()
		return s
	}

	skew, kurt := Moments(retained)
	s.Skewness, s.Kurtosis = skew, kurt

	if approximatelyNormal(skew, kurt) {
		n := float64(len(retained))
		mean := Mean(retained)
		sd := StdDev(retained, mean)
		half := z95 * sd / math.Sqrt(n)
		s.Central = mean
		s.Dispersion = sd
		s.CILow = mean - half
		s.CIHigh = mean + half
		return s
	}

	sorted := sortedCopy(retained)
	med := medianSorted(sorted)
	s.Robust = true
	s.Central = med
	s.Dispersion = madScale * mad(retained, med)
	s.CILow = Quantile(sorted, 0.025)
	s.CIHigh = Quantile(sorted, 0.975)
	return s
}

// detectOutliers classifies data against the IQR fences. Extreme
// points are removed and counted; moderate points are counted but
// retained. Samples below minDetect skip detection, and removal never
// leaves fewer than minRetained points (an IQR of zero would
// otherwise flag every deviating value as extreme and empty the
// sample).
func detectOutliers(data []float64) (retained []float64, moderate, extreme int) {
	if len(data) < minDetect {
		return append([]float64(nil), data...), 0, 0
	}

	sorted := sortedCopy(data)
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1

	modLo, modHi := q1-moderateFence*iqr, q3+moderateFence*iqr
	extLo, extHi := q1-extremeFence*iqr, q3+extremeFence*iqr

	retained = make([]float64, 0, len(data))
	for _, v := range data {
		switch {
		case v < extLo || v > extHi:
			extreme++
			moderate++ // extreme band is a subset of the moderate band
		case v < modLo || v > modHi:
			moderate++
			retained = append(retained, v)
		default:
			retained = append(retained, v)
		}
	}

	if len(retained) < minRetained {
		return append([]float64(nil), data...), moderate, extreme
	}
	return retained, moderate, extreme
}

// Moments returns the sample skewness and excess kurtosis using the
// standard moment estimators over the Bessel-corrected standard
// deviation. Samples too small to estimate (n < 3) or with zero
// variance report (0, 0), which classifies as normal.
func Moments(data []float64) (skewness, kurtosis float64) {
	n := float64(len(data))
	if n < 3 {
		return 0, 0
	}
	mean := Mean(data)
	sd := StdDev(data, mean)
	if sd == 0 {
		return 0, 0
	}
	for _, v := range data {
		z := (v - mean) / sd
		skewness += z * z * z
		kurtosis += z * z * z * z
	}
	skewness /= n
	kurtosis = kurtosis/n - 3
	return skewness, kurtosis
}

func approximatelyNormal(skewness, kurtosis float64) bool {
	return math.Abs(skewness) < skewnessLimit && math.Abs(kurtosis) < kurtosisLimit
}

// Mean returns the arithmetic mean. Panics on empty input by way of
// division by zero returning NaN; callers guard length.
func Mean(data []float64) float64 {
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// StdDev returns the Bessel-corrected sample standard deviation.
// Returns 0 for n < 2.
func StdDev(data []float64, mean float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(data)-1))
}

// Median returns the sample median.
func Median(data []float64) float64 {
	return medianSorted(sortedCopy(data))
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// mad returns the raw median absolute deviation around center.
func mad(data []float64, center float64) float64 {
	dev := make([]float64, len(data))
	for i, v := range data {
		dev[i] = math.Abs(v - center)
	}
	sort.Float64s(dev)
	return medianSorted(dev)
}

// Quantile returns the p-quantile of an already-sorted sample using
// linear interpolation at rank p*(n-1).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo, hi = 0, 0
	}
	if hi >= n {
		lo, hi = n-1, n-1
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func sortedCopy(data []float64) []float64 {
	out := append([]float64(nil), data...)
	sort.Float64s(out)
	return out
}
