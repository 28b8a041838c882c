package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Estimate is a sample mean with the half-width of its Student-t confidence
// interval. HalfWidth is NaN with fewer than two samples; Mean is NaN with none.
type Estimate struct {
	Mean      float64
	HalfWidth float64
	N         int
}

// ValidateConfidence checks that confidence is a level strictly inside (0, 1).
func ValidateConfidence(confidence float64) error {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return fmt.Errorf("confidence must be in (0, 1), got %g", confidence)
	}
	return nil
}

// MeanCI estimates the mean of values, ignoring NaN and infinite entries.
func MeanCI(values []float64, confidence float64) Estimate {
	finite := finiteValues(values)
	n := len(finite)
	switch n {
	case 0:
		return Estimate{Mean: math.NaN(), HalfWidth: math.NaN()}
	case 1:
		return Estimate{Mean: finite[0], HalfWidth: math.NaN(), N: 1}
	}
	mean, std := stat.MeanStdDev(finite, nil)
	if ValidateConfidence(confidence) != nil {
		return Estimate{Mean: mean, HalfWidth: math.NaN(), N: n}
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile(1 - (1-confidence)/2)
	return Estimate{Mean: mean, HalfWidth: t * std / math.Sqrt(float64(n)), N: n}
}

// meanOf is the plain mean over the finite entries, NaN if there are none.
func meanOf(values []float64) float64 {
	finite := finiteValues(values)
	if len(finite) == 0 {
		return math.NaN()
	}
	return stat.Mean(finite, nil)
}

func finiteValues(values []float64) []float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	return finite
}
