// Package compare scores submitted 305-day yields against reference values.
package compare

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

const minPairs = 2

// Metrics measures agreement between two aligned series. All values are zero
// when fewer than two usable pairs exist.
type Metrics struct {
	Pairs   int     `json:"pairs"`
	Pearson float64 `json:"pearson_correlation"`
	MAE     float64 `json:"mean_absolute_error"`
	RMSE    float64 `json:"root_mean_squared_error"`
	MAPE    float64 `json:"mean_absolute_percentage_error"`
}

// ResidualSummary describes the distribution of submitted minus reference
type ResidualSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Calculate compares submitted against reference. Pairs where either side is
// NaN are dropped. MAPE ignores pairs whose reference is zero.
func Calculate(reference, submitted []float64) (Metrics, error) {
	if len(reference) != len(submitted) {
		return Metrics{}, fmt.Errorf("series length mismatch: %d reference vs %d submitted", len(reference), len(submitted))
	}

	ref, sub := dropNaN(reference, submitted)
	m := Metrics{Pairs: len(ref)}
	if len(ref) < minPairs {
		return Metrics{Pairs: m.Pairs}, nil
	}

	absErr := make([]float64, len(ref))
	var pctErr []float64
	for i := range ref {
		d := sub[i] - ref[i]
		absErr[i] = math.Abs(d)
		if ref[i] != 0 {
			pctErr = append(pctErr, math.Abs(d/ref[i])*100)
		}
	}

	var err error
	if m.MAE, err = stats.Mean(absErr); err != nil {
		return Metrics{}, err
	}
	m.MAE = finiteOrZero(m.MAE)
	if m.RMSE, err = rootMeanSquare(absErr); err != nil {
		return Metrics{}, err
	}
	if len(pctErr) > 0 {
		if m.MAPE, err = stats.Mean(pctErr); err != nil {
			return Metrics{}, err
		}
		m.MAPE = finiteOrZero(m.MAPE)
	}

	// undefined for a constant series; reported as 0 so the report stays valid JSON
	m.Pearson = finiteOrZero(stat.Correlation(ref, sub, nil))
	return m, nil
}

// Residuals summarizes submitted minus reference over the non-NaN pairs
func Residuals(reference, submitted []float64) (ResidualSummary, error) {
	if len(reference) != len(submitted) {
		return ResidualSummary{}, fmt.Errorf("series length mismatch: %d reference vs %d submitted", len(reference), len(submitted))
	}
	ref, sub := dropNaN(reference, submitted)
	if len(ref) == 0 {
		return ResidualSummary{}, nil
	}

	diffs := make(stats.Float64Data, len(ref))
	for i := range ref {
		diffs[i] = sub[i] - ref[i]
	}

	var s ResidualSummary
	var err error
	if s.Mean, err = diffs.Mean(); err != nil {
		return s, err
	}
	if s.Median, err = diffs.Median(); err != nil {
		return s, err
	}
	if s.Min, err = diffs.Min(); err != nil {
		return s, err
	}
	if s.Max, err = diffs.Max(); err != nil {
		return s, err
	}
	if len(diffs) >= minPairs {
		if s.StdDev, err = diffs.StandardDeviationSample(); err != nil {
			return s, err
		}
	}
	s.Mean = finiteOrZero(s.Mean)
	s.Median = finiteOrZero(s.Median)
	s.StdDev = finiteOrZero(s.StdDev)
	return s, nil
}

// rootMeanSquare scales by the largest magnitude before squaring so errors
// near the float64 range do not overflow to +Inf
func rootMeanSquare(absErr []float64) (float64, error) {
	scale, err := stats.Max(absErr)
	if err != nil {
		return 0, err
	}
	if scale == 0 || math.IsInf(scale, 0) {
		return finiteOrZero(scale), nil
	}
	scaled := make([]float64, len(absErr))
	for i, v := range absErr {
		r := v / scale
		scaled[i] = r * r
	}
	mean, err := stats.Mean(scaled)
	if err != nil {
		return 0, err
	}
	return finiteOrZero(scale * math.Sqrt(mean)), nil
}

func dropNaN(a, b []float64) ([]float64, []float64) {
	outA := make([]float64, 0, len(a))
	outB := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		outA = append(outA, a[i])
		outB = append(outB, b[i])
	}
	return outA, outB
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
