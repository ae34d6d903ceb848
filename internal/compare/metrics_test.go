package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_KnownValues(t *testing.T) {
	reference := []float64{100, 200, 300, 400}
	submitted := []float64{110, 190, 330, 400}

	m, err := Calculate(reference, submitted)
	require.NoError(t, err)

	assert.Equal(t, 4, m.Pairs)
	assert.InDelta(t, (10+10+30+0)/4.0, m.MAE, 1e-9)
	assert.InDelta(t, math.Sqrt((100+100+900+0)/4.0), m.RMSE, 1e-9)
	assert.InDelta(t, (10.0+5.0+10.0+0)/4.0, m.MAPE, 1e-9)
	assert.Greater(t, m.Pearson, 0.95)
	assert.LessOrEqual(t, m.Pearson, 1.0)
}

func TestCalculate_PerfectAgreement(t *testing.T) {
	values := []float64{5000, 6200, 7100}
	m, err := Calculate(values, values)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m.Pearson, 1e-12)
	assert.Zero(t, m.MAE)
	assert.Zero(t, m.RMSE)
	assert.Zero(t, m.MAPE)
}

func TestCalculate_DropsNaNPairs(t *testing.T) {
	reference := []float64{1, math.NaN(), 3, 4}
	submitted := []float64{1, 2, math.NaN(), 5}

	m, err := Calculate(reference, submitted)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Pairs)
	assert.InDelta(t, 0.5, m.MAE, 1e-9)
}

func TestCalculate_TooFewPairs(t *testing.T) {
	m, err := Calculate([]float64{1}, []float64{2})
	require.NoError(t, err)
	assert.Equal(t, Metrics{Pairs: 1}, m)

	m, err = Calculate(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Metrics{}, m)
}

func TestCalculate_ZeroReferenceExcludedFromMAPE(t *testing.T) {
	m, err := Calculate([]float64{0, 100}, []float64{5, 110})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, m.MAPE, 1e-9)
}

func TestCalculate_ConstantSeriesHasZeroCorrelation(t *testing.T) {
	m, err := Calculate([]float64{10, 10, 10}, []float64{9, 11, 12})
	require.NoError(t, err)
	assert.Zero(t, m.Pearson)
	assert.False(t, math.IsNaN(m.Pearson))
}

func TestCalculate_LengthMismatch(t *testing.T) {
	_, err := Calculate([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestResiduals(t *testing.T) {
	s, err := Residuals([]float64{100, 200, 300}, []float64{110, 190, 330})
	require.NoError(t, err)

	assert.InDelta(t, 10.0, s.Mean, 1e-9)
	assert.InDelta(t, 10.0, s.Median, 1e-9)
	assert.InDelta(t, -10.0, s.Min, 1e-9)
	assert.InDelta(t, 30.0, s.Max, 1e-9)
	assert.InDelta(t, 20.0, s.StdDev, 1e-9)

	empty, err := Residuals(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ResidualSummary{}, empty)
}

func TestCalculate_HugeErrorsStayFinite(t *testing.T) {
	m, err := Calculate([]float64{8000, 9000}, []float64{1e200, 9100})
	require.NoError(t, err)

	assert.False(t, math.IsInf(m.RMSE, 0))
	assert.InDelta(t, 1e200/math.Sqrt2, m.RMSE, 1e186)
	assert.InDelta(t, 5e199, m.MAE, 1e186)
	assert.False(t, math.IsInf(m.MAPE, 0))

	s, err := Residuals([]float64{8000, 9000}, []float64{1e200, 9100})
	require.NoError(t, err)
	assert.False(t, math.IsInf(s.StdDev, 0))
	assert.False(t, math.IsNaN(s.StdDev))
}
