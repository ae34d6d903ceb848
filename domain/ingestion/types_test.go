package ingestion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellInt_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want int64
		ok   bool
	}{
		{"max int64 text", TextCell("9223372036854775807"), math.MaxInt64, true},
		{"two to the 63 text", TextCell("9223372036854775808"), 0, false},
		{"two to the 63 number", NumberCell(math.Pow(2, 63)), 0, false},
		{"min int64 number", NumberCell(-math.Pow(2, 63)), math.MinInt64, true},
		{"exponent text", TextCell("1e20"), 0, false},
		{"integral float text", TextCell(" 3.0 "), 3, true},
		{"fraction", NumberCell(3.5), 0, false},
		{"empty", EmptyCell(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.cell.Int()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCellIsIntegral(t *testing.T) {
	assert.True(t, TextCell("1e20").IsIntegral())
	assert.True(t, NumberCell(-4).IsIntegral())
	assert.False(t, NumberCell(4.25).IsIntegral())
	assert.False(t, TextCell("abc").IsIntegral())
	assert.False(t, EmptyCell().IsIntegral())
}

func TestCellFloat_RejectsNonFinite(t *testing.T) {
	for _, s := range []string{"NaN", "Inf", "-Inf", "x"} {
		_, ok := TextCell(s).Float()
		assert.False(t, ok, s)
	}
	f, ok := TextCell(" 25.5 ").Float()
	assert.True(t, ok)
	assert.Equal(t, 25.5, f)
}
