package decmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulKeepsDecimalExactness(t *testing.T) {
	// 0.95*100000 drifts to 94999.99999999999 in raw float64.
	assert.Equal(t, 95000.0, Mul(0.95, 100000))
	assert.Equal(t, 250050.0, Mul(2500.5, 100))
	assert.Zero(t, Mul(0, 123.45))
}

func TestAddPct(t *testing.T) {
	assert.Equal(t, 95950.0, AddPct(95000, 1))
	assert.Equal(t, 202000.0, AddPct(200000, 1))
	assert.Equal(t, 105.0, AddPct(100, 5))

	t.Run("non-positive pct keeps value", func(t *testing.T) {
		assert.Equal(t, 1234.5, AddPct(1234.5, 0))
		assert.Equal(t, 1234.5, AddPct(1234.5, -3))
	})
}

func TestPctOf(t *testing.T) {
	assert.Equal(t, 20.0, PctOf(20000, 100000))
	assert.Equal(t, 5.0, PctOf(5000, 100000))

	t.Run("non-positive whole yields zero", func(t *testing.T) {
		assert.Zero(t, PctOf(10, 0))
		assert.Zero(t, PctOf(10, -5))
	})
}

func TestComparisonsAtBoundary(t *testing.T) {
	assert.False(t, LT(2.0, 2.0))
	assert.True(t, LTE(2.0, 2.0))
	assert.True(t, GTE(2.0, 2.0))
	assert.False(t, GT(2.0, 2.0))
	assert.True(t, LT(1.9999, 2.0))
	assert.Equal(t, 0, Cmp(5.0, 5.0))
	assert.Equal(t, 0, Cmp(math.NaN(), 0))
}

func TestFloorUnits(t *testing.T) {
	assert.Equal(t, 2.0, FloorUnits(2.9))
	assert.Equal(t, 25000.0, FloorUnits(25000))
	assert.Zero(t, FloorUnits(0))
	assert.Zero(t, FloorUnits(-3))
	assert.Zero(t, FloorUnits(math.NaN()))
	assert.Zero(t, FloorUnits(math.Inf(1)))
}

func TestScaleUnits(t *testing.T) {
	assert.Equal(t, 25000.0, ScaleUnits(100000, 5, 20))
	assert.Equal(t, 71.0, ScaleUnits(100, 5, 7))

	t.Run("rounds down to zero", func(t *testing.T) {
		assert.Zero(t, ScaleUnits(1, 5, 50))
	})
	t.Run("non-positive denominator yields zero", func(t *testing.T) {
		assert.Zero(t, ScaleUnits(100, 5, 0))
		assert.Zero(t, ScaleUnits(100, 5, -1))
	})
}
