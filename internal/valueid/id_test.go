package valueid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripInt(t *testing.T) {
	tests := []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40)}
	for _, v := range tests {
		id := MakeFromInt(v)
		require.Equal(t, Int, id.Datatype())
		assert.Equal(t, v, id.GetInt())
	}
}

func TestRoundTripBool(t *testing.T) {
	assert.True(t, MakeFromBool(true).GetBool())
	assert.False(t, MakeFromBool(false).GetBool())
	assert.Equal(t, Bool, MakeFromBool(true).Datatype())
}

func TestRoundTripVocabIndex(t *testing.T) {
	idx := VocabIndexType(123456789)
	id := MakeFromVocabIndex(idx)
	require.Equal(t, VocabIndex, id.Datatype())
	assert.Equal(t, idx, id.GetVocabIndex())
}

func TestRoundTripDoubleWithinOneULP(t *testing.T) {
	tests := []float64{0, 1.5, -1.5, 3.14159265, 1e10, -1e-10}
	for _, v := range tests {
		id := MakeFromDouble(v)
		require.Equal(t, Double, id.Datatype())
		got := id.GetDouble()
		diff := got - v
		if diff < 0 {
			diff = -diff
		}
		// Allow the documented precision loss (low mantissa bits dropped).
		assert.InDelta(t, v, got, 1e-9*(1+abs(v)), "value %v roundtripped to %v", v, got)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func TestUndefined(t *testing.T) {
	id := MakeUndefined()
	assert.Equal(t, Undefined, id.Datatype())
}

func TestOrderingConsistency(t *testing.T) {
	// Distinct datatypes: ordering follows the tag enumeration order.
	assert.Negative(t, CompareWithoutLocalVocab(MakeUndefined(), MakeFromInt(0)))
	assert.Positive(t, CompareWithoutLocalVocab(MakeFromDouble(0), MakeFromInt(0)))

	// Same datatype (Int): agrees with numeric <.
	assert.Negative(t, CompareWithoutLocalVocab(MakeFromInt(1), MakeFromInt(2)))
	assert.Positive(t, CompareWithoutLocalVocab(MakeFromInt(2), MakeFromInt(1)))
	assert.Zero(t, CompareWithoutLocalVocab(MakeFromInt(5), MakeFromInt(5)))

	// Same datatype (Double): agrees with numeric <.
	assert.Negative(t, CompareWithoutLocalVocab(MakeFromDouble(1.0), MakeFromDouble(2.0)))
}

func TestIsOnDiskSafe(t *testing.T) {
	assert.True(t, MakeFromInt(1).IsOnDiskSafe())
	assert.True(t, MakeFromVocabIndex(1).IsOnDiskSafe())
	assert.False(t, MakeFromLocalVocabIndex(1).IsOnDiskSafe())
	assert.False(t, MakeFromTextRecordIndex(1).IsOnDiskSafe())
}

func TestNumericValueGetter(t *testing.T) {
	kind, i, _ := NumericValueGetter(MakeFromInt(7))
	assert.Equal(t, KindInt64, kind)
	assert.EqualValues(t, 7, i)

	kind, _, d := NumericValueGetter(MakeFromDouble(1.5))
	assert.Equal(t, KindFloat64, kind)
	assert.Equal(t, 1.5, d)

	kind, _, _ = NumericValueGetter(MakeFromVocabIndex(3))
	assert.Equal(t, NotNumeric, kind)
}
