package compressedrelation

import (
	"testing"

	"github.com/ad-freiburg/qlever-sub013/internal/rows"
	"github.com/ad-freiburg/qlever-sub013/internal/valueid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeColumnRoundTrip(t *testing.T) {
	col := []valueid.Id{
		valueid.MakeFromInt(1),
		valueid.MakeFromInt(-5),
		valueid.MakeFromInt(1000000),
	}
	compressed, err := encodeColumn(col)
	require.NoError(t, err)

	back, err := decodeColumn(compressed, len(col))
	require.NoError(t, err)
	require.Len(t, back, len(col))
	for i := range col {
		assert.Equal(t, col[i].GetInt(), back[i].GetInt())
	}
}

func TestColumnRangesTracksMinMax(t *testing.T) {
	buf := []rows.Row{
		mkRow(5, 2, 9),
		mkRow(1, 8, 3),
		mkRow(3, 4, 6),
	}
	ranges := columnRanges(buf, 3)
	require.Len(t, ranges, 3)
	assert.Equal(t, int64(1), ranges[0].Min.GetInt())
	assert.Equal(t, int64(5), ranges[0].Max.GetInt())
	assert.Equal(t, int64(2), ranges[1].Min.GetInt())
	assert.Equal(t, int64(8), ranges[1].Max.GetInt())
	assert.Equal(t, int64(3), ranges[2].Min.GetInt())
	assert.Equal(t, int64(9), ranges[2].Max.GetInt())
}
