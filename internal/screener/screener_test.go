package screener

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitsukabu/screener/internal/models"
	"github.com/mitsukabu/screener/internal/storage"
)

// flatBars builds n bars all closing at the given price, with high and low
// pinned to the close so no bar straddles anything by accident.
func flatBars(n int, close float64) []models.DailyBar {
	bars := make([]models.DailyBar, n)
	for i := range bars {
		bars[i] = models.DailyBar{
			Date:   fmt.Sprintf("2025-%02d-%02d", i/28+1, i%28+1),
			Open:   close,
			Close:  close,
			High:   close,
			Low:    close,
			Volume: 10000,
		}
	}
	return bars
}

func TestTurnback_StraddleMatches(t *testing.T) {
	// Flat series: both averages sit at 100. A last bar ranging 95..105
	// crosses straight through them.
	bars := flatBars(80, 100)
	bars[79].High = 105
	bars[79].Low = 95

	assert.True(t, Turnback(bars))
}

func TestTurnback_TouchIsNotAStraddle(t *testing.T) {
	bars := flatBars(80, 100)
	bars[79].High = 105
	bars[79].Low = 100 // sits exactly on the average

	assert.False(t, Turnback(bars))
}

func TestTurnback_RangeEntirelyBelow(t *testing.T) {
	bars := flatBars(80, 100)
	bars[79].High = 99
	bars[79].Low = 95

	assert.False(t, Turnback(bars))
}

func TestTurnback_EitherAverageSuffices(t *testing.T) {
	// 75 bars at 100, four at 90, then a last close of 98: the 25-day
	// average lands at 98.32, the 75-day at 99.44. The last bar's
	// 97.5..98.5 range straddles only the 25-day line.
	bars := flatBars(80, 100)
	for i := 75; i < 79; i++ {
		bars[i].Close = 90
		bars[i].High = 91
		bars[i].Low = 89
	}
	bars[79].Close = 98
	bars[79].High = 98.5
	bars[79].Low = 97.5

	assert.True(t, Turnback(bars))
}

func TestTurnback_ShortSeriesExcluded(t *testing.T) {
	bars := flatBars(MinBars-1, 100)
	bars[len(bars)-1].High = 105
	bars[len(bars)-1].Low = 95

	assert.False(t, Turnback(bars))
	assert.False(t, Turnback(nil))
}

func TestCrossV_ShortAverageBelow(t *testing.T) {
	// Last 5 closes drop to 90: the 5-day average falls to 90 while the
	// longer averages stay near 100.
	bars := flatBars(80, 100)
	for i := 75; i < 80; i++ {
		bars[i].Close = 90
		bars[i].High = 91
		bars[i].Low = 89
	}

	assert.True(t, CrossV(bars))
}

func TestCrossV_FlatSeriesDoesNotMatch(t *testing.T) {
	// All averages equal: strictly-below fails.
	assert.False(t, CrossV(flatBars(80, 100)))
}

func TestCrossV_UptrendDoesNotMatch(t *testing.T) {
	bars := flatBars(80, 100)
	for i := range bars {
		bars[i].Close = 100 + float64(i)
	}

	assert.False(t, CrossV(bars))
}

func TestCrossV_ShortSeriesExcluded(t *testing.T) {
	bars := flatBars(MinBars-1, 100)
	for i := len(bars) - 5; i < len(bars); i++ {
		bars[i].Close = 90
	}

	assert.False(t, CrossV(bars))
}

func TestScreener_BucketsAndOrdering(t *testing.T) {
	medium := storage.NewMemoryMedium()
	store := storage.NewDatasetStore(medium, 10*1024*1024)

	straddling := flatBars(80, 100)
	straddling[79].High = 105
	straddling[79].Low = 95

	weak := flatBars(80, 100)
	for i := 75; i < 80; i++ {
		weak[i].Close = 90
		weak[i].High = 91
		weak[i].Low = 89
	}

	snapshots := map[string]models.StockSnapshot{
		"9984": {Code: "9984", Name: "Straddler B", ClosePrice: 100},
		"7203": {Code: "7203", Name: "Straddler A", ClosePrice: 100},
		"6758": {Code: "6758", Name: "Weak", ClosePrice: 90},
		"1301": {Code: "1301", Name: "Too Short", ClosePrice: 100},
	}
	series := map[string][]models.DailyBar{
		"9984": straddling,
		"7203": straddling,
		"6758": weak,
		"1301": flatBars(40, 100),
	}
	require.NoError(t, store.Save(snapshots, series, nil))

	s := New(store)

	turnback, err := s.TurnbackStocks()
	require.NoError(t, err)
	require.Len(t, turnback, 2)
	assert.Equal(t, "7203", turnback[0].Code)
	assert.Equal(t, "9984", turnback[1].Code)

	crossV, err := s.CrossVStocks()
	require.NoError(t, err)
	require.Len(t, crossV, 1)
	assert.Equal(t, "6758", crossV[0].Code)
}

func TestScreener_NoDataset(t *testing.T) {
	store := storage.NewDatasetStore(storage.NewMemoryMedium(), 10*1024*1024)
	s := New(store)

	matches, err := s.TurnbackStocks()
	require.NoError(t, err)
	assert.Empty(t, matches)
}
