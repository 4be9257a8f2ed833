package screener

import (
	"sort"
	"strconv"
	"time"

	"github.com/mitsukabu/screener/internal/models"
	"github.com/mitsukabu/screener/internal/obs"
	"github.com/mitsukabu/screener/internal/storage"
	"github.com/mitsukabu/screener/pkg/indicator"
)

// MinBars is the series length required before a stock is screened at all:
// the 75-day average needs 75 prior days plus the latest bar. Shorter series
// are excluded from every bucket, not errored.
const MinBars = 76

// Turnback reports whether the latest bar's [low, high] range strictly
// straddles the 25-day or the 75-day moving average in either direction —
// the candle crosses through the line within the day, wicks included.
func Turnback(bars []models.DailyBar) bool {
	if len(bars) < MinBars {
		return false
	}

	closes := extractCloses(bars)
	ma25 := indicator.MA(closes, indicator.MidMAPeriod)
	ma75 := indicator.MA(closes, indicator.LongMAPeriod)

	latest := len(bars) - 1
	if !ma25[latest].Valid || !ma75[latest].Valid {
		return false
	}

	high := bars[latest].High
	low := bars[latest].Low
	return straddles(high, low, ma25[latest].V) || straddles(high, low, ma75[latest].V)
}

func straddles(high, low, ma float64) bool {
	crossDown := high > ma && low < ma
	crossUp := high < ma && low > ma
	return crossDown || crossUp
}

// CrossV reports whether the latest 5-day average sits strictly below the
// 25-day or the 75-day average — short-term weakness under the longer
// trend, not a crossing-event test.
func CrossV(bars []models.DailyBar) bool {
	if len(bars) < MinBars {
		return false
	}

	closes := extractCloses(bars)
	ma5 := indicator.MA(closes, indicator.ShortMAPeriod)
	ma25 := indicator.MA(closes, indicator.MidMAPeriod)
	ma75 := indicator.MA(closes, indicator.LongMAPeriod)

	latest := len(bars) - 1
	if !ma5[latest].Valid || !ma25[latest].Valid || !ma75[latest].Valid {
		return false
	}

	return ma5[latest].V < ma25[latest].V || ma5[latest].V < ma75[latest].V
}

func extractCloses(bars []models.DailyBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Screener lists the stocks of the persisted dataset matching each bucket.
type Screener struct {
	store *storage.DatasetStore
}

// New creates a screener over the dataset store
func New(store *storage.DatasetStore) *Screener {
	return &Screener{store: store}
}

// TurnbackStocks returns every stock whose series matches the turnback rule,
// ordered by numeric code ascending.
func (s *Screener) TurnbackStocks() ([]models.StockSnapshot, error) {
	return s.matching("turnback", Turnback)
}

// CrossVStocks returns every stock whose series matches the cross-V rule,
// ordered by numeric code ascending.
func (s *Screener) CrossVStocks() ([]models.StockSnapshot, error) {
	return s.matching("cross_v", CrossV)
}

func (s *Screener) matching(bucket string, match func([]models.DailyBar) bool) ([]models.StockSnapshot, error) {
	start := time.Now()
	record, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	matched := make([]models.StockSnapshot, 0)
	for code, snap := range record.Snapshots {
		if match(record.Series[code]) {
			matched = append(matched, snap)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, _ := strconv.Atoi(matched[i].Code)
		b, _ := strconv.Atoi(matched[j].Code)
		return a < b
	})

	obs.ScreeningDuration.WithLabelValues(bucket).Observe(time.Since(start).Seconds())
	obs.ScreeningMatches.WithLabelValues(bucket).Set(float64(len(matched)))
	return matched, nil
}
