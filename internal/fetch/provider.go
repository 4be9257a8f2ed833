package fetch

import (
	"context"
	"errors"

	"github.com/mitsukabu/screener/internal/models"
)

// ErrNoData is returned when the upstream answers without any usable series.
var ErrNoData = errors.New("no chart data returned")

// Chart is the raw daily series for one stock as delivered by a provider,
// before null filtering. Field slices are parallel to Timestamps; a nil
// element marks a value the upstream could not supply for that day.
type Chart struct {
	Symbol     string
	Timestamps []int64
	Open       []*float64
	High       []*float64
	Low        []*float64
	Close      []*float64
	Volume     []*float64
}

// Provider fetches the raw daily chart for one stock code.
type Provider interface {
	FetchDaily(ctx context.Context, code string) (*Chart, error)
	Name() string
}

// NullWarning reports the trading days dropped from one stock's series
// because the upstream left any OHLCV field empty.
type NullWarning struct {
	HasNullData   bool     `json:"hasNullData"`
	NullDates     []string `json:"nullDates"`
	TotalNullDays int      `json:"totalNullDays"`
}

// Result is the outcome of fetching one stock.
type Result struct {
	Code        string
	Name        string
	Snapshot    *models.StockSnapshot
	Series      []models.DailyBar
	NullWarning *NullWarning
	Err         error
}

// Success reports whether the fetch produced a usable snapshot and series
func (r *Result) Success() bool {
	return r.Err == nil
}
