package models

import "time"

// DailyBar represents one trading day of OHLCV data for a stock
type DailyBar struct {
	Date   string  `json:"date"` // ISO form, e.g. "2025-01-27"
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume float64 `json:"volume"`
}

// Validate validates a DailyBar
func (b *DailyBar) Validate() error {
	if b.Date == "" {
		return ErrInvalidDate
	}
	if b.Open <= 0 || b.Close <= 0 || b.High <= 0 || b.Low <= 0 {
		return ErrInvalidPrice
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// StockSnapshot holds the latest-known quote metadata for a stock
type StockSnapshot struct {
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	ClosePrice         float64 `json:"closePrice"`
	OpenPrice          float64 `json:"openPrice"`
	HighPrice          float64 `json:"highPrice"`
	LowPrice           float64 `json:"lowPrice"`
	PreviousClosePrice float64 `json:"previousClosePrice"`
	LastUpdated        string  `json:"lastUpdated"`
}

// PriceChange returns the absolute change against the previous close.
func (s *StockSnapshot) PriceChange() float64 {
	return s.ClosePrice - s.PreviousClosePrice
}

// PriceChangePercent returns the relative change against the previous close.
// Returns 0 when the previous close is unknown.
func (s *StockSnapshot) PriceChangePercent() float64 {
	if s.PreviousClosePrice == 0 {
		return 0
	}
	return s.PriceChange() / s.PreviousClosePrice
}

// Validate validates a StockSnapshot
func (s *StockSnapshot) Validate() error {
	if s.Code == "" {
		return ErrInvalidCode
	}
	if s.ClosePrice <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// NullDataWarning summarizes trading days dropped because the upstream
// source reported them with missing fields.
type NullDataWarning struct {
	HasNullData             bool   `json:"hasNullData"`
	TotalStocksWithNullData int    `json:"totalStocksWithNullData"`
	TotalNullDays           int    `json:"totalNullDays"`
	LastOccurrence          string `json:"lastOccurrence"`
	Summary                 string `json:"summary"`
}

// AffectedStock identifies one stock with dropped trading days.
type AffectedStock struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	NullDates []string `json:"nullDates"`
}

// NullDataSummary is the per-batch aggregation handed to the dataset store
// alongside a save.
type NullDataSummary struct {
	TotalStocksWithNullData int             `json:"totalStocksWithNullData"`
	TotalNullDays           int             `json:"totalNullDays"`
	AffectedStocks          []AffectedStock `json:"affectedStocks"`
}

// Dataset is the full persisted collection of snapshots and daily series.
// Invariant: Snapshots and Series hold exactly the same set of codes after a
// successful save.
type Dataset struct {
	Snapshots       map[string]StockSnapshot `json:"snapshots"`
	Series          map[string][]DailyBar    `json:"series"`
	LastUpdate      string                   `json:"lastUpdate"`
	Version         string                   `json:"version"`
	TotalStocks     int                      `json:"totalStocks"`
	IsCompressed    bool                     `json:"isCompressed"`
	NullDataWarning *NullDataWarning         `json:"nullDataWarning,omitempty"`
}

// Age returns LastUpdate reformatted as "2006-01-02 15:04", or the raw
// value when it is not RFC 3339.
func (d *Dataset) Age() string {
	t, err := time.Parse(time.RFC3339, d.LastUpdate)
	if err != nil {
		return d.LastUpdate
	}
	return t.Format("2006-01-02 15:04")
}

// StockInfo is one entry of the screenable universe, loaded from CSV.
type StockInfo struct {
	Code   string `json:"code"`
	Market string `json:"market"`
	Name   string `json:"name"`
}
