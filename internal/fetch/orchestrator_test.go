package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitsukabu/screener/internal/models"
)

// mockProvider serves canned charts and errors, counting calls per code.
type mockProvider struct {
	charts map[string]*Chart
	errs   map[string]error
	// failuresBeforeSuccess makes the first N calls for a code fail.
	failuresBeforeSuccess map[string]int
	calls                 map[string]int
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		charts:                map[string]*Chart{},
		errs:                  map[string]error{},
		failuresBeforeSuccess: map[string]int{},
		calls:                 map[string]int{},
	}
}

func (m *mockProvider) FetchDaily(ctx context.Context, code string) (*Chart, error) {
	m.calls[code]++
	if n := m.failuresBeforeSuccess[code]; n > 0 && m.calls[code] <= n {
		return nil, errors.New("transient upstream error")
	}
	if err := m.errs[code]; err != nil {
		return nil, err
	}
	chart, ok := m.charts[code]
	if !ok {
		return nil, ErrNoData
	}
	return chart, nil
}

func (m *mockProvider) Name() string { return "mock" }

func f(v float64) *float64 { return &v }

// chartOf builds a fully-populated chart with one timestamp per close.
func chartOf(symbol string, closes ...float64) *Chart {
	chart := &Chart{Symbol: symbol}
	base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		chart.Timestamps = append(chart.Timestamps, base.AddDate(0, 0, i).Unix())
		chart.Open = append(chart.Open, f(c-1))
		chart.High = append(chart.High, f(c+1))
		chart.Low = append(chart.Low, f(c-2))
		chart.Close = append(chart.Close, f(c))
		chart.Volume = append(chart.Volume, f(10000))
	}
	return chart
}

func newTestOrchestrator(p Provider) *Orchestrator {
	return NewOrchestrator(p, 3, time.Millisecond, time.Millisecond)
}

func TestFetchStock_BuildsSnapshotFromLatestBar(t *testing.T) {
	provider := newMockProvider()
	provider.charts["7203"] = chartOf("7203.T", 100, 102, 101, 105)

	result := newTestOrchestrator(provider).FetchStock(context.Background(), "7203", "Toyota")
	require.True(t, result.Success())

	assert.Equal(t, "7203", result.Snapshot.Code)
	assert.Equal(t, "Toyota", result.Snapshot.Name)
	assert.Equal(t, 105.0, result.Snapshot.ClosePrice)
	assert.Equal(t, 101.0, result.Snapshot.PreviousClosePrice)
	assert.Equal(t, "2025-01-09", result.Snapshot.LastUpdated)
	assert.Len(t, result.Series, 4)
	assert.Equal(t, "2025-01-06", result.Series[0].Date)
	assert.Nil(t, result.NullWarning)
}

func TestFetchStock_FiltersNullDays(t *testing.T) {
	provider := newMockProvider()
	chart := chartOf("7203.T", 100, 102, 101)
	chart.Close[1] = nil // 2025-01-07 loses its close

	provider.charts["7203"] = chart

	result := newTestOrchestrator(provider).FetchStock(context.Background(), "7203", "Toyota")
	require.True(t, result.Success())

	assert.Len(t, result.Series, 2)
	assert.Equal(t, "2025-01-06", result.Series[0].Date)
	assert.Equal(t, "2025-01-08", result.Series[1].Date)

	require.NotNil(t, result.NullWarning)
	assert.True(t, result.NullWarning.HasNullData)
	assert.Equal(t, 1, result.NullWarning.TotalNullDays)
	assert.Equal(t, []string{"1/7"}, result.NullWarning.NullDates)

	// The snapshot is derived from surviving bars only.
	assert.Equal(t, 101.0, result.Snapshot.ClosePrice)
	assert.Equal(t, 100.0, result.Snapshot.PreviousClosePrice)
}

func TestFetchStock_TruncatedQuoteArrays(t *testing.T) {
	// Upstream sometimes sends fewer quote slots than timestamps; the
	// extra timestamps count as null days instead of crashing the fetch.
	provider := newMockProvider()
	chart := chartOf("7203.T", 100, 102, 101, 105)
	chart.Volume = chart.Volume[:2]
	chart.Close = chart.Close[:3]
	provider.charts["7203"] = chart

	result := newTestOrchestrator(provider).FetchStock(context.Background(), "7203", "Toyota")
	require.True(t, result.Success())

	assert.Len(t, result.Series, 2)
	assert.Equal(t, "2025-01-07", result.Series[1].Date)
	assert.Equal(t, 102.0, result.Snapshot.ClosePrice)

	require.NotNil(t, result.NullWarning)
	assert.Equal(t, 2, result.NullWarning.TotalNullDays)
	assert.Equal(t, []string{"1/8", "1/9"}, result.NullWarning.NullDates)
}

func TestFetchStock_AllDaysNull(t *testing.T) {
	provider := newMockProvider()
	chart := chartOf("7203.T", 100, 102)
	chart.Open[0] = nil
	chart.Volume[1] = nil
	provider.charts["7203"] = chart

	result := newTestOrchestrator(provider).FetchStock(context.Background(), "7203", "Toyota")
	assert.False(t, result.Success())
	assert.ErrorIs(t, result.Err, models.ErrNoValidDays)
}

func TestFetchStock_RetriesTransientFailures(t *testing.T) {
	provider := newMockProvider()
	provider.charts["7203"] = chartOf("7203.T", 100, 102)
	provider.failuresBeforeSuccess["7203"] = 2

	result := newTestOrchestrator(provider).FetchStock(context.Background(), "7203", "Toyota")
	assert.True(t, result.Success())
	assert.Equal(t, 3, provider.calls["7203"])
}

func TestFetchStock_GivesUpAfterMaxRetries(t *testing.T) {
	provider := newMockProvider()
	provider.errs["7203"] = errors.New("upstream down")

	result := newTestOrchestrator(provider).FetchStock(context.Background(), "7203", "Toyota")
	assert.False(t, result.Success())
	assert.EqualError(t, result.Err, "upstream down")
	assert.Equal(t, 3, provider.calls["7203"])
}

func TestFetchStock_SingleBarUsesOwnClose(t *testing.T) {
	provider := newMockProvider()
	provider.charts["7203"] = chartOf("7203.T", 100)

	result := newTestOrchestrator(provider).FetchStock(context.Background(), "7203", "Toyota")
	require.True(t, result.Success())
	assert.Equal(t, 100.0, result.Snapshot.PreviousClosePrice)
	assert.Equal(t, 0.0, result.Snapshot.PriceChange())
}

func TestFetchBatch_ContinuesPastFailures(t *testing.T) {
	provider := newMockProvider()
	provider.charts["7203"] = chartOf("7203.T", 100, 102)
	provider.errs["9984"] = errors.New("upstream down")
	provider.charts["6758"] = chartOf("6758.T", 50, 51)

	universe := []models.StockInfo{
		{Code: "7203", Name: "Toyota"},
		{Code: "9984", Name: "SoftBank"},
		{Code: "6758", Name: "Sony"},
	}

	batch := newTestOrchestrator(provider).FetchBatch(context.Background(), universe)
	assert.NotEmpty(t, batch.JobID)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.Results, 3)

	snapshots, series := batch.Snapshots()
	assert.Len(t, snapshots, 2)
	assert.Len(t, series, 2)
	assert.Contains(t, snapshots, "7203")
	assert.Contains(t, snapshots, "6758")
	assert.NotContains(t, snapshots, "9984")
}

func TestFetchBatch_SummarizesNullData(t *testing.T) {
	provider := newMockProvider()
	nullish := chartOf("7203.T", 100, 102, 101)
	nullish.High[0] = nil
	provider.charts["7203"] = nullish
	provider.charts["9984"] = chartOf("9984.T", 50, 51)

	universe := []models.StockInfo{
		{Code: "7203", Name: "Toyota"},
		{Code: "9984", Name: "SoftBank"},
	}

	batch := newTestOrchestrator(provider).FetchBatch(context.Background(), universe)
	require.NotNil(t, batch.NullSummary)
	assert.Equal(t, 1, batch.NullSummary.TotalStocksWithNullData)
	assert.Equal(t, 1, batch.NullSummary.TotalNullDays)
	require.Len(t, batch.NullSummary.AffectedStocks, 1)
	assert.Equal(t, "7203", batch.NullSummary.AffectedStocks[0].Code)
}

func TestFetchBatch_NoNullData(t *testing.T) {
	provider := newMockProvider()
	provider.charts["7203"] = chartOf("7203.T", 100, 102)

	batch := newTestOrchestrator(provider).FetchBatch(context.Background(),
		[]models.StockInfo{{Code: "7203", Name: "Toyota"}})
	assert.Nil(t, batch.NullSummary)
}

func TestFetchStock_ContextCancellation(t *testing.T) {
	provider := newMockProvider()
	provider.errs["7203"] = errors.New("upstream down")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(provider, 3, time.Minute, time.Millisecond)
	result := o.FetchStock(ctx, "7203", "Toyota")
	assert.ErrorIs(t, result.Err, context.Canceled)
}
