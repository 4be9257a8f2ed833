package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitsukabu/screener/internal/models"
	"github.com/mitsukabu/screener/internal/obs"
	"github.com/mitsukabu/screener/pkg/logger"
)

// Orchestrator fetches one or many stocks with per-stock retry and an
// enforced minimum delay between upstream calls. Calls are strictly
// sequential: the upstream rate limit is the constraint, not throughput.
type Orchestrator struct {
	provider     Provider
	maxRetries   int
	retryDelay   time.Duration
	requestDelay time.Duration
}

// NewOrchestrator creates a retrieval orchestrator
func NewOrchestrator(provider Provider, maxRetries int, retryDelay, requestDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		provider:     provider,
		maxRetries:   maxRetries,
		retryDelay:   retryDelay,
		requestDelay: requestDelay,
	}
}

// BatchResult aggregates a multi-stock fetch.
type BatchResult struct {
	JobID       string
	Results     []*Result
	Succeeded   int
	Failed      int
	NullSummary *models.NullDataSummary
}

// FetchStock fetches one stock, retrying failed attempts up to the
// configured cap with a fixed delay between attempts. A failure after the
// final attempt is reported in the Result, never as a panic or a batch
// abort.
func (o *Orchestrator) FetchStock(ctx context.Context, code, name string) *Result {
	var lastErr error
	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		chart, err := o.provider.FetchDaily(ctx, code)
		if err == nil {
			result := buildResult(code, name, chart)
			if result.Err == nil {
				obs.FetchAttempts.WithLabelValues("success").Inc()
				return result
			}
			err = result.Err
		}

		lastErr = err
		logger.Warn("stock fetch attempt failed",
			logger.String("code", code),
			logger.Int("attempt", attempt),
			logger.ErrorField(err),
		)
		if attempt < o.maxRetries {
			obs.FetchAttempts.WithLabelValues("retry").Inc()
			select {
			case <-time.After(o.retryDelay):
			case <-ctx.Done():
				return &Result{Code: code, Name: name, Err: ctx.Err()}
			}
		}
	}

	obs.FetchAttempts.WithLabelValues("failure").Inc()
	return &Result{Code: code, Name: name, Err: lastErr}
}

// FetchBatch fetches every stock of the universe sequentially, spacing
// requests by the configured delay. Per-stock failures are recorded in the
// batch result; they never abort the batch.
func (o *Orchestrator) FetchBatch(ctx context.Context, universe []models.StockInfo) *BatchResult {
	batch := &BatchResult{
		JobID:   uuid.New().String(),
		Results: make([]*Result, 0, len(universe)),
	}

	logger.Info("starting batch fetch",
		logger.String("job_id", batch.JobID),
		logger.Int("stocks", len(universe)),
		logger.String("provider", o.provider.Name()),
	)

	for i, stock := range universe {
		result := o.FetchStock(ctx, stock.Code, stock.Name)
		batch.Results = append(batch.Results, result)
		if result.Success() {
			batch.Succeeded++
		} else {
			batch.Failed++
		}

		if i < len(universe)-1 {
			select {
			case <-time.After(o.requestDelay):
			case <-ctx.Done():
				batch.NullSummary = summarizeNullData(batch.Results)
				return batch
			}
		}
	}

	batch.NullSummary = summarizeNullData(batch.Results)
	logger.Info("batch fetch finished",
		logger.String("job_id", batch.JobID),
		logger.Int("succeeded", batch.Succeeded),
		logger.Int("failed", batch.Failed),
	)
	return batch
}

// Snapshots collects the successful results into the snapshot and series
// maps the dataset store persists.
func (b *BatchResult) Snapshots() (map[string]models.StockSnapshot, map[string][]models.DailyBar) {
	snapshots := make(map[string]models.StockSnapshot, b.Succeeded)
	series := make(map[string][]models.DailyBar, b.Succeeded)
	for _, r := range b.Results {
		if !r.Success() {
			continue
		}
		snapshots[r.Snapshot.Code] = *r.Snapshot
		series[r.Snapshot.Code] = r.Series
	}
	return snapshots, series
}

// buildResult filters null days out of the chart and derives the snapshot
// from the latest surviving bar. A day missing any OHLCV field is dropped
// and recorded; a chart with no surviving days fails the whole stock.
func buildResult(code, name string, chart *Chart) *Result {
	result := &Result{Code: code, Name: name}

	// Providers occasionally return quote arrays shorter than the
	// timestamp array; a day with no slot counts as a null day.
	quoteLen := len(chart.Open)
	for _, l := range []int{len(chart.High), len(chart.Low), len(chart.Close), len(chart.Volume)} {
		if l < quoteLen {
			quoteLen = l
		}
	}

	var bars []models.DailyBar
	var nullDates []string
	for i, ts := range chart.Timestamps {
		if i >= quoteLen ||
			chart.Open[i] == nil || chart.High[i] == nil || chart.Low[i] == nil ||
			chart.Close[i] == nil || chart.Volume[i] == nil {
			nullDates = append(nullDates, time.Unix(ts, 0).UTC().Format("1/2"))
			continue
		}
		bars = append(bars, models.DailyBar{
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   *chart.Open[i],
			High:   *chart.High[i],
			Low:    *chart.Low[i],
			Close:  *chart.Close[i],
			Volume: *chart.Volume[i],
		})
	}

	if len(nullDates) > 0 {
		result.NullWarning = &NullWarning{
			HasNullData:   true,
			NullDates:     nullDates,
			TotalNullDays: len(nullDates),
		}
	}
	if len(bars) == 0 {
		result.Err = models.ErrNoValidDays
		return result
	}

	latest := bars[len(bars)-1]
	previousClose := latest.Close
	if len(bars) > 1 {
		previousClose = bars[len(bars)-2].Close
	}

	result.Series = bars
	result.Snapshot = &models.StockSnapshot{
		Code:               strings.TrimSuffix(chart.Symbol, ".T"),
		Name:               name,
		ClosePrice:         latest.Close,
		OpenPrice:          latest.Open,
		HighPrice:          latest.High,
		LowPrice:           latest.Low,
		PreviousClosePrice: previousClose,
		LastUpdated:        latest.Date,
	}
	if result.Snapshot.Code == "" {
		result.Snapshot.Code = code
	}
	return result
}

func summarizeNullData(results []*Result) *models.NullDataSummary {
	summary := &models.NullDataSummary{}
	for _, r := range results {
		if !r.Success() || r.NullWarning == nil {
			continue
		}
		summary.TotalStocksWithNullData++
		summary.TotalNullDays += r.NullWarning.TotalNullDays
		summary.AffectedStocks = append(summary.AffectedStocks, models.AffectedStock{
			Code:      r.Code,
			Name:      r.Name,
			NullDates: r.NullWarning.NullDates,
		})
	}
	if summary.TotalStocksWithNullData == 0 {
		return nil
	}
	return summary
}
