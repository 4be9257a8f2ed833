package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mitsukabu/screener/internal/models"
	"github.com/mitsukabu/screener/internal/obs"
	"github.com/mitsukabu/screener/pkg/logger"
)

// Dataset schema versions. Records at a supported older version are upgraded
// in place on load; anything else is evicted rather than misread.
const DatasetVersion = "1.2.0"

var supportedDatasetVersions = map[string]bool{
	"1.0.0":        true,
	"1.1.0":        true,
	DatasetVersion: true,
}

// DatasetStore owns the canonical persisted collection of snapshots and
// daily series. The dataset is replaced wholesale on Save and removed
// wholesale on Clear; there is no per-stock upsert.
type DatasetStore struct {
	medium    Medium
	threshold int
	now       func() time.Time
}

// NewDatasetStore creates a dataset store over the given medium. threshold
// is the compression/quota byte ceiling.
func NewDatasetStore(medium Medium, threshold int) *DatasetStore {
	return &DatasetStore{
		medium:    medium,
		threshold: threshold,
		now:       time.Now,
	}
}

// Save builds, serializes and persists the full dataset record. Codes whose
// series is empty or missing are dropped from both maps rather than stored
// half-complete. Payloads over the threshold are compressed; if the
// compressed form is still over, Save fails with *QuotaExceededError and the
// previous record stays untouched.
func (s *DatasetStore) Save(snapshots map[string]models.StockSnapshot, series map[string][]models.DailyBar, nullSummary *models.NullDataSummary) error {
	keptSnapshots := make(map[string]models.StockSnapshot, len(snapshots))
	keptSeries := make(map[string][]models.DailyBar, len(snapshots))
	for code, snap := range snapshots {
		bars, ok := series[code]
		if !ok || len(bars) == 0 {
			logger.Warn("dropping stock with no usable series",
				logger.String("code", code),
			)
			continue
		}
		keptSnapshots[code] = snap
		keptSeries[code] = bars
	}

	record := models.Dataset{
		Snapshots:       keptSnapshots,
		Series:          keptSeries,
		LastUpdate:      s.now().Format(time.RFC3339),
		Version:         DatasetVersion,
		TotalStocks:     len(keptSnapshots),
		IsCompressed:    false,
		NullDataWarning: buildNullWarning(nullSummary, s.now()),
	}

	encoded, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	payload := string(encoded)
	compressed := false
	if len(payload) > s.threshold {
		payload, err = Compress(payload)
		if err != nil {
			obs.DatasetSaves.WithLabelValues("error").Inc()
			return fmt.Errorf("compress dataset: %w", err)
		}
		compressed = true
		if len(payload) > s.threshold {
			obs.DatasetSaves.WithLabelValues("quota_exceeded").Inc()
			return &QuotaExceededError{Size: len(payload), Limit: s.threshold}
		}
	}

	if err := s.medium.Set(KeyDataset, payload); err != nil {
		obs.DatasetSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("persist dataset: %w", err)
	}

	if compressed {
		obs.DatasetSaves.WithLabelValues("compressed").Inc()
	} else {
		obs.DatasetSaves.WithLabelValues("plain").Inc()
	}
	obs.DatasetBytes.Set(float64(len(payload)))

	logger.Info("dataset saved",
		logger.Int("stocks", record.TotalStocks),
		logger.Int("bytes", len(payload)),
		logger.Bool("compressed", compressed),
	)
	return nil
}

// Load reads the persisted dataset. A missing record yields (nil, nil).
// Corrupt or unsupported-version data is evicted and treated as absent; no
// load failure is fatal.
func (s *DatasetStore) Load() (*models.Dataset, error) {
	raw, ok, err := s.medium.Get(KeyDataset)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if !ok {
		return nil, nil
	}

	compressed := LooksCompressed(raw)
	if compressed {
		raw, err = Decompress(raw)
		if err != nil {
			logger.Warn("evicting undecompressable dataset", logger.ErrorField(err))
			return nil, s.evict()
		}
	}

	var record models.Dataset
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		logger.Warn("evicting corrupt dataset", logger.ErrorField(err))
		return nil, s.evict()
	}
	record.IsCompressed = compressed

	if !supportedDatasetVersions[record.Version] {
		logger.Warn("evicting dataset with unsupported schema version",
			logger.String("version", record.Version),
		)
		return nil, s.evict()
	}
	if record.Version != DatasetVersion {
		// Supported older schema: backfill optional fields. The version is
		// bumped on the next save.
		record.Version = DatasetVersion
		if record.NullDataWarning == nil {
			record.NullDataWarning = &models.NullDataWarning{}
		}
	}

	return &record, nil
}

// Clear deletes the persisted dataset. Annotation records are unaffected.
func (s *DatasetStore) Clear() error {
	if err := s.medium.Delete(KeyDataset); err != nil {
		return fmt.Errorf("clear dataset: %w", err)
	}
	logger.Info("dataset cleared")
	return nil
}

// GetStock returns the snapshot and series for one code, or
// models.ErrStockNotFound when either half is missing.
func (s *DatasetStore) GetStock(code string) (models.StockSnapshot, []models.DailyBar, error) {
	record, err := s.Load()
	if err != nil {
		return models.StockSnapshot{}, nil, err
	}
	if record == nil {
		return models.StockSnapshot{}, nil, models.ErrStockNotFound
	}

	snap, ok := record.Snapshots[code]
	if !ok {
		return models.StockSnapshot{}, nil, models.ErrStockNotFound
	}
	bars, ok := record.Series[code]
	if !ok {
		return models.StockSnapshot{}, nil, models.ErrStockNotFound
	}
	return snap, bars, nil
}

// IsAvailable reports whether a non-empty dataset is persisted
func (s *DatasetStore) IsAvailable() bool {
	record, err := s.Load()
	return err == nil && record != nil && len(record.Snapshots) > 0
}

// DataAge returns the last successful save time as "2006-01-02 15:04", or
// "" when no dataset is stored.
func (s *DatasetStore) DataAge() string {
	record, err := s.Load()
	if err != nil || record == nil {
		return ""
	}
	return record.Age()
}

// StorageUsage returns the total bytes occupied across the dataset and all
// annotation records, human-formatted and annotated with the dataset's
// compression state.
func (s *DatasetStore) StorageUsage() string {
	var total int
	var datasetRaw string
	var datasetPresent bool
	for _, key := range allKeys {
		raw, ok, err := s.medium.Get(key)
		if err != nil || !ok {
			continue
		}
		total += len(raw)
		if key == KeyDataset {
			datasetRaw, datasetPresent = raw, true
		}
	}

	usage := humanize.Bytes(uint64(total))
	if datasetPresent {
		if LooksCompressed(datasetRaw) {
			usage += " (compressed)"
		} else {
			usage += " (uncompressed)"
		}
	}
	return usage
}

func (s *DatasetStore) evict() error {
	if err := s.medium.Delete(KeyDataset); err != nil {
		return fmt.Errorf("evict dataset: %w", err)
	}
	return nil
}

func buildNullWarning(summary *models.NullDataSummary, now time.Time) *models.NullDataWarning {
	if summary == nil || summary.TotalStocksWithNullData == 0 {
		return nil
	}
	return &models.NullDataWarning{
		HasNullData:             true,
		TotalStocksWithNullData: summary.TotalStocksWithNullData,
		TotalNullDays:           summary.TotalNullDays,
		LastOccurrence:          now.Format(time.RFC3339),
		Summary: fmt.Sprintf("%d stocks had %d days of missing data dropped",
			summary.TotalStocksWithNullData, summary.TotalNullDays),
	}
}
