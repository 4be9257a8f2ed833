package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mitsukabu/screener/internal/backup"
	"github.com/mitsukabu/screener/internal/fetch"
	"github.com/mitsukabu/screener/internal/models"
	"github.com/mitsukabu/screener/internal/screener"
	"github.com/mitsukabu/screener/internal/storage"
	"github.com/mitsukabu/screener/internal/universe"
	"github.com/mitsukabu/screener/pkg/indicator"
	"github.com/mitsukabu/screener/pkg/logger"
)

// StockHandler serves dataset status, stock lists and per-stock detail
type StockHandler struct {
	dataset     *storage.DatasetStore
	annotations *storage.Annotations
}

// NewStockHandler creates a new stock handler
func NewStockHandler(dataset *storage.DatasetStore, annotations *storage.Annotations) *StockHandler {
	return &StockHandler{
		dataset:     dataset,
		annotations: annotations,
	}
}

// stockListEntry is one row of the list view: snapshot plus annotation state
// and the latest list-period RSI.
type stockListEntry struct {
	models.StockSnapshot
	Change        float64        `json:"change"`
	ChangePercent float64        `json:"changePercent"`
	Status        storage.Status `json:"status"`
	HasNote       bool           `json:"hasNote"`
	RSI           *float64       `json:"rsi,omitempty"`
}

// GetStatus handles GET /api/v1/status
func (h *StockHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset.Load()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}
	available := ds != nil && len(ds.Snapshots) > 0

	resp := map[string]interface{}{
		"dataAvailable": available,
		"storageUsage":  h.dataset.StorageUsage(),
		"favorites":     h.annotations.Favorites.Count(),
		"considering":   h.annotations.Considering.Count(),
		"holdings":      h.annotations.Holdings.Count(),
	}
	if available {
		resp["dataAge"] = ds.Age()
		resp["totalStocks"] = ds.TotalStocks
		resp["version"] = ds.Version
		if ds.NullDataWarning != nil && ds.NullDataWarning.HasNullData {
			resp["nullDataWarning"] = ds.NullDataWarning
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// ListStocks handles GET /api/v1/stocks
func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset.Load()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}
	if ds == nil {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"stocks": []stockListEntry{},
			"count":  0,
		})
		return
	}

	// One annotation read per request, not per stock.
	statuses := h.annotations.Statuses()
	notes := h.annotations.Notes.All()

	entries := make([]stockListEntry, 0, len(ds.Snapshots))
	for code, snap := range ds.Snapshots {
		status, ok := statuses[code]
		if !ok {
			status = storage.StatusNone
		}
		entries = append(entries, listEntry(snap, ds.Series[code], status, notes[code] != ""))
	}
	sortByCode(entries)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"stocks":     entries,
		"count":      len(entries),
		"lastUpdate": ds.LastUpdate,
	})
}

// GetStock handles GET /api/v1/stocks/{code}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	snap, bars, err := h.dataset.GetStock(code)
	if err != nil {
		if errors.Is(err, models.ErrStockNotFound) {
			respondWithError(w, http.StatusNotFound, "Stock not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load stock")
		return
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	series := indicator.Compute(closes, indicator.RSIDetailPeriod)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot":      snap,
		"change":        snap.PriceChange(),
		"changePercent": snap.PriceChangePercent(),
		"status":        h.annotations.Status(code),
		"note":          h.annotations.Notes.Get(code),
		"bars":          bars,
		"indicators":    series,
	})
}

func listEntry(snap models.StockSnapshot, bars []models.DailyBar, status storage.Status, hasNote bool) stockListEntry {
	entry := stockListEntry{
		StockSnapshot: snap,
		Change:        snap.PriceChange(),
		ChangePercent: snap.PriceChangePercent(),
		Status:        status,
		HasNote:       hasNote,
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	rsi := indicator.RSI(closes, indicator.RSIListPeriod)
	if n := len(rsi); n > 0 && rsi[n-1].Valid {
		v := rsi[n-1].V
		entry.RSI = &v
	}
	return entry
}

func sortByCode(entries []stockListEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, _ := strconv.Atoi(entries[i].Code)
		b, _ := strconv.Atoi(entries[j].Code)
		return a < b
	})
}

// ScreeningHandler serves the screening bucket endpoints
type ScreeningHandler struct {
	screener    *screener.Screener
	annotations *storage.Annotations
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(s *screener.Screener, annotations *storage.Annotations) *ScreeningHandler {
	return &ScreeningHandler{
		screener:    s,
		annotations: annotations,
	}
}

// Turnback handles GET /api/v1/screening/turnback
func (h *ScreeningHandler) Turnback(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "turnback", h.screener.TurnbackStocks)
}

// CrossV handles GET /api/v1/screening/crossv
func (h *ScreeningHandler) CrossV(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "crossv", h.screener.CrossVStocks)
}

func (h *ScreeningHandler) respond(w http.ResponseWriter, bucket string, run func() ([]models.StockSnapshot, error)) {
	matches, err := run()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Screening failed")
		return
	}

	type match struct {
		models.StockSnapshot
		Change        float64        `json:"change"`
		ChangePercent float64        `json:"changePercent"`
		Status        storage.Status `json:"status"`
	}
	statuses := h.annotations.Statuses()
	out := make([]match, 0, len(matches))
	for _, snap := range matches {
		status, ok := statuses[snap.Code]
		if !ok {
			status = storage.StatusNone
		}
		out = append(out, match{
			StockSnapshot: snap,
			Change:        snap.PriceChange(),
			ChangePercent: snap.PriceChangePercent(),
			Status:        status,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bucket":  bucket,
		"matches": out,
		"count":   len(out),
	})
}

// AnnotationHandler serves the favorites/considering/holdings sets, the
// status state machine and per-stock notes
type AnnotationHandler struct {
	annotations *storage.Annotations
	dataset     *storage.DatasetStore
}

// NewAnnotationHandler creates a new annotation handler
func NewAnnotationHandler(annotations *storage.Annotations, dataset *storage.DatasetStore) *AnnotationHandler {
	return &AnnotationHandler{
		annotations: annotations,
		dataset:     dataset,
	}
}

func (h *AnnotationHandler) set(name string) *storage.CodeSet {
	switch name {
	case "favorites":
		return h.annotations.Favorites
	case "considering":
		return h.annotations.Considering
	case "holdings":
		return h.annotations.Holdings
	}
	return nil
}

// ListSet handles GET /api/v1/{set}
func (h *AnnotationHandler) ListSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	set := h.set(vars["set"])
	if set == nil {
		respondWithError(w, http.StatusNotFound, "Unknown annotation set")
		return
	}

	codes := set.SortedByCode()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"codes": codes,
		"count": len(codes),
	})
}

// ToggleSet handles POST /api/v1/{set}/{code}/toggle
func (h *AnnotationHandler) ToggleSet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	set := h.set(vars["set"])
	if set == nil {
		respondWithError(w, http.StatusNotFound, "Unknown annotation set")
		return
	}
	code := vars["code"]

	if err := set.Toggle(code); err != nil {
		h.respondStorageError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"code":   code,
		"member": set.Contains(code),
		"status": h.annotations.Status(code),
	})
}

// GetStatus handles GET /api/v1/stocks/{code}/status
func (h *AnnotationHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"code":   code,
		"status": h.annotations.Status(code),
	})
}

// SetStatus handles PUT /api/v1/stocks/{code}/status
func (h *AnnotationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := storage.ParseStatus(body.Status)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid status: must be one of none, watching, considering, holding")
		return
	}

	if err := h.annotations.SetStatus(code, status); err != nil {
		h.respondStorageError(w, err)
		return
	}

	logger.Info("status changed",
		logger.String("code", code),
		logger.String("status", string(status)),
	)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"code":   code,
		"status": status,
	})
}

// GetNote handles GET /api/v1/stocks/{code}/note
func (h *AnnotationHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"code": code,
		"note": h.annotations.Notes.Get(code),
	})
}

// SetNote handles PUT /api/v1/stocks/{code}/note
func (h *AnnotationHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	var body struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.annotations.Notes.Set(code, body.Note); err != nil {
		if errors.Is(err, models.ErrNoteTooLong) {
			respondWithError(w, http.StatusBadRequest, "Note exceeds maximum length")
			return
		}
		h.respondStorageError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"code": code,
		"note": h.annotations.Notes.Get(code),
	})
}

// DeleteNote handles DELETE /api/v1/stocks/{code}/note
func (h *AnnotationHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	if err := h.annotations.Notes.Delete(code); err != nil {
		h.respondStorageError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}

func (h *AnnotationHandler) respondStorageError(w http.ResponseWriter, err error) {
	var quota *storage.QuotaExceededError
	if errors.As(err, &quota) {
		respondWithError(w, http.StatusInsufficientStorage, quota.Error())
		return
	}
	respondWithError(w, http.StatusInternalServerError, "Failed to update annotations")
}

// RefreshHandler triggers dataset refreshes and data management operations
type RefreshHandler struct {
	orchestrator *fetch.Orchestrator
	loader       *universe.Loader
	dataset      *storage.DatasetStore

	mu         sync.Mutex
	refreshing bool
}

// NewRefreshHandler creates a new refresh handler
func NewRefreshHandler(orchestrator *fetch.Orchestrator, loader *universe.Loader, dataset *storage.DatasetStore) *RefreshHandler {
	return &RefreshHandler{
		orchestrator: orchestrator,
		loader:       loader,
		dataset:      dataset,
	}
}

// Refresh handles POST /api/v1/refresh. The fetch runs in the background;
// concurrent triggers are rejected while one is in flight.
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.refreshing {
		h.mu.Unlock()
		respondWithError(w, http.StatusConflict, "Refresh already in progress")
		return
	}
	h.refreshing = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			h.refreshing = false
			h.mu.Unlock()
		}()
		if err := h.Run(context.Background()); err != nil {
			logger.Error("refresh failed", logger.ErrorField(err))
		}
	}()

	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Refresh started"})
}

// Run loads the universe, fetches every stock and persists the result. It is
// shared between the HTTP trigger and the cron schedule.
func (h *RefreshHandler) Run(ctx context.Context) error {
	start := time.Now()

	stocks, err := h.loader.Load()
	if err != nil {
		return err
	}

	batch := h.orchestrator.FetchBatch(ctx, stocks)
	snapshots, series := batch.Snapshots()
	if len(snapshots) == 0 {
		return models.ErrNoValidDays
	}

	if err := h.dataset.Save(snapshots, series, batch.NullSummary); err != nil {
		return err
	}

	logger.Info("refresh finished",
		logger.Int("succeeded", batch.Succeeded),
		logger.Int("failed", batch.Failed),
		logger.Duration("duration", time.Since(start)),
	)
	return nil
}

// ClearData handles DELETE /api/v1/data
func (h *RefreshHandler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.dataset.Clear(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to clear dataset")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Dataset cleared"})
}

// BackupHandler triggers annotation backups over mail
type BackupHandler struct {
	mailer      *backup.Mailer
	annotations *storage.Annotations
	loader      *universe.Loader
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(mailer *backup.Mailer, annotations *storage.Annotations, loader *universe.Loader) *BackupHandler {
	return &BackupHandler{
		mailer:      mailer,
		annotations: annotations,
		loader:      loader,
	}
}

// Backup handles POST /api/v1/backup
func (h *BackupHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if !h.mailer.Configured() {
		respondWithError(w, http.StatusServiceUnavailable, "Backup mail is not configured")
		return
	}

	names := map[string]string{}
	if stocks, err := h.loader.Load(); err == nil {
		names = universe.NameMap(stocks)
	}

	favorites := h.annotations.Favorites.SortedByCode()
	notes := h.annotations.Notes.All()

	if err := h.mailer.SendFavoritesBackup(favorites, names, notes); err != nil {
		logger.Error("backup failed", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to send backup")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Backup sent",
		"favorites": len(favorites),
		"notes":     len(notes),
	})
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
