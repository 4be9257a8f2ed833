package storage

import (
	"sync"

	"github.com/mitsukabu/screener/internal/models"
)

// Status is the single mutually-exclusive state a stock can be in across the
// favorites, considering and holdings sets.
type Status string

const (
	StatusNone        Status = "none"
	StatusWatching    Status = "watching"
	StatusConsidering Status = "considering"
	StatusHolding     Status = "holding"
)

// ParseStatus validates a status string
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNone, StatusWatching, StatusConsidering, StatusHolding:
		return Status(s), nil
	}
	return "", models.ErrInvalidStatus
}

// Annotations bundles the three code sets and the note store over one
// medium.
type Annotations struct {
	mu          sync.Mutex
	Favorites   *CodeSet
	Considering *CodeSet
	Holdings    *CodeSet
	Notes       *NoteStore
}

// NewAnnotations creates the annotation stores over the given medium
func NewAnnotations(medium Medium) *Annotations {
	return &Annotations{
		Favorites:   NewCodeSet(medium, KeyFavorites),
		Considering: NewCodeSet(medium, KeyConsidering),
		Holdings:    NewCodeSet(medium, KeyHoldings),
		Notes:       NewNoteStore(medium),
	}
}

// Status returns the stock's current status. Membership is checked in
// favorites, considering, holdings priority order; the writer keeps the sets
// mutually exclusive, so the order only matters for legacy overlapping data.
func (a *Annotations) Status(code string) Status {
	if a.Favorites.Contains(code) {
		return StatusWatching
	}
	if a.Considering.Contains(code) {
		return StatusConsidering
	}
	if a.Holdings.Contains(code) {
		return StatusHolding
	}
	return StatusNone
}

// Statuses returns the status of every annotated stock, reading each set
// once instead of once per stock.
func (a *Annotations) Statuses() map[string]Status {
	statuses := make(map[string]Status)
	for _, code := range a.Holdings.List() {
		statuses[code] = StatusHolding
	}
	for _, code := range a.Considering.List() {
		statuses[code] = StatusConsidering
	}
	for _, code := range a.Favorites.List() {
		statuses[code] = StatusWatching
	}
	return statuses
}

// SetStatus moves a stock to the given status. The code is removed from all
// three sets first, then added to the one matching set; the whole transition
// runs under a lock so concurrent transitions stay mutually exclusive.
func (a *Annotations) SetStatus(code string, status Status) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.Favorites.Remove(code); err != nil {
		return err
	}
	if err := a.Considering.Remove(code); err != nil {
		return err
	}
	if err := a.Holdings.Remove(code); err != nil {
		return err
	}

	switch status {
	case StatusWatching:
		return a.Favorites.Add(code)
	case StatusConsidering:
		return a.Considering.Add(code)
	case StatusHolding:
		return a.Holdings.Add(code)
	case StatusNone:
		return nil
	}
	return models.ErrInvalidStatus
}
