package storage

// Record keys. Each record is versioned and persisted independently so that
// annotation writes never rewrite the (potentially large) dataset record.
const (
	KeyDataset     = "stock_data_v1"
	KeyFavorites   = "favorites_v1"
	KeyHoldings    = "holdings_v1"
	KeyConsidering = "considering_v1"
	KeyNotes       = "stock_memos_v1"
)

// allKeys ordered for storage-usage accounting.
var allKeys = []string{KeyDataset, KeyFavorites, KeyHoldings, KeyConsidering, KeyNotes}

// Medium is a flat, text-only record store. It is the single shared mutable
// resource of the application: there is no transactional primitive, so every
// writer must read the current record, merge its single change and write the
// result back.
type Medium interface {
	// Get returns the record for key. ok is false when the record is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores the record for key, replacing any previous value.
	Set(key, value string) error

	// Delete removes the record for key. Deleting an absent key is not an
	// error.
	Delete(key string) error

	// Close releases any resources held by the medium.
	Close() error
}
