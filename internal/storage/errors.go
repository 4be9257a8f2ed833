package storage

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// QuotaExceededError is returned by Save when even the compressed dataset is
// larger than the configured threshold. Nothing is written in that case; the
// previously persisted dataset, if any, is left untouched.
type QuotaExceededError struct {
	Size  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("dataset exceeds storage quota after compression: %s (limit %s)",
		humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(e.Limit)))
}
