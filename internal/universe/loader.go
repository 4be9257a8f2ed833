package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/mitsukabu/screener/internal/models"
	"github.com/mitsukabu/screener/pkg/logger"
)

// Accepted header spellings, in priority order. The universe CSV comes from
// an external publisher whose column names vary between releases.
var headerAliases = map[string][]string{
	"code":   {"ｺｰﾄﾞ", "コード", "code", "Code", "CODE"},
	"market": {"市場", "market", "Market", "MARKET"},
	"name":   {"銘柄", "銘柄名", "name", "Name", "NAME", "会社名"},
}

// Loader reads the screenable stock universe from a CSV file. The loaded
// list is static: the core never mutates it.
type Loader struct {
	path      string
	maxStocks int
}

// NewLoader creates a universe loader. maxStocks caps the returned list.
func NewLoader(path string, maxStocks int) *Loader {
	return &Loader{path: path, maxStocks: maxStocks}
}

// Load reads and parses the universe CSV. Rows missing a code or a name are
// skipped. Files that are not valid UTF-8 are retried as Shift-JIS.
func (l *Loader) Load() ([]models.StockInfo, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read universe csv: %w", err)
	}

	text := string(raw)
	if !utf8.Valid(raw) {
		decoded, _, err := transform.String(japanese.ShiftJIS.NewDecoder(), text)
		if err != nil {
			return nil, fmt.Errorf("decode universe csv: %w", err)
		}
		logger.Info("universe csv decoded as Shift-JIS")
		text = decoded
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse universe csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("universe csv has no data rows")
	}

	codeIdx := columnIndex(rows[0], headerAliases["code"])
	marketIdx := columnIndex(rows[0], headerAliases["market"])
	nameIdx := columnIndex(rows[0], headerAliases["name"])
	if codeIdx < 0 || nameIdx < 0 {
		return nil, fmt.Errorf("universe csv is missing code or name columns")
	}

	stocks := make([]models.StockInfo, 0, len(rows)-1)
	for _, row := range rows[1:] {
		stock := models.StockInfo{
			Code:   field(row, codeIdx),
			Market: field(row, marketIdx),
			Name:   field(row, nameIdx),
		}
		if stock.Code == "" || stock.Name == "" {
			continue
		}
		stocks = append(stocks, stock)
		if len(stocks) >= l.maxStocks {
			break
		}
	}

	logger.Info("universe loaded",
		logger.String("path", l.path),
		logger.Int("stocks", len(stocks)),
	)
	return stocks, nil
}

// NameMap returns a code -> name mapping for the given universe.
func NameMap(stocks []models.StockInfo) map[string]string {
	names := make(map[string]string, len(stocks))
	for _, s := range stocks {
		names[s.Code] = s.Name
	}
	return names
}

// columnIndex finds the first header cell matching any alias, respecting
// alias priority order.
func columnIndex(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, cell := range header {
			if strings.TrimSpace(cell) == alias {
				return i
			}
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
