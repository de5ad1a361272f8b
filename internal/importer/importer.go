package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ItemWriter interface {
	Upsert(ctx context.Context, item domain.Item) (*domain.Item, error)
}

// CSVImporter reads catalog CSV files with the columns title, description,
// img_path and price, and upserts one item per row.
type CSVImporter struct {
	reader *csv.Reader
	items  ItemWriter
}

func NewCSVImporter(r io.Reader, items ItemWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, items: items}
}

// Run imports every row and returns how many items were written. It stops at
// the first invalid row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["title"]; !ok {
		return 0, errors.New("missing title column")
	}
	if _, ok := index["price"]; !ok {
		return 0, errors.New("missing price column")
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		item, skip, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if skip {
			continue
		}
		if _, err := i.items.Upsert(ctx, item); err != nil {
			return imported, fmt.Errorf("upsert item %q: %w", item.Title, err)
		}
		imported++
	}
	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if pos, ok := idx["imgpath"]; ok {
		idx["img_path"] = pos
	}
	return idx
}

func parseRow(record []string, index map[string]int) (domain.Item, bool, error) {
	title := pick(record, index, "title")
	rawPrice := pick(record, index, "price")
	if title == "" && rawPrice == "" {
		return domain.Item{}, true, nil
	}
	if title == "" {
		return domain.Item{}, false, errors.New("title is required")
	}

	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return domain.Item{}, false, fmt.Errorf("invalid price %q for %q", rawPrice, title)
	}
	if price.IsNegative() {
		return domain.Item{}, false, fmt.Errorf("negative price for %q", title)
	}

	return domain.Item{
		Title:       title,
		Description: pick(record, index, "description"),
		ImgPath:     pick(record, index, "img_path"),
		Price:       price,
	}, false, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
