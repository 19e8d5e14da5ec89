package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"chatcommerce/internal/domain"
)

// ProductWriter is the subset of the product repository the importer needs.
type ProductWriter interface {
	Add(ctx context.Context, p domain.Product) error
	Update(ctx context.Context, p domain.Product) error
}

// CSVImporter reads a catalog CSV export and inserts/updates products.
//
// Expected headers: id, name, price_usd, stock, category, description.
// Category and description may be empty; extra columns are ignored.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

// Run parses CSV rows and upserts one product per row. It stops at the
// first malformed row and reports how many products were written before it.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	for _, required := range []string{"id", "name", "price_usd", "stock"} {
		if _, ok := index[required]; !ok {
			return 0, fmt.Errorf("missing required column %q", required)
		}
	}

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		p, err := parseRow(record, index)
		if err != nil {
			return imported, err
		}
		if p == nil {
			continue
		}

		if err := i.save(ctx, *p); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, p domain.Product) error {
	err := i.productRepo.Update(ctx, p)
	if errors.Is(err, domain.ErrNotFound) {
		err = i.productRepo.Add(ctx, p)
	}
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", p.ID, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*domain.Product, error) {
	id := pick(record, index, "id")
	name := pick(record, index, "name")
	priceStr := pick(record, index, "price_usd")
	stockStr := pick(record, index, "stock")

	// Blank lines and padding rows are skipped, not rejected.
	if id == "" && name == "" && priceStr == "" && stockStr == "" {
		return nil, nil
	}
	if id == "" || name == "" {
		return nil, fmt.Errorf("row missing id or name: %v", record)
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price < 0 {
		return nil, fmt.Errorf("invalid price for %q: %s", id, priceStr)
	}
	stock, err := strconv.Atoi(stockStr)
	if err != nil || stock < 0 {
		return nil, fmt.Errorf("invalid stock for %q: %s", id, stockStr)
	}

	return &domain.Product{
		ID:          strings.ToLower(id),
		Name:        name,
		PriceUSD:    price,
		Stock:       stock,
		Category:    pick(record, index, "category"),
		Description: pick(record, index, "description"),
	}, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
