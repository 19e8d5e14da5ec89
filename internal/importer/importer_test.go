package importer

import (
	"context"
	"strings"
	"testing"

	"chatcommerce/internal/domain"
)

type stubProductRepo struct {
	existing map[string]bool
	added    []domain.Product
	updated  []domain.Product
}

func (s *stubProductRepo) Add(_ context.Context, p domain.Product) error {
	s.added = append(s.added, p)
	return nil
}

func (s *stubProductRepo) Update(_ context.Context, p domain.Product) error {
	if !s.existing[p.ID] {
		return domain.ErrNotFound
	}
	s.updated = append(s.updated, p)
	return nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `id,name,price_usd,stock,category,description
netflix,Netflix Premium,5,10,streaming,1 month premium account
SPOTIFY,Spotify Premium,2.50,25,streaming,
,,,,,
vpn,Secure VPN,1.99,100,,Annual plan`

	repo := &stubProductRepo{existing: map[string]bool{"netflix": true}}
	imp := NewCSVImporter(strings.NewReader(csvData), repo)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 products imported, got %d", count)
	}

	if len(repo.updated) != 1 || repo.updated[0].ID != "netflix" {
		t.Fatalf("expected netflix to be updated, got %+v", repo.updated)
	}
	if len(repo.added) != 2 {
		t.Fatalf("expected 2 products added, got %d", len(repo.added))
	}
	if repo.added[0].ID != "spotify" {
		t.Fatalf("expected lowercased id, got %s", repo.added[0].ID)
	}
	if repo.added[0].PriceUSD != 2.50 || repo.added[0].Stock != 25 {
		t.Fatalf("unexpected product data: %+v", repo.added[0])
	}
	if repo.added[1].Description != "Annual plan" || repo.added[1].Category != "" {
		t.Fatalf("unexpected product data: %+v", repo.added[1])
	}
}

func TestCSVImporter_MissingColumn(t *testing.T) {
	csvData := `id,name,stock
netflix,Netflix Premium,10`

	imp := NewCSVImporter(strings.NewReader(csvData), &stubProductRepo{})
	if _, err := imp.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing price_usd column")
	}
}

func TestCSVImporter_BadRowStopsImport(t *testing.T) {
	csvData := `id,name,price_usd,stock
netflix,Netflix Premium,5,10
spotify,Spotify Premium,not-a-price,25
vpn,Secure VPN,1.99,100`

	repo := &stubProductRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo)

	count, err := imp.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for malformed price")
	}
	if count != 1 {
		t.Fatalf("expected 1 product imported before the failure, got %d", count)
	}
	if len(repo.added) != 1 {
		t.Fatalf("expected 1 product saved, got %d", len(repo.added))
	}
}

func TestCSVImporter_NegativeStock(t *testing.T) {
	csvData := `id,name,price_usd,stock
netflix,Netflix Premium,5,-1`

	imp := NewCSVImporter(strings.NewReader(csvData), &stubProductRepo{})
	if _, err := imp.Run(context.Background()); err == nil {
		t.Fatal("expected error for negative stock")
	}
}
