package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalog file: %v", err)
	}
	return path
}

func TestProducts(t *testing.T) {
	t.Run("loads and caches", func(t *testing.T) {
		path := writeCatalog(t, `[
			{"id": 1, "name": "Букет роз", "price": 2500, "image": "img/roses.jpg"},
			{"name": "Открытка", "price": 150}
		]`)
		c := New(path)

		products, err := c.Products()
		if err != nil {
			t.Fatalf("Products failed: %v", err)
		}
		if len(products) != 2 {
			t.Fatalf("expected 2 products, got %d", len(products))
		}
		if products[0].Name != "Букет роз" || products[0].Price != 2500 {
			t.Fatalf("unexpected first product: %+v", products[0])
		}

		// cache survives file removal until Refresh
		if err := os.Remove(path); err != nil {
			t.Fatalf("failed to remove file: %v", err)
		}
		again, err := c.Products()
		if err != nil {
			t.Fatalf("cached Products failed: %v", err)
		}
		if len(again) != 2 {
			t.Fatalf("expected cached products, got %d", len(again))
		}

		refreshed, err := c.Refresh()
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if len(refreshed) != 0 {
			t.Fatalf("expected empty catalog after file removal, got %d", len(refreshed))
		}
	})

	t.Run("missing file yields empty catalog", func(t *testing.T) {
		c := New(filepath.Join(t.TempDir(), "nope.json"))

		products, err := c.Products()
		if err != nil {
			t.Fatalf("Products failed: %v", err)
		}
		if len(products) != 0 {
			t.Fatalf("expected empty catalog, got %d products", len(products))
		}
	})

	t.Run("invalid json is an error", func(t *testing.T) {
		c := New(writeCatalog(t, `{not json`))

		if _, err := c.Products(); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("backfills missing ids", func(t *testing.T) {
		c := New(writeCatalog(t, `[
			{"name": "A", "price": 1},
			{"name": "B", "price": 2},
			{"id": 99, "name": "C", "price": 3}
		]`))

		products, err := c.Products()
		if err != nil {
			t.Fatalf("Products failed: %v", err)
		}
		if products[0].ID != 1 || products[1].ID != 2 {
			t.Fatalf("expected backfilled ids 1 and 2, got %d and %d", products[0].ID, products[1].ID)
		}
		if products[2].ID != 99 {
			t.Fatalf("expected explicit id kept, got %d", products[2].ID)
		}
	})

	t.Run("normalizes image gallery", func(t *testing.T) {
		c := New(writeCatalog(t, `[
			{"name": "A", "price": 1, "image": "main.jpg", "images": ["main.jpg", "", "alt.jpg", "alt.jpg"]},
			{"name": "B", "price": 2, "images": ["first.jpg", "second.jpg"]}
		]`))

		products, err := c.Products()
		if err != nil {
			t.Fatalf("Products failed: %v", err)
		}

		a := products[0]
		if len(a.Images) != 2 || a.Images[0] != "main.jpg" || a.Images[1] != "alt.jpg" {
			t.Fatalf("unexpected gallery for A: %v", a.Images)
		}

		b := products[1]
		if b.Image != "first.jpg" {
			t.Fatalf("expected first gallery image promoted to primary, got %q", b.Image)
		}
	})

	t.Run("caps gallery at ten images", func(t *testing.T) {
		c := New(writeCatalog(t, `[
			{"name": "A", "price": 1, "images": ["1","2","3","4","5","6","7","8","9","10","11","12"]}
		]`))

		products, err := c.Products()
		if err != nil {
			t.Fatalf("Products failed: %v", err)
		}
		if len(products[0].Images) != 10 {
			t.Fatalf("expected gallery capped at 10, got %d", len(products[0].Images))
		}
	})
}
