package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Product is one sellable item as described by the catalog file. Field
// names follow the web client's JSON.
type Product struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Brand           string   `json:"brand,omitempty"`
	Description     string   `json:"description,omitempty"`
	Price           float64  `json:"price"`
	Emoji           string   `json:"emoji,omitempty"`
	Image           string   `json:"image,omitempty"`
	Images          []string `json:"images"`
	FullDescription string   `json:"fullDescription,omitempty"`
	Specs           []string `json:"specs"`
	DateAdded       string   `json:"dateAdded,omitempty"`
}

// Catalog serves products from a static JSON file. Loaded on first
// access, cached until Refresh is called explicitly; there is no TTL.
type Catalog struct {
	path string

	mu    sync.RWMutex
	cache []Product
}

func New(path string) *Catalog {
	return &Catalog{path: path}
}

// Products returns the cached list, loading the file on first access.
func (c *Catalog) Products() ([]Product, error) {
	c.mu.RLock()
	cached := c.cache
	c.mu.RUnlock()

	if cached != nil {
		return cached, nil
	}
	return c.Refresh()
}

// Refresh reloads the file, replacing the cache. A missing file yields an
// empty catalog rather than an error.
func (c *Catalog) Refresh() ([]Product, error) {
	products, err := c.load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache = products
	c.mu.Unlock()

	return products, nil
}

func (c *Catalog) load() ([]Product, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Product{}, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for i := range products {
		p := &products[i]
		if p.ID == 0 {
			p.ID = int64(i + 1)
		}
		p.Images = normalizeImages(p.Image, p.Images)
		if p.Image == "" && len(p.Images) > 0 {
			p.Image = p.Images[0]
		}
	}

	return products, nil
}

// normalizeImages merges the primary image into the gallery, drops blanks
// and duplicates, and caps the gallery at 10 entries.
func normalizeImages(primary string, gallery []string) []string {
	merged := make([]string, 0, len(gallery)+1)
	seen := make(map[string]bool)

	for _, img := range append([]string{primary}, gallery...) {
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		merged = append(merged, img)
		if len(merged) == 10 {
			break
		}
	}

	return merged
}
