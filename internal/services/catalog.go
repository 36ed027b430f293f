package services

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"giftmatch/pkg"
)

// CatalogLoader produces the full ordered gift catalog
type CatalogLoader func() ([]pkg.GiftEntry, error)

// CatalogStore lazily loads the gift catalog once and serves it read-only.
// A failed load is not remembered, so the next call tries again.
type CatalogStore struct {
	load  CatalogLoader
	mu    sync.Mutex
	gifts atomic.Pointer[[]pkg.GiftEntry]
}

// NewCatalogStore creates a store backed by the given loader
func NewCatalogStore(load CatalogLoader) *CatalogStore {
	return &CatalogStore{load: load}
}

// NewFileCatalogStore creates a store that reads the dataset file at path
func NewFileCatalogStore(path string) *CatalogStore {
	return NewCatalogStore(FileCatalogLoader(path))
}

// Load returns the catalog, reading it on first use. Concurrent first calls load once.
func (c *CatalogStore) Load() ([]pkg.GiftEntry, error) {
	if gifts := c.gifts.Load(); gifts != nil {
		return *gifts, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have finished loading while we waited
	if gifts := c.gifts.Load(); gifts != nil {
		return *gifts, nil
	}

	gifts, err := c.load()
	if err != nil {
		return nil, err
	}
	if gifts == nil {
		gifts = []pkg.GiftEntry{}
	}
	c.gifts.Store(&gifts)
	return gifts, nil
}

// Len reports how many entries are loaded, without triggering a load
func (c *CatalogStore) Len() int {
	if gifts := c.gifts.Load(); gifts != nil {
		return len(*gifts)
	}
	return 0
}

// FileCatalogLoader reads a header-first comma-separated dataset from disk
func FileCatalogLoader(path string) CatalogLoader {
	return func() ([]pkg.GiftEntry, error) {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open gift catalog: %w", err)
		}
		defer file.Close()

		gifts, err := ParseCatalog(file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse gift catalog %s: %w", path, err)
		}
		return gifts, nil
	}
}

// ParseCatalog splits every non-blank line on commas and zips the values with the header
// names. Quotes are not interpreted; short rows leave trailing fields empty.
func ParseCatalog(r io.Reader) ([]pkg.GiftEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return []pkg.GiftEntry{}, nil
	}

	headers := splitTrimmed(lines[0])
	gifts := make([]pkg.GiftEntry, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := splitTrimmed(line)

		var entry pkg.GiftEntry
		for i, header := range headers {
			value := ""
			if i < len(values) {
				value = values[i]
			}
			setField(&entry, header, value)
		}
		gifts = append(gifts, entry)
	}
	return gifts, nil
}

func splitTrimmed(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// setField assigns value to the entry field named by a dataset column. Unknown columns are ignored.
func setField(entry *pkg.GiftEntry, column, value string) {
	switch column {
	case "gift_name":
		entry.Name = value
	case "category":
		entry.Category = value
	case "personality":
		entry.Personality = value
	case "interest_tags":
		entry.InterestTags = value
	case "recipient_type":
		entry.RecipientType = value
	case "recipient_group":
		entry.RecipientGroup = value
	case "occasion":
		entry.Occasion = value
	case "price_band":
		entry.PriceBand = value
	case "description":
		entry.Description = value
	}
}
