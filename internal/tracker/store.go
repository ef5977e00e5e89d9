package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"AmazonTracker/internal/model"
)

// Store holds the tracked product set. ASIN insertion order is preserved so
// that the state file serializes reproducibly across runs.
type Store struct {
	order    []string
	products map[string]*model.Product
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{products: make(map[string]*model.Product)}
}

// Add appends a product. The ASIN must not already be tracked.
func (s *Store) Add(p *model.Product) error {
	if _, ok := s.products[p.ASIN]; ok {
		return fmt.Errorf("product %s is already tracked", p.ASIN)
	}
	s.order = append(s.order, p.ASIN)
	s.products[p.ASIN] = p
	return nil
}

// Get returns the tracked product for an ASIN.
func (s *Store) Get(asin string) (*model.Product, bool) {
	p, ok := s.products[asin]
	return p, ok
}

// ASINs returns the tracked ASINs in insertion order.
func (s *Store) ASINs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of tracked products.
func (s *Store) Len() int { return len(s.order) }

// Load reads the state file. Returns an empty store if the file doesn't exist.
// The top-level object's key order is kept as the store's iteration order.
func Load(filePath string) (*Store, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	s := NewStore()
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("parse state file: expected top-level object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse state file: %w", err)
		}
		asin, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parse state file: non-string key %v", keyTok)
		}
		var p model.Product
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("parse state file: product %s: %w", asin, err)
		}
		p.ASIN = asin
		if err := s.Add(&p); err != nil {
			return nil, fmt.Errorf("parse state file: %w", err)
		}
	}
	return s, nil
}

// Save writes the full state file, replacing the previous content.
func Save(filePath string, s *Store) error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, asin := range s.order {
		key, err := json.Marshal(asin)
		if err != nil {
			return err
		}
		body, err := json.MarshalIndent(s.products[asin], "  ", "  ")
		if err != nil {
			return err
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(body)
		if i < len(s.order)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	return os.WriteFile(filePath, buf.Bytes(), 0644)
}
