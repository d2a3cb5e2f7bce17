package wordstore

import (
	"encoding/json"
	"io"
	"os"
)

// On-disk format: category name -> pattern -> hit count.
type wordFile map[string]map[string]int64

// LoadFromFileJSON populates the store from a JSON word-list file. Patterns
// that fail to compile are logged and skipped, never fatal.
func (s *Store) LoadFromFileJSON(p string) error {

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var words wordFile
	if err := json.Unmarshal(raw, &words); err != nil {
		return err
	}

	for name, patterns := range words {
		c := s.Category(name)
		for pat, hits := range patterns {
			if err := c.AddPattern(pat, hits); err != nil {
				s.Logger.Warn("skipping invalid word pattern", "category", name, "pattern", pat, "err", err)
			}
		}
	}
	return nil
}

// SaveToFileJSON writes a snapshot of all categories and hit counts.
func (s *Store) SaveToFileJSON(p string) error {
	s.mu.RLock()
	out := make(wordFile, len(s.categories))
	for name, c := range s.categories {
		out[name] = c.Hits()
	}
	s.mu.RUnlock()

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, raw, 0644)
}
