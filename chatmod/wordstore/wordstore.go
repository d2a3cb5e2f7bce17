package wordstore

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// Well-known category names. The spam categories drive escalation; the
// remaining lists back composite text checks (ban names, delete text).
const (
	CategoryAff = "aff" // affiliate links
	CategoryExe = "exe" // executable files
	CategoryIml = "iml" // instant messenger links
	CategorySho = "sho" // short links
	CategoryTgl = "tgl" // telegram links
	CategoryTgp = "tgp" // telegram proxies
	CategoryQrc = "qrc" // QR code content
	CategoryBan = "ban" // ban-worthy text
	CategoryDel = "del" // delete-worthy text
	CategorySpc = "spc" // special chinese
	CategorySpe = "spe" // special english
	CategoryWb  = "wb"  // watch-ban names
	CategoryAd  = "ad"  // advertisement
	CategoryCon = "con" // contact info
)

var collapseWhitespace = regexp.MustCompile(`\s{2,}`)
var anyWhitespace = regexp.MustCompile(`\s`)

// Requests a best-effort durable write of the named collection. Implementations
// must not block; persistence failure never affects match results.
type Persister interface {
	Persist(name string)
}

type NoopPersister struct{}

func (NoopPersister) Persist(name string) {}

// A single detection category: an ordered list of regexp patterns, each with a
// hit counter. Counters self-tune pattern priority and are persisted out of
// band after every mutation.
type Category struct {
	mu       sync.RWMutex
	name     string
	patterns []*pattern
	index    map[string]*pattern
}

type pattern struct {
	raw  string
	re   *regexp.Regexp
	hits int64
}

func newCategory(name string) *Category {
	return &Category{
		name:  name,
		index: make(map[string]*pattern),
	}
}

// AddPattern compiles and appends a pattern with the given starting hit count.
// Duplicate patterns are ignored. Patterns are evaluated case-insensitively,
// with multiline and dot-matches-newline semantics.
func (c *Category) AddPattern(raw string, hits int64) error {
	re, err := regexp.Compile("(?ism)" + raw)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[raw]; ok {
		return nil
	}
	p := &pattern{raw: raw, re: re, hits: hits}
	c.patterns = append(c.patterns, p)
	c.index[raw] = p
	return nil
}

// Hits returns a snapshot of pattern hit counts.
func (c *Category) Hits() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.patterns))
	for _, p := range c.patterns {
		out[p.raw] = p.hits
	}
	return out
}

func (c *Category) match(text string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.patterns {
		if p.re.MatchString(text) {
			return p.raw, true
		}
	}
	return "", false
}

func (c *Category) recordHit(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.index[raw]; ok {
		p.hits++
	}
}

// Store holds the category table. Categories are registered up front; matching
// against an unknown category reports no match.
type Store struct {
	Logger    *slog.Logger
	Persister Persister

	mu         sync.RWMutex
	categories map[string]*Category
}

func NewStore(logger *slog.Logger, persister Persister) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if persister == nil {
		persister = NoopPersister{}
	}
	return &Store{
		Logger:     logger,
		Persister:  persister,
		categories: make(map[string]*Category),
	}
}

func (s *Store) Category(name string) *Category {
	s.mu.RLock()
	c := s.categories[name]
	s.mu.RUnlock()
	if c != nil {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c = s.categories[name]; c == nil {
		c = newCategory(name)
		s.categories[name] = c
	}
	return c
}

// Match evaluates text against the named category's patterns. Two passes: first
// with runs of whitespace collapsed to single spaces, then (on a miss, and only
// when the collapsed text still contains a space) with all whitespace stripped.
// The first matching pattern has its hit counter incremented and a persistence
// request is issued for the category.
func (s *Store) Match(ctx context.Context, name, text string) bool {
	if text == "" {
		return false
	}
	s.mu.RLock()
	c := s.categories[name]
	s.mu.RUnlock()
	if c == nil {
		return false
	}

	collapsed := collapseWhitespace.ReplaceAllString(text, " ")
	if raw, ok := c.match(collapsed); ok {
		s.recordHit(c, raw)
		return true
	}
	if !strings.Contains(collapsed, " ") {
		return false
	}
	stripped := anyWhitespace.ReplaceAllString(collapsed, "")
	if raw, ok := c.match(stripped); ok {
		s.recordHit(c, raw)
		return true
	}
	return false
}

func (s *Store) recordHit(c *Category, raw string) {
	c.recordHit(raw)
	s.Persister.Persist(c.name)
}

// MatchBanText reports whether text warrants an immediate ban: either a direct
// ban-list hit, or advertisement text combined with contact info or an instant
// messenger link.
func (s *Store) MatchBanText(ctx context.Context, text string) bool {
	if s.Match(ctx, CategoryBan, text) {
		return true
	}
	if s.Match(ctx, CategoryAd, text) {
		return s.Match(ctx, CategoryCon, text) || s.Match(ctx, CategoryIml, text)
	}
	return false
}

// MatchDeleteText reports whether text warrants deletion on sight.
func (s *Store) MatchDeleteText(ctx context.Context, text string) bool {
	return s.Match(ctx, CategoryDel, text) ||
		s.Match(ctx, CategorySpc, text) ||
		s.Match(ctx, CategorySpe, text)
}
