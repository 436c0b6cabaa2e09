// Package library serves the static reference prose for each school.
package library

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

//go:embed data/library.yaml
var libraryFS embed.FS

const libraryFile = "data/library.yaml"

// EmbeddedStore loads library entries from the embedded YAML file on first use.
type EmbeddedStore struct {
	once    sync.Once
	entries []domain.LibraryEntry
	byCat   map[domain.Category]domain.LibraryEntry
	err     error
}

func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{}
}

func (s *EmbeddedStore) init() {
	raw, err := libraryFS.ReadFile(libraryFile)
	if err != nil {
		s.err = fmt.Errorf("read embedded library: %w", err)
		return
	}
	s.entries, s.byCat, s.err = parse(raw)
}

func parse(raw []byte) ([]domain.LibraryEntry, map[domain.Category]domain.LibraryEntry, error) {
	var entries []domain.LibraryEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, nil, fmt.Errorf("parse embedded library: %w", err)
	}

	byCat := make(map[domain.Category]domain.LibraryEntry, len(entries))
	for i := range entries {
		cat, err := domain.ParseCategory(string(entries[i].Category))
		if err != nil || cat == domain.General {
			return nil, nil, fmt.Errorf("library entry %q: %w", entries[i].Category, domain.ErrUnknownCategory)
		}
		entries[i].Category = cat
		byCat[cat] = entries[i]
	}
	return entries, byCat, nil
}

func (s *EmbeddedStore) Entries(_ context.Context) ([]domain.LibraryEntry, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.LibraryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *EmbeddedStore) Entry(_ context.Context, category domain.Category) (domain.LibraryEntry, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return domain.LibraryEntry{}, s.err
	}
	e, ok := s.byCat[category]
	if !ok {
		return domain.LibraryEntry{}, domain.ErrUnknownCategory
	}
	return e, nil
}
