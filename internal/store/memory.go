package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/serroba/linkcut/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository, used in
// tests and single-process runs.
type MemoryStore struct {
	mu      sync.RWMutex
	byCode  map[shortener.Code]*shortener.ShortURL
	byAlias map[string]shortener.Code
	byHash  map[shortener.URLHash]shortener.Code
	nextID  int64
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode:  make(map[shortener.Code]*shortener.ShortURL),
		byAlias: make(map[string]shortener.Code),
		byHash:  make(map[shortener.URLHash]shortener.Code),
	}
}

func (m *MemoryStore) Save(_ context.Context, shortURL *shortener.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.taken(string(shortURL.Code)) {
		return shortener.ErrConflict
	}

	if shortURL.CustomAlias != "" && shortURL.CustomAlias != string(shortURL.Code) &&
		m.taken(shortURL.CustomAlias) {
		return shortener.ErrConflict
	}

	m.nextID++

	record := *shortURL
	record.ID = m.nextID

	m.byCode[record.Code] = &record

	if record.CustomAlias != "" {
		m.byAlias[record.CustomAlias] = record.Code
	}

	if record.URLHash != "" {
		m.byHash[record.URLHash] = record.Code
	}

	shortURL.ID = record.ID

	return nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lookup(code)
}

func (m *MemoryStore) GetByAlias(_ context.Context, alias string) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	code, ok := m.byAlias[alias]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return m.lookup(code)
}

func (m *MemoryStore) GetByHash(_ context.Context, hash shortener.URLHash) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	code, ok := m.byHash[hash]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return m.lookup(code)
}

func (m *MemoryStore) List(_ context.Context, query shortener.ListQuery) (*shortener.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*shortener.ShortURL, 0, len(m.byCode))

	for _, record := range m.byCode {
		if query.IsActive != nil && record.IsActive != *query.IsActive {
			continue
		}

		if query.CreatorIP != "" && record.CreatorIP != query.CreatorIP {
			continue
		}

		copied := *record
		matched = append(matched, &copied)
	}

	// Newest first, matching the postgres ordering.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	pages := int((total + int64(query.Size) - 1) / int64(query.Size))

	start := (query.Page - 1) * query.Size
	if start > len(matched) {
		start = len(matched)
	}

	end := start + query.Size
	if end > len(matched) {
		end = len(matched)
	}

	return &shortener.Page{
		URLs:  matched[start:end],
		Total: total,
		Page:  query.Page,
		Size:  query.Size,
		Pages: pages,
	}, nil
}

func (m *MemoryStore) IncrementClicks(_ context.Context, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byCode[code]
	if !ok {
		return shortener.ErrNotFound
	}

	now := time.Now()
	record.ClickCount++
	record.LastAccessedAt = &now
	record.UpdatedAt = now

	return nil
}

func (m *MemoryStore) Deactivate(_ context.Context, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byCode[code]
	if !ok {
		return shortener.ErrNotFound
	}

	record.IsActive = false
	record.UpdatedAt = time.Now()

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byCode[code]
	if !ok {
		return shortener.ErrNotFound
	}

	m.remove(record)

	return nil
}

func (m *MemoryStore) CleanupExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64

	for _, record := range m.byCode {
		if record.Expired() {
			m.remove(record)
			count++
		}
	}

	return count, nil
}

// lookup returns a copy so callers cannot mutate stored state.
func (m *MemoryStore) lookup(code shortener.Code) (*shortener.ShortURL, error) {
	record, ok := m.byCode[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	copied := *record

	return &copied, nil
}

func (m *MemoryStore) taken(code string) bool {
	if _, ok := m.byCode[shortener.Code(code)]; ok {
		return true
	}

	_, ok := m.byAlias[code]

	return ok
}

func (m *MemoryStore) remove(record *shortener.ShortURL) {
	delete(m.byCode, record.Code)

	if record.CustomAlias != "" {
		delete(m.byAlias, record.CustomAlias)
	}

	if record.URLHash != "" {
		delete(m.byHash, record.URLHash)
	}
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
