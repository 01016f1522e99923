package catalog

import (
	"context"
	"iter"
	"sort"
	"sync"
)

// Memory is an in-memory catalog for tests and small runs.
type Memory struct {
	mu       sync.RWMutex
	products map[string]Product
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{products: make(map[string]Product)}
}

func (m *Memory) Resolve(_ context.Context, key string) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[key]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p.clone(), nil
}

func (m *Memory) Put(_ context.Context, p Product) error {
	if err := p.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p.clone()
	return nil
}

func (m *Memory) PutBatch(_ context.Context, ps []Product) error {
	for _, p := range ps {
		if err := p.validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		m.products[p.ID] = p.clone()
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, key)
	return nil
}

func (m *Memory) List(_ context.Context) iter.Seq2[Product, error] {
	m.mu.RLock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return func(yield func(Product, error) bool) {
		for _, p := range out {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products), nil
}

func (m *Memory) Close() error { return nil }
