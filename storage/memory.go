package storage

import (
	"context"
	"errors"
	"sync"

	"visor-api/domain"
)

// MemoryStore keeps the serialized document in memory. Each Load decodes a
// fresh copy, so callers never share entities.
type MemoryStore struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetRaw replaces the stored bytes without decoding them.
func (m *MemoryStore) SetRaw(data []byte) {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.mu.Unlock()
}

// FailSaves makes every following Save return err. Pass nil to recover.
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// Saves reports how many saves succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) ReadRaw(context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, false, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, true, nil
}

func (m *MemoryStore) Load(ctx context.Context) (*domain.Document, error) {
	data, exists, _ := m.ReadRaw(ctx)
	if !exists {
		return domain.NewDocument(), nil
	}
	doc, err := decodeStored(data)
	if errors.Is(err, errNotJSON) {
		return domain.NewDocument(), nil
	}
	return doc, err
}

func (m *MemoryStore) Save(_ context.Context, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = data
	m.saves++
	return nil
}
