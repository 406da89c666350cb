package store

import (
	"context"
	"errors"
	"sync"

	contentrender "github.com/alnah/go-contentrender"
)

// Memory is an in-process Store. Documents are copied on the way in and out.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]*contentrender.StoredDocument
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*contentrender.StoredDocument)}
}

func (m *Memory) Get(ctx context.Context, id string) (*contentrender.StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, notFound(id)
	}
	return clone(doc), nil
}

func (m *Memory) Put(ctx context.Context, doc *contentrender.StoredDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || doc.ID == "" {
		return errors.New("document id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[doc.ID] = clone(doc)
	return nil
}

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
