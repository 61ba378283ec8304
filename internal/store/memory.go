package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/facturador/internal/model"
)

// MemoryStore keeps records in process memory with the same keyed
// upsert semantics as the Postgres store. Used by tests and the
// standalone CLI demo.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*model.Document
	byKey map[string]uuid.UUID
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[uuid.UUID]*model.Document),
		byKey: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, doc *model.Document) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == uuid.Nil {
		// Adopt the id of an existing record with this access key,
		// otherwise mint one.
		if doc.AccessKey != "" {
			if id, ok := s.byKey[doc.AccessKey]; ok {
				doc.ID = id
			}
		}
		if doc.ID == uuid.Nil {
			doc.ID = uuid.New()
		}
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	// Drop a stale access key index entry when the key changed.
	if prev, ok := s.byID[doc.ID]; ok && prev.AccessKey != "" && prev.AccessKey != doc.AccessKey {
		delete(s.byKey, prev.AccessKey)
	}

	stored := clone(doc)
	s.byID[doc.ID] = stored
	if doc.AccessKey != "" {
		s.byKey[doc.AccessKey] = doc.ID
	}
	return clone(stored), nil
}

func (s *MemoryStore) FindByAccessKey(_ context.Context, accessKey string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[accessKey]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[uuid.UUID]*model.Document)
	s.byKey = make(map[string]uuid.UUID)
	return nil
}

// Count reports the number of stored records. Test helper.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func clone(doc *model.Document) *model.Document {
	out := *doc
	out.Lines = append([]model.Line(nil), doc.Lines...)
	out.Messages = append([]string(nil), doc.Messages...)
	if doc.AuthorizationTimestamp != nil {
		ts := *doc.AuthorizationTimestamp
		out.AuthorizationTimestamp = &ts
	}
	return &out
}
