package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
)

// MemoryStore keeps records in process memory. It backs tests and
// ephemeral runs where no database is wanted.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*entity.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*entity.Record)}
}

func (s *MemoryStore) Create(_ context.Context, rec *entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return common.NewAppError("RECORD_EXISTS", "record "+rec.ID.String()+" already exists", common.ErrInvalidInput)
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, rec *entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return notFound(rec.ID)
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return notFound(id)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]*entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Record, 0, len(s.records))
	for _, rec := range s.records {
		if !matchesFilter(rec, filter) {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.records))
	s.records = make(map[uuid.UUID]*entity.Record)
	return n, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func matchesFilter(rec *entity.Record, filter ListFilter) bool {
	if filter.Category != "" && rec.Category != filter.Category {
		return false
	}
	if filter.FromDate != nil || filter.ToDate != nil {
		if rec.TxDate == nil {
			return false
		}
		if filter.FromDate != nil && rec.TxDate.Before(*filter.FromDate) {
			return false
		}
		if filter.ToDate != nil && rec.TxDate.After(*filter.ToDate) {
			return false
		}
	}
	return true
}

func notFound(id uuid.UUID) error {
	return common.NewAppError("RECORD_NOT_FOUND", "record "+id.String()+" not found", common.ErrNotFound)
}
