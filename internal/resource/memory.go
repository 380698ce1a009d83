package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"staffdesk/portal/internal/apperr"
)

// MemoryStore keeps records in process memory. NewFileStore adds
// write-through persistence to a JSON state file.
type MemoryStore[T any] struct {
	schema    Schema[T]
	stateFile string

	mu      sync.RWMutex
	records map[int64]T
	nextID  int64
}

type fileState[T any] struct {
	NextID  int64 `json:"next_id"`
	Records []T   `json:"records"`
}

func NewMemoryStore[T any](schema Schema[T]) *MemoryStore[T] {
	return &MemoryStore[T]{
		schema:  schema,
		records: make(map[int64]T),
		nextID:  1,
	}
}

func NewFileStore[T any](schema Schema[T], stateFile string) (*MemoryStore[T], error) {
	s := NewMemoryStore(schema)
	s.stateFile = strings.TrimSpace(stateFile)
	if s.stateFile == "" {
		return nil, fmt.Errorf("%s state file path is required", schema.Table)
	}
	if err := s.loadState(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore[T]) List(_ context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(), nil
}

func (s *MemoryStore[T]) Create(_ context.Context, rec T) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, prevNext := s.snapshotLocked(), s.nextID
	id := s.nextID
	s.nextID++
	s.schema.SetID(&rec, id)
	s.records[id] = rec
	if err := s.persistLocked(); err != nil {
		s.records, s.nextID = prev, prevNext
		return 0, apperr.Storage(err, "insert "+s.schema.Table)
	}
	return id, nil
}

func (s *MemoryStore[T]) Get(_ context.Context, id int64) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		var zero T
		return zero, apperr.NotFound(ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore[T]) Update(_ context.Context, id int64, rec T) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	prev := s.snapshotLocked()
	s.schema.SetID(&rec, id)
	s.records[id] = rec
	if err := s.persistLocked(); err != nil {
		s.records = prev
		return false, apperr.Storage(err, "update "+s.schema.Table)
	}
	return true, nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	prev := s.snapshotLocked()
	delete(s.records, id)
	if err := s.persistLocked(); err != nil {
		s.records = prev
		return false, apperr.Storage(err, "delete "+s.schema.Table)
	}
	return true, nil
}

// snapshotLocked copies the records for rollback; without a state file
// there is nothing to roll back.
func (s *MemoryStore[T]) snapshotLocked() map[int64]T {
	if s.stateFile == "" {
		return nil
	}
	return maps.Clone(s.records)
}

func (s *MemoryStore[T]) sortedLocked() []T {
	ids := slices.Sorted(maps.Keys(s.records))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id])
	}
	return out
}

func (s *MemoryStore[T]) loadState() error {
	b, err := os.ReadFile(s.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s state: %w", s.schema.Table, err)
	}
	if len(b) == 0 {
		return nil
	}
	var decoded fileState[T]
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("decode %s state: %w", s.schema.Table, err)
	}
	for _, rec := range decoded.Records {
		id := s.schema.ID(rec)
		if id <= 0 {
			continue
		}
		s.records[id] = rec
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}
	if decoded.NextID > s.nextID {
		s.nextID = decoded.NextID
	}
	return nil
}

func (s *MemoryStore[T]) persistLocked() error {
	if s.stateFile == "" {
		return nil
	}
	b, err := json.MarshalIndent(fileState[T]{NextID: s.nextID, Records: s.sortedLocked()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s state: %w", s.schema.Table, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.stateFile), 0o755); err != nil {
		return fmt.Errorf("mkdir %s state dir: %w", s.schema.Table, err)
	}
	if err := os.WriteFile(s.stateFile, b, 0o644); err != nil {
		return fmt.Errorf("write %s state: %w", s.schema.Table, err)
	}
	return nil
}
