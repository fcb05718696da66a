package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Document keys of the two record collections.
const (
	KeyEvents     = "events"
	KeyChallenges = "challenges"
)

// RecordStore persists a whole collection of T as one JSON array document.
type RecordStore[T any] struct {
	docs Documents
	key  string
}

func NewRecordStore[T any](docs Documents, key string) *RecordStore[T] {
	return &RecordStore[T]{docs: docs, key: key}
}

// Load returns an empty collection when the document does not exist yet.
func (s *RecordStore[T]) Load(ctx context.Context) ([]T, error) {
	body, ok, err := s.docs.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", s.key, err)
	}
	if !ok {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.key, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// Save rewrites the whole document.
func (s *RecordStore[T]) Save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.key, err)
	}
	if err := s.docs.Put(ctx, s.key, body); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.key, err)
	}
	return nil
}
