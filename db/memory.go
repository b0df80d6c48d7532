package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is a bounded in-process store. Once full, the oldest rows go first.
type Memory struct {
	rows *lru.Cache[string, Record]
}

func NewMemory(capacity int) (*Memory, error) {
	rows, err := lru.New[string, Record](capacity)
	if err != nil {
		return nil, fmt.Errorf("NewMemory: %w", err)
	}
	return &Memory{rows: rows}, nil
}

func (m *Memory) Append(_ context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	key := rec.Fingerprint
	if key == "" {
		key = rec.ID
	}
	if _, ok := m.rows.Peek(key); ok {
		return nil
	}
	m.rows.Add(key, rec)
	return nil
}

// Records returns kind's rows, oldest first.
func (m *Memory) Records(_ context.Context, kind Kind) ([]Record, error) {
	var out []Record
	for _, rec := range m.rows.Values() {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) Columns(_ context.Context, kind Kind) ([]string, error) {
	return ColumnsFor(kind), nil
}

func (m *Memory) Len() int {
	return m.rows.Len()
}
