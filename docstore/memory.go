package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryRecord struct {
	seq    uint64
	record Record
}

// Memory is an in-process Store with the same semantics as the DynamoDB
// backend. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	seq     uint64
	records map[string]*memoryRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*memoryRecord)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key Key) (*Record, error) {
	if key.IsZero() {
		return nil, ErrIncompleteKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key.Encode()]
	if !ok {
		return nil, ErrNoSuchEntity
	}
	return &Record{Key: rec.record.Key, Properties: rec.record.Properties.Clone()}, nil
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, mut Mutation) error {
	if mut.Key.IsZero() {
		return ErrIncompleteKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	props, err := normalizeProperties(mut.Properties)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	enc := mut.Key.Encode()
	existing, exists := m.records[enc]
	switch mut.Method {
	case Insert:
		if exists {
			return ErrAlreadyExists
		}
		m.seq++
		m.records[enc] = &memoryRecord{seq: m.seq, record: Record{Key: mut.Key, Properties: props}}
	case Update:
		if !exists {
			return ErrNoSuchEntity
		}
		existing.record = Record{Key: mut.Key, Properties: props}
	default:
		return fmt.Errorf("docstore: unknown save method %q", mut.Method)
	}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, key Key) error {
	if key.IsZero() {
		return ErrIncompleteKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key.Encode())
	return nil
}

// RunQuery implements Store. Records are visited in insertion order before
// the query orders are applied.
func (m *Memory) RunQuery(ctx context.Context, q *Query) ([]*Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	matched := make([]*memoryRecord, 0)
	for _, rec := range m.records {
		if q.Matches(&rec.record) {
			matched = append(matched, rec)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]*Record, len(matched))
	for i, rec := range matched {
		out[i] = &Record{Key: rec.record.Key, Properties: rec.record.Properties.Clone()}
	}
	q.sortRecords(out)
	return out, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
