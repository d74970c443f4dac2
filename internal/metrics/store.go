package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigwednesday/customer-api/docstore"
)

// Store wraps a docstore.Store and records the outcome and latency of
// every operation.
type Store struct {
	next       docstore.Store
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStore instruments next, registering its collectors with reg.
func NewStore(next docstore.Store, reg prometheus.Registerer) *Store {
	s := &Store{
		next: next,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docstore_operations_total",
				Help: "Total number of document store operations",
			},
			[]string{"operation", "kind", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docstore_operation_duration_seconds",
				Help:    "Duration of document store operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "kind"},
		),
	}
	reg.MustRegister(s.operations, s.duration)
	return s
}

func (s *Store) observe(operation, kind string, start time.Time, err error) {
	s.operations.WithLabelValues(operation, kind, result(err)).Inc()
	s.duration.WithLabelValues(operation, kind).Observe(time.Since(start).Seconds())
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, docstore.ErrNoSuchEntity):
		return "not_found"
	case errors.Is(err, docstore.ErrAlreadyExists):
		return "exists"
	}
	return "error"
}

func (s *Store) Get(ctx context.Context, key docstore.Key) (*docstore.Record, error) {
	start := time.Now()
	r, err := s.next.Get(ctx, key)
	s.observe("get", key.Kind(), start, err)
	return r, err
}

func (s *Store) Save(ctx context.Context, m docstore.Mutation) error {
	start := time.Now()
	err := s.next.Save(ctx, m)
	s.observe(string(m.Method), m.Key.Kind(), start, err)
	return err
}

func (s *Store) Delete(ctx context.Context, key docstore.Key) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.observe("delete", key.Kind(), start, err)
	return err
}

func (s *Store) RunQuery(ctx context.Context, q *docstore.Query) ([]*docstore.Record, error) {
	start := time.Now()
	records, err := s.next.RunQuery(ctx, q)
	s.observe("query", queryKind(q), start, err)
	return records, err
}

func queryKind(q *docstore.Query) string {
	if q.Kind == "" {
		return "*"
	}
	return q.Kind
}
