package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/docstore"
)

// Internal property names. Anything named hiddenProperty or prefixed with
// metadataPrefix is stripped from the public model.
const (
	hiddenProperty  = "_hidden"
	metadataPrefix  = "_metadata"
	createdProperty = "_metadata_created"
	updatedProperty = "_metadata_updated"
)

// Metadata holds the timestamps the stores maintain.
type Metadata struct {
	Created *time.Time `json:"created,omitempty"`
	Updated *time.Time `json:"updated,omitempty"`
}

// Entity is the public view of a stored record: internal properties
// removed, id taken from the key.
type Entity struct {
	Key        docstore.Key
	ID         string
	Attributes docstore.Properties
	Metadata   Metadata
}

// EntityStore is generic CRUD over a docstore.Store. It translates missing
// records into KindEntityNotFound errors and stamps creation metadata.
type EntityStore struct {
	db     docstore.Store
	now    func() time.Time
	logger *zap.Logger
}

// EntityOption configures an EntityStore.
type EntityOption func(*EntityStore)

// WithClock sets the time source used for metadata stamps.
func WithClock(now func() time.Time) EntityOption {
	return func(s *EntityStore) {
		s.now = now
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) EntityOption {
	return func(s *EntityStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewEntityStore creates an EntityStore over db.
func NewEntityStore(db docstore.Store, opts ...EntityOption) *EntityStore {
	s := &EntityStore{
		db:     db,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time from the store's clock, in UTC.
func (s *EntityStore) Now() time.Time {
	return s.now().UTC()
}

// BuildModel converts a raw record into its public Entity.
func BuildModel(rec *docstore.Record) *Entity {
	e := &Entity{
		Key:        rec.Key,
		ID:         rec.Key.ID(),
		Attributes: make(docstore.Properties, len(rec.Properties)),
	}
	for k, v := range rec.Properties {
		if k == hiddenProperty || strings.HasPrefix(k, metadataPrefix) {
			continue
		}
		e.Attributes[k] = v
	}
	e.Metadata.Created = timeProperty(rec.Properties, createdProperty)
	e.Metadata.Updated = timeProperty(rec.Properties, updatedProperty)
	return e
}

func timeProperty(p docstore.Properties, name string) *time.Time {
	switch t := p[name].(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	return nil
}

// Create inserts attrs at key and stamps _metadata_created. An occupied key
// fails with docstore.ErrAlreadyExists.
func (s *EntityStore) Create(ctx context.Context, key docstore.Key, attrs docstore.Properties) (*Entity, error) {
	props := attrs.Clone()
	if props == nil {
		props = docstore.Properties{}
	}
	props[createdProperty] = s.Now()

	err := s.db.Save(ctx, docstore.Mutation{Key: key, Method: docstore.Insert, Properties: props})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}
	s.logger.Debug("entity created", zap.Stringer("key", key))
	return BuildModel(&docstore.Record{Key: key, Properties: props}), nil
}

// Get returns the public entity at key.
func (s *EntityStore) Get(ctx context.Context, key docstore.Key) (*Entity, error) {
	rec, err := s.GetRaw(ctx, key)
	if err != nil {
		return nil, err
	}
	return BuildModel(rec), nil
}

// GetRaw returns the record at key with internal properties intact. Update
// flows use it to carry hidden data forward.
func (s *EntityStore) GetRaw(ctx context.Context, key docstore.Key) (*docstore.Record, error) {
	rec, err := s.db.Get(ctx, key)
	if errors.Is(err, docstore.ErrNoSuchEntity) {
		return nil, notFound(key.Kind(), key.ID(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return rec, nil
}

// Update overwrites the record at key with attrs. Nothing is merged; callers
// carry internal properties over from GetRaw.
func (s *EntityStore) Update(ctx context.Context, key docstore.Key, attrs docstore.Properties) (*Entity, error) {
	props := attrs.Clone()
	if props == nil {
		props = docstore.Properties{}
	}
	err := s.db.Save(ctx, docstore.Mutation{Key: key, Method: docstore.Update, Properties: props})
	if errors.Is(err, docstore.ErrNoSuchEntity) {
		return nil, notFound(key.Kind(), key.ID(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", key, err)
	}
	s.logger.Debug("entity updated", zap.Stringer("key", key))
	return BuildModel(&docstore.Record{Key: key, Properties: props}), nil
}

// Delete removes the record at key.
func (s *EntityStore) Delete(ctx context.Context, key docstore.Key) error {
	if err := s.db.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	s.logger.Debug("entity deleted", zap.Stringer("key", key))
	return nil
}

// RunQuery returns the public entities matching q.
func (s *EntityStore) RunQuery(ctx context.Context, q *docstore.Query) ([]*Entity, error) {
	records, err := s.RunQueryRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	entities := make([]*Entity, len(records))
	for i, rec := range records {
		entities[i] = BuildModel(rec)
	}
	return entities, nil
}

// RunQueryRaw returns the raw records matching q.
func (s *EntityStore) RunQueryRaw(ctx context.Context, q *docstore.Query) ([]*docstore.Record, error) {
	records, err := s.db.RunQuery(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Kind, err)
	}
	return records, nil
}
