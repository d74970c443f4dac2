// Package stream provides DynamoDB Streams handlers for cascade operations.
package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/docstore"
	"github.com/bigwednesday/customer-api/store"
)

// Handler deletes the children of removed entities. Each child delete emits
// its own REMOVE event, so the cascade walks down the tree one level per
// stream record.
type Handler struct {
	db       docstore.Store
	registry *store.Registry
	logger   *zap.Logger
}

// NewHandler creates a new stream handler. A nil registry uses
// store.DefaultRegistry and a nil logger disables logging.
func NewHandler(db docstore.Store, registry *store.Registry, logger *zap.Logger) *Handler {
	if registry == nil {
		registry = store.DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		db:       db,
		registry: registry,
		logger:   logger,
	}
}

// HandleCascadeDelete processes DynamoDB stream events from the entity table.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleCascadeDelete(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				zap.String("eventID", record.EventID),
				zap.Error(err),
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != string(events.DynamoDBOperationTypeRemove) {
		return nil
	}

	key, err := KeyFromStream(record.Change.Keys)
	if err != nil {
		return fmt.Errorf("decode key: %w", err)
	}
	if !h.registry.HasChildren(key.Kind()) {
		return nil
	}

	h.logger.Info("processing cascade delete", zap.Stringer("key", key))

	deleted := 0
	for _, rel := range h.registry.ChildrenOf(key.Kind()) {
		q := docstore.NewQuery(rel.ChildKind).HasAncestor(key)
		children, err := h.db.RunQuery(ctx, q)
		if err != nil {
			return fmt.Errorf("query %s children of %s: %w", rel.ChildKind, key, err)
		}

		for _, child := range children {
			// Only direct children; deeper levels cascade via their own events.
			parent, _ := child.Key.Parent()
			if !parent.Equal(key) {
				continue
			}
			if err := h.db.Delete(ctx, child.Key); err != nil {
				h.logger.Warn("failed to delete child",
					zap.Stringer("child", child.Key),
					zap.Error(err),
				)
				// Continue - idempotent, will retry
				continue
			}
			deleted++
		}
	}

	h.logger.Info("cascade delete completed",
		zap.Stringer("key", key),
		zap.Int("childrenDeleted", deleted),
	)
	return nil
}

// KeyFromStream decodes the entity key from the keys of a stream record.
func KeyFromStream(keys map[string]events.DynamoDBAttributeValue) (docstore.Key, error) {
	sk := getStringAttr(keys, "sk")
	if sk == "" {
		return docstore.Key{}, fmt.Errorf("stream record without sort key")
	}
	return docstore.ParseKey(sk)
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
