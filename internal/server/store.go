package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"roomwatch.dev/roomwatch/pkg/metrics"
	"roomwatch.dev/roomwatch/pkg/tagread"
)

// DefaultEventLimit is the number of events returned by ListRecentEvents
// when the caller omits or supplies a non-positive limit.
const DefaultEventLimit = 50

// Store wraps the database and implements the event store, the token
// registry, and the user store. Event and token writes rely on per-row
// atomicity and unique-key enforcement in the database rather than
// application-level locking.
type Store struct {
	logger  *slog.Logger
	db      *gorm.DB
	metrics *metrics.ServerMetrics // Optional metrics
}

// NewStore creates a new Store instance.
func NewStore(logger *slog.Logger, db *gorm.DB) (*Store, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if db == nil {
		return nil, errors.New("database cannot be nil")
	}

	return &Store{
		logger: logger,
		db:     db,
	}, nil
}

// SetMetrics sets the metrics collector for this store.
// This should be called before the store starts serving requests.
func (s *Store) SetMetrics(m *metrics.ServerMetrics) {
	s.metrics = m
}

// observeDB records one database operation outcome, when metrics are enabled.
func (s *Store) observeDB(operation, table string, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.DBOperationsTotal.WithLabelValues(operation, table, status).Inc()
}

// dbTimer starts a duration observation for one database operation.
func (s *Store) dbTimer(operation, table string) *prometheus.Timer {
	if s.metrics == nil {
		return nil
	}
	return prometheus.NewTimer(s.metrics.DBOperationDuration.WithLabelValues(operation, table))
}

// AppendEvent appends one immutable tag event. TagID and Status are
// required; an empty ObservedAt is replaced with the current time. The
// stored record is returned, including the assigned id and timestamp.
func (s *Store) AppendEvent(ctx context.Context, read tagread.TagRead) (*TagEvent, error) {
	if read.TagID == "" {
		return nil, &ValidationError{Msg: "tagId is required"}
	}
	if read.Status == "" {
		return nil, &ValidationError{Msg: "status is required"}
	}

	observedAt := read.Timestamp
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	event := &TagEvent{
		TagID:      read.TagID,
		Status:     read.Status,
		ObservedAt: observedAt.UTC(),
	}

	timer := s.dbTimer("insert", event.TableName())
	err := s.db.WithContext(ctx).Create(event).Error
	if timer != nil {
		timer.ObserveDuration()
	}
	s.observeDB("insert", event.TableName(), err)
	if err != nil {
		s.logger.Error("failed to append tag event", "tag_id", read.TagID, "error", err)
		return nil, &StorageError{Op: "append event", Err: err}
	}

	s.logger.Debug("tag event appended",
		"tag_id", event.TagID,
		"status", event.Status,
		"observed_at", event.ObservedAt,
	)

	return event, nil
}

// ListRecentEvents returns a point-in-time snapshot of the most recent
// events ordered by observation time descending. A non-positive limit
// falls back to DefaultEventLimit.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]TagEvent, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	var events []TagEvent
	timer := s.dbTimer("select", TagEvent{}.TableName())
	err := s.db.WithContext(ctx).
		Order("observed_at DESC").
		Limit(limit).
		Find(&events).Error
	if timer != nil {
		timer.ObserveDuration()
	}
	s.observeDB("select", TagEvent{}.TableName(), err)
	if err != nil {
		s.logger.Error("failed to list tag events", "limit", limit, "error", err)
		return nil, &StorageError{Op: "list events", Err: err}
	}

	return events, nil
}

// RegisterToken upserts a push-notification token keyed by its value.
// Registering an existing value refreshes RegisteredAt; the unique index
// guarantees at most one row per value under concurrent registration.
func (s *Store) RegisterToken(ctx context.Context, value string) (*PushToken, error) {
	if value == "" {
		return nil, &ValidationError{Msg: "token is required"}
	}

	now := time.Now().UTC()
	token := &PushToken{
		Value:        value,
		RegisteredAt: now,
	}

	timer := s.dbTimer("upsert", token.TableName())
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "value"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"registered_at": now, "updated_at": now}),
		}).
		Create(token).Error
	if timer != nil {
		timer.ObserveDuration()
	}
	s.observeDB("upsert", token.TableName(), err)
	if err != nil {
		s.logger.Error("failed to register token", "error", err)
		return nil, &StorageError{Op: "register token", Err: err}
	}

	s.logger.Debug("push token registered", "registered_at", token.RegisteredAt)

	return token, nil
}

// CountTokens returns the number of registered tokens.
func (s *Store) CountTokens(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&PushToken{}).Count(&count).Error
	s.observeDB("select", PushToken{}.TableName(), err)
	if err != nil {
		return 0, &StorageError{Op: "count tokens", Err: err}
	}
	return count, nil
}
