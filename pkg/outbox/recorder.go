package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/clock"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	"github.com/angelmondragon/eventtix-backend/pkg/logger"
)

const recordSavepoint = "domain_event_record"

// DomainEvent describes a state change to append to the audit log.
type DomainEvent struct {
	EventType   enums.DomainEventType
	Message     string
	Table       enums.Table
	EntityID    uuid.UUID
	ActorUserID *uuid.UUID
	Data        any
}

// DomainAction describes async work for an external processor.
type DomainAction struct {
	ActionType    enums.DomainActionType
	Payload       any
	Table         enums.Table
	EntityID      uuid.UUID
	DomainEventID *uuid.UUID
}

type Options struct {
	// Strict makes Record failures abort the caller's transaction.
	Strict bool
	Clock  clock.Clock
}

// Recorder appends domain events and actions inside the caller's transaction.
type Recorder struct {
	repo   *Repository
	logg   *logger.Logger
	strict bool
	clock  clock.Clock
}

func NewRecorder(repo *Repository, logg *logger.Logger, opts Options) *Recorder {
	return &Recorder{
		repo:   repo,
		logg:   logg,
		strict: opts.Strict,
		clock:  clock.OrSystem(opts.Clock),
	}
}

// Record appends event under a savepoint. Outside strict mode a failed write
// rolls back to the savepoint, is logged, and yields (nil, nil) so the
// surrounding business operation still commits.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, event DomainEvent) (*models.DomainEvent, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row, envelope, err := r.buildEvent(event)
	if err != nil {
		return nil, r.fail(ctx, event, err)
	}

	if err := tx.SavePoint(recordSavepoint).Error; err != nil {
		return nil, r.fail(ctx, event, fmt.Errorf("savepoint: %w", err))
	}
	if err := r.repo.Insert(tx, row); err != nil {
		if rbErr := tx.RollbackTo(recordSavepoint).Error; rbErr != nil {
			return nil, fmt.Errorf("rollback domain event savepoint: %w", rbErr)
		}
		return nil, r.fail(ctx, event, err)
	}

	if r.logg != nil {
		fields := map[string]any{
			"event_id":   envelope.EventID,
			"event_type": event.EventType,
			"main_table": event.Table,
			"main_id":    event.EntityID.String(),
		}
		r.logg.Debug(r.logg.WithFields(ctx, fields), "domain event recorded")
	}
	return row, nil
}

func (r *Recorder) buildEvent(event DomainEvent) (*models.DomainEvent, PayloadEnvelope, error) {
	if !event.EventType.IsValid() {
		return nil, PayloadEnvelope{}, fmt.Errorf("unknown domain event type %q", event.EventType)
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, PayloadEnvelope{}, fmt.Errorf("encode %s payload: %w", event.EventType, err)
	}
	envelope := PayloadEnvelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: r.clock.Now(),
		Data:       data,
	}
	if event.ActorUserID != nil {
		envelope.Actor = &ActorRef{UserID: *event.ActorUserID}
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return nil, PayloadEnvelope{}, fmt.Errorf("encode envelope: %w", err)
	}

	row := &models.DomainEvent{
		EventType:   event.EventType,
		DisplayText: event.Message,
		MainTable:   event.Table,
		UserID:      event.ActorUserID,
		EventData:   json.RawMessage(encoded),
	}
	if event.EntityID != uuid.Nil {
		id := event.EntityID
		row.MainID = &id
	}
	return row, envelope, nil
}

func (r *Recorder) fail(ctx context.Context, event DomainEvent, err error) error {
	if r.strict {
		return fmt.Errorf("record %s: %w", event.EventType, err)
	}
	if r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"event_type": event.EventType,
			"main_table": event.Table,
			"main_id":    event.EntityID.String(),
			"error":      err.Error(),
		})
		r.logg.Warn(logCtx, "domain event dropped")
	}
	return nil
}

// Schedule queues an action that becomes stale after expiresIn. Unlike
// Record, a failed write always fails the caller.
func (r *Recorder) Schedule(ctx context.Context, tx *gorm.DB, action DomainAction, expiresIn time.Duration) (*models.DomainAction, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if expiresIn <= 0 {
		return nil, errors.New("action expiry must be positive")
	}
	payload, err := json.Marshal(action.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action.ActionType, err)
	}
	now := r.clock.Now()
	row := &models.DomainAction{
		DomainEventID: action.DomainEventID,
		ActionType:    action.ActionType,
		Payload:       json.RawMessage(payload),
		MainTable:     action.Table,
		ScheduledAt:   now,
		ExpiresAt:     now.Add(expiresIn),
		Status:        enums.DomainActionStatusPending,
	}
	if action.EntityID != uuid.Nil {
		id := action.EntityID
		row.MainID = &id
	}
	if err := r.repo.InsertAction(tx, row); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", action.ActionType, err)
	}
	if r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"action_type": action.ActionType,
			"main_id":     action.EntityID.String(),
			"expires_at":  row.ExpiresAt,
		})
		r.logg.Info(logCtx, "domain action scheduled")
	}
	return row, nil
}
