package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/clock"
	"github.com/angelmondragon/eventtix-backend/pkg/db"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/logger"
	"github.com/angelmondragon/eventtix-backend/pkg/metrics"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
)

const (
	ReasonOutOfStock        = "out_of_stock"
	ReasonTicketNotReserved = "ticket_not_reserved"
)

type eventRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (*models.DomainEvent, error)
}

// ReserveRequest asks for Quantity instances of a ticket type. A nil HoldID
// only draws from unheld inventory.
type ReserveRequest struct {
	OrderItemID  uuid.UUID
	ExpiresAt    time.Time
	TicketTypeID uuid.UUID
	HoldID       *uuid.UUID
	Quantity     int64
}

// Ledger owns every ticket instance status transition.
type Ledger struct {
	logg    *logger.Logger
	events  eventRecorder
	metrics *metrics.OrderMetrics
	clock   clock.Clock
}

type LedgerParams struct {
	Logger   *logger.Logger
	Recorder eventRecorder
	Metrics  *metrics.OrderMetrics
	Clock    clock.Clock
}

func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("domain event recorder required")
	}
	return &Ledger{
		logg:    params.Logger,
		events:  params.Recorder,
		metrics: params.Metrics,
		clock:   clock.OrSystem(params.Clock),
	}, nil
}

// Reserve claims req.Quantity allocatable instances for an order item in one
// statement. Allocatable means Available, or Reserved with an elapsed
// reservation. A short claim fails with out_of_stock; the caller's
// transaction must roll back to undo the partial claim.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, req ReserveRequest) ([]uuid.UUID, error) {
	if req.Quantity <= 0 {
		return nil, nil
	}
	if req.OrderItemID == uuid.Nil || req.TicketTypeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item and ticket type required")
	}
	now := l.clock.Now()
	ids, err := l.claim(ctx, tx, claimParams{
		ticketTypeID: req.TicketTypeID,
		holdID:       req.HoldID,
		limit:        req.Quantity,
		now:          now,
		set:          "status = ?, order_item_id = ?, reserved_until = ?, updated_at = ?",
		setArgs:      []any{enums.TicketInstanceStatusReserved, req.OrderItemID, req.ExpiresAt.UTC(), now},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve ticket instances")
	}
	if int64(len(ids)) < req.Quantity {
		l.metrics.IncOutOfStock()
		logCtx := l.logg.WithFields(ctx, map[string]any{
			"ticket_type_id": req.TicketTypeID.String(),
			"requested":      req.Quantity,
			"available":      len(ids),
		})
		l.logg.Warn(logCtx, "reservation short of inventory")
		return nil, outOfStock(req.TicketTypeID, req.HoldID, req.Quantity, int64(len(ids)))
	}
	l.metrics.AddReserved(len(ids))
	return ids, nil
}

func outOfStock(ticketTypeID uuid.UUID, holdID *uuid.UUID, requested, available int64) error {
	err := pkgerrors.NewValidation("quantity", ReasonOutOfStock, "Could not reserve tickets, not enough tickets are available").
		WithParam("ticket_type_id", ticketTypeID.String()).
		WithParam("requested_quantity", requested).
		WithParam("available_quantity", available)
	if holdID != nil {
		err = err.WithParam("hold_id", holdID.String())
	}
	return err
}

type claimParams struct {
	ticketTypeID uuid.UUID
	holdID       *uuid.UUID
	limit        int64
	now          time.Time
	set          string
	setArgs      []any
}

// claim updates up to limit allocatable rows and returns the ids it took.
// Postgres skips rows locked by competing claims; SQLite serializes writers.
func (l *Ledger) claim(ctx context.Context, tx *gorm.DB, p claimParams) ([]uuid.UUID, error) {
	var sb strings.Builder
	sb.WriteString("UPDATE ticket_instances SET ")
	sb.WriteString(p.set)
	sb.WriteString(" WHERE id IN (SELECT id FROM ticket_instances WHERE ticket_type_id = ?")
	args := append([]any{}, p.setArgs...)
	args = append(args, p.ticketTypeID)
	if p.holdID != nil {
		sb.WriteString(" AND hold_id = ?")
		args = append(args, *p.holdID)
	} else {
		sb.WriteString(" AND hold_id IS NULL")
	}
	sb.WriteString(" AND (status = ? OR (status = ? AND reserved_until <= ?)) ORDER BY created_at, id LIMIT ?")
	args = append(args, enums.TicketInstanceStatusAvailable, enums.TicketInstanceStatusReserved, p.now, p.limit)
	if db.IsPostgres(tx) {
		sb.WriteString(" FOR UPDATE SKIP LOCKED")
	}
	sb.WriteString(") RETURNING id")

	var ids []uuid.UUID
	if err := tx.WithContext(ctx).Raw(sb.String(), args...).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Release returns up to quantity of the item's Reserved instances to
// Available. Instances whose reservation lapsed and were claimed elsewhere
// are no longer linked, so the returned count may be lower than quantity.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID, quantity int64, userID uuid.UUID) (int64, error) {
	if quantity <= 0 {
		return 0, nil
	}
	now := l.clock.Now()
	var ids []uuid.UUID
	err := tx.WithContext(ctx).Raw(`
UPDATE ticket_instances
SET status = ?, order_item_id = NULL, reserved_until = NULL, updated_at = ?
WHERE id IN (
  SELECT id FROM ticket_instances
  WHERE order_item_id = ? AND status = ?
  ORDER BY created_at DESC, id
  LIMIT ?
)
RETURNING id`,
		enums.TicketInstanceStatusAvailable, now,
		orderItemID, enums.TicketInstanceStatusReserved, quantity,
	).Scan(&ids).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release ticket instances")
	}
	released := int64(len(ids))
	l.metrics.AddReleased("cart_update", len(ids))
	logCtx := l.logg.WithFields(ctx, map[string]any{
		"order_item_id": orderItemID.String(),
		"user_id":       userID.String(),
		"requested":     quantity,
		"released":      released,
	})
	l.logg.Debug(logCtx, "ticket instances released")
	return released, nil
}

// ReleaseInstance returns a Purchased ticket to inventory after a refund.
// Tickets in any other status are left alone and false is returned.
func (l *Ledger) ReleaseInstance(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID, userID uuid.UUID) (bool, error) {
	ticket, err := l.Find(ctx, tx, ticketID)
	if err != nil {
		return false, err
	}
	if ticket.Status != enums.TicketInstanceStatusPurchased {
		return false, nil
	}
	res := tx.WithContext(ctx).
		Model(&models.TicketInstance{}).
		Where("id = ? AND status = ?", ticketID, enums.TicketInstanceStatusPurchased).
		Updates(map[string]any{
			"status":         enums.TicketInstanceStatusAvailable,
			"order_item_id":  nil,
			"owner_user_id":  nil,
			"reserved_until": nil,
			"updated_at":     l.clock.Now(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release purchased ticket")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	l.metrics.AddReleased("refund", 1)

	var orderItemID uuid.UUID
	if ticket.OrderItemID != nil {
		orderItemID = *ticket.OrderItemID
	}
	actor := userID
	if _, err := l.events.Record(ctx, tx, outbox.DomainEvent{
		EventType:   enums.DomainEventTicketInstanceReleased,
		Message:     "Ticket released after refund",
		Table:       enums.TableTicketInstances,
		EntityID:    ticketID,
		ActorUserID: &actor,
		Data: payloads.TicketInstanceReleased{
			TicketInstanceID: ticketID,
			OrderItemID:      orderItemID,
			Reason:           "refund",
		},
	}); err != nil {
		return false, err
	}
	return true, nil
}

// MarkAsPurchased moves every Reserved instance of a Tickets item to
// Purchased for owner. Every unit on the item must still be reserved.
func (l *Ledger) MarkAsPurchased(ctx context.Context, tx *gorm.DB, item models.OrderItem, ownerUserID uuid.UUID) ([]uuid.UUID, error) {
	if item.ItemType != enums.OrderItemTypeTickets {
		return nil, fmt.Errorf("order item %s is %s, not Tickets", item.ID, item.ItemType)
	}
	var ids []uuid.UUID
	err := tx.WithContext(ctx).Raw(`
UPDATE ticket_instances
SET status = ?, owner_user_id = ?, reserved_until = NULL, updated_at = ?
WHERE order_item_id = ? AND status = ?
RETURNING id`,
		enums.TicketInstanceStatusPurchased, ownerUserID, l.clock.Now(),
		item.ID, enums.TicketInstanceStatusReserved,
	).Scan(&ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark tickets purchased")
	}
	if int64(len(ids)) != item.Quantity {
		return nil, pkgerrors.NewValidation("quantity", ReasonTicketNotReserved, "Could not complete this order because the tickets are no longer reserved").
			WithParam("order_item_id", item.ID.String()).
			WithParam("reserved_quantity", len(ids)).
			WithParam("quantity", item.Quantity)
	}
	for _, id := range ids {
		if _, err := l.events.Record(ctx, tx, outbox.DomainEvent{
			EventType:   enums.DomainEventTicketInstancePurchased,
			Message:     "Ticket purchased",
			Table:       enums.TableTicketInstances,
			EntityID:    id,
			ActorUserID: &ownerUserID,
			Data: payloads.TicketInstancePurchased{
				TicketInstanceID: id,
				OrderItemID:      item.ID,
				OwnerUserID:      ownerUserID,
			},
		}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// UpdateReservedTime pushes reservedUntil onto every Reserved instance of
// the given items.
func (l *Ledger) UpdateReservedTime(ctx context.Context, tx *gorm.DB, orderItemIDs []uuid.UUID, reservedUntil time.Time) (int64, error) {
	if len(orderItemIDs) == 0 {
		return 0, nil
	}
	res := tx.WithContext(ctx).
		Model(&models.TicketInstance{}).
		Where("order_item_id IN ? AND status = ?", orderItemIDs, enums.TicketInstanceStatusReserved).
		Updates(map[string]any{
			"reserved_until": reservedUntil.UTC(),
			"updated_at":     l.clock.Now(),
		})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update reserved time")
	}
	return res.RowsAffected, nil
}

// CountReserved returns how many instances are currently linked to the item
// in Reserved status.
func (l *Ledger) CountReserved(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.TicketInstance{}).
		Where("order_item_id = ? AND status = ?", orderItemID, enums.TicketInstanceStatusReserved).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count reserved tickets")
	}
	return count, nil
}

// ListForItem returns every instance linked to an order item.
func (l *Ledger) ListForItem(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) ([]models.TicketInstance, error) {
	var tickets []models.TicketInstance
	err := tx.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Order("created_at ASC, id ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item tickets")
	}
	return tickets, nil
}

func (l *Ledger) Find(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID) (*models.TicketInstance, error) {
	var ticket models.TicketInstance
	err := tx.WithContext(ctx).Where("id = ?", ticketID).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket")
	}
	return &ticket, nil
}

// FindIDsForOrder lists the tickets issued by an order's Tickets lines.
func (l *Ledger) FindIDsForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.WithContext(ctx).
		Model(&models.TicketInstance{}).
		Joins("JOIN order_items oi ON oi.id = ticket_instances.order_item_id").
		Where("oi.order_id = ? AND oi.item_type = ?", orderID, enums.OrderItemTypeTickets).
		Order("ticket_instances.created_at ASC, ticket_instances.id ASC").
		Pluck("ticket_instances.id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order tickets")
	}
	return ids, nil
}

// WasTransferred reports whether the ticket ever left its buyer's wallet.
func (l *Ledger) WasTransferred(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.TicketTransfer{}).
		Where("ticket_instance_id = ? AND status = ?", ticketID, enums.TransferStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check ticket transfers")
	}
	return count > 0, nil
}
