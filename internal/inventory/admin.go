package inventory

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
)

const (
	mintBatchSize    = 500
	redeemKeyLength  = 10
	redeemKeyCharset = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// MintRequest creates Quantity Available instances of a ticket type,
// optionally carved out for a hold.
type MintRequest struct {
	TicketTypeID uuid.UUID
	HoldID       *uuid.UUID
	Quantity     int
}

// Mint bulk inserts new Available instances and returns their ids.
func (l *Ledger) Mint(ctx context.Context, tx *gorm.DB, req MintRequest) ([]uuid.UUID, error) {
	if req.TicketTypeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket type required")
	}
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	tickets := make([]models.TicketInstance, req.Quantity)
	ids := make([]uuid.UUID, req.Quantity)
	for i := range tickets {
		key, err := newRedeemKey()
		if err != nil {
			return nil, err
		}
		ids[i] = uuid.New()
		tickets[i] = models.TicketInstance{
			ID:           ids[i],
			TicketTypeID: req.TicketTypeID,
			HoldID:       req.HoldID,
			Status:       enums.TicketInstanceStatusAvailable,
			RedeemKey:    &key,
		}
	}
	if err := tx.WithContext(ctx).CreateInBatches(&tickets, mintBatchSize).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mint ticket instances")
	}
	logCtx := l.logg.WithFields(ctx, map[string]any{
		"ticket_type_id": req.TicketTypeID.String(),
		"quantity":       req.Quantity,
	})
	l.logg.Info(logCtx, "ticket instances minted")
	return ids, nil
}

func newRedeemKey() (string, error) {
	buf := make([]byte, redeemKeyLength)
	max := big.NewInt(int64(len(redeemKeyCharset)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate redeem key: %w", err)
		}
		buf[i] = redeemKeyCharset[n.Int64()]
	}
	return string(buf), nil
}

// Nullify withdraws quantity allocatable instances from sale. The claim is
// the same atomic statement Reserve uses, so sold or held-in-cart tickets are
// never nullified.
func (l *Ledger) Nullify(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, holdID *uuid.UUID, quantity int64, userID uuid.UUID) ([]uuid.UUID, error) {
	if quantity <= 0 {
		return nil, nil
	}
	now := l.clock.Now()
	ids, err := l.claim(ctx, tx, claimParams{
		ticketTypeID: ticketTypeID,
		holdID:       holdID,
		limit:        quantity,
		now:          now,
		set:          "status = ?, order_item_id = NULL, reserved_until = NULL, updated_at = ?",
		setArgs:      []any{enums.TicketInstanceStatusNullified, now},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "nullify ticket instances")
	}
	if int64(len(ids)) < quantity {
		return nil, outOfStock(ticketTypeID, holdID, quantity, int64(len(ids)))
	}
	for _, id := range ids {
		if _, err := l.events.Record(ctx, tx, outbox.DomainEvent{
			EventType:   enums.DomainEventTicketInstanceNullified,
			Message:     "Ticket nullified",
			Table:       enums.TableTicketInstances,
			EntityID:    id,
			ActorUserID: &userID,
			Data: payloads.TicketInstanceNullified{
				TicketInstanceID: id,
				TicketTypeID:     ticketTypeID,
			},
		}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// ReapExpired returns up to limit lapsed reservations to Available and
// unlinks them from their order items.
func (l *Ledger) ReapExpired(ctx context.Context, tx *gorm.DB, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	now := l.clock.Now()
	res := tx.WithContext(ctx).Exec(`
UPDATE ticket_instances
SET status = ?, order_item_id = NULL, reserved_until = NULL, updated_at = ?
WHERE id IN (
  SELECT id FROM ticket_instances
  WHERE status = ? AND reserved_until <= ?
  ORDER BY reserved_until
  LIMIT ?
)`,
		enums.TicketInstanceStatusAvailable, now,
		enums.TicketInstanceStatusReserved, now, limit,
	)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reap expired reservations")
	}
	l.metrics.AddReleased("expired", int(res.RowsAffected))
	return res.RowsAffected, nil
}

// Counts is a per-status snapshot of one ticket type's inventory.
type Counts struct {
	Available       int64
	Reserved        int64
	ReservedExpired int64
	Purchased       int64
	Redeemed        int64
	Nullified       int64
}

// Total is every instance ever minted.
func (c Counts) Total() int64 {
	return c.Available + c.Reserved + c.ReservedExpired + c.Purchased + c.Redeemed + c.Nullified
}

// Allocatable is what a reservation could claim right now.
func (c Counts) Allocatable() int64 {
	return c.Available + c.ReservedExpired
}

// Counts reports inventory for a ticket type. A nil holdID counts every
// instance of the type regardless of hold.
func (l *Ledger) Counts(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, holdID *uuid.UUID) (Counts, error) {
	type row struct {
		Status  enums.TicketInstanceStatus
		Expired bool
		Total   int64
	}
	now := l.clock.Now()
	q := tx.WithContext(ctx).
		Model(&models.TicketInstance{}).
		Select("status, (status = ? AND reserved_until <= ?) AS expired, COUNT(*) AS total", enums.TicketInstanceStatusReserved, now).
		Where("ticket_type_id = ?", ticketTypeID)
	if holdID != nil {
		q = q.Where("hold_id = ?", *holdID)
	}
	var rows []row
	if err := q.Group("status, expired").Scan(&rows).Error; err != nil {
		return Counts{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count ticket instances")
	}

	var counts Counts
	for _, r := range rows {
		switch r.Status {
		case enums.TicketInstanceStatusAvailable:
			counts.Available += r.Total
		case enums.TicketInstanceStatusReserved:
			if r.Expired {
				counts.ReservedExpired += r.Total
			} else {
				counts.Reserved += r.Total
			}
		case enums.TicketInstanceStatusPurchased:
			counts.Purchased += r.Total
		case enums.TicketInstanceStatusRedeemed:
			counts.Redeemed += r.Total
		case enums.TicketInstanceStatusNullified:
			counts.Nullified += r.Total
		default:
			return Counts{}, fmt.Errorf("unhandled ticket status %q", r.Status)
		}
	}
	return counts, nil
}
