package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
)

// SetExpiry moves the cart expiry to expiresAt and carries it onto every
// reserved ticket so inventory is released when the cart lapses.
func (s *Service) SetExpiry(ctx context.Context, order *models.Order, expiresAt time.Time, userID uuid.UUID) error {
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if err := requireDraft(working); err != nil {
			return err
		}
		return s.setExpiry(ctx, tx, repo, working, expiresAt.UTC(), userID)
	})
}

// RemoveExpiry clears the expiry of an empty cart.
func (s *Service) RemoveExpiry(ctx context.Context, order *models.Order, userID uuid.UUID) error {
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		return s.clearExpiry(ctx, tx, repo, working, userID)
	})
}

func (s *Service) setExpiry(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, expiresAt time.Time, userID uuid.UUID) error {
	now := s.clock.Now()
	ok, err := repo.UpdateExpiry(ctx, order.ID, order.Version, &expiresAt, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set order expiry")
	}
	if !ok {
		return s.conflict(ctx, order, "set_expiry")
	}
	previous := order.ExpiresAt
	order.Version++
	order.ExpiresAt = &expiresAt
	order.UpdatedAt = now

	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	lines := ticketLines(items)
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}
	if _, err := s.inventory.UpdateReservedTime(ctx, tx, ids, expiresAt); err != nil {
		return err
	}

	return s.record(ctx, tx, order, userID, enums.DomainEventOrderUpdated, "Order expiry updated", payloads.OrderUpdated{
		OrderID:      order.ID,
		OldExpiresAt: previous,
		NewExpiresAt: &expiresAt,
	})
}

func (s *Service) clearExpiry(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, userID uuid.UUID) error {
	if order.ExpiresAt == nil {
		return nil
	}
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	if len(items) > 0 {
		return pkgerrors.NewBusinessProcess("cannot clear the expiry of an order that still has items")
	}

	now := s.clock.Now()
	ok, err := repo.UpdateExpiry(ctx, order.ID, order.Version, nil, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear order expiry")
	}
	if !ok {
		return s.conflict(ctx, order, "remove_expiry")
	}
	previous := order.ExpiresAt
	order.Version++
	order.ExpiresAt = nil
	order.UpdatedAt = now

	return s.record(ctx, tx, order, userID, enums.DomainEventOrderUpdated, "Order expiry removed", payloads.OrderUpdated{
		OrderID:      order.ID,
		OldExpiresAt: previous,
	})
}

func expired(order *models.Order, now time.Time) bool {
	return order.ExpiresAt != nil && !now.Before(*order.ExpiresAt)
}
