package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
)

// FindOrCreateCart returns the user's open cart, creating one when the user
// has none. Losing a creation race to a concurrent caller yields a
// concurrency error; retrying finds the winner's cart.
func (s *Service) FindOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var cart *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.clock.Now()

		user, err := repo.FindUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		if user.LastCartID != nil {
			existing, err := repo.FindOpenCart(ctx, userID, *user.LastCartID, now)
			switch {
			case err == nil:
				cart = existing
				return nil
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
			}
		}

		order := &models.Order{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    enums.OrderStatusDraft,
			OrderType: enums.OrderTypeCart,
			OrderDate: now,
		}
		inserted, err := repo.InsertCartIfAbsent(ctx, order, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		if !inserted {
			return s.cartRace(ctx, userID, "insert")
		}

		moved, err := repo.UpdateLastCart(ctx, userID, user.Version, user.LastCartID, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart pointer")
		}
		if !moved {
			return s.cartRace(ctx, userID, "pointer")
		}

		created, err := loadOrder(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		if err := s.record(ctx, tx, created, userID, enums.DomainEventOrderCreated, "Order created", payloads.OrderCreated{
			OrderID:   created.ID,
			UserID:    userID,
			OrderType: created.OrderType,
		}); err != nil {
			return err
		}
		cart = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) cartRace(ctx context.Context, userID uuid.UUID, stage string) error {
	s.metrics.IncConcurrencyConflict("find_or_create_cart")
	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, userID.String()), map[string]any{"stage": stage})
	s.logg.Warn(logCtx, "cart creation lost a race")
	return pkgerrors.NewConcurrency("Could not create a cart because another request created one first")
}

// ClearCart releases every reserved ticket and removes all lines.
func (s *Service) ClearCart(ctx context.Context, order *models.Order, userID uuid.UUID) error {
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if err := requireDraft(working); err != nil {
			return err
		}
		if err := s.lock(ctx, repo, working, "clear_cart"); err != nil {
			return err
		}
		if err := s.clearTickets(ctx, tx, repo, working, userID); err != nil {
			return err
		}
		return s.clearExpiry(ctx, tx, repo, working, userID)
	})
}

// clearTickets releases and destroys every Tickets line along with the
// order's fee lines.
func (s *Service) clearTickets(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, userID uuid.UUID) error {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	for _, line := range ticketLines(items) {
		if err := s.destroyLine(ctx, tx, repo, line, userID); err != nil {
			return err
		}
	}
	if err := repo.DeleteItemsOfType(ctx, order.ID, enums.OrderItemTypeEventFees); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete event fees")
	}
	return nil
}

func (s *Service) destroyLine(ctx context.Context, tx *gorm.DB, repo Repository, line models.OrderItem, userID uuid.UUID) error {
	if _, err := s.inventory.Release(ctx, tx, line.ID, line.Quantity, userID); err != nil {
		return err
	}
	if err := repo.DeleteItem(ctx, line.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order item")
	}
	return nil
}
