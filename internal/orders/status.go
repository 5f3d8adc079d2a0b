package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
)

// Cancel abandons a draft order, returning its reserved tickets to
// inventory. The lines stay on the order as a record of what was in it.
func (s *Service) Cancel(ctx context.Context, order *models.Order, userID uuid.UUID) error {
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if err := s.transition(ctx, tx, repo, working, enums.OrderStatusCancelled, userID, nil); err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, working.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
		}
		for _, line := range ticketLines(items) {
			if _, err := s.inventory.Release(ctx, tx, line.ID, line.Quantity, userID); err != nil {
				return err
			}
		}
		if err := repo.ClearLastCart(ctx, working.UserID, working.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart pointer")
		}
		return nil
	})
}

// ResetToDraft reopens an order whose asynchronous payment failed or was
// abandoned.
func (s *Service) ResetToDraft(ctx context.Context, order *models.Order, userID uuid.UUID) error {
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		return s.transition(ctx, tx, repo, working, enums.OrderStatusDraft, userID, nil)
	})
}
