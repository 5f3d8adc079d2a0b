package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
)

// InvalidItems lists the Tickets lines of a cart that can no longer be
// bought as they are.
func (s *Service) InvalidItems(ctx context.Context, order *models.Order) ([]InvalidItem, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	var invalid []InvalidItem
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		invalid, err = s.invalidItems(ctx, tx, s.repo.WithTx(tx), order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invalid, nil
}

// ClearInvalidItems drops every invalid line from the cart, giving its
// tickets back, and reprices what is left.
func (s *Service) ClearInvalidItems(ctx context.Context, order *models.Order, userID uuid.UUID) ([]InvalidItem, error) {
	var cleared []InvalidItem
	err := s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if err := requireDraft(working); err != nil {
			return err
		}
		invalid, err := s.invalidItems(ctx, tx, repo, working)
		if err != nil {
			return err
		}
		if len(invalid) == 0 {
			return nil
		}
		if err := s.lock(ctx, repo, working, "clear_invalid_items"); err != nil {
			return err
		}
		for _, entry := range invalid {
			line, err := s.loadItem(ctx, repo, entry.OrderItemID)
			if err != nil {
				return err
			}
			if err := s.destroyLine(ctx, tx, repo, *line, userID); err != nil {
				return err
			}
		}
		if err := s.recomputeFees(ctx, tx, repo, working); err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, working.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
		}
		if len(ticketLines(items)) == 0 {
			if err := s.clearExpiry(ctx, tx, repo, working, userID); err != nil {
				return err
			}
		}
		cleared = invalid
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(cleared) > 0 {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{"items": len(cleared)})
		s.logg.Info(logCtx, "cleared invalid cart items")
	}
	return cleared, nil
}

func (s *Service) invalidItems(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) ([]InvalidItem, error) {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	now := s.clock.Now()
	var invalid []InvalidItem
	for _, line := range ticketLines(items) {
		status, err := s.itemStatus(ctx, tx, repo, order, line, now)
		if err != nil {
			return nil, err
		}
		if status != enums.CartItemStatusValid {
			invalid = append(invalid, InvalidItem{OrderItemID: line.ID, Status: status})
		}
	}
	return invalid, nil
}

func (s *Service) itemStatus(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, line models.OrderItem, now time.Time) (enums.CartItemStatus, error) {
	if line.CodeID != nil {
		code, err := s.loadCode(ctx, repo, *line.CodeID)
		if err != nil {
			return "", err
		}
		if err := s.pricing.CheckCode(ctx, tx, *code, order.ID); err != nil {
			if !pkgerrors.IsValidation(err) {
				return "", err
			}
			return enums.CartItemStatusCodeExpired, nil
		}
	}
	if line.HoldID != nil {
		hold, err := s.loadHold(ctx, repo, *line.HoldID)
		if err != nil {
			return "", err
		}
		if hold.ExpiredAt(now) {
			return enums.CartItemStatusHoldExpired, nil
		}
	}

	tickets, err := s.inventory.ListForItem(ctx, tx, line.ID)
	if err != nil {
		return "", err
	}
	var reserved int64
	for _, ticket := range tickets {
		switch {
		case ticket.Status == enums.TicketInstanceStatusNullified:
			return enums.CartItemStatusTicketNullified, nil
		case ticket.Status == enums.TicketInstanceStatusReserved && ticket.ReservedUntil != nil && ticket.ReservedUntil.After(now):
			reserved++
		}
	}
	if reserved < line.Quantity {
		return enums.CartItemStatusTicketNotReserved, nil
	}
	return enums.CartItemStatusValid, nil
}

// QuantityForUserForEvent reports, per ticket type of the event, how many
// tickets the user holds or has reserved.
func (s *Service) QuantityForUserForEvent(ctx context.Context, userID, eventID uuid.UUID) (map[uuid.UUID]int64, error) {
	quantities, err := s.repo.QuantityForUserForEvent(ctx, userID, eventID, s.clock.Now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count tickets for user")
	}
	return quantities, nil
}
