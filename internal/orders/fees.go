package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/internal/pricing"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
)

// recomputeFees rebuilds the discount and fee lines of a cart from its
// Tickets lines. Running it twice leaves the same lines behind.
func (s *Service) recomputeFees(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
	if err := repo.DeleteItemsOfType(ctx, order.ID, enums.OrderItemTypeEventFees); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete event fees")
	}
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}

	holds := map[uuid.UUID]*models.Hold{}
	charged := map[uuid.UUID]bool{}
	for _, line := range ticketLines(items) {
		discount, err := s.syncDiscount(ctx, repo, items, line)
		if err != nil {
			return err
		}
		net := line.UnitPriceInCents - discount

		if order.BoxOfficePricing || net <= 0 {
			if err := s.removeChild(ctx, repo, items, line.ID, enums.OrderItemTypePerUnitFees); err != nil {
				return err
			}
		} else if err := s.syncPerUnitFee(ctx, tx, repo, items, line, net); err != nil {
			return err
		}

		if order.BoxOfficePricing || net <= 0 || line.EventID == nil || charged[*line.EventID] {
			continue
		}
		if line.HoldID != nil {
			hold, ok := holds[*line.HoldID]
			if !ok {
				if hold, err = s.loadHold(ctx, repo, *line.HoldID); err != nil {
					return err
				}
				holds[*line.HoldID] = hold
			}
			if hold.HoldType == enums.HoldTypeComp {
				continue
			}
		}
		created, err := s.addEventFee(ctx, tx, repo, order, *line.EventID)
		if err != nil {
			return err
		}
		if created {
			charged[*line.EventID] = true
		}
	}
	return nil
}

// syncDiscount keeps the Discount child of a line in step with its code and
// returns the per unit discount.
func (s *Service) syncDiscount(ctx context.Context, repo Repository, items []models.OrderItem, line models.OrderItem) (int64, error) {
	var discount int64
	var code *models.Code
	if line.CodeID != nil {
		loaded, err := s.loadCode(ctx, repo, *line.CodeID)
		if err != nil {
			return 0, err
		}
		code = loaded
		discount = pricing.DiscountForCode(*code, line.UnitPriceInCents)
	}
	if discount <= 0 {
		return 0, s.removeChild(ctx, repo, items, line.ID, enums.OrderItemTypeDiscount)
	}

	existing := childOf(items, line.ID, enums.OrderItemTypeDiscount)
	if existing != nil {
		if existing.Quantity == line.Quantity && existing.UnitPriceInCents == -discount {
			return discount, nil
		}
		err := repo.UpdateItem(ctx, existing.ID, map[string]any{
			"quantity":            line.Quantity,
			"unit_price_in_cents": -discount,
			"updated_at":          s.clock.Now(),
		})
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update discount item")
		}
		return discount, nil
	}

	parentID := line.ID
	codeID := code.ID
	child := &models.OrderItem{
		OrderID:          line.OrderID,
		ItemType:         enums.OrderItemTypeDiscount,
		Quantity:         line.Quantity,
		UnitPriceInCents: -discount,
		TicketTypeID:     line.TicketTypeID,
		CodeID:           &codeID,
		EventID:          line.EventID,
		ParentID:         &parentID,
	}
	if err := repo.CreateItem(ctx, child); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount item")
	}
	return discount, nil
}

func (s *Service) syncPerUnitFee(ctx context.Context, tx *gorm.DB, repo Repository, items []models.OrderItem, line models.OrderItem, net int64) error {
	if line.EventID == nil {
		return nil
	}
	rng, err := s.pricing.PerUnitFee(ctx, tx, *line.EventID, net)
	if err != nil {
		return err
	}
	if rng == nil || rng.FeeInCents() <= 0 {
		return s.removeChild(ctx, repo, items, line.ID, enums.OrderItemTypePerUnitFees)
	}

	existing := childOf(items, line.ID, enums.OrderItemTypePerUnitFees)
	if existing != nil {
		same := existing.Quantity == line.Quantity &&
			existing.UnitPriceInCents == rng.FeeInCents() &&
			existing.FeeScheduleRangeID != nil && *existing.FeeScheduleRangeID == rng.ID
		if same {
			return nil
		}
		rangeID := rng.ID
		err := repo.UpdateItem(ctx, existing.ID, map[string]any{
			"quantity":              line.Quantity,
			"unit_price_in_cents":   rng.FeeInCents(),
			"company_fee_in_cents":  rng.CompanyFeeInCents,
			"client_fee_in_cents":   rng.ClientFeeInCents,
			"fee_schedule_range_id": rangeID,
			"updated_at":            s.clock.Now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update per unit fee item")
		}
		return nil
	}

	parentID := line.ID
	rangeID := rng.ID
	child := &models.OrderItem{
		OrderID:            line.OrderID,
		ItemType:           enums.OrderItemTypePerUnitFees,
		Quantity:           line.Quantity,
		UnitPriceInCents:   rng.FeeInCents(),
		CompanyFeeInCents:  rng.CompanyFeeInCents,
		ClientFeeInCents:   rng.ClientFeeInCents,
		TicketTypeID:       line.TicketTypeID,
		FeeScheduleRangeID: &rangeID,
		EventID:            line.EventID,
		ParentID:           &parentID,
	}
	if err := repo.CreateItem(ctx, child); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create per unit fee item")
	}
	return nil
}

func (s *Service) removeChild(ctx context.Context, repo Repository, items []models.OrderItem, parentID uuid.UUID, itemType enums.OrderItemType) error {
	child := childOf(items, parentID, itemType)
	if child == nil {
		return nil
	}
	if err := repo.DeleteItem(ctx, child.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete "+itemType.String()+" item")
	}
	return nil
}

// addEventFee creates the once per event fee line. Events without a fee
// get none.
func (s *Service) addEventFee(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, eventID uuid.UUID) (bool, error) {
	event, err := s.pricing.Event(ctx, tx, eventID)
	if err != nil {
		return false, err
	}
	if event.FeeInCents() <= 0 {
		return false, nil
	}
	id := event.ID
	fee := &models.OrderItem{
		OrderID:           order.ID,
		ItemType:          enums.OrderItemTypeEventFees,
		Quantity:          1,
		UnitPriceInCents:  event.FeeInCents(),
		CompanyFeeInCents: event.CompanyFeeInCents,
		ClientFeeInCents:  event.ClientFeeInCents,
		EventID:           &id,
	}
	if err := repo.CreateItem(ctx, fee); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create event fee item")
	}
	return true, nil
}
