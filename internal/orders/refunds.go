package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/eventtix-backend/pkg/validators"
)

// Refund refunds one unit per requested item and returns the cents owed
// back to the buyer. Issuing the money through the payment provider is left
// to the caller.
func (s *Service) Refund(ctx context.Context, order *models.Order, userID uuid.UUID, refundItems []RefundItem) (int64, error) {
	for i := range refundItems {
		if err := validators.Struct(refundItems[i]); err != nil {
			return 0, err
		}
	}
	var total int64
	err := s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if working.Status != enums.OrderStatusPaid {
			return pkgerrors.NewBusinessProcess("only paid orders can be refunded")
		}
		if err := s.lock(ctx, repo, working, "refund"); err != nil {
			return err
		}

		now := s.clock.Now()
		var units []payloads.RefundedUnit
		var refunded int64
		for _, requested := range refundItems {
			item, err := s.loadItem(ctx, repo, requested.OrderItemID)
			if err != nil {
				return err
			}
			if item.OrderID != working.ID {
				return pkgerrors.NewValidation("order_item_id", ReasonItemNotInOrder, "Order item does not belong to this order").
					WithParam("order_item_id", item.ID.String())
			}
			if item.RemainingQuantity() <= 0 {
				return pkgerrors.NewBusinessProcess("order item has already been fully refunded")
			}

			var amount int64
			switch item.ItemType {
			case enums.OrderItemTypeTickets, enums.OrderItemTypePerUnitFees:
				amount, err = s.refundTicketUnit(ctx, tx, repo, *item, requested.TicketInstanceID, userID, now)
				if err != nil {
					return err
				}
			case enums.OrderItemTypeEventFees:
				if err := s.incrementRefunded(ctx, repo, item.ID, 1); err != nil {
					return err
				}
				amount = item.UnitPriceInCents
			default:
				return pkgerrors.NewBusinessProcess("discount items are refunded with their ticket")
			}
			refunded += amount
			units = append(units, payloads.RefundedUnit{
				OrderItemID:      item.ID,
				ItemType:         item.ItemType,
				TicketInstanceID: requested.TicketInstanceID,
				AmountInCents:    amount,
			})
		}

		orphaned, err := s.refundOrphanedEventFees(ctx, repo, working)
		if err != nil {
			return err
		}
		for _, unit := range orphaned {
			refunded += unit.AmountInCents
		}
		units = append(units, orphaned...)

		if err := s.record(ctx, tx, working, userID, enums.DomainEventPaymentRefund, "Order refunded", payloads.PaymentRefund{
			OrderID:         working.ID,
			RefundedInCents: refunded,
			Units:           units,
		}); err != nil {
			return err
		}
		total = refunded
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// refundTicketUnit refunds the ticket or the per unit fee of one physical
// ticket. Each component can be refunded once. Refunding the ticket also
// refunds its per unit fee unless that was refunded on its own earlier.
func (s *Service) refundTicketUnit(ctx context.Context, tx *gorm.DB, repo Repository, item models.OrderItem, ticketID *uuid.UUID, userID uuid.UUID, now time.Time) (int64, error) {
	if ticketID == nil {
		return 0, pkgerrors.NewValidation("ticket_instance_id", ReasonTicketRequired, "Ticket is required to refund this item").
			WithParam("order_item_id", item.ID.String())
	}
	lineID := item.ID
	if item.ItemType == enums.OrderItemTypePerUnitFees {
		if item.ParentID == nil {
			return 0, pkgerrors.New(pkgerrors.CodeInternal, "per unit fee item without parent")
		}
		lineID = *item.ParentID
	}

	record, err := repo.FindRefundedTicket(ctx, lineID, *ticketID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		ticket, err := s.inventory.Find(ctx, tx, *ticketID)
		if err != nil {
			return 0, err
		}
		if ticket.OrderItemID == nil || *ticket.OrderItemID != lineID {
			return 0, ticketMismatch(item.ID, *ticketID)
		}
		record = &models.RefundedTicket{OrderItemID: lineID, TicketInstanceID: *ticketID}
	case err != nil:
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refunded ticket")
	}

	transferred, err := s.inventory.WasTransferred(ctx, tx, *ticketID)
	if err != nil {
		return 0, err
	}
	if transferred {
		return 0, pkgerrors.NewBusinessProcess("ticket was transferred to another wallet and cannot be refunded")
	}

	amount := item.UnitPriceInCents
	if item.ItemType == enums.OrderItemTypeTickets {
		if record.TicketRefundedAt != nil {
			return 0, pkgerrors.NewBusinessProcess("ticket has already been refunded")
		}
		record.TicketRefundedAt = &now
		if _, err := s.inventory.ReleaseInstance(ctx, tx, *ticketID, userID); err != nil {
			return 0, err
		}
		items, err := repo.ListItems(ctx, item.OrderID)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
		}
		if discount := childOf(items, item.ID, enums.OrderItemTypeDiscount); discount != nil && discount.RemainingQuantity() > 0 {
			if err := s.incrementRefunded(ctx, repo, discount.ID, 1); err != nil {
				return 0, err
			}
			amount += discount.UnitPriceInCents
		}
		if record.FeeRefundedAt == nil {
			if fee := childOf(items, item.ID, enums.OrderItemTypePerUnitFees); fee != nil && fee.RemainingQuantity() > 0 {
				if err := s.incrementRefunded(ctx, repo, fee.ID, 1); err != nil {
					return 0, err
				}
				amount += fee.UnitPriceInCents
				record.FeeRefundedAt = &now
			}
		}
	} else {
		if record.FeeRefundedAt != nil {
			return 0, pkgerrors.NewBusinessProcess("fee has already been refunded")
		}
		record.FeeRefundedAt = &now
	}

	if err := repo.SaveRefundedTicket(ctx, record); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refunded ticket")
	}
	if err := s.incrementRefunded(ctx, repo, item.ID, 1); err != nil {
		return 0, err
	}
	return amount, nil
}

// refundOrphanedEventFees refunds event fee lines whose tickets and per unit
// fees have all been refunded.
func (s *Service) refundOrphanedEventFees(ctx context.Context, repo Repository, order *models.Order) ([]payloads.RefundedUnit, error) {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	var units []payloads.RefundedUnit
	for _, fee := range items {
		if fee.ItemType != enums.OrderItemTypeEventFees || fee.EventID == nil || fee.RemainingQuantity() <= 0 {
			continue
		}
		siblings, open := 0, 0
		for _, item := range items {
			if item.EventID == nil || *item.EventID != *fee.EventID {
				continue
			}
			if item.ItemType != enums.OrderItemTypeTickets && item.ItemType != enums.OrderItemTypePerUnitFees {
				continue
			}
			siblings++
			if item.RemainingQuantity() > 0 {
				open++
			}
		}
		if siblings == 0 || open > 0 {
			continue
		}
		remaining := fee.RemainingQuantity()
		if err := s.incrementRefunded(ctx, repo, fee.ID, remaining); err != nil {
			return nil, err
		}
		units = append(units, payloads.RefundedUnit{
			OrderItemID:   fee.ID,
			ItemType:      fee.ItemType,
			AmountInCents: fee.UnitPriceInCents * remaining,
		})
	}
	return units, nil
}

func (s *Service) incrementRefunded(ctx context.Context, repo Repository, itemID uuid.UUID, quantity int64) error {
	ok, err := repo.IncrementRefunded(ctx, itemID, quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refunded quantity")
	}
	if !ok {
		return pkgerrors.NewBusinessProcess("order item has already been fully refunded")
	}
	return nil
}

func ticketMismatch(itemID, ticketID uuid.UUID) error {
	return pkgerrors.NewValidation("ticket_instance_id", ReasonItemNotInOrder, "Ticket does not belong to this order item").
		WithParam("order_item_id", itemID.String()).
		WithParam("ticket_instance_id", ticketID.String())
}
