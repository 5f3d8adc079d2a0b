package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/internal/payments"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/eventtix-backend/pkg/validators"
)

// AddFreePayment settles an order whose total is zero.
func (s *Service) AddFreePayment(ctx context.Context, order *models.Order, userID uuid.UUID) (*models.Payment, error) {
	var payment *models.Payment
	err := s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		total, err := s.calculateTotal(ctx, repo, working.ID)
		if err != nil {
			return err
		}
		if total != 0 {
			return pkgerrors.NewValidation("amount", ReasonNotFree, "Order is not free").
				WithParam("total", total)
		}
		payment, err = s.addPayment(ctx, tx, repo, working, userID, payments.NewPayment{
			Status:   enums.PaymentStatusCompleted,
			Method:   enums.PaymentMethodFree,
			Provider: enums.PaymentProviderFree,
			Amount:   0,
		})
		return err
	})
	return payment, err
}

// AddExternalPayment records money collected outside the platform, such as
// cash at the box office.
func (s *Service) AddExternalPayment(ctx context.Context, order *models.Order, userID uuid.UUID, reference *string, amount int64, paymentType enums.ExternalPaymentType) (*models.Payment, error) {
	if !paymentType.IsValid() {
		return nil, pkgerrors.NewValidation("external_payment_type", ReasonInvalidPaymentType, "Unknown external payment type").
			WithParam("external_payment_type", paymentType.String())
	}
	var payment *models.Payment
	err := s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		var err error
		payment, err = s.addPayment(ctx, tx, repo, working, userID, payments.NewPayment{
			Status:            enums.PaymentStatusCompleted,
			Method:            enums.PaymentMethodExternal,
			Provider:          enums.PaymentProviderExternal,
			ExternalReference: reference,
			Amount:            amount,
		})
		if err != nil {
			return err
		}
		return s.setExternalPaymentType(ctx, tx, repo, working, paymentType, userID)
	})
	return payment, err
}

// AddProviderPayment records a payment handled by a payment provider. A
// Requested payment parks the order in PendingPayment until the provider
// confirms it.
func (s *Service) AddProviderPayment(ctx context.Context, order *models.Order, userID uuid.UUID, input ProviderPayment) (*models.Payment, error) {
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var payment *models.Payment
	err := s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		var err error
		payment, err = s.addPayment(ctx, tx, repo, working, userID, payments.NewPayment{
			Status:            input.Status,
			Method:            enums.PaymentMethodProvider,
			Provider:          input.Provider,
			ExternalReference: input.ExternalReference,
			Amount:            input.Amount,
			ProviderData:      input.ProviderData,
			URLNonce:          input.URLNonce,
		})
		return err
	})
	return payment, err
}

// AddCreditCardPayment records a completed card charge.
func (s *Service) AddCreditCardPayment(ctx context.Context, order *models.Order, userID uuid.UUID, provider enums.PaymentProvider, amount int64, reference *string, providerData []byte) (*models.Payment, error) {
	var payment *models.Payment
	err := s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		var err error
		payment, err = s.addPayment(ctx, tx, repo, working, userID, payments.NewPayment{
			Status:            enums.PaymentStatusCompleted,
			Method:            enums.PaymentMethodCreditCard,
			Provider:          provider,
			ExternalReference: reference,
			Amount:            amount,
			ProviderData:      providerData,
		})
		return err
	})
	return payment, err
}

func (s *Service) addPayment(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, userID uuid.UUID, input payments.NewPayment) (*models.Payment, error) {
	if order.Status != enums.OrderStatusDraft && order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.NewBusinessProcess(fmt.Sprintf("cannot add a payment to a %s order", order.Status))
	}
	if err := s.lock(ctx, repo, order, "add_payment"); err != nil {
		return nil, err
	}
	if err := s.confirmCodes(ctx, tx, repo, order); err != nil {
		return nil, err
	}

	input.OrderID = order.ID
	input.CreatedBy = userID
	payment, err := s.payments.Create(ctx, tx, input)
	if err != nil {
		return nil, err
	}
	actor := userID
	if _, err := s.events.Record(ctx, tx, outbox.DomainEvent{
		EventType:   enums.DomainEventPaymentCreated,
		Message:     "Payment created",
		Table:       enums.TablePayments,
		EntityID:    payment.ID,
		ActorUserID: &actor,
		Data: payloads.PaymentCreated{
			OrderID:   order.ID,
			PaymentID: payment.ID,
			Status:    payment.Status,
			Method:    payment.PaymentMethod,
			Provider:  payment.Provider,
			Amount:    payment.Amount,
		},
	}); err != nil {
		return nil, err
	}

	if payment.Status == enums.PaymentStatusRequested {
		if order.Status == enums.OrderStatusDraft {
			if err := s.transition(ctx, tx, repo, order, enums.OrderStatusPendingPayment, userID, nil); err != nil {
				return nil, err
			}
		}
	} else if err := repo.ClearLastCart(ctx, order.UserID, order.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart pointer")
	}

	if err := s.completeIfFullyPaid(ctx, tx, repo, order, userID); err != nil {
		return nil, err
	}
	return payment, nil
}

// confirmCodes re-checks every code on the order; codes can lapse or run
// out between adding to cart and paying.
func (s *Service) confirmCodes(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	seen := map[uuid.UUID]bool{}
	for _, line := range ticketLines(items) {
		if line.CodeID == nil || seen[*line.CodeID] {
			continue
		}
		seen[*line.CodeID] = true
		code, err := s.loadCode(ctx, repo, *line.CodeID)
		if err != nil {
			return err
		}
		if err := s.pricing.CheckCode(ctx, tx, *code, order.ID); err != nil {
			return err
		}
	}
	return nil
}

// completeIfFullyPaid marks the order Paid and issues its tickets once the
// completed payments cover the total.
func (s *Service) completeIfFullyPaid(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, userID uuid.UUID) error {
	if order.Status == enums.OrderStatusPaid {
		return nil
	}
	total, err := s.calculateTotal(ctx, repo, order.ID)
	if err != nil {
		return err
	}
	paid, err := s.payments.TotalCompleted(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	if paid < total {
		return nil
	}

	now := s.clock.Now()
	if err := s.transition(ctx, tx, repo, order, enums.OrderStatusPaid, userID, map[string]any{"paid_at": now}); err != nil {
		return err
	}
	order.PaidAt = &now

	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	owner := order.Owner()
	var ticketIDs []uuid.UUID
	for _, line := range ticketLines(items) {
		ids, err := s.inventory.MarkAsPurchased(ctx, tx, line, owner)
		if err != nil {
			return err
		}
		ticketIDs = append(ticketIDs, ids...)
	}

	actor := userID
	event, err := s.events.Record(ctx, tx, outbox.DomainEvent{
		EventType:   enums.DomainEventOrderCompleted,
		Message:     "Order completed",
		Table:       enums.TableOrders,
		EntityID:    order.ID,
		ActorUserID: &actor,
		Data: payloads.OrderCompleted{
			OrderID:     order.ID,
			OwnerUserID: owner,
			TicketIDs:   ticketIDs,
		},
	})
	if err != nil {
		return err
	}
	var eventID *uuid.UUID
	if event != nil {
		eventID = &event.ID
	}
	if _, err := s.events.Schedule(ctx, tx, outbox.DomainAction{
		ActionType: enums.DomainActionSendPurchaseCompletedCommunication,
		Payload: payloads.SendPurchaseCompletedCommunication{
			OrderID: order.ID,
			UserID:  owner,
		},
		Table:         enums.TableOrders,
		EntityID:      order.ID,
		DomainEventID: eventID,
	}, s.commsTTL); err != nil {
		return err
	}

	s.metrics.IncCompleted()
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"tickets": len(ticketIDs),
		"total":   total,
		"paid":    paid,
	})
	s.logg.Info(logCtx, "order completed")
	return nil
}
