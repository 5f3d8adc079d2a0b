package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/eventtix-backend/pkg/validators"
)

const maxUserAgentLength = 512

// OrderNumber is the human facing order number.
func OrderNumber(order models.Order) string {
	return order.Number()
}

// CalculateTotal sums every unrefunded unit on the order, fees and
// discounts included.
func (s *Service) CalculateTotal(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return s.calculateTotal(ctx, s.repo, orderID)
}

func (s *Service) calculateTotal(ctx context.Context, repo Repository, orderID uuid.UUID) (int64, error) {
	items, err := repo.ListItems(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	var total int64
	for _, item := range items {
		total += item.TotalInCents()
	}
	return total, nil
}

// TotalPaid sums the completed payments of an order.
func (s *Service) TotalPaid(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var paid int64
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		paid, err = s.payments.TotalCompleted(ctx, tx, orderID)
		return err
	})
	return paid, err
}

// SetBehalfOfUser makes behalfOf the owner of the tickets this order
// issues. A nil behalfOf gives them back to the buyer.
func (s *Service) SetBehalfOfUser(ctx context.Context, order *models.Order, behalfOf *uuid.UUID, userID uuid.UUID) error {
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if err := requireDraft(working); err != nil {
			return err
		}
		if behalfOf != nil {
			if _, err := repo.FindUser(ctx, *behalfOf); err != nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
		}
		previous := working.OnBehalfOfUserID
		if err := s.update(ctx, repo, working, "set_behalf_of_user", map[string]any{"on_behalf_of_user_id": behalfOf}); err != nil {
			return err
		}
		working.OnBehalfOfUserID = behalfOf
		return s.record(ctx, tx, working, userID, enums.DomainEventOrderBehalfOfUserChanged, "Order owner changed", payloads.OrderBehalfOfUserChanged{
			OrderID:   working.ID,
			OldUserID: previous,
			NewUserID: behalfOf,
		})
	})
}

// SetUserAgent stores the client that created the order, or the client that
// paid for it when atPurchase is set.
func (s *Service) SetUserAgent(ctx context.Context, order *models.Order, userAgent string, atPurchase bool) error {
	agent := validators.SanitizeString(userAgent, maxUserAgentLength)
	if agent == "" {
		return nil
	}
	column := "create_user_agent"
	if atPurchase {
		column = "purchase_user_agent"
	}
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if err := s.update(ctx, repo, working, "set_user_agent", map[string]any{column: agent}); err != nil {
			return err
		}
		if atPurchase {
			working.PurchaseUserAgent = &agent
		} else {
			working.CreateUserAgent = &agent
		}
		return nil
	})
}

// SetExternalPaymentType tags how an externally paid order was settled.
func (s *Service) SetExternalPaymentType(ctx context.Context, order *models.Order, paymentType enums.ExternalPaymentType, userID uuid.UUID) error {
	if !paymentType.IsValid() {
		return pkgerrors.NewValidation("external_payment_type", ReasonInvalidPaymentType, "Unknown external payment type").
			WithParam("external_payment_type", paymentType.String())
	}
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		return s.setExternalPaymentType(ctx, tx, repo, working, paymentType, userID)
	})
}

func (s *Service) setExternalPaymentType(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, paymentType enums.ExternalPaymentType, userID uuid.UUID) error {
	if err := s.update(ctx, repo, order, "set_external_payment_type", map[string]any{"external_payment_type": paymentType}); err != nil {
		return err
	}
	value := paymentType
	order.ExternalPaymentType = &value
	return s.record(ctx, tx, order, userID, enums.DomainEventOrderUpdated, "Order external payment type set", payloads.OrderUpdated{
		OrderID:             order.ID,
		ExternalPaymentType: &value,
	})
}

// AddCheckoutURL stores the hosted checkout page of a provider payment.
func (s *Service) AddCheckoutURL(ctx context.Context, order *models.Order, userID uuid.UUID, checkoutURL string, expiresAt time.Time) error {
	url := strings.TrimSpace(checkoutURL)
	if url == "" {
		return pkgerrors.NewValidation("checkout_url", "required", "Checkout url is required")
	}
	expires := expiresAt.UTC()
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if err := s.update(ctx, repo, working, "add_checkout_url", map[string]any{
			"checkout_url":         url,
			"checkout_url_expires": expires,
		}); err != nil {
			return err
		}
		working.CheckoutURL = &url
		working.CheckoutURLExpires = &expires
		return s.record(ctx, tx, working, userID, enums.DomainEventOrderUpdated, "Order checkout url added", payloads.OrderUpdated{
			OrderID:            working.ID,
			CheckoutURLExpires: &expires,
		})
	})
}
