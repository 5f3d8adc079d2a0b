package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/validators"
)

// NewPayment is the input for appending a payment to an order.
type NewPayment struct {
	OrderID           uuid.UUID             `json:"order_id" validate:"required"`
	CreatedBy         uuid.UUID             `json:"created_by" validate:"required"`
	Status            enums.PaymentStatus   `json:"status" validate:"required"`
	Method            enums.PaymentMethod   `json:"payment_method" validate:"required"`
	Provider          enums.PaymentProvider `json:"provider" validate:"required"`
	ExternalReference *string               `json:"external_reference"`
	Amount            int64                 `json:"amount"`
	ProviderData      json.RawMessage       `json:"provider_data"`
	URLNonce          *string               `json:"url_nonce"`
}

// Ledger appends payments. Rows are never updated; the amount paid on an
// order is the sum of its Completed payments.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Create(ctx context.Context, tx *gorm.DB, input NewPayment) (*models.Payment, error) {
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	if !input.Status.IsValid() || !input.Method.IsValid() || !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment %s/%s/%s", input.Status, input.Method, input.Provider))
	}
	if input.Amount < 0 && input.Status != enums.PaymentStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only refunds carry a negative amount")
	}
	payment := &models.Payment{
		OrderID:           input.OrderID,
		CreatedBy:         input.CreatedBy,
		Status:            input.Status,
		PaymentMethod:     input.Method,
		Provider:          input.Provider,
		ExternalReference: input.ExternalReference,
		Amount:            input.Amount,
		ProviderData:      input.ProviderData,
		URLNonce:          input.URLNonce,
	}
	if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

// RecordRefund appends a Refunded row with a negative amount for a refund
// the caller already issued with the provider.
func (l *Ledger) RecordRefund(ctx context.Context, tx *gorm.DB, orderID, createdBy uuid.UUID, amount int64, method enums.PaymentMethod, provider enums.PaymentProvider, reference *string) (*models.Payment, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	return l.Create(ctx, tx, NewPayment{
		OrderID:           orderID,
		CreatedBy:         createdBy,
		Status:            enums.PaymentStatusRefunded,
		Method:            method,
		Provider:          provider,
		ExternalReference: reference,
		Amount:            -amount,
	})
}

func (l *Ledger) TotalCompleted(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error) {
	var total int64
	err := tx.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusCompleted).
		Scan(&total).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum completed payments")
	}
	return total, nil
}

func (l *Ledger) ListForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return payments, nil
}
