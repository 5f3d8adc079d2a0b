package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
)

// Redemption is what a redemption code resolved to. At most one of Hold and
// Code is set.
type Redemption struct {
	Hold *models.Hold
	Code *models.Code
}

func (r Redemption) HoldID() *uuid.UUID {
	if r.Hold == nil {
		return nil
	}
	id := r.Hold.ID
	return &id
}

func (r Redemption) CodeID() *uuid.UUID {
	if r.Code == nil {
		return nil
	}
	id := r.Code.ID
	return &id
}

// Resolve looks a redemption code up as a hold first, then as a code, and
// checks it may be used now for the ticket type. An empty code resolves to
// an empty Redemption. Uses of a code by orderID do not count against its
// limit.
func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, redemptionCode string, tt models.TicketType, orderID uuid.UUID) (Redemption, error) {
	code := normalizeCode(redemptionCode)
	if code == "" {
		return Redemption{}, nil
	}
	now := r.clock.Now()

	var hold models.Hold
	err := tx.WithContext(ctx).Where("redemption_code = ?", code).First(&hold).Error
	switch {
	case err == nil:
		if hold.TicketTypeID != tt.ID {
			return Redemption{}, invalidRedemption(code)
		}
		if hold.ExpiredAt(now) {
			return Redemption{}, pkgerrors.NewValidation("redemption_code", ReasonHoldExpired, "Hold has expired").
				WithParam("hold_id", hold.ID.String())
		}
		return Redemption{Hold: &hold}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Redemption{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hold")
	}

	var found models.Code
	err = tx.WithContext(ctx).Where("redemption_code = ?", code).First(&found).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Redemption{}, invalidRedemption(code)
		}
		return Redemption{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	if found.EventID != tt.EventID {
		return Redemption{}, invalidRedemption(code)
	}
	if err := r.CheckCode(ctx, tx, found, orderID); err != nil {
		return Redemption{}, err
	}
	return Redemption{Code: &found}, nil
}

// CheckCode validates the redemption window and the use limit of a code.
// Uses by excludeOrderID do not count against the limit.
func (r *Resolver) CheckCode(ctx context.Context, tx *gorm.DB, code models.Code, excludeOrderID uuid.UUID) error {
	now := r.clock.Now()
	if !code.ValidAt(now) {
		return pkgerrors.NewValidation("redemption_code", ReasonCodeInvalid, "Code not valid for current datetime").
			WithParam("code_id", code.ID.String())
	}
	if code.MaxUses <= 0 {
		return nil
	}
	uses, err := r.CodeUses(ctx, tx, code.ID, excludeOrderID)
	if err != nil {
		return err
	}
	if uses >= code.MaxUses {
		return pkgerrors.NewValidation("redemption_code", ReasonCodeMaxUsesReached, "Redemption code has reached its maximum uses").
			WithParam("code_id", code.ID.String()).
			WithParam("max_uses", code.MaxUses)
	}
	return nil
}

// CodeUses counts orders holding the code: paid or awaiting payment, plus
// carts that have not expired.
func (r *Resolver) CodeUses(ctx context.Context, tx *gorm.DB, codeID uuid.UUID, excludeOrderID uuid.UUID) (int64, error) {
	now := r.clock.Now()
	var uses int64
	q := tx.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders o ON o.id = order_items.order_id").
		Where("order_items.code_id = ? AND order_items.item_type = ?", codeID, enums.OrderItemTypeTickets).
		Where("(o.status IN ?) OR (o.status = ? AND o.expires_at > ?)",
			[]enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusPendingPayment},
			enums.OrderStatusDraft, now)
	if excludeOrderID != uuid.Nil {
		q = q.Where("o.id <> ?", excludeOrderID)
	}
	if err := q.Distinct("o.id").Count(&uses).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count code uses")
	}
	return uses, nil
}

func invalidRedemption(code string) error {
	return pkgerrors.NewValidation("redemption_code", ReasonInvalidRedemption, invalidRedemptionMessage).
		WithParam("redemption_code", code)
}
