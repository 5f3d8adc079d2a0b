package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/clock"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
)

const (
	ReasonNoActivePricing    = "no_active_pricing"
	ReasonInvalidRedemption  = "redemption_code"
	ReasonHoldExpired        = "hold_expired"
	ReasonCodeInvalid        = "code_invalid"
	ReasonCodeMaxUsesReached = "code_max_uses_reached"

	invalidRedemptionMessage = "Redemption code is not valid"
	hundred                  = 100
)

// Resolver answers price questions for the order flow. Every lookup runs on
// the caller's transaction.
type Resolver struct {
	clock clock.Clock
}

func NewResolver(c clock.Clock) *Resolver {
	return &Resolver{clock: clock.OrSystem(c)}
}

// Current returns the pricing active now. Box office carts prefer a box
// office only pricing and fall back to a regular one; other carts never see
// box office only pricings.
func (r *Resolver) Current(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, boxOffice, excludeBoxOfficeOnly bool) (*models.TicketPricing, error) {
	now := r.clock.Now()
	var candidates []models.TicketPricing
	err := tx.WithContext(ctx).
		Where("ticket_type_id = ? AND status = ? AND start_date <= ? AND end_date > ?",
			ticketTypeID, enums.TicketPricingStatusPublished, now, now).
		Order("start_date DESC, created_at DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket pricing")
	}

	var regular, boxOfficeOnly *models.TicketPricing
	for i := range candidates {
		p := &candidates[i]
		if p.IsBoxOfficeOnly {
			if boxOfficeOnly == nil {
				boxOfficeOnly = p
			}
			continue
		}
		if regular == nil {
			regular = p
		}
	}
	if boxOffice && !excludeBoxOfficeOnly && boxOfficeOnly != nil {
		return boxOfficeOnly, nil
	}
	if regular != nil {
		return regular, nil
	}
	return nil, pkgerrors.NewValidation("ticket_type_id", ReasonNoActivePricing, "No ticket pricing found").
		WithParam("ticket_type_id", ticketTypeID.String())
}

// ApplyRedemption prices a ticket line. Discount holds and Access codes take
// cents off the face price floored at zero, Comp holds are free and Discount
// codes keep the face price (the discount lives on a child line).
func ApplyRedemption(price int64, hold *models.Hold, code *models.Code) int64 {
	if hold != nil {
		switch hold.HoldType {
		case enums.HoldTypeComp:
			return 0
		case enums.HoldTypeDiscount:
			return floorZero(price - hold.DiscountInCents)
		default:
			panic(fmt.Sprintf("unhandled hold type %q", hold.HoldType))
		}
	}
	if code != nil {
		switch code.CodeType {
		case enums.CodeTypeAccess:
			return floorZero(price - valueOr(code.DiscountInCents))
		case enums.CodeTypeDiscount:
			return price
		default:
			panic(fmt.Sprintf("unhandled code type %q", code.CodeType))
		}
	}
	return price
}

// DiscountForCode is the per unit discount of a Discount code, as a positive
// amount capped at the unit price. Cents take precedence over percentage;
// percentages round half up.
func DiscountForCode(code models.Code, unitPrice int64) int64 {
	if code.CodeType != enums.CodeTypeDiscount || unitPrice <= 0 {
		return 0
	}
	var discount int64
	if cents := valueOr(code.DiscountInCents); cents > 0 {
		discount = cents
	} else if pct := valueOr(code.DiscountAsPercentage); pct > 0 {
		discount = decimal.NewFromInt(unitPrice).
			Mul(decimal.NewFromInt(pct)).
			Div(decimal.NewFromInt(hundred)).
			Round(0).
			IntPart()
	}
	if discount > unitPrice {
		return unitPrice
	}
	return discount
}

// PerUnitFee returns the fee schedule range covering netPrice for the
// event, or nil when the event has no schedule or no range applies.
func (r *Resolver) PerUnitFee(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, netPrice int64) (*models.FeeScheduleRange, error) {
	event, err := r.Event(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if event.FeeScheduleID == nil {
		return nil, nil
	}
	var feeRange models.FeeScheduleRange
	err = tx.WithContext(ctx).
		Where("fee_schedule_id = ? AND min_price_in_cents <= ?", *event.FeeScheduleID, netPrice).
		Order("min_price_in_cents DESC").
		First(&feeRange).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fee schedule range")
	}
	return &feeRange, nil
}

func (r *Resolver) Event(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := tx.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load event")
	}
	return &event, nil
}

func (r *Resolver) TicketType(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID) (*models.TicketType, error) {
	var tt models.TicketType
	if err := tx.WithContext(ctx).Where("id = ?", ticketTypeID).First(&tt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket type not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket type")
	}
	return &tt, nil
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func valueOr(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}
