package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
)

// RedeemResult distinguishes check-in outcomes that are not errors.
type RedeemResult string

const (
	RedeemSuccess         RedeemResult = "Success"
	RedeemAlreadyRedeemed RedeemResult = "AlreadyRedeemed"
	RedeemTicketInvalid   RedeemResult = "TicketInvalid"
)

// Redeem checks a Purchased ticket in. A wrong key or a ticket that was
// never sold yields TicketInvalid; a second scan yields AlreadyRedeemed.
func (l *Ledger) Redeem(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID, redeemKey string, userID uuid.UUID) (RedeemResult, error) {
	ticket, err := l.Find(ctx, tx, ticketID)
	if err != nil {
		return "", err
	}
	switch ticket.Status {
	case enums.TicketInstanceStatusRedeemed:
		return RedeemAlreadyRedeemed, nil
	case enums.TicketInstanceStatusPurchased:
	default:
		return RedeemTicketInvalid, nil
	}
	if ticket.RedeemKey == nil || *ticket.RedeemKey != redeemKey {
		return RedeemTicketInvalid, nil
	}

	now := l.clock.Now()
	res := tx.WithContext(ctx).
		Model(&models.TicketInstance{}).
		Where("id = ? AND status = ?", ticketID, enums.TicketInstanceStatusPurchased).
		Updates(map[string]any{
			"status":              enums.TicketInstanceStatusRedeemed,
			"redeemed_at":         now,
			"redeemed_by_user_id": userID,
			"updated_at":          now,
		})
	if res.Error != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "redeem ticket")
	}
	if res.RowsAffected == 0 {
		return RedeemAlreadyRedeemed, nil
	}

	if _, err := l.events.Record(ctx, tx, outbox.DomainEvent{
		EventType:   enums.DomainEventTicketInstanceRedeemed,
		Message:     "Ticket redeemed",
		Table:       enums.TableTicketInstances,
		EntityID:    ticketID,
		ActorUserID: &userID,
		Data: payloads.TicketInstanceRedeemed{
			TicketInstanceID: ticketID,
			RedeemedByUserID: userID,
		},
	}); err != nil {
		return "", err
	}
	return RedeemSuccess, nil
}
