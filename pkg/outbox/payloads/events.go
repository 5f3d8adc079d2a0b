package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// OrderCreated is recorded when a cart is opened for a user.
type OrderCreated struct {
	OrderID   uuid.UUID       `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	OrderType enums.OrderType `json:"order_type"`
}

// OrderUpdated carries the order attributes that changed. Unchanged fields
// are omitted.
type OrderUpdated struct {
	OrderID             uuid.UUID                  `json:"order_id"`
	OldExpiresAt        *time.Time                 `json:"old_expires_at,omitempty"`
	NewExpiresAt        *time.Time                 `json:"new_expires_at,omitempty"`
	BoxOfficePricing    *bool                      `json:"box_office_pricing,omitempty"`
	ExternalPaymentType *enums.ExternalPaymentType `json:"external_payment_type,omitempty"`
	CheckoutURLExpires  *time.Time                 `json:"checkout_url_expires,omitempty"`
}

type OrderStatusUpdated struct {
	OrderID   uuid.UUID         `json:"order_id"`
	OldStatus enums.OrderStatus `json:"old_status"`
	NewStatus enums.OrderStatus `json:"new_status"`
}

// OrderCompleted lists every ticket issued by the purchase.
type OrderCompleted struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OwnerUserID uuid.UUID   `json:"owner_user_id"`
	TicketIDs   []uuid.UUID `json:"ticket_ids"`
}

type OrderBehalfOfUserChanged struct {
	OrderID   uuid.UUID  `json:"order_id"`
	OldUserID *uuid.UUID `json:"old_user_id,omitempty"`
	NewUserID *uuid.UUID `json:"new_user_id,omitempty"`
}

type PaymentCreated struct {
	OrderID   uuid.UUID             `json:"order_id"`
	PaymentID uuid.UUID             `json:"payment_id"`
	Status    enums.PaymentStatus   `json:"status"`
	Method    enums.PaymentMethod   `json:"payment_method"`
	Provider  enums.PaymentProvider `json:"provider"`
	Amount    int64                 `json:"amount"`
}

// RefundedUnit is one unit returned by a refund call.
type RefundedUnit struct {
	OrderItemID      uuid.UUID           `json:"order_item_id"`
	ItemType         enums.OrderItemType `json:"item_type"`
	TicketInstanceID *uuid.UUID          `json:"ticket_instance_id,omitempty"`
	AmountInCents    int64               `json:"amount_in_cents"`
}

type PaymentRefund struct {
	OrderID         uuid.UUID      `json:"order_id"`
	RefundedInCents int64          `json:"refunded_in_cents"`
	Units           []RefundedUnit `json:"units"`
}

type TicketInstancePurchased struct {
	TicketInstanceID uuid.UUID `json:"ticket_instance_id"`
	OrderItemID      uuid.UUID `json:"order_item_id"`
	OwnerUserID      uuid.UUID `json:"owner_user_id"`
}

type TicketInstanceReleased struct {
	TicketInstanceID uuid.UUID `json:"ticket_instance_id"`
	OrderItemID      uuid.UUID `json:"order_item_id"`
	Reason           string    `json:"reason"`
}

type TicketInstanceRedeemed struct {
	TicketInstanceID uuid.UUID `json:"ticket_instance_id"`
	RedeemedByUserID uuid.UUID `json:"redeemed_by_user_id"`
}

type TicketInstanceNullified struct {
	TicketInstanceID uuid.UUID `json:"ticket_instance_id"`
	TicketTypeID     uuid.UUID `json:"ticket_type_id"`
}

// SendPurchaseCompletedCommunication is the payload of the post purchase
// domain action.
type SendPurchaseCompletedCommunication struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}
