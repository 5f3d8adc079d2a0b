package orders

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// QuantityInput is one requested cart line: the total quantity the buyer
// wants of a ticket type, optionally through a redemption code.
type QuantityInput struct {
	TicketTypeID   uuid.UUID `json:"ticket_type_id" validate:"required"`
	Quantity       int64     `json:"quantity" validate:"gte=0"`
	RedemptionCode string    `json:"redemption_code,omitempty" validate:"max=255"`
}

// RefundItem names one unit to refund. Tickets and PerUnitFees items need
// the physical ticket the unit belongs to.
type RefundItem struct {
	OrderItemID      uuid.UUID  `json:"order_item_id" validate:"required"`
	TicketInstanceID *uuid.UUID `json:"ticket_instance_id,omitempty"`
}

// ProviderPayment is a payment settled or requested through a payment
// provider.
type ProviderPayment struct {
	Provider          enums.PaymentProvider `json:"provider" validate:"required"`
	Status            enums.PaymentStatus   `json:"status" validate:"required"`
	Amount            int64                 `json:"amount" validate:"gte=0"`
	ExternalReference *string               `json:"external_reference,omitempty"`
	ProviderData      json.RawMessage       `json:"provider_data,omitempty"`
	URLNonce          *string               `json:"url_nonce,omitempty"`
}

// InvalidItem reports a cart line that can no longer be checked out.
type InvalidItem struct {
	OrderItemID uuid.UUID            `json:"order_item_id"`
	Status      enums.CartItemStatus `json:"status"`
}

// lineKey identifies a Tickets line by what it was bought through.
type lineKey struct {
	ticketTypeID uuid.UUID
	holdID       uuid.UUID
	codeID       uuid.UUID
}

func keyFor(ticketTypeID uuid.UUID, holdID, codeID *uuid.UUID) lineKey {
	key := lineKey{ticketTypeID: ticketTypeID}
	if holdID != nil {
		key.holdID = *holdID
	}
	if codeID != nil {
		key.codeID = *codeID
	}
	return key
}
