package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/internal/inventory"
	"github.com/angelmondragon/eventtix-backend/internal/payments"
	"github.com/angelmondragon/eventtix-backend/internal/pricing"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
)

// Repository defines persistence operations for orders, their items and the
// buyer's cart pointer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOpenCart(ctx context.Context, userID, orderID uuid.UUID, now time.Time) (*models.Order, error)
	InsertCartIfAbsent(ctx context.Context, order *models.Order, now time.Time) (bool, error)
	UpdateVersioned(ctx context.Context, orderID uuid.UUID, version int64, updates map[string]any) (bool, error)
	UpdateExpiry(ctx context.Context, orderID uuid.UUID, version int64, expiresAt *time.Time, now time.Time) (bool, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateLastCart(ctx context.Context, userID uuid.UUID, version int64, current *uuid.UUID, next uuid.UUID) (bool, error)
	ClearLastCart(ctx context.Context, userID, orderID uuid.UUID) error
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	CreateItem(ctx context.Context, item *models.OrderItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	IncrementRefunded(ctx context.Context, itemID uuid.UUID, quantity int64) (bool, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItemsOfType(ctx context.Context, orderID uuid.UUID, itemType enums.OrderItemType) error
	FindHold(ctx context.Context, holdID uuid.UUID) (*models.Hold, error)
	FindCode(ctx context.Context, codeID uuid.UUID) (*models.Code, error)
	FindRefundedTicket(ctx context.Context, orderItemID, ticketID uuid.UUID) (*models.RefundedTicket, error)
	SaveRefundedTicket(ctx context.Context, record *models.RefundedTicket) error
	QuantityForUser(ctx context.Context, userID, ticketTypeID uuid.UUID, holdID *uuid.UUID, now time.Time) (int64, error)
	QuantityForUserForEvent(ctx context.Context, userID, eventID uuid.UUID, now time.Time) (map[uuid.UUID]int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (*models.DomainEvent, error)
	Schedule(ctx context.Context, tx *gorm.DB, action outbox.DomainAction, expiresIn time.Duration) (*models.DomainAction, error)
}

// InventoryLedger claims and releases ticket instances for order items.
type InventoryLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, req inventory.ReserveRequest) ([]uuid.UUID, error)
	Release(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID, quantity int64, userID uuid.UUID) (int64, error)
	ReleaseInstance(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID, userID uuid.UUID) (bool, error)
	MarkAsPurchased(ctx context.Context, tx *gorm.DB, item models.OrderItem, ownerUserID uuid.UUID) ([]uuid.UUID, error)
	UpdateReservedTime(ctx context.Context, tx *gorm.DB, orderItemIDs []uuid.UUID, reservedUntil time.Time) (int64, error)
	ListForItem(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) ([]models.TicketInstance, error)
	Find(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID) (*models.TicketInstance, error)
	WasTransferred(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID) (bool, error)
}

// PricingResolver prices ticket lines and validates redemption codes.
type PricingResolver interface {
	Current(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, boxOffice, excludeBoxOfficeOnly bool) (*models.TicketPricing, error)
	Resolve(ctx context.Context, tx *gorm.DB, redemptionCode string, tt models.TicketType, orderID uuid.UUID) (pricing.Redemption, error)
	CheckCode(ctx context.Context, tx *gorm.DB, code models.Code, excludeOrderID uuid.UUID) error
	PerUnitFee(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, netPrice int64) (*models.FeeScheduleRange, error)
	Event(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) (*models.Event, error)
	TicketType(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID) (*models.TicketType, error)
}

// PaymentLedger appends payments and sums what has been collected.
type PaymentLedger interface {
	Create(ctx context.Context, tx *gorm.DB, input payments.NewPayment) (*models.Payment, error)
	TotalCompleted(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error)
}
