package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOpenCart loads orderID when it is still an open cart of userID. A cart
// without an expiry is open.
func (r *repository) FindOpenCart(ctx context.Context, userID, orderID uuid.UUID, now time.Time) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ? AND order_type = ?",
			orderID, userID, enums.OrderStatusDraft, enums.OrderTypeCart).
		Where("expires_at IS NULL OR expires_at > ?", now).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// InsertCartIfAbsent inserts order unless the user already has a cart with
// live reservations. It reports whether the row was written.
func (r *repository) InsertCartIfAbsent(ctx context.Context, order *models.Order, now time.Time) (bool, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).Exec(`
INSERT INTO orders (id, user_id, status, order_type, order_date, version, box_office_pricing, created_at, updated_at)
SELECT ?, ?, ?, ?, ?, 0, ?, ?, ?
WHERE NOT EXISTS (
  SELECT 1 FROM orders
  WHERE user_id = ? AND status = ? AND order_type = ? AND expires_at > ?
)`,
		order.ID, order.UserID, enums.OrderStatusDraft, enums.OrderTypeCart, now, false, now, now,
		order.UserID, enums.OrderStatusDraft, enums.OrderTypeCart, now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateVersioned applies updates only while the order is still at version
// and bumps the version in the same statement.
func (r *repository) UpdateVersioned(ctx context.Context, orderID uuid.UUID, version int64, updates map[string]any) (bool, error) {
	values := map[string]any{"version": gorm.Expr("version + 1")}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, version).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateExpiry is UpdateVersioned for expires_at. Extending an order also
// requires that it has not already expired.
func (r *repository) UpdateExpiry(ctx context.Context, orderID uuid.UUID, version int64, expiresAt *time.Time, now time.Time) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, version)
	if expiresAt != nil {
		q = q.Where("expires_at IS NULL OR expires_at > ?", now)
	}
	res := q.Updates(map[string]any{
		"expires_at": expiresAt,
		"version":    gorm.Expr("version + 1"),
		"updated_at": now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastCart moves the user's cart pointer from current to next as long
// as neither the pointer nor the user version moved since they were read.
func (r *repository) UpdateLastCart(ctx context.Context, userID uuid.UUID, version int64, current *uuid.UUID, next uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND version = ?", userID, version)
	if current == nil {
		q = q.Where("last_cart_id IS NULL")
	} else {
		q = q.Where("last_cart_id = ?", *current)
	}
	res := q.Updates(map[string]any{
		"last_cart_id": next,
		"version":      gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClearLastCart drops the cart pointer if it still references orderID.
func (r *repository) ClearLastCart(ctx context.Context, userID, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND last_cart_id = ?", userID, orderID).
		Updates(map[string]any{
			"last_cart_id": nil,
			"version":      gorm.Expr("version + 1"),
		}).Error
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

// IncrementRefunded adds quantity to refunded_quantity unless that would
// exceed the item quantity.
func (r *repository) IncrementRefunded(ctx context.Context, itemID uuid.UUID, quantity int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND refunded_quantity + ? <= quantity", itemID, quantity).
		Update("refunded_quantity", gorm.Expr("refunded_quantity + ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteItem removes an item together with its fee and discount children.
func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("parent_id = ?", itemID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.OrderItem{}).Error
}

func (r *repository) DeleteItemsOfType(ctx context.Context, orderID uuid.UUID, itemType enums.OrderItemType) error {
	return r.db.WithContext(ctx).
		Where("order_id = ? AND item_type = ?", orderID, itemType).
		Delete(&models.OrderItem{}).Error
}

func (r *repository) FindHold(ctx context.Context, holdID uuid.UUID) (*models.Hold, error) {
	var hold models.Hold
	if err := r.db.WithContext(ctx).Where("id = ?", holdID).First(&hold).Error; err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *repository) FindCode(ctx context.Context, codeID uuid.UUID) (*models.Code, error) {
	var code models.Code
	if err := r.db.WithContext(ctx).Where("id = ?", codeID).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repository) FindRefundedTicket(ctx context.Context, orderItemID, ticketID uuid.UUID) (*models.RefundedTicket, error) {
	var record models.RefundedTicket
	err := r.db.WithContext(ctx).
		Where("order_item_id = ? AND ticket_instance_id = ?", orderItemID, ticketID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) SaveRefundedTicket(ctx context.Context, record *models.RefundedTicket) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// ownedOrdersClause matches orders placed by the user for themselves or on
// their behalf by someone else.
const ownedOrdersClause = "((o.user_id = ? AND o.on_behalf_of_user_id IS NULL) OR o.on_behalf_of_user_id = ?)"

// QuantityForUser counts the tickets of one (ticket type, hold) pair the
// user holds: purchased, redeemed, or reserved and not yet expired.
func (r *repository) QuantityForUser(ctx context.Context, userID, ticketTypeID uuid.UUID, holdID *uuid.UUID, now time.Time) (int64, error) {
	q := r.heldTickets(ctx, userID, now).
		Where("oi.ticket_type_id = ?", ticketTypeID)
	if holdID == nil {
		q = q.Where("oi.hold_id IS NULL")
	} else {
		q = q.Where("oi.hold_id = ?", *holdID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// QuantityForUserForEvent is QuantityForUser summed per ticket type across
// every hold of an event.
func (r *repository) QuantityForUserForEvent(ctx context.Context, userID, eventID uuid.UUID, now time.Time) (map[uuid.UUID]int64, error) {
	var rows []struct {
		TicketTypeID uuid.UUID
		Quantity     int64
	}
	err := r.heldTickets(ctx, userID, now).
		Where("oi.event_id = ?", eventID).
		Select("oi.ticket_type_id AS ticket_type_id, COUNT(*) AS quantity").
		Group("oi.ticket_type_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.TicketTypeID] = row.Quantity
	}
	return out, nil
}

func (r *repository) heldTickets(ctx context.Context, userID uuid.UUID, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.TicketInstance{}).
		Joins("JOIN order_items oi ON oi.id = ticket_instances.order_item_id").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.item_type = ?", enums.OrderItemTypeTickets).
		Where(ownedOrdersClause, userID, userID).
		Where("(ticket_instances.status IN ?) OR (ticket_instances.status = ? AND ticket_instances.reserved_until > ?)",
			[]enums.TicketInstanceStatus{enums.TicketInstanceStatusPurchased, enums.TicketInstanceStatusRedeemed},
			enums.TicketInstanceStatusReserved, now)
}
