package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/clock"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/logger"
	"github.com/angelmondragon/eventtix-backend/pkg/metrics"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
)

const (
	// CartExpiry is how long a cart holds its reservations after it
	// receives its first item.
	CartExpiry = 15 * time.Minute

	defaultPurchaseCommunicationTTL = 72 * time.Hour

	ReasonOrderNotDraft      = "order_not_draft"
	ReasonCartExpired        = "cart_expired"
	ReasonLimitExceeded      = "limit_per_person_exceeded"
	ReasonMultipleEvents     = "cart_event_limit"
	ReasonItemNotInOrder     = "order_item_mismatch"
	ReasonTicketRequired     = "ticket_instance_required"
	ReasonNotFree            = "order_not_free"
	ReasonInvalidPaymentType = "external_payment_type"

	concurrencyMessage = "Could not update order because it has been updated by another process"
)

// ServiceParams wires the order aggregate to its collaborators.
type ServiceParams struct {
	DB         txRunner
	Repository Repository
	Inventory  InventoryLedger
	Pricing    PricingResolver
	Payments   PaymentLedger
	Recorder   eventRecorder
	Logger     *logger.Logger
	Metrics    *metrics.OrderMetrics
	Clock      clock.Clock

	PurchaseCommunicationTTL time.Duration
}

// Service is the order aggregate. Every mutating operation runs in one
// transaction and is guarded by the order's version column; callers pass the
// order they read and get it back updated on success.
type Service struct {
	db        txRunner
	repo      Repository
	inventory InventoryLedger
	pricing   PricingResolver
	payments  PaymentLedger
	events    eventRecorder
	logg      *logger.Logger
	metrics   *metrics.OrderMetrics
	clock     clock.Clock
	commsTTL  time.Duration
}

// NewService builds the order aggregate with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing resolver required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment ledger required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.PurchaseCommunicationTTL
	if ttl <= 0 {
		ttl = defaultPurchaseCommunicationTTL
	}
	return &Service{
		db:        params.DB,
		repo:      params.Repository,
		inventory: params.Inventory,
		pricing:   params.Pricing,
		payments:  params.Payments,
		events:    params.Recorder,
		logg:      params.Logger,
		metrics:   params.Metrics,
		clock:     clock.OrSystem(params.Clock),
		commsTTL:  ttl,
	}, nil
}

// mutate runs fn in a transaction against a copy of order and copies the
// result back only when the transaction commits.
func (s *Service) mutate(ctx context.Context, order *models.Order, fn func(tx *gorm.DB, repo Repository, working *models.Order) error) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	working := *order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(tx, s.repo.WithTx(tx), &working)
	})
	if err != nil {
		return err
	}
	*order = working
	return nil
}

// Reload returns the current persisted state of an order.
func (s *Service) Reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return loadOrder(ctx, s.repo, orderID)
}

// Items lists every line of an order, children included.
func (s *Service) Items(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	items, err := s.repo.ListItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	return items, nil
}

func loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// update writes updates conditioned on the order's version and advances the
// in-memory copy. A lost race surfaces as a concurrency error.
func (s *Service) update(ctx context.Context, repo Repository, order *models.Order, op string, updates map[string]any) error {
	now := s.clock.Now()
	if updates == nil {
		updates = map[string]any{}
	}
	updates["updated_at"] = now
	ok, err := repo.UpdateVersioned(ctx, order.ID, order.Version, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	if !ok {
		return s.conflict(ctx, order, op)
	}
	order.Version++
	order.UpdatedAt = now
	return nil
}

// lock bumps the version so no other caller can mutate the order until this
// transaction ends.
func (s *Service) lock(ctx context.Context, repo Repository, order *models.Order, op string) error {
	return s.update(ctx, repo, order, op, nil)
}

func (s *Service) conflict(ctx context.Context, order *models.Order, op string) error {
	s.metrics.IncConcurrencyConflict(op)
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"operation": op,
		"version":   order.Version,
	})
	s.logg.Warn(logCtx, "order version conflict")
	return pkgerrors.NewConcurrency(concurrencyMessage)
}

func requireDraft(order *models.Order) error {
	if order.Status != enums.OrderStatusDraft {
		return pkgerrors.NewValidation("status", ReasonOrderNotDraft, "Cannot change the order because it is not a draft").
			WithParam("order_id", order.ID.String()).
			WithParam("status", order.Status.String())
	}
	return nil
}

// transition moves the order to next when the lifecycle allows it.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, next enums.OrderStatus, userID uuid.UUID, extra map[string]any) error {
	if !order.Status.CanTransitionTo(next) {
		return pkgerrors.NewBusinessProcess(fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
	}
	updates := map[string]any{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	previous := order.Status
	if err := s.update(ctx, repo, order, "status_"+next.String(), updates); err != nil {
		return err
	}
	order.Status = next
	return s.record(ctx, tx, order, userID, enums.DomainEventOrderStatusUpdated, "Order status updated", payloads.OrderStatusUpdated{
		OrderID:   order.ID,
		OldStatus: previous,
		NewStatus: next,
	})
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, order *models.Order, userID uuid.UUID, eventType enums.DomainEventType, message string, data any) error {
	actor := userID
	_, err := s.events.Record(ctx, tx, outbox.DomainEvent{
		EventType:   eventType,
		Message:     message,
		Table:       enums.TableOrders,
		EntityID:    order.ID,
		ActorUserID: &actor,
		Data:        data,
	})
	return err
}

func (s *Service) loadItem(ctx context.Context, repo Repository, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	return item, nil
}

func (s *Service) loadHold(ctx context.Context, repo Repository, holdID uuid.UUID) (*models.Hold, error) {
	hold, err := repo.FindHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hold not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hold")
	}
	return hold, nil
}

func (s *Service) loadCode(ctx context.Context, repo Repository, codeID uuid.UUID) (*models.Code, error) {
	code, err := repo.FindCode(ctx, codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	return code, nil
}

func ticketLines(items []models.OrderItem) []models.OrderItem {
	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		if item.ItemType == enums.OrderItemTypeTickets {
			lines = append(lines, item)
		}
	}
	return lines
}

func childOf(items []models.OrderItem, parentID uuid.UUID, itemType enums.OrderItemType) *models.OrderItem {
	for i := range items {
		item := &items[i]
		if item.ItemType == itemType && item.ParentID != nil && *item.ParentID == parentID {
			return item
		}
	}
	return nil
}
