package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/internal/inventory"
	"github.com/angelmondragon/eventtix-backend/internal/pricing"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/eventtix-backend/pkg/validators"
)

type quantityRequest struct {
	key        lineKey
	quantity   int64
	ticketType *models.TicketType
	redemption pricing.Redemption
	matched    bool
}

// UpdateQuantities makes the cart hold the requested quantity of each
// (ticket type, redemption code) pair. Lines for pairs not mentioned are
// kept unless removeOthers is set. The whole call either applies or leaves
// the cart untouched.
func (s *Service) UpdateQuantities(ctx context.Context, order *models.Order, userID uuid.UUID, items []QuantityInput, boxOfficePricing, removeOthers bool) error {
	for i := range items {
		if err := validators.Struct(items[i]); err != nil {
			return err
		}
	}
	return s.mutate(ctx, order, func(tx *gorm.DB, repo Repository, working *models.Order) error {
		if err := requireDraft(working); err != nil {
			return err
		}
		if expired(working, s.clock.Now()) {
			return pkgerrors.NewValidation("expires_at", ReasonCartExpired, "Cart has expired").
				WithParam("order_id", working.ID.String())
		}
		if err := s.lock(ctx, repo, working, "update_quantities"); err != nil {
			return err
		}

		requests, err := s.resolveRequests(ctx, tx, working, items)
		if err != nil {
			return err
		}

		if working.BoxOfficePricing != boxOfficePricing {
			if err := s.switchPricingMode(ctx, tx, repo, working, boxOfficePricing, userID); err != nil {
				return err
			}
		}

		current, err := repo.ListItems(ctx, working.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
		}
		groups, keys := groupLines(ticketLines(current))

		var grown []*quantityRequest
		for _, key := range keys {
			group := groups[key]
			req := takeRequest(requests, key)
			if req == nil {
				if !removeOthers {
					continue
				}
				for _, line := range group {
					if err := s.destroyLine(ctx, tx, repo, line, userID); err != nil {
						return err
					}
				}
				continue
			}

			var have int64
			for _, line := range group {
				have += line.Quantity
			}
			switch {
			case req.quantity < have:
				if err := s.shrink(ctx, tx, repo, group, have-req.quantity, userID); err != nil {
					return err
				}
			case req.quantity > have:
				if err := s.ensureExpiry(ctx, tx, repo, working, userID); err != nil {
					return err
				}
				if err := s.grow(ctx, tx, repo, working, req, group[len(group)-1], req.quantity-have); err != nil {
					return err
				}
				grown = append(grown, req)
			}
		}

		for _, req := range requests {
			if req.matched || req.quantity == 0 {
				continue
			}
			if err := s.ensureExpiry(ctx, tx, repo, working, userID); err != nil {
				return err
			}
			price, err := s.pricing.Current(ctx, tx, req.ticketType.ID, working.BoxOfficePricing, false)
			if err != nil {
				return err
			}
			if err := s.addLine(ctx, tx, repo, working, req, price, req.quantity); err != nil {
				return err
			}
			grown = append(grown, req)
		}

		if err := s.enforceLimits(ctx, repo, working, grown); err != nil {
			return err
		}
		if err := s.recomputeFees(ctx, tx, repo, working); err != nil {
			return err
		}
		remaining, err := s.checkSingleEvent(ctx, repo, working)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return s.clearExpiry(ctx, tx, repo, working, userID)
		}
		return nil
	})
}

// resolveRequests loads the ticket type and redemption of every input and
// folds inputs with the same identity into one request.
func (s *Service) resolveRequests(ctx context.Context, tx *gorm.DB, order *models.Order, items []QuantityInput) ([]*quantityRequest, error) {
	requests := make([]*quantityRequest, 0, len(items))
	for _, input := range items {
		tt, err := s.pricing.TicketType(ctx, tx, input.TicketTypeID)
		if err != nil {
			return nil, err
		}
		redemption, err := s.pricing.Resolve(ctx, tx, input.RedemptionCode, *tt, order.ID)
		if err != nil {
			return nil, err
		}
		key := keyFor(tt.ID, redemption.HoldID(), redemption.CodeID())
		if existing := findRequest(requests, key); existing != nil {
			existing.quantity += input.Quantity
			continue
		}
		requests = append(requests, &quantityRequest{
			key:        key,
			quantity:   input.Quantity,
			ticketType: tt,
			redemption: redemption,
		})
	}
	return requests, nil
}

func findRequest(requests []*quantityRequest, key lineKey) *quantityRequest {
	for _, req := range requests {
		if req.key == key {
			return req
		}
	}
	return nil
}

func takeRequest(requests []*quantityRequest, key lineKey) *quantityRequest {
	req := findRequest(requests, key)
	if req == nil || req.matched {
		return nil
	}
	req.matched = true
	return req
}

// groupLines buckets Tickets lines by identity, keeping creation order
// inside each bucket and across buckets.
func groupLines(lines []models.OrderItem) (map[lineKey][]models.OrderItem, []lineKey) {
	groups := make(map[lineKey][]models.OrderItem)
	var keys []lineKey
	for _, line := range lines {
		if line.TicketTypeID == nil {
			continue
		}
		key := keyFor(*line.TicketTypeID, line.HoldID, line.CodeID)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], line)
	}
	return groups, keys
}

func (s *Service) switchPricingMode(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, boxOffice bool, userID uuid.UUID) error {
	if err := s.clearTickets(ctx, tx, repo, order, userID); err != nil {
		return err
	}
	if err := s.update(ctx, repo, order, "box_office_pricing", map[string]any{"box_office_pricing": boxOffice}); err != nil {
		return err
	}
	order.BoxOfficePricing = boxOffice
	flag := boxOffice
	return s.record(ctx, tx, order, userID, enums.DomainEventOrderUpdated, "Order pricing mode changed", payloads.OrderUpdated{
		OrderID:          order.ID,
		BoxOfficePricing: &flag,
	})
}

func (s *Service) ensureExpiry(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, userID uuid.UUID) error {
	if order.ExpiresAt != nil {
		return nil
	}
	return s.setExpiry(ctx, tx, repo, order, s.clock.Now().Add(CartExpiry), userID)
}

// shrink gives back delta units, newest lines first, destroying lines that
// reach zero.
func (s *Service) shrink(ctx context.Context, tx *gorm.DB, repo Repository, group []models.OrderItem, delta int64, userID uuid.UUID) error {
	for i := len(group) - 1; i >= 0 && delta > 0; i-- {
		line := group[i]
		take := min(delta, line.Quantity)
		delta -= take
		if take == line.Quantity {
			if err := s.destroyLine(ctx, tx, repo, line, userID); err != nil {
				return err
			}
			continue
		}
		if _, err := s.inventory.Release(ctx, tx, line.ID, take, userID); err != nil {
			return err
		}
		if err := repo.UpdateItem(ctx, line.ID, map[string]any{
			"quantity":   line.Quantity - take,
			"updated_at": s.clock.Now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shrink order item")
		}
	}
	return nil
}

// grow adds delta units. The newest line takes them when it is still at the
// current pricing; otherwise a new line at the current price carries them.
func (s *Service) grow(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, req *quantityRequest, newest models.OrderItem, delta int64) error {
	price, err := s.pricing.Current(ctx, tx, req.ticketType.ID, order.BoxOfficePricing, false)
	if err != nil {
		return err
	}
	if newest.TicketPricingID == nil || *newest.TicketPricingID != price.ID {
		return s.addLine(ctx, tx, repo, order, req, price, delta)
	}
	if _, err := s.inventory.Reserve(ctx, tx, inventory.ReserveRequest{
		OrderItemID:  newest.ID,
		ExpiresAt:    *order.ExpiresAt,
		TicketTypeID: req.ticketType.ID,
		HoldID:       req.redemption.HoldID(),
		Quantity:     delta,
	}); err != nil {
		return err
	}
	if err := repo.UpdateItem(ctx, newest.ID, map[string]any{
		"quantity":   newest.Quantity + delta,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grow order item")
	}
	return nil
}

func (s *Service) addLine(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, req *quantityRequest, price *models.TicketPricing, quantity int64) error {
	ticketTypeID := req.ticketType.ID
	eventID := req.ticketType.EventID
	pricingID := price.ID
	line := &models.OrderItem{
		OrderID:          order.ID,
		ItemType:         enums.OrderItemTypeTickets,
		Quantity:         quantity,
		UnitPriceInCents: pricing.ApplyRedemption(price.PriceInCents, req.redemption.Hold, req.redemption.Code),
		TicketTypeID:     &ticketTypeID,
		TicketPricingID:  &pricingID,
		HoldID:           req.redemption.HoldID(),
		CodeID:           req.redemption.CodeID(),
		EventID:          &eventID,
	}
	if err := repo.CreateItem(ctx, line); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
	}
	_, err := s.inventory.Reserve(ctx, tx, inventory.ReserveRequest{
		OrderItemID:  line.ID,
		ExpiresAt:    *order.ExpiresAt,
		TicketTypeID: ticketTypeID,
		HoldID:       line.HoldID,
		Quantity:     quantity,
	})
	return err
}

// enforceLimits rejects the update when the owner now holds more of a
// (ticket type, hold) pair than its per person limit allows.
func (s *Service) enforceLimits(ctx context.Context, repo Repository, order *models.Order, grown []*quantityRequest) error {
	now := s.clock.Now()
	owner := order.Owner()
	for _, req := range grown {
		limit := int64(req.ticketType.LimitPerPerson)
		message := "Exceeded limit per person per event"
		if req.redemption.Hold != nil {
			limit = int64(req.redemption.Hold.MaxPerUser)
			message = "Exceeded limit per person per hold"
		}
		if limit <= 0 {
			continue
		}
		holdID := req.redemption.HoldID()
		held, err := repo.QuantityForUser(ctx, owner, req.ticketType.ID, holdID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count tickets for user")
		}
		if held <= limit {
			continue
		}
		verr := pkgerrors.NewValidation("quantity", ReasonLimitExceeded, message).
			WithParam("limit_per_person", limit).
			WithParam("ticket_type_id", req.ticketType.ID.String()).
			WithParam("attempted_quantity", held)
		if holdID != nil {
			verr = verr.WithParam("hold_id", holdID.String())
		}
		return verr
	}
	return nil
}

// checkSingleEvent fails when the cart mixes events and returns how many
// Tickets lines remain.
func (s *Service) checkSingleEvent(ctx context.Context, repo Repository, order *models.Order) (int, error) {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	lines := ticketLines(items)
	var eventID *uuid.UUID
	for _, line := range lines {
		if line.EventID == nil {
			continue
		}
		if eventID == nil {
			eventID = line.EventID
			continue
		}
		if *eventID != *line.EventID {
			return 0, pkgerrors.NewValidation("ticket_type_id", ReasonMultipleEvents, "Cart can only contain tickets for one event").
				WithParam("event_id", eventID.String()).
				WithParam("other_event_id", line.EventID.String())
		}
	}
	return len(lines), nil
}
