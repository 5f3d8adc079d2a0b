package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

func create(t testing.TB, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}

func User(t testing.TB, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Email: uuid.NewString() + "@example.com"}
	create(t, db, user)
	return user
}

// Event seeds an event with an optional fee schedule.
func Event(t testing.TB, db *gorm.DB, eventFee int64, schedule *models.FeeSchedule) *models.Event {
	t.Helper()
	event := &models.Event{Name: "Launch Party", CompanyFeeInCents: eventFee}
	if schedule != nil {
		event.FeeScheduleID = &schedule.ID
	}
	create(t, db, event)
	return event
}

// FeeSchedule seeds a schedule whose ranges are keyed by minimum price.
func FeeSchedule(t testing.TB, db *gorm.DB, ranges ...models.FeeScheduleRange) *models.FeeSchedule {
	t.Helper()
	schedule := &models.FeeSchedule{Name: "Standard", Ranges: ranges}
	create(t, db, schedule)
	return schedule
}

func TicketType(t testing.TB, db *gorm.DB, eventID uuid.UUID, limitPerPerson int) *models.TicketType {
	t.Helper()
	tt := &models.TicketType{EventID: eventID, Name: "General Admission", LimitPerPerson: limitPerPerson}
	create(t, db, tt)
	return tt
}

// Pricing seeds a Published pricing active from start until a year later.
func Pricing(t testing.TB, db *gorm.DB, ticketTypeID uuid.UUID, price int64, start time.Time, boxOfficeOnly bool) *models.TicketPricing {
	t.Helper()
	pricing := &models.TicketPricing{
		TicketTypeID:    ticketTypeID,
		Name:            "Standard",
		PriceInCents:    price,
		StartDate:       start.UTC(),
		EndDate:         start.UTC().AddDate(1, 0, 0),
		IsBoxOfficeOnly: boxOfficeOnly,
		Status:          enums.TicketPricingStatusPublished,
	}
	create(t, db, pricing)
	return pricing
}

func Hold(t testing.TB, db *gorm.DB, tt *models.TicketType, holdType enums.HoldType, discount int64, maxPerUser int) *models.Hold {
	t.Helper()
	hold := &models.Hold{
		Name:            "VIP",
		EventID:         tt.EventID,
		TicketTypeID:    tt.ID,
		RedemptionCode:  "HOLD" + uuid.NewString()[:8],
		HoldType:        holdType,
		DiscountInCents: discount,
		MaxPerUser:      maxPerUser,
	}
	create(t, db, hold)
	return hold
}

// Code seeds a code valid from start for a year.
func Code(t testing.TB, db *gorm.DB, eventID uuid.UUID, codeType enums.CodeType, start time.Time, discount, percentage *int64) *models.Code {
	t.Helper()
	code := &models.Code{
		Name:                 "Promo",
		EventID:              eventID,
		CodeType:             codeType,
		RedemptionCode:       "CODE" + uuid.NewString()[:8],
		DiscountInCents:      discount,
		DiscountAsPercentage: percentage,
		StartDate:            start.UTC(),
		EndDate:              start.UTC().AddDate(1, 0, 0),
	}
	create(t, db, code)
	return code
}

// Tickets seeds n Available instances.
func Tickets(t testing.TB, db *gorm.DB, ticketTypeID uuid.UUID, holdID *uuid.UUID, n int) []models.TicketInstance {
	t.Helper()
	tickets := make([]models.TicketInstance, n)
	for i := range tickets {
		key := uuid.NewString()[:10]
		tickets[i] = models.TicketInstance{
			TicketTypeID: ticketTypeID,
			HoldID:       holdID,
			Status:       enums.TicketInstanceStatusAvailable,
			RedeemKey:    &key,
		}
	}
	create(t, db, &tickets)
	return tickets
}

// Order seeds a Draft cart for user.
func Order(t testing.TB, db *gorm.DB, userID uuid.UUID, now time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:    userID,
		Status:    enums.OrderStatusDraft,
		OrderType: enums.OrderTypeCart,
		OrderDate: now.UTC(),
	}
	create(t, db, order)
	return order
}

// TicketItem seeds a Tickets line without reserving inventory.
func TicketItem(t testing.TB, db *gorm.DB, orderID uuid.UUID, tt *models.TicketType, pricing *models.TicketPricing, quantity int64) *models.OrderItem {
	t.Helper()
	eventID := tt.EventID
	ttID := tt.ID
	item := &models.OrderItem{
		OrderID:          orderID,
		ItemType:         enums.OrderItemTypeTickets,
		Quantity:         quantity,
		UnitPriceInCents: pricing.PriceInCents,
		TicketTypeID:     &ttID,
		TicketPricingID:  &pricing.ID,
		EventID:          &eventID,
	}
	create(t, db, item)
	return item
}
