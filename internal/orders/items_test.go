package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/eventtix-backend/pkg/db/dbtest"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

func TestInvalidItemsValidCart(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 2)
	cart := f.cart(t, f.user.ID)
	require.NoError(t, f.set(cart, f.tt.ID, 2))

	invalid, err := f.svc.InvalidItems(context.Background(), cart)
	require.NoError(t, err)
	assert.Empty(t, invalid)

	cleared, err := f.svc.ClearInvalidItems(context.Background(), cart, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared)
	assert.Len(t, f.itemsOfType(t, cart.ID, enums.OrderItemTypeTickets), 1)
}

func TestClearInvalidItemsDropsExpiredHold(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	hold := dbtest.Hold(t, f.db, f.tt, enums.HoldTypeDiscount, 100, 0)
	dbtest.Tickets(t, f.db, f.tt.ID, &hold.ID, 2)
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 1)
	cart := f.cart(t, f.user.ID)
	ctx := context.Background()
	require.NoError(t, f.svc.UpdateQuantities(ctx, cart, f.user.ID, []QuantityInput{
		{TicketTypeID: f.tt.ID, Quantity: 2, RedemptionCode: hold.RedemptionCode},
		{TicketTypeID: f.tt.ID, Quantity: 1},
	}, false, false))

	require.NoError(t, f.db.Model(hold).Update("end_at", testNow.Add(time.Minute)).Error)
	f.clock.Advance(2 * time.Minute)

	invalid, err := f.svc.InvalidItems(ctx, cart)
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, enums.CartItemStatusHoldExpired, invalid[0].Status)

	cleared, err := f.svc.ClearInvalidItems(ctx, cart, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, invalid, cleared)

	lines := f.itemsOfType(t, cart.ID, enums.OrderItemTypeTickets)
	require.Len(t, lines, 1)
	assert.Nil(t, lines[0].HoldID)
	assert.NotNil(t, cart.ExpiresAt)

	var heldAvailable int64
	require.NoError(t, f.db.Model(&models.TicketInstance{}).
		Where("hold_id = ? AND status = ?", hold.ID, enums.TicketInstanceStatusAvailable).
		Count(&heldAvailable).Error)
	assert.Equal(t, int64(2), heldAvailable)
}

func TestClearInvalidItemsDropsLapsedReservations(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 2)
	cart := f.cart(t, f.user.ID)
	require.NoError(t, f.set(cart, f.tt.ID, 2))
	ctx := context.Background()

	f.clock.Advance(CartExpiry + time.Minute)
	invalid, err := f.svc.InvalidItems(ctx, cart)
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, enums.CartItemStatusTicketNotReserved, invalid[0].Status)

	_, err = f.svc.ClearInvalidItems(ctx, cart, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, f.items(t, cart.ID))
	assert.Nil(t, cart.ExpiresAt)
	assert.Equal(t, int64(2), f.statusCounts(t, f.tt.ID)[enums.TicketInstanceStatusAvailable])
}

func TestInvalidItemsReportsNullifiedTickets(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 2)
	cart := f.cart(t, f.user.ID)
	require.NoError(t, f.set(cart, f.tt.ID, 2))
	line := f.itemsOfType(t, cart.ID, enums.OrderItemTypeTickets)[0]

	var ticket models.TicketInstance
	require.NoError(t, f.db.Where("order_item_id = ?", line.ID).First(&ticket).Error)
	require.NoError(t, f.db.Model(&ticket).Update("status", enums.TicketInstanceStatusNullified).Error)

	invalid, err := f.svc.InvalidItems(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, line.ID, invalid[0].OrderItemID)
	assert.Equal(t, enums.CartItemStatusTicketNullified, invalid[0].Status)
}

func TestInvalidItemsReportsExpiredCode(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	cents := int64(100)
	code := dbtest.Code(t, f.db, f.event.ID, enums.CodeTypeAccess, testNow.Add(-time.Hour), &cents, nil)
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 1)
	cart := f.cart(t, f.user.ID)
	ctx := context.Background()
	require.NoError(t, f.svc.UpdateQuantities(ctx, cart, f.user.ID, []QuantityInput{
		{TicketTypeID: f.tt.ID, Quantity: 1, RedemptionCode: code.RedemptionCode},
	}, false, false))

	require.NoError(t, f.db.Model(code).Update("end_date", testNow.Add(time.Minute)).Error)
	f.clock.Advance(2 * time.Minute)

	invalid, err := f.svc.InvalidItems(ctx, cart)
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, enums.CartItemStatusCodeExpired, invalid[0].Status)
}

func TestQuantityForUserForEvent(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	vip := dbtest.TicketType(t, f.db, f.event.ID, 0)
	dbtest.Pricing(t, f.db, vip.ID, 5000, testNow.Add(-time.Hour), false)
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 3)
	dbtest.Tickets(t, f.db, vip.ID, nil, 1)
	ctx := context.Background()

	first := f.cart(t, f.user.ID)
	require.NoError(t, f.set(first, f.tt.ID, 2))
	_, err := f.svc.AddCreditCardPayment(ctx, first, f.user.ID, enums.PaymentProviderStripe, 2000, nil, nil)
	require.NoError(t, err)

	second := f.cart(t, f.user.ID)
	require.NoError(t, f.svc.UpdateQuantities(ctx, second, f.user.ID, []QuantityInput{
		{TicketTypeID: f.tt.ID, Quantity: 1},
		{TicketTypeID: vip.ID, Quantity: 1},
	}, false, false))

	quantities, err := f.svc.QuantityForUserForEvent(ctx, f.user.ID, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), quantities[f.tt.ID])
	assert.Equal(t, int64(1), quantities[vip.ID])

	f.clock.Advance(CartExpiry + time.Minute)
	quantities, err = f.svc.QuantityForUserForEvent(ctx, f.user.ID, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), quantities[f.tt.ID])
	assert.Zero(t, quantities[vip.ID])
}
