package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/eventtix-backend/pkg/clock"
	"github.com/angelmondragon/eventtix-backend/pkg/db/dbtest"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func TestApplyRedemption(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		hold  *models.Hold
		code  *models.Code
		want  int64
	}{
		{name: "no redemption", price: 1500, want: 1500},
		{name: "discount hold", price: 1500, hold: &models.Hold{HoldType: enums.HoldTypeDiscount, DiscountInCents: 500}, want: 1000},
		{name: "discount hold floors at zero", price: 300, hold: &models.Hold{HoldType: enums.HoldTypeDiscount, DiscountInCents: 500}, want: 0},
		{name: "comp hold", price: 1500, hold: &models.Hold{HoldType: enums.HoldTypeComp}, want: 0},
		{name: "access code", price: 1500, code: &models.Code{CodeType: enums.CodeTypeAccess, DiscountInCents: int64Ptr(200)}, want: 1300},
		{name: "access code without discount", price: 1500, code: &models.Code{CodeType: enums.CodeTypeAccess}, want: 1500},
		{name: "discount code keeps face price", price: 1500, code: &models.Code{CodeType: enums.CodeTypeDiscount, DiscountInCents: int64Ptr(200)}, want: 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyRedemption(tt.price, tt.hold, tt.code))
		})
	}
}

func TestDiscountForCode(t *testing.T) {
	tests := []struct {
		name string
		code models.Code
		unit int64
		want int64
	}{
		{name: "cents", code: models.Code{CodeType: enums.CodeTypeDiscount, DiscountInCents: int64Ptr(250)}, unit: 1000, want: 250},
		{name: "cents capped at unit price", code: models.Code{CodeType: enums.CodeTypeDiscount, DiscountInCents: int64Ptr(2500)}, unit: 1000, want: 1000},
		{name: "percentage rounds half up", code: models.Code{CodeType: enums.CodeTypeDiscount, DiscountAsPercentage: int64Ptr(15)}, unit: 1010, want: 152},
		{name: "percentage exact", code: models.Code{CodeType: enums.CodeTypeDiscount, DiscountAsPercentage: int64Ptr(50)}, unit: 999, want: 500},
		{name: "access code has no discount line", code: models.Code{CodeType: enums.CodeTypeAccess, DiscountInCents: int64Ptr(250)}, unit: 1000, want: 0},
		{name: "free ticket", code: models.Code{CodeType: enums.CodeTypeDiscount, DiscountInCents: int64Ptr(250)}, unit: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiscountForCode(tt.code, tt.unit))
		})
	}
}

func TestCurrentPicksActivePricing(t *testing.T) {
	db := dbtest.Open(t)
	resolver := NewResolver(clock.NewMock(testNow))
	event := dbtest.Event(t, db, 0, nil)
	tt := dbtest.TicketType(t, db, event.ID, 0)

	_, err := resolver.Current(context.Background(), db, tt.ID, false, false)
	assert.Equal(t, ReasonNoActivePricing, pkgerrors.ValidationReason(err))

	dbtest.Pricing(t, db, tt.ID, 900, testNow.Add(-48*time.Hour), false)
	later := dbtest.Pricing(t, db, tt.ID, 1200, testNow.Add(-time.Hour), false)
	dbtest.Pricing(t, db, tt.ID, 5000, testNow.Add(time.Hour), false)
	boxOffice := dbtest.Pricing(t, db, tt.ID, 1500, testNow.Add(-time.Hour), true)

	current, err := resolver.Current(context.Background(), db, tt.ID, false, false)
	require.NoError(t, err)
	assert.Equal(t, later.ID, current.ID)

	current, err = resolver.Current(context.Background(), db, tt.ID, true, false)
	require.NoError(t, err)
	assert.Equal(t, boxOffice.ID, current.ID)

	current, err = resolver.Current(context.Background(), db, tt.ID, true, true)
	require.NoError(t, err)
	assert.Equal(t, later.ID, current.ID)
}

func TestPerUnitFeeMatchesRange(t *testing.T) {
	db := dbtest.Open(t)
	resolver := NewResolver(clock.NewMock(testNow))
	schedule := dbtest.FeeSchedule(t, db,
		models.FeeScheduleRange{MinPriceInCents: 0, CompanyFeeInCents: 50, ClientFeeInCents: 25},
		models.FeeScheduleRange{MinPriceInCents: 2000, CompanyFeeInCents: 100, ClientFeeInCents: 50},
	)
	event := dbtest.Event(t, db, 0, schedule)

	low, err := resolver.PerUnitFee(context.Background(), db, event.ID, 1500)
	require.NoError(t, err)
	require.NotNil(t, low)
	assert.Equal(t, int64(75), low.FeeInCents())

	high, err := resolver.PerUnitFee(context.Background(), db, event.ID, 2000)
	require.NoError(t, err)
	require.NotNil(t, high)
	assert.Equal(t, int64(150), high.FeeInCents())

	bare := dbtest.Event(t, db, 0, nil)
	none, err := resolver.PerUnitFee(context.Background(), db, bare.ID, 1500)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestResolveRedemptionCodes(t *testing.T) {
	db := dbtest.Open(t)
	clk := clock.NewMock(testNow)
	resolver := NewResolver(clk)
	event := dbtest.Event(t, db, 0, nil)
	tt := dbtest.TicketType(t, db, event.ID, 0)
	other := dbtest.TicketType(t, db, event.ID, 0)
	hold := dbtest.Hold(t, db, tt, enums.HoldTypeDiscount, 100, 0)
	code := dbtest.Code(t, db, event.ID, enums.CodeTypeAccess, testNow.Add(-time.Hour), nil, nil)

	empty, err := resolver.Resolve(context.Background(), db, "  ", *tt, uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Hold)
	assert.Nil(t, empty.Code)

	redemption, err := resolver.Resolve(context.Background(), db, hold.RedemptionCode, *tt, uuid.Nil)
	require.NoError(t, err)
	require.NotNil(t, redemption.Hold)
	assert.Equal(t, hold.ID, *redemption.HoldID())
	assert.Nil(t, redemption.CodeID())

	_, err = resolver.Resolve(context.Background(), db, hold.RedemptionCode, *other, uuid.Nil)
	assert.Equal(t, ReasonInvalidRedemption, pkgerrors.ValidationReason(err))

	redemption, err = resolver.Resolve(context.Background(), db, code.RedemptionCode, *tt, uuid.Nil)
	require.NoError(t, err)
	require.NotNil(t, redemption.Code)

	_, err = resolver.Resolve(context.Background(), db, "NOPE", *tt, uuid.Nil)
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidRedemption, pkgerrors.ValidationReason(err))
	assert.Equal(t, invalidRedemptionMessage, pkgerrors.As(err).Message())

	end := testNow.Add(time.Minute)
	require.NoError(t, db.Model(hold).Update("end_at", end).Error)
	clk.Advance(2 * time.Minute)
	_, err = resolver.Resolve(context.Background(), db, hold.RedemptionCode, *tt, uuid.Nil)
	assert.Equal(t, ReasonHoldExpired, pkgerrors.ValidationReason(err))

	clk.Set(testNow.Add(-2 * time.Hour))
	_, err = resolver.Resolve(context.Background(), db, code.RedemptionCode, *tt, uuid.Nil)
	assert.Equal(t, ReasonCodeInvalid, pkgerrors.ValidationReason(err))
}

func TestCheckCodeMaxUses(t *testing.T) {
	db := dbtest.Open(t)
	resolver := NewResolver(clock.NewMock(testNow))
	event := dbtest.Event(t, db, 0, nil)
	tt := dbtest.TicketType(t, db, event.ID, 0)
	pricing := dbtest.Pricing(t, db, tt.ID, 1000, testNow.Add(-time.Hour), false)
	code := dbtest.Code(t, db, event.ID, enums.CodeTypeDiscount, testNow.Add(-time.Hour), int64Ptr(100), nil)
	require.NoError(t, db.Model(code).Update("max_uses", 1).Error)
	code.MaxUses = 1

	require.NoError(t, resolver.CheckCode(context.Background(), db, *code, dbtest.Order(t, db, dbtest.User(t, db).ID, testNow).ID))

	paid := dbtest.Order(t, db, dbtest.User(t, db).ID, testNow)
	require.NoError(t, db.Model(paid).Update("status", enums.OrderStatusPaid).Error)
	item := dbtest.TicketItem(t, db, paid.ID, tt, pricing, 1)
	require.NoError(t, db.Model(item).Update("code_id", code.ID).Error)

	err := resolver.CheckCode(context.Background(), db, *code, dbtest.Order(t, db, dbtest.User(t, db).ID, testNow).ID)
	assert.Equal(t, ReasonCodeMaxUsesReached, pkgerrors.ValidationReason(err))

	assert.NoError(t, resolver.CheckCode(context.Background(), db, *code, paid.ID))
}
