package inventory

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/clock"
	"github.com/angelmondragon/eventtix-backend/pkg/db/dbtest"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/logger"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	clock  *clock.Mock
	ledger *Ledger
	tt     *models.TicketType
	order  *models.Order
	user   *models.User
}

func newFixture(t *testing.T, conn *gorm.DB) *fixture {
	t.Helper()
	clk := clock.NewMock(testNow)
	logg := logger.New(logger.Options{ServiceName: "inventory-test", Output: &bytes.Buffer{}})
	recorder := outbox.NewRecorder(outbox.NewRepository(conn), logg, outbox.Options{Clock: clk})
	ledger, err := NewLedger(LedgerParams{Logger: logg, Recorder: recorder, Clock: clk})
	require.NoError(t, err)

	user := dbtest.User(t, conn)
	event := dbtest.Event(t, conn, 0, nil)
	tt := dbtest.TicketType(t, conn, event.ID, 0)
	order := dbtest.Order(t, conn, user.ID, testNow)
	return &fixture{db: conn, clock: clk, ledger: ledger, tt: tt, order: order, user: user}
}

func (f *fixture) item(t *testing.T, quantity int64) *models.OrderItem {
	t.Helper()
	pricing := dbtest.Pricing(t, f.db, f.tt.ID, 1000, testNow.Add(-time.Hour), false)
	return dbtest.TicketItem(t, f.db, f.order.ID, f.tt, pricing, quantity)
}

func (f *fixture) reserve(t *testing.T, item *models.OrderItem, holdID *uuid.UUID, quantity int64) ([]uuid.UUID, error) {
	t.Helper()
	var ids []uuid.UUID
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		ids, err = f.ledger.Reserve(context.Background(), tx, ReserveRequest{
			OrderItemID:  item.ID,
			ExpiresAt:    f.clock.Now().Add(15 * time.Minute),
			TicketTypeID: f.tt.ID,
			HoldID:       holdID,
			Quantity:     quantity,
		})
		return err
	})
	return ids, err
}

func (f *fixture) inTx(fn func(tx *gorm.DB) error) error {
	return f.db.Transaction(fn)
}

func (f *fixture) counts(t *testing.T, holdID *uuid.UUID) Counts {
	t.Helper()
	counts, err := f.ledger.Counts(context.Background(), f.db, f.tt.ID, holdID)
	require.NoError(t, err)
	return counts
}

func (f *fixture) purchase(t *testing.T, item *models.OrderItem) {
	t.Helper()
	err := f.inTx(func(tx *gorm.DB) error {
		_, err := f.ledger.MarkAsPurchased(context.Background(), tx, *item, f.user.ID)
		return err
	})
	require.NoError(t, err)
}

func (f *fixture) releaseInstance(ticketID uuid.UUID) (bool, error) {
	var released bool
	err := f.inTx(func(tx *gorm.DB) error {
		var err error
		released, err = f.ledger.ReleaseInstance(context.Background(), tx, ticketID, f.user.ID)
		return err
	})
	return released, err
}

func (f *fixture) redeem(ticketID uuid.UUID, key string, userID uuid.UUID) (RedeemResult, error) {
	var result RedeemResult
	err := f.inTx(func(tx *gorm.DB) error {
		var err error
		result, err = f.ledger.Redeem(context.Background(), tx, ticketID, key, userID)
		return err
	})
	return result, err
}

func TestNewLedgerRequiresDependencies(t *testing.T) {
	_, err := NewLedger(LedgerParams{})
	require.Error(t, err)
}

func TestReserveClaimsAvailableInstances(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 5)
	item := f.item(t, 3)

	ids, err := f.reserve(t, item, nil, 3)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	var reserved []models.TicketInstance
	require.NoError(t, f.db.Where("order_item_id = ?", item.ID).Find(&reserved).Error)
	require.Len(t, reserved, 3)
	for _, ticket := range reserved {
		assert.Equal(t, enums.TicketInstanceStatusReserved, ticket.Status)
		require.NotNil(t, ticket.ReservedUntil)
		assert.True(t, ticket.ReservedUntil.Equal(testNow.Add(15*time.Minute)))
	}

	counts := f.counts(t, nil)
	assert.Equal(t, int64(2), counts.Available)
	assert.Equal(t, int64(3), counts.Reserved)
	assert.Equal(t, int64(5), counts.Total())
}

func TestReserveOutOfStockRollsBack(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 2)
	item := f.item(t, 3)

	_, err := f.reserve(t, item, nil, 3)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, ReasonOutOfStock, pkgerrors.ValidationReason(err))

	counts := f.counts(t, nil)
	assert.Equal(t, int64(2), counts.Available)
	assert.Zero(t, counts.Reserved)
}

func TestReserveRespectsHoldScope(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	hold := dbtest.Hold(t, f.db, f.tt, enums.HoldTypeComp, 0, 0)
	dbtest.Tickets(t, f.db, f.tt.ID, &hold.ID, 2)
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 1)
	item := f.item(t, 2)

	_, err := f.reserve(t, item, nil, 2)
	require.Error(t, err, "unheld request must not draw held inventory")

	ids, err := f.reserve(t, item, &hold.ID, 2)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	held := f.counts(t, &hold.ID)
	assert.Equal(t, int64(2), held.Reserved)
	assert.Equal(t, int64(1), f.counts(t, nil).Available)
}

func TestReserveReclaimsExpiredReservations(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 1)
	first := f.item(t, 1)
	second := f.item(t, 1)

	_, err := f.reserve(t, first, nil, 1)
	require.NoError(t, err)
	_, err = f.reserve(t, second, nil, 1)
	require.Error(t, err)

	f.clock.Advance(16 * time.Minute)
	assert.Equal(t, int64(1), f.counts(t, nil).ReservedExpired)

	ids, err := f.reserve(t, second, nil, 1)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	count, err := f.ledger.CountReserved(context.Background(), f.db, first.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReleaseReturnsInstances(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 3)
	item := f.item(t, 3)
	_, err := f.reserve(t, item, nil, 3)
	require.NoError(t, err)

	released, err := f.ledger.Release(context.Background(), f.db, item.ID, 2, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)

	counts := f.counts(t, nil)
	assert.Equal(t, int64(2), counts.Available)
	assert.Equal(t, int64(1), counts.Reserved)

	released, err = f.ledger.Release(context.Background(), f.db, item.ID, 5, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)
}

func TestMarkAsPurchasedRequiresFullReservation(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 3)
	item := f.item(t, 3)
	_, err := f.reserve(t, item, nil, 2)
	require.NoError(t, err)

	err = f.inTx(func(tx *gorm.DB) error {
		_, err := f.ledger.MarkAsPurchased(context.Background(), tx, *item, f.user.ID)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, ReasonTicketNotReserved, pkgerrors.ValidationReason(err))

	item.Quantity = 2
	var ids []uuid.UUID
	err = f.inTx(func(tx *gorm.DB) error {
		var err error
		ids, err = f.ledger.MarkAsPurchased(context.Background(), tx, *item, f.user.ID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, int64(2), f.counts(t, nil).Purchased)

	events, err := outbox.NewRepository(f.db).ListForEntity(context.Background(), enums.TableTicketInstances, ids[0])
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.DomainEventTicketInstancePurchased, events[0].EventType)

	found, err := f.ledger.FindIDsForOrder(context.Background(), f.db, f.order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, found)
}

func TestReleaseInstanceOnlyFromPurchased(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 1)
	item := f.item(t, 1)
	ids, err := f.reserve(t, item, nil, 1)
	require.NoError(t, err)

	released, err := f.releaseInstance(ids[0])
	require.NoError(t, err)
	assert.False(t, released, "reserved tickets are not refund releasable")

	f.purchase(t, item)

	released, err = f.releaseInstance(ids[0])
	require.NoError(t, err)
	assert.True(t, released)

	ticket, err := f.ledger.Find(context.Background(), f.db, ids[0])
	require.NoError(t, err)
	assert.Equal(t, enums.TicketInstanceStatusAvailable, ticket.Status)
	assert.Nil(t, ticket.OrderItemID)
	assert.Nil(t, ticket.OwnerUserID)
}

func TestRedeemOutcomes(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	tickets := dbtest.Tickets(t, f.db, f.tt.ID, nil, 2)
	item := f.item(t, 1)
	ids, err := f.reserve(t, item, nil, 1)
	require.NoError(t, err)
	f.purchase(t, item)

	ticket, err := f.ledger.Find(context.Background(), f.db, ids[0])
	require.NoError(t, err)
	scanner := uuid.New()

	result, err := f.redeem(ticket.ID, "wrong", scanner)
	require.NoError(t, err)
	assert.Equal(t, RedeemTicketInvalid, result)

	result, err = f.redeem(ticket.ID, *ticket.RedeemKey, scanner)
	require.NoError(t, err)
	assert.Equal(t, RedeemSuccess, result)

	result, err = f.redeem(ticket.ID, *ticket.RedeemKey, scanner)
	require.NoError(t, err)
	assert.Equal(t, RedeemAlreadyRedeemed, result)

	var unsold uuid.UUID
	for _, candidate := range tickets {
		if candidate.ID != ticket.ID {
			unsold = candidate.ID
		}
	}
	result, err = f.redeem(unsold, *ticket.RedeemKey, scanner)
	require.NoError(t, err)
	assert.Equal(t, RedeemTicketInvalid, result)

	_, err = f.redeem(uuid.New(), "x", scanner)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUpdateReservedTimeAndReap(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))
	dbtest.Tickets(t, f.db, f.tt.ID, nil, 3)
	item := f.item(t, 3)
	_, err := f.reserve(t, item, nil, 3)
	require.NoError(t, err)

	extended := testNow.Add(time.Hour)
	updated, err := f.ledger.UpdateReservedTime(context.Background(), f.db, []uuid.UUID{item.ID}, extended)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	f.clock.Advance(30 * time.Minute)
	reaped, err := f.ledger.ReapExpired(context.Background(), f.db, 10)
	require.NoError(t, err)
	assert.Zero(t, reaped)

	f.clock.Advance(time.Hour)
	reaped, err = f.ledger.ReapExpired(context.Background(), f.db, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reaped)
	reaped, err = f.ledger.ReapExpired(context.Background(), f.db, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reaped)

	counts := f.counts(t, nil)
	assert.Equal(t, int64(3), counts.Available)
	assert.Zero(t, counts.Reserved+counts.ReservedExpired)
}

func TestMintNullifyAndTransfers(t *testing.T) {
	f := newFixture(t, dbtest.Open(t))

	ids, err := f.ledger.Mint(context.Background(), f.db, MintRequest{TicketTypeID: f.tt.ID, Quantity: 4})
	require.NoError(t, err)
	require.Len(t, ids, 4)

	var nullified []uuid.UUID
	err = f.inTx(func(tx *gorm.DB) error {
		var err error
		nullified, err = f.ledger.Nullify(context.Background(), tx, f.tt.ID, nil, 3, f.user.ID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, nullified, 3)

	err = f.inTx(func(tx *gorm.DB) error {
		_, err := f.ledger.Nullify(context.Background(), tx, f.tt.ID, nil, 2, f.user.ID)
		return err
	})
	assert.Equal(t, ReasonOutOfStock, pkgerrors.ValidationReason(err))

	counts := f.counts(t, nil)
	assert.Equal(t, int64(3), counts.Nullified)
	assert.Equal(t, int64(4), counts.Total())

	transferred, err := f.ledger.WasTransferred(context.Background(), f.db, ids[0])
	require.NoError(t, err)
	assert.False(t, transferred)

	require.NoError(t, f.db.Create(&models.TicketTransfer{
		TicketInstanceID: ids[0],
		SourceUserID:     f.user.ID,
		Status:           enums.TransferStatusCompleted,
	}).Error)
	transferred, err = f.ledger.WasTransferred(context.Background(), f.db, ids[0])
	require.NoError(t, err)
	assert.True(t, transferred)
}
