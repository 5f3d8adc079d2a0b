package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/eventtix-backend/pkg/db/dbtest"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
)

func TestTotalCompletedSumsOnlyCompletedPayments(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	user := dbtest.User(t, conn)
	order := dbtest.Order(t, conn, user.ID, time.Now().UTC())
	ledger := NewLedger()

	for _, p := range []NewPayment{
		{Status: enums.PaymentStatusCompleted, Method: enums.PaymentMethodCreditCard, Provider: enums.PaymentProviderStripe, Amount: 1500},
		{Status: enums.PaymentStatusCompleted, Method: enums.PaymentMethodExternal, Provider: enums.PaymentProviderExternal, Amount: 500},
		{Status: enums.PaymentStatusRequested, Method: enums.PaymentMethodProvider, Provider: enums.PaymentProviderGlobee, Amount: 9000},
	} {
		p.OrderID = order.ID
		p.CreatedBy = user.ID
		_, err := ledger.Create(ctx, conn, p)
		require.NoError(t, err)
	}

	total, err := ledger.TotalCompleted(ctx, conn, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), total)

	_, err = ledger.RecordRefund(ctx, conn, order.ID, user.ID, 700, enums.PaymentMethodCreditCard, enums.PaymentProviderStripe, nil)
	require.NoError(t, err)

	total, err = ledger.TotalCompleted(ctx, conn, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), total, "refunds are tracked separately from completed payments")

	payments, err := ledger.ListForOrder(ctx, conn, order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 4)
	assert.Equal(t, enums.PaymentStatusRefunded, payments[3].Status)
	assert.Equal(t, int64(-700), payments[3].Amount)
}

func TestTotalCompletedEmptyOrder(t *testing.T) {
	conn := dbtest.Open(t)
	total, err := NewLedger().TotalCompleted(context.Background(), conn, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	ledger := NewLedger()

	_, err := ledger.Create(ctx, conn, NewPayment{Status: enums.PaymentStatusCompleted})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = ledger.Create(ctx, conn, NewPayment{
		OrderID:   uuid.New(),
		CreatedBy: uuid.New(),
		Status:    enums.PaymentStatusCompleted,
		Method:    enums.PaymentMethodFree,
		Provider:  enums.PaymentProviderFree,
		Amount:    -1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = ledger.RecordRefund(ctx, conn, uuid.New(), uuid.New(), 0, enums.PaymentMethodFree, enums.PaymentProviderFree, nil)
	require.Error(t, err)
}
