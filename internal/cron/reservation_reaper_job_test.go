package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/internal/inventory"
	"github.com/angelmondragon/eventtix-backend/pkg/clock"
	"github.com/angelmondragon/eventtix-backend/pkg/db"
	"github.com/angelmondragon/eventtix-backend/pkg/db/dbtest"
	"github.com/angelmondragon/eventtix-backend/pkg/db/models"
	"github.com/angelmondragon/eventtix-backend/pkg/enums"
	"github.com/angelmondragon/eventtix-backend/pkg/logger"
	"github.com/angelmondragon/eventtix-backend/pkg/outbox"
)

type scriptedReaper struct {
	results []int64
	errs    []error
	limits  []int
}

func (s *scriptedReaper) ReapExpired(_ context.Context, _ *gorm.DB, limit int) (int64, error) {
	call := len(s.limits)
	s.limits = append(s.limits, limit)
	var err error
	if call < len(s.errs) {
		err = s.errs[call]
	}
	if err != nil {
		return 0, err
	}
	if call < len(s.results) {
		return s.results[call], nil
	}
	return 0, nil
}

func newReaperJob(t *testing.T, runner txRunner, reaper reservationReaper, batch, maxBatches int) Job {
	t.Helper()
	job, err := NewReservationReaperJob(ReservationReaperJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         runner,
		Reaper:     reaper,
		BatchSize:  batch,
		MaxBatches: maxBatches,
	})
	require.NoError(t, err)
	return job
}

func TestReservationReaperStopsOnShortBatch(t *testing.T) {
	reaper := &scriptedReaper{results: []int64{10, 10, 3}}
	job := newReaperJob(t, passthroughTx{}, reaper, 10, 0)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []int{10, 10, 10}, reaper.limits)
}

func TestReservationReaperRespectsMaxBatches(t *testing.T) {
	reaper := &scriptedReaper{results: []int64{5, 5, 5, 5}}
	job := newReaperJob(t, passthroughTx{}, reaper, 5, 2)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, reaper.limits, 2)
}

func TestReservationReaperAggregatesBatchErrors(t *testing.T) {
	first := errors.New("lock timeout")
	second := errors.New("connection reset")
	reaper := &scriptedReaper{
		errs:    []error{first, nil, second},
		results: []int64{0, 5, 0, 1},
	}
	job := newReaperJob(t, passthroughTx{}, reaper, 5, 4)

	err := job.Run(context.Background())
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], first)
	assert.ErrorIs(t, errs[1], second)
	assert.Len(t, reaper.limits, 4)
}

func TestReservationReaperHonoursCancellation(t *testing.T) {
	reaper := &scriptedReaper{}
	job := newReaperJob(t, passthroughTx{}, reaper, 5, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Empty(t, reaper.limits)
}

func TestNewReservationReaperJobRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	_, err := NewReservationReaperJob(ReservationReaperJobParams{DB: passthroughTx{}, Reaper: &scriptedReaper{}})
	assert.Error(t, err)
	_, err = NewReservationReaperJob(ReservationReaperJobParams{Logger: logg, Reaper: &scriptedReaper{}})
	assert.Error(t, err)
	_, err = NewReservationReaperJob(ReservationReaperJobParams{Logger: logg, DB: passthroughTx{}})
	assert.Error(t, err)
}

func TestReservationReaperReleasesLapsedTickets(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := clock.NewMock(now)
	logg := logger.New(logger.Options{ServiceName: "test"})
	ledger, err := inventory.NewLedger(inventory.LedgerParams{
		Logger:   logg,
		Recorder: outbox.NewRecorder(outbox.NewRepository(conn), logg, outbox.Options{Clock: mock}),
		Clock:    mock,
	})
	require.NoError(t, err)

	event := dbtest.Event(t, conn, 0, nil)
	tt := dbtest.TicketType(t, conn, event.ID, 0)
	tickets := dbtest.Tickets(t, conn, tt.ID, nil, 5)
	lapsed := now.Add(-time.Minute)
	live := now.Add(time.Hour)
	for i, ticket := range tickets {
		until := lapsed
		if i == 0 {
			until = live
		}
		require.NoError(t, conn.Model(&models.TicketInstance{}).Where("id = ?", ticket.ID).Updates(map[string]any{
			"status":         enums.TicketInstanceStatusReserved,
			"reserved_until": until,
		}).Error)
	}

	job := newReaperJob(t, db.Wrap(conn), ledger, 2, 0)
	require.NoError(t, job.Run(context.Background()))

	counts, err := ledger.Counts(context.Background(), conn, tt.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts.Available)
	assert.Equal(t, int64(1), counts.Reserved)
	assert.Zero(t, counts.ReservedExpired)
}
