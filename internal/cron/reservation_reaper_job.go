package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/logger"
)

const (
	defaultReaperBatchSize  = 500
	defaultReaperMaxBatches = 20
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationReaper interface {
	ReapExpired(ctx context.Context, tx *gorm.DB, limit int) (int64, error)
}

type ReservationReaperJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Reaper     reservationReaper
	BatchSize  int
	MaxBatches int
}

// NewReservationReaperJob builds the job that returns lapsed reservations to
// Available. Reserve already reclaims lapsed instances on demand; the reaper
// keeps inventory counts honest between purchases.
func NewReservationReaperJob(params ReservationReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reaper == nil {
		return nil, fmt.Errorf("reservation reaper required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReaperBatchSize
	}
	maxBatches := params.MaxBatches
	if maxBatches <= 0 {
		maxBatches = defaultReaperMaxBatches
	}
	return &reservationReaperJob{
		logg:       params.Logger,
		db:         params.DB,
		reaper:     params.Reaper,
		batchSize:  batchSize,
		maxBatches: maxBatches,
	}, nil
}

type reservationReaperJob struct {
	logg       *logger.Logger
	db         txRunner
	reaper     reservationReaper
	batchSize  int
	maxBatches int
}

func (j *reservationReaperJob) Name() string { return "reservation-reaper" }

// Run reaps in short transactions so ticket rows are never locked for long.
// A failed batch is recorded and the next one is still attempted.
func (j *reservationReaperJob) Run(ctx context.Context) error {
	var (
		errs   error
		reaped int64
	)
	for batch := 0; batch < j.maxBatches; batch++ {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		var rows int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.reaper.ReapExpired(ctx, tx, j.batchSize)
			rows = n
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("batch %d: %w", batch, err))
			continue
		}
		reaped += rows
		if rows < int64(j.batchSize) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"released": reaped,
		"failures": len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "reservation reaper complete")
	return errs
}
