package payment

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/santosoadam/coursemarket/gateway/midtrans"
)

const sweepBatch = 50

// Sweep reconciles pending payments older than minAge against the gateway.
// It recovers orders whose webhook deliveries were lost and expires
// abandoned hosted sessions.
func Sweep(ctx context.Context, db *sqlx.DB, gw *midtrans.Client, log logrus.FieldLogger, minAge time.Duration) {
	ids, err := ListStalePending(ctx, db, int64(minAge.Seconds()), sweepBatch)
	if err != nil {
		log.WithField("message", err).Error("payment sweep: listing stale payments")
		return
	}

	for _, orderID := range ids {
		if ctx.Err() != nil {
			return
		}

		if err := Reconcile(ctx, db, gw, log, orderID); err != nil {
			log.WithFields(logrus.Fields{
				"order_id": orderID,
				"message":  err,
			}).Error("payment sweep: reconciliation failed")
		}
	}
}

// RunSweeper loops Sweep at the given interval until ctx is cancelled.
func RunSweeper(ctx context.Context, db *sqlx.DB, gw *midtrans.Client, log logrus.FieldLogger, interval time.Duration, minAge time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			Sweep(ctx, db, gw, log, minAge)
		}
	}
}
