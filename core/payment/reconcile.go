package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/santosoadam/coursemarket/core/enrollment"
	"github.com/santosoadam/coursemarket/core/instructor"
	"github.com/santosoadam/coursemarket/database"
	"github.com/santosoadam/coursemarket/gateway/midtrans"
)

const missingOrderGrace = 24 * time.Hour

// resolve maps the gateway's transaction state and fraud signal onto the
// internal status. A capture is only authoritative together with an accepted
// fraud review. The second return value reports whether the state is known.
func resolve(state string, fraud string) (Status, bool) {
	switch state {
	case midtrans.StateCapture:
		switch fraud {
		case midtrans.FraudAccept:
			return Success, true
		case midtrans.FraudChallenge:
			return Pending, true
		}
		return Pending, false

	case midtrans.StateSettlement:
		return Success, true

	case midtrans.StateCancel, midtrans.StateDeny:
		return Failed, true

	case midtrans.StateExpire:
		return Expired, true

	case midtrans.StatePending:
		return Pending, true
	}

	return Pending, false
}

// Reconcile re-derives the order status from the gateway's authoritative
// report and applies it. The pending-to-success transition and its side
// effects (enrollment grant, earnings credit) commit in one transaction, so
// re-delivered webhooks and concurrent reconciliations can never duplicate
// them.
func Reconcile(ctx context.Context, db *sqlx.DB, gw *midtrans.Client, log logrus.FieldLogger, orderID string) error {
	pay, err := Fetch(ctx, db, orderID)
	if err != nil {
		return fmt.Errorf("fetching payment[%s]: %w", orderID, err)
	}

	report, err := gw.TransactionStatus(ctx, orderID)
	if err != nil {
		// An old order the gateway never heard of cannot settle anymore:
		// the session was lost before it opened. Expire it so the buyer
		// can retry checkout. Young orders get the benefit of the doubt,
		// the gateway may simply not know them yet.
		if errors.Is(err, midtrans.ErrOrderNotFound) && time.Since(pay.CreatedAt) > missingOrderGrace {
			report = midtrans.StatusReport{
				OrderID:           orderID,
				TransactionStatus: midtrans.StateExpire,
				Raw:               []byte(`{"status_code":"404"}`),
			}
		} else {
			return fmt.Errorf("querying gateway status of payment[%s]: %w", orderID, err)
		}
	}

	target, known := resolve(report.TransactionStatus, report.FraudStatus)
	if !known {
		log.WithFields(logrus.Fields{
			"order_id":           orderID,
			"transaction_status": report.TransactionStatus,
			"fraud_status":       report.FraudStatus,
		}).Warn("unknown gateway transaction state")
	}

	if target == Pending {
		if err := RecordResponse(ctx, db, orderID, report.Raw); err != nil {
			return fmt.Errorf("recording gateway response for payment[%s]: %w", orderID, err)
		}
		return nil
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		moved, err := Transition(ctx, tx, orderID, target, report.Raw)
		if err != nil {
			return err
		}

		if !moved {
			// Terminal already; keep the latest payload for audit only.
			return RecordResponse(ctx, tx, orderID, report.Raw)
		}

		if target != Success {
			return nil
		}

		enr := enrollment.Enrollment{
			UserID:     pay.UserID,
			CourseID:   pay.CourseID,
			OrderID:    &pay.OrderID,
			EnrolledAt: time.Now().UTC(),
		}
		if err := enrollment.Create(ctx, tx, enr); err != nil {
			return err
		}

		if err := instructor.Credit(ctx, tx, pay.InstructorID, pay.Amount); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("applying %s to payment[%s]: %w", target, orderID, err)
	}
	return nil
}
