package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/santosoadam/coursemarket/api/web"
	"github.com/santosoadam/coursemarket/api/weberr"
	"github.com/santosoadam/coursemarket/core/claims"
	"github.com/santosoadam/coursemarket/core/course"
	"github.com/santosoadam/coursemarket/core/instructor"
	"github.com/santosoadam/coursemarket/core/user"
	"github.com/santosoadam/coursemarket/gateway/midtrans"
	"github.com/santosoadam/coursemarket/validate"
)

func HandleCreate(db *sqlx.DB, gw *midtrans.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var pn PaymentNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(pn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		checkout, err := create(ctx, db, gw, clm.UserID, pn.CourseID)
		if err != nil {
			switch {
			case errors.Is(err, course.ErrNotFound):
				return weberr.NotFound(err)

			case errors.Is(err, ErrNotPurchasable):
				return weberr.NewError(ErrNotPurchasable, ErrNotPurchasable.Error(), http.StatusUnprocessableEntity)

			case errors.Is(err, ErrAlreadyEnrolled):
				return weberr.NewError(ErrAlreadyEnrolled, ErrAlreadyEnrolled.Error(), http.StatusUnprocessableEntity)

			case errors.Is(err, midtrans.ErrUnavailable):
				return weberr.NewError(err, "payment provider unavailable, retry later", http.StatusBadGateway)
			}

			var rejected *midtrans.RejectedError
			if errors.As(err, &rejected) {
				return weberr.NewError(err, rejected.Error(), http.StatusUnprocessableEntity)
			}

			return fmt.Errorf("creating checkout for user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, checkout, http.StatusOK)
	}
}

// HandleNotification processes the asynchronous gateway callback. The
// gateway retries on any non-200, so every internal failure is logged with
// the order id and acknowledged anyway; the sweeper picks up what a lost
// delivery leaves behind.
func HandleNotification(db *sqlx.DB, gw *midtrans.Client, log logrus.FieldLogger) web.Handler {
	type ack struct {
		Status string `json:"status"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		// Gateway payloads carry many fields beyond the ones used here, so
		// no strict decoding.
		var ntf Notification
		if err := json.NewDecoder(r.Body).Decode(&ntf); err != nil {
			log.WithField("message", err).Error("payment notification: undecodable payload")
			return web.Respond(ctx, w, ack{"OK"}, http.StatusOK)
		}

		log = log.WithField("order_id", ntf.OrderID)

		if ntf.OrderID == "" {
			log.Error("payment notification: missing order_id")
			return web.Respond(ctx, w, ack{"OK"}, http.StatusOK)
		}

		if ntf.SignatureKey != "" && !gw.VerifySignature(ntf.OrderID, ntf.StatusCode, ntf.GrossAmount, ntf.SignatureKey) {
			log.Error("payment notification: invalid signature")
			return web.Respond(ctx, w, ack{"OK"}, http.StatusOK)
		}

		if err := Reconcile(ctx, db, gw, log, ntf.OrderID); err != nil {
			log.WithField("message", err).Error("payment notification: reconciliation failed")
		}

		return web.Respond(ctx, w, ack{"OK"}, http.StatusOK)
	}
}

// StatusView is the payment with its course and instructor resolved.
type StatusView struct {
	Payment
	Course     course.Course `json:"course"`
	Instructor user.User     `json:"instructor"`
}

func HandleStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orderID := web.Param(r, "order_id")

		pay, err := Fetch(ctx, db, orderID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching payment[%s]: %w", orderID, err)
		}

		ins, err := instructor.Fetch(ctx, db, pay.InstructorID)
		if err != nil {
			return fmt.Errorf("fetching instructor[%s]: %w", pay.InstructorID, err)
		}

		if pay.UserID != clm.UserID && ins.UserID != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("payment belongs to another user"))
		}

		crs, err := course.Fetch(ctx, db, pay.CourseID)
		if err != nil {
			return fmt.Errorf("fetching course[%s]: %w", pay.CourseID, err)
		}

		tutor, err := user.Fetch(ctx, db, ins.UserID)
		if err != nil {
			return fmt.Errorf("fetching instructor user[%s]: %w", ins.UserID, err)
		}

		view := StatusView{
			Payment:    pay,
			Course:     crs,
			Instructor: tutor,
		}
		return web.Respond(ctx, w, view, http.StatusOK)
	}
}

// EarningsView aggregates an instructor's sales.
type EarningsView struct {
	TotalEarnings int64          `json:"totalEarnings"`
	Payments      []EarningsItem `json:"payments"`
}

func HandleEarnings(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ins, err := instructor.FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, instructor.ErrNotFound) {
				return weberr.Forbidden(errors.New("not an instructor"))
			}
			return fmt.Errorf("fetching instructor profile: %w", err)
		}

		items, err := ListEarnings(ctx, db, ins.ID)
		if err != nil {
			return fmt.Errorf("listing earnings of instructor[%s]: %w", ins.ID, err)
		}

		view := EarningsView{
			TotalEarnings: ins.TotalEarnings,
			Payments:      items,
		}
		return web.Respond(ctx, w, view, http.StatusOK)
	}
}
