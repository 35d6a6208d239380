package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/santosoadam/coursemarket/core/course"
	"github.com/santosoadam/coursemarket/core/enrollment"
	"github.com/santosoadam/coursemarket/core/user"
	"github.com/santosoadam/coursemarket/gateway/midtrans"
	"github.com/santosoadam/coursemarket/validate"
)

// Checkout is what the buyer gets back: the order handle and the hosted
// payment page to finish on.
type Checkout struct {
	OrderID     string `json:"orderId"`
	PaymentLink string `json:"paymentLink"`
	Token       string `json:"token"`
}

// create runs the eligibility gate, persists the pending order, and only
// then opens the gateway session. A gateway failure therefore leaves a
// pending row the sweeper can reconcile instead of an orphaned session.
func create(ctx context.Context, db *sqlx.DB, gw *midtrans.Client, userID string, courseID string) (Checkout, error) {
	crs, err := course.Fetch(ctx, db, courseID)
	if err != nil {
		return Checkout{}, fmt.Errorf("fetching course[%s]: %w", courseID, err)
	}

	// Unpublished courses are invisible to buyers, a known UUID included.
	if !crs.Published {
		return Checkout{}, course.ErrNotFound
	}

	if crs.Pricing != course.PricingPaid || crs.Price <= 0 {
		return Checkout{}, ErrNotPurchasable
	}

	enrolled, err := enrollment.Exists(ctx, db, userID, courseID)
	if err != nil {
		return Checkout{}, fmt.Errorf("checking enrollment: %w", err)
	}
	if enrolled {
		return Checkout{}, ErrAlreadyEnrolled
	}

	buyer, err := user.Fetch(ctx, db, userID)
	if err != nil {
		return Checkout{}, fmt.Errorf("fetching buyer[%s]: %w", userID, err)
	}

	now := time.Now().UTC()
	pay := Payment{
		OrderID:      "ORDER-" + validate.GenerateID(),
		CourseID:     crs.ID,
		UserID:       buyer.ID,
		InstructorID: crs.InstructorID,
		Amount:       crs.Price,
		Currency:     crs.Currency,
		Status:       Pending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := Create(ctx, db, pay); err != nil {
		return Checkout{}, fmt.Errorf("creating payment: %w", err)
	}

	first, last := buyer.FirstLast()
	session, err := gw.CreateTransaction(ctx,
		midtrans.TransactionDetails{
			OrderID:     pay.OrderID,
			GrossAmount: pay.Amount,
		},
		midtrans.CustomerDetails{
			FirstName: first,
			LastName:  last,
			Email:     buyer.Email,
		},
		[]midtrans.ItemDetail{{
			ID:       crs.ID,
			Price:    pay.Amount,
			Quantity: 1,
			Name:     crs.Title,
			Category: crs.Category,
		}},
	)
	if err != nil {
		return Checkout{}, fmt.Errorf("opening gateway session for payment[%s]: %w", pay.OrderID, err)
	}

	if err := SetLink(ctx, db, pay.OrderID, session.RedirectURL); err != nil {
		return Checkout{}, fmt.Errorf("attaching payment link to payment[%s]: %w", pay.OrderID, err)
	}

	return Checkout{
		OrderID:     pay.OrderID,
		PaymentLink: session.RedirectURL,
		Token:       session.Token,
	}, nil
}
