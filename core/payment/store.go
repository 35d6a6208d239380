package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

func Create(ctx context.Context, e sqlx.ExtContext, pay Payment) error {
	const q = `
	INSERT INTO payments
		(order_id, course_id, user_id, instructor_id, amount, currency, status, payment_link, gateway_response, created_at, updated_at)
	VALUES
		(:order_id, :course_id, :user_id, :instructor_id, :amount, :currency, :status, :payment_link, :gateway_response, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, e, q, pay); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, e sqlx.ExtContext, orderID string) (Payment, error) {
	const q = `SELECT * FROM payments WHERE order_id = $1`

	var pay Payment
	if err := sqlx.GetContext(ctx, e, &pay, q, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, fmt.Errorf("selecting payment: %w", err)
	}
	return pay, nil
}

// SetLink attaches the hosted payment page once. A second write is a no-op,
// keeping the link immutable.
func SetLink(ctx context.Context, e sqlx.ExtContext, orderID string, link string) error {
	const q = `
	UPDATE payments SET payment_link = $2, updated_at = now()
	WHERE order_id = $1 AND payment_link = ''`

	if _, err := e.ExecContext(ctx, q, orderID, link); err != nil {
		return fmt.Errorf("setting payment link: %w", err)
	}
	return nil
}

// Transition conditionally advances the status. The update applies only when
// the row is still pending, so terminal states are sticky no matter how the
// caller behaves, and two concurrent reconciliations cannot both win: the
// row lock serializes them and exactly one sees rows-affected = 1.
func Transition(ctx context.Context, e sqlx.ExtContext, orderID string, to Status, raw []byte) (bool, error) {
	const q = `
	UPDATE payments SET status = $2, gateway_response = $3, updated_at = now()
	WHERE order_id = $1 AND status = 'pending'`

	res, err := e.ExecContext(ctx, q, orderID, to, raw)
	if err != nil {
		return false, fmt.Errorf("transitioning payment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transitioning payment: %w", err)
	}
	return n == 1, nil
}

// RecordResponse overwrites the audit copy of the latest gateway payload
// without ever touching the status.
func RecordResponse(ctx context.Context, e sqlx.ExtContext, orderID string, raw []byte) error {
	const q = `
	UPDATE payments SET gateway_response = $2, updated_at = now()
	WHERE order_id = $1`

	if _, err := e.ExecContext(ctx, q, orderID, raw); err != nil {
		return fmt.Errorf("recording gateway response: %w", err)
	}
	return nil
}

// EarningsItem is one successful sale from the instructor's point of view.
type EarningsItem struct {
	OrderID     string    `json:"orderId" db:"order_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	CourseTitle string    `json:"courseTitle" db:"course_title"`
	BuyerName   string    `json:"buyerName" db:"buyer_name"`
	BuyerEmail  string    `json:"buyerEmail" db:"buyer_email"`
	Amount      int64     `json:"amount" db:"amount"`
	Currency    string    `json:"currency" db:"currency"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

func ListEarnings(ctx context.Context, e sqlx.ExtContext, instructorID string) ([]EarningsItem, error) {
	const q = `
	SELECT
		p.order_id, p.course_id, c.title AS course_title,
		u.name AS buyer_name, u.email AS buyer_email,
		p.amount, p.currency, p.created_at
	FROM payments p
	JOIN courses c ON c.course_id = p.course_id
	JOIN users u ON u.user_id = p.user_id
	WHERE p.instructor_id = $1 AND p.status = 'success'
	ORDER BY p.created_at DESC`

	items := []EarningsItem{}
	if err := sqlx.SelectContext(ctx, e, &items, q, instructorID); err != nil {
		return nil, fmt.Errorf("selecting earnings: %w", err)
	}
	return items, nil
}

// ListStalePending returns pending payments older than minAge for the
// background sweeper to reconcile.
func ListStalePending(ctx context.Context, e sqlx.ExtContext, minAgeSeconds int64, limit int) ([]string, error) {
	const q = `
	SELECT order_id FROM payments
	WHERE status = 'pending' AND created_at < now() - make_interval(secs => $1)
	ORDER BY created_at
	LIMIT $2`

	ids := []string{}
	if err := sqlx.SelectContext(ctx, e, &ids, q, minAgeSeconds, limit); err != nil {
		return nil, fmt.Errorf("selecting stale pending payments: %w", err)
	}
	return ids, nil
}
