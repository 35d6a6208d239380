package cart

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func AddItem(ctx context.Context, e sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO cart_items (user_id, course_id, created_at)
	VALUES (:user_id, :course_id, :created_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, e, q, it); err != nil {
		return fmt.Errorf("inserting cart item: %w", err)
	}
	return nil
}

func RemoveItem(ctx context.Context, e sqlx.ExtContext, userID string, courseID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND course_id = $2`

	if _, err := e.ExecContext(ctx, q, userID, courseID); err != nil {
		return fmt.Errorf("deleting cart item: %w", err)
	}
	return nil
}

func FetchItems(ctx context.Context, e sqlx.ExtContext, userID string) ([]Item, error) {
	const q = `SELECT * FROM cart_items WHERE user_id = $1 ORDER BY created_at`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, e, &items, q, userID); err != nil {
		return nil, fmt.Errorf("selecting cart items: %w", err)
	}
	return items, nil
}

// Delete flushes the whole cart of a user.
func Delete(ctx context.Context, e sqlx.ExtContext, userID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := e.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("flushing cart: %w", err)
	}
	return nil
}
