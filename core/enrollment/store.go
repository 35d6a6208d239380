package enrollment

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Create inserts the enrollment with set semantics: re-inserting an existing
// (user, course) pair is a harmless no-op.
func Create(ctx context.Context, e sqlx.ExtContext, enr Enrollment) error {
	const q = `
	INSERT INTO enrollments (user_id, course_id, order_id, enrolled_at)
	VALUES (:user_id, :course_id, :order_id, :enrolled_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, e, q, enr); err != nil {
		return fmt.Errorf("inserting enrollment: %w", err)
	}
	return nil
}

func Exists(ctx context.Context, e sqlx.ExtContext, userID string, courseID string) (bool, error) {
	const q = `
	SELECT EXISTS (
		SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2
	)`

	var found bool
	if err := sqlx.GetContext(ctx, e, &found, q, userID, courseID); err != nil {
		return false, fmt.Errorf("checking enrollment: %w", err)
	}
	return found, nil
}

func FetchByUser(ctx context.Context, e sqlx.ExtContext, userID string) ([]Enrollment, error) {
	const q = `
	SELECT user_id, course_id, order_id, enrolled_at
	FROM enrollments
	WHERE user_id = $1
	ORDER BY enrolled_at DESC`

	enrs := []Enrollment{}
	if err := sqlx.SelectContext(ctx, e, &enrs, q, userID); err != nil {
		return nil, fmt.Errorf("selecting enrollments: %w", err)
	}
	return enrs, nil
}
