package instructor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("instructor not found")

func Create(ctx context.Context, e sqlx.ExtContext, ins Instructor) error {
	const q = `
	INSERT INTO instructors
		(instructor_id, user_id, bio, bank_name, bank_account_name, bank_account_number, total_earnings, created_at, updated_at)
	VALUES
		(:instructor_id, :user_id, :bio, :bank_name, :bank_account_name, :bank_account_number, :total_earnings, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, e, q, ins); err != nil {
		return fmt.Errorf("inserting instructor: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, e sqlx.ExtContext, id string) (Instructor, error) {
	const q = `SELECT * FROM instructors WHERE instructor_id = $1`

	var ins Instructor
	if err := sqlx.GetContext(ctx, e, &ins, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Instructor{}, ErrNotFound
		}
		return Instructor{}, fmt.Errorf("selecting instructor: %w", err)
	}
	return ins, nil
}

func FetchByUser(ctx context.Context, e sqlx.ExtContext, userID string) (Instructor, error) {
	const q = `SELECT * FROM instructors WHERE user_id = $1`

	var ins Instructor
	if err := sqlx.GetContext(ctx, e, &ins, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Instructor{}, ErrNotFound
		}
		return Instructor{}, fmt.Errorf("selecting instructor by user: %w", err)
	}
	return ins, nil
}

func UpdateBankAccount(ctx context.Context, e sqlx.ExtContext, id string, up BankAccountUp) error {
	const q = `
	UPDATE instructors SET
		bank_name = $2,
		bank_account_name = $3,
		bank_account_number = $4,
		updated_at = now()
	WHERE instructor_id = $1`

	if _, err := e.ExecContext(ctx, q, id, up.BankName, up.BankAccountName, up.BankAccountNumber); err != nil {
		return fmt.Errorf("updating bank account: %w", err)
	}
	return nil
}

// Credit adds amount to the earnings accumulator. Callers must make sure the
// credit is applied at most once per order (see core/payment).
func Credit(ctx context.Context, e sqlx.ExtContext, id string, amount int64) error {
	const q = `
	UPDATE instructors SET
		total_earnings = total_earnings + $2,
		updated_at = now()
	WHERE instructor_id = $1`

	res, err := e.ExecContext(ctx, q, id, amount)
	if err != nil {
		return fmt.Errorf("crediting earnings: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("crediting earnings: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
