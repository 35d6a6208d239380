package instructor

import "time"

type Instructor struct {
	ID                string    `json:"id" db:"instructor_id"`
	UserID            string    `json:"userId" db:"user_id"`
	Bio               string    `json:"bio" db:"bio"`
	BankName          string    `json:"bankName" db:"bank_name"`
	BankAccountName   string    `json:"bankAccountName" db:"bank_account_name"`
	BankAccountNumber string    `json:"bankAccountNumber" db:"bank_account_number"`
	TotalEarnings     int64     `json:"totalEarnings" db:"total_earnings"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

type BankAccountUp struct {
	BankName          string `json:"bankName" validate:"required"`
	BankAccountName   string `json:"bankAccountName" validate:"required"`
	BankAccountNumber string `json:"bankAccountNumber" validate:"required,numeric"`
}
