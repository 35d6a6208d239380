package payment

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx/types"
)

type Status string

const (
	Pending Status = "pending"
	Success Status = "success"
	Failed  Status = "failed"
	Expired Status = "expired"
)

// Terminal statuses are sticky: the store refuses any further transition.
func (s Status) Terminal() bool {
	return s == Success || s == Failed || s == Expired
}

var (
	ErrNotFound       = errors.New("payment not found")
	ErrDuplicateOrder = errors.New("a payment with this order id already exists")
	ErrNotPurchasable = errors.New("this course is free")
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
)

// Payment is a single purchase attempt for one course by one buyer. Rows are
// financial audit records: never deleted, and order id, buyer, course, amount
// and currency are immutable after creation.
type Payment struct {
	OrderID         string         `json:"orderId" db:"order_id"`
	CourseID        string         `json:"courseId" db:"course_id"`
	UserID          string         `json:"userId" db:"user_id"`
	InstructorID    string         `json:"instructorId" db:"instructor_id"`
	Amount          int64          `json:"amount" db:"amount"`
	Currency        string         `json:"currency" db:"currency"`
	Status          Status         `json:"status" db:"status"`
	PaymentLink     string         `json:"paymentLink" db:"payment_link"`
	GatewayResponse types.JSONText `json:"-" db:"gateway_response"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}

type PaymentNew struct {
	CourseID string `json:"courseId" validate:"required,uuid4"`
}

// Notification is the webhook payload sent by the gateway. It is treated as
// a hint only: the authoritative state is re-queried from the gateway.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}
