package enrollment

import "time"

// Enrollment is a durable grant of course access to a user. At most one
// exists per (user, course), no matter how many purchase attempts were made.
type Enrollment struct {
	UserID     string    `json:"userId" db:"user_id"`
	CourseID   string    `json:"courseId" db:"course_id"`
	OrderID    *string   `json:"orderId,omitempty" db:"order_id"`
	EnrolledAt time.Time `json:"enrolledAt" db:"enrolled_at"`
}
