package cart

import "time"

type Item struct {
	UserID    string    `json:"-" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type ItemNew struct {
	CourseID string `json:"courseId" validate:"required,uuid4"`
}
