package user

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

type User struct {
	ID           string         `json:"id" db:"user_id"`
	Name         string         `json:"name" db:"name"`
	Email        string         `json:"email" db:"email"`
	PasswordHash *string        `json:"-" db:"password_hash"`
	AvatarURL    string         `json:"avatarUrl" db:"avatar_url"`
	Role         string         `json:"role" db:"role"`
	AuthProvider string         `json:"authProvider" db:"auth_provider"`
	Interests    pq.StringArray `json:"interests" db:"interests"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time      `json:"updatedAt" db:"updated_at"`
}

type ProfileUp struct {
	Name      *string  `json:"name" validate:"omitempty,min=2,max=80"`
	AvatarURL *string  `json:"avatarUrl" validate:"omitempty,url"`
	Interests []string `json:"interests" validate:"omitempty,max=20"`
}

// FirstLast splits the display name the way the payment gateway expects its
// customer details.
func (u User) FirstLast() (string, string) {
	parts := strings.Fields(u.Name)
	if len(parts) == 0 {
		return u.Name, ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
