package model

import "time"

type AdminUser struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	EmailVerified     bool      `json:"email_verified"`
	VerificationToken *string   `json:"-"`
	PasswordHash      string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PendingVerification reports whether the user still holds an unconsumed
// verification token.
func (u AdminUser) PendingVerification() bool {
	return u.VerificationToken != nil
}
