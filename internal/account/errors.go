package account

import "errors"

var (
	ErrMissingField          = errors.New("username, email and password are required")
	ErrDuplicateIdentity     = errors.New("username or email already exists")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrEmailNotVerified      = errors.New("email address not verified")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired verification link")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrSelfDeletion          = errors.New("cannot delete your own account")
	ErrLastAdmin             = errors.New("cannot delete the last admin user")
	ErrUserNotFound          = errors.New("user not found")
	ErrAlreadyVerified       = errors.New("email address already verified")

	// ErrMailDispatch wraps a failed verification email. The account change
	// that triggered the email has already been stored.
	ErrMailDispatch = errors.New("could not send verification email")
)
