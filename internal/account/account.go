// Package account manages admin users: creation, login checks, email
// verification and profile changes.
package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/rjweb/internal/model"
	"github.com/dukerupert/rjweb/internal/store"
)

// UserRepository is the admin user persistence the service needs.
// store.AdminUserStore implements it.
type UserRepository interface {
	Create(ctx context.Context, username, email, passwordHash string, token *string) (*model.AdminUser, error)
	CreateIfEmpty(ctx context.Context, username, email, passwordHash string) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	List(ctx context.Context) ([]model.AdminUser, error)
	Count(ctx context.Context) (int, error)
	UpdateCredentials(ctx context.Context, id int64, username string, passwordHash *string) (*model.AdminUser, error)
	ResetEmail(ctx context.Context, id int64, email, token string) (*model.AdminUser, error)
	ConsumeVerificationToken(ctx context.Context, token string) (*model.AdminUser, error)
	DeleteUnlessLast(ctx context.Context, id int64) (bool, error)
}

// VerificationSender delivers the verify-email link for token.
type VerificationSender interface {
	SendVerification(ctx context.Context, email, token string) error
}

type Service struct {
	users    UserRepository
	mailer   VerificationSender
	hashCost int
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func NewService(users UserRepository, mailer VerificationSender, opts ...Option) *Service {
	s := &Service{
		users:    users,
		mailer:   mailer,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BootstrapUser is the account created when the store has no users.
type BootstrapUser struct {
	Username string
	Email    string
	Password string
}

// ProfileChange is a submitted profile form. An empty Password leaves the
// password unchanged.
type ProfileChange struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type ProfileResult struct {
	User *model.AdminUser
	// ReverifyRequired is set when the email changed and must be verified again.
	ReverifyRequired bool
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) sendVerification(ctx context.Context, email, token string) error {
	if err := s.mailer.SendVerification(ctx, email, token); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDispatch, err)
	}
	return nil
}

// Bootstrap creates u as a verified user if no users exist yet.
// Reports whether it created one.
func (s *Service) Bootstrap(ctx context.Context, u BootstrapUser) (bool, error) {
	hash, err := s.hashPassword(u.Password)
	if err != nil {
		return false, err
	}
	created, err := s.users.CreateIfEmpty(ctx, u.Username, u.Email, hash)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin user: %w", err)
	}
	return created, nil
}

// CreateUser stores a new unverified user and emails its verification link.
// If only the email fails, the user is returned along with an error
// wrapping ErrMailDispatch.
func (s *Service) CreateUser(ctx context.Context, username, email, password string) (*model.AdminUser, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateIdentity
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateIdentity
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, username, email, hash, &token)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateIdentity
	}
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, u.Email, token); err != nil {
		return u, err
	}
	return u, nil
}

// VerifyToken consumes a verification token. Tokens are single use and do
// not expire.
func (s *Service) VerifyToken(ctx context.Context, token string) (*model.AdminUser, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	u, err := s.users.ConsumeVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidOrExpiredToken
	}
	return u, nil
}

// Authenticate checks a username and password. A correct password for an
// unverified user fails with ErrEmailNotVerified.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.AdminUser, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return u, nil
}

// ChangeProfile applies a profile form for userID.
//
// When the email changes, only the email is updated: the user becomes
// unverified with a fresh token and a verification email is sent. Username
// and password edits submitted in the same form are not applied.
func (s *Service) ChangeProfile(ctx context.Context, userID int64, change ProfileChange) (*ProfileResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	username := strings.TrimSpace(change.Username)
	email := strings.TrimSpace(change.Email)
	if username == "" || email == "" {
		return nil, ErrMissingField
	}
	if change.Password != "" && change.Password != change.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if username != u.Username {
		taken, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, ErrDuplicateIdentity
		}
	}

	if email != u.Email {
		token, err := generateToken()
		if err != nil {
			return nil, err
		}
		updated, err := s.users.ResetEmail(ctx, u.ID, email, token)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		if err != nil {
			return nil, err
		}
		result := &ProfileResult{User: updated, ReverifyRequired: true}
		if err := s.sendVerification(ctx, email, token); err != nil {
			return result, err
		}
		return result, nil
	}

	if username == u.Username && change.Password == "" {
		return &ProfileResult{User: u}, nil
	}

	var hash *string
	if change.Password != "" {
		h, err := s.hashPassword(change.Password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}
	updated, err := s.users.UpdateCredentials(ctx, u.ID, username, hash)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateIdentity
	}
	if err != nil {
		return nil, err
	}
	return &ProfileResult{User: updated}, nil
}

// DeleteUser removes targetID on behalf of actingID. Users cannot delete
// themselves and the last remaining user is never deleted.
func (s *Service) DeleteUser(ctx context.Context, actingID, targetID int64) error {
	if actingID == targetID {
		return ErrSelfDeletion
	}

	n, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}

	deleted, err := s.users.DeleteUnlessLast(ctx, targetID)
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}

	// Nothing deleted: either the target is gone or a concurrent delete
	// left it as the last user.
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return ErrLastAdmin
}

// ResendVerification re-sends the pending token for userID. A verified
// user yields ErrAlreadyVerified and no email.
func (s *Service) ResendVerification(ctx context.Context, userID int64) (*model.AdminUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if !u.PendingVerification() {
		return u, ErrAlreadyVerified
	}
	if err := s.sendVerification(ctx, u.Email, *u.VerificationToken); err != nil {
		return u, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.AdminUser, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]model.AdminUser, error) {
	return s.users.List(ctx)
}
