package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/rjweb/internal/model"
)

type AdminUserStore struct {
	db *sql.DB
}

func NewAdminUserStore(db *sql.DB) *AdminUserStore {
	return &AdminUserStore{db: db}
}

func scanAdminUser(scanner interface{ Scan(...any) error }) (*model.AdminUser, error) {
	var u model.AdminUser
	var verified int
	var token sql.NullString

	err := scanner.Scan(
		&u.ID, &u.Username, &u.Email, &verified, &token,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.EmailVerified = verified != 0
	if token.Valid {
		u.VerificationToken = &token.String
	}
	return &u, nil
}

const adminUserCols = `id, username, email, email_verified, verification_token, password_hash, created_at, updated_at`

// Create inserts a new admin user. A non-nil token marks the user as
// unverified; a nil token stores the user as already verified.
// Returns ErrDuplicate if the username, email or token is taken.
func (s *AdminUserStore) Create(ctx context.Context, username, email, passwordHash string, token *string) (*model.AdminUser, error) {
	verified := 1
	var tok sql.NullString
	if token != nil {
		verified = 0
		tok = sql.NullString{String: *token, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_user (username, email, email_verified, verification_token, password_hash) VALUES (?, ?, ?, ?, ?)`,
		username, email, verified, tok, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert admin user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// CreateIfEmpty inserts a verified user only when the table has no rows.
// The check and insert run as one statement. Reports whether a row was added.
func (s *AdminUserStore) CreateIfEmpty(ctx context.Context, username, email, passwordHash string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_user (username, email, email_verified, password_hash)
		 SELECT ?, ?, 1, ? WHERE NOT EXISTS (SELECT 1 FROM admin_user)`,
		username, email, passwordHash,
	)
	if err != nil {
		return false, fmt.Errorf("insert bootstrap user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *AdminUserStore) GetByID(ctx context.Context, id int64) (*model.AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminUserCols+` FROM admin_user WHERE id = ?`, id)
	u, err := scanAdminUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	return u, nil
}

func (s *AdminUserStore) GetByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminUserCols+` FROM admin_user WHERE username = ?`, username)
	u, err := scanAdminUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin user by username: %w", err)
	}
	return u, nil
}

func (s *AdminUserStore) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminUserCols+` FROM admin_user WHERE email = ?`, email)
	u, err := scanAdminUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin user by email: %w", err)
	}
	return u, nil
}

func (s *AdminUserStore) List(ctx context.Context) ([]model.AdminUser, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adminUserCols+` FROM admin_user ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	var users []model.AdminUser
	for rows.Next() {
		u, err := scanAdminUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *AdminUserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_user`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admin users: %w", err)
	}
	return n, nil
}

// UpdateCredentials sets the username and, when passwordHash is non-nil,
// the password hash. Returns ErrDuplicate if the username is taken.
func (s *AdminUserStore) UpdateCredentials(ctx context.Context, id int64, username string, passwordHash *string) (*model.AdminUser, error) {
	var hash sql.NullString
	if passwordHash != nil {
		hash = sql.NullString{String: *passwordHash, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE admin_user
		 SET username = ?, password_hash = COALESCE(?, password_hash), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		username, hash, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update admin user credentials: %w", err)
	}
	return s.GetByID(ctx, id)
}

// ResetEmail stores a new email address, clears the verified flag and
// installs a fresh verification token in a single statement.
// Returns ErrDuplicate if the email or token is taken.
func (s *AdminUserStore) ResetEmail(ctx context.Context, id int64, email, token string) (*model.AdminUser, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE admin_user
		 SET email = ?, email_verified = 0, verification_token = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		email, token, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("reset admin user email: %w", err)
	}
	return s.GetByID(ctx, id)
}

// ConsumeVerificationToken marks the user holding token as verified and
// clears the token. Returns nil if no user holds the token. The match and
// update are one statement, so a token can be consumed at most once.
func (s *AdminUserStore) ConsumeVerificationToken(ctx context.Context, token string) (*model.AdminUser, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE admin_user
		 SET email_verified = 1, verification_token = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE verification_token = ?
		 RETURNING id`,
		token,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	return s.GetByID(ctx, id)
}

// DeleteUnlessLast removes the user unless it is the only row left.
// Reports whether a row was deleted.
func (s *AdminUserStore) DeleteUnlessLast(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM admin_user WHERE id = ? AND (SELECT COUNT(*) FROM admin_user) > 1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("delete admin user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
