package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Page content keys, grouped by the page that renders them.
var (
	HomeKeys  = []string{"home_title", "home_subtitle", "home_value", "home_image"}
	AboutKeys = []string{"about_story", "about_team"}
)

// ServiceKey returns the page content key for field of service n (1-based),
// e.g. ServiceKey(2, "price") is "service2_price".
func ServiceKey(n int, field string) string {
	return fmt.Sprintf("service%d_%s", n, field)
}

// ServiceCount is the number of service cards on the services page.
const ServiceCount = 3

// ServiceKeys lists every content key used by the services page.
func ServiceKeys() []string {
	var keys []string
	for i := 1; i <= ServiceCount; i++ {
		for _, f := range []string{"title", "desc", "price", "image"} {
			keys = append(keys, ServiceKey(i, f))
		}
	}
	return keys
}

type ContentStore struct {
	db *sql.DB
}

func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Get returns the value for key, or "" if the key is absent.
func (s *ContentStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM page_content WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get content %q: %w", key, err)
	}
	return value, nil
}

// GetMany returns the values for keys. Absent keys map to "".
func (s *ContentStore) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	content := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return content, nil
	}
	for _, k := range keys {
		content[k] = ""
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM page_content WHERE key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		content[key] = value
	}
	return content, rows.Err()
}

func (s *ContentStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_content (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set content %q: %w", key, err)
	}
	return nil
}

// SetMany writes all values in one transaction.
func (s *ContentStore) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for key, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_content (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("set content %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit content: %w", err)
	}
	return nil
}
