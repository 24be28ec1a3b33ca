package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/rjweb/internal/model"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func scanMessage(scanner interface{ Scan(...any) error }) (*model.ContactMessage, error) {
	var m model.ContactMessage
	var read int

	err := scanner.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.Timestamp, &read)
	if err != nil {
		return nil, err
	}
	m.Read = read != 0
	return &m, nil
}

const messageCols = `id, name, email, message, timestamp, read_status`

func (s *MessageStore) Create(ctx context.Context, name, email, message string) (*model.ContactMessage, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (name, email, message) VALUES (?, ?, ?)`,
		name, email, message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert contact message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *MessageStore) GetByID(ctx context.Context, id int64) (*model.ContactMessage, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageCols+` FROM contact_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact message: %w", err)
	}
	return m, nil
}

// List returns all messages, newest first.
func (s *MessageStore) List(ctx context.Context) ([]model.ContactMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+messageCols+` FROM contact_messages ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ContactMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (s *MessageStore) Counts(ctx context.Context) (model.MessageCounts, error) {
	var c model.MessageCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN read_status = 0 THEN 1 ELSE 0 END), 0) FROM contact_messages`,
	).Scan(&c.Total, &c.Unread)
	if err != nil {
		return c, fmt.Errorf("count contact messages: %w", err)
	}
	return c, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE contact_messages SET read_status = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark contact message read: %w", err)
	}
	return nil
}

func (s *MessageStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contact message: %w", err)
	}
	return nil
}
