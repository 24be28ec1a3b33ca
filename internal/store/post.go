package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/rjweb/internal/model"
)

// PostDateLayout is the human-readable publish date stored with each post.
const PostDateLayout = "January 02, 2006"

type PostStore struct {
	db *sql.DB
}

func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

func scanPost(scanner interface{ Scan(...any) error }) (*model.Post, error) {
	var p model.Post
	var imageURL sql.NullString

	err := scanner.Scan(&p.ID, &p.Title, &p.Content, &p.Date, &imageURL)
	if err != nil {
		return nil, err
	}
	if imageURL.Valid && imageURL.String != "" {
		p.ImageURL = &imageURL.String
	}
	return &p, nil
}

const postCols = `id, title, content, date, image_url`

func (s *PostStore) Create(ctx context.Context, title, content, date string, imageURL *string) (*model.Post, error) {
	var img sql.NullString
	if imageURL != nil {
		img = sql.NullString{String: *imageURL, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (title, content, date, image_url) VALUES (?, ?, ?, ?)`,
		title, content, date, img,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PostStore) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postCols+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// List returns all posts, newest first.
func (s *PostStore) List(ctx context.Context) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postCols+` FROM posts ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (s *PostStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// SeedIfEmpty inserts the welcome posts when the blog has no posts at all.
// Reports whether anything was inserted.
func (s *PostStore) SeedIfEmpty(ctx context.Context, date string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return false, fmt.Errorf("count posts: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	samples := []struct{ title, content string }{
		{"Welcome to Our Blog", "We share tips on web development and IT."},
		{"Why Choose Professional Web Services?", "A good website builds trust and grows your business."},
	}
	for _, p := range samples {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO posts (title, content, date) VALUES (?, ?, ?)`,
			p.title, p.content, date,
		); err != nil {
			return false, fmt.Errorf("insert sample post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit sample posts: %w", err)
	}
	return true, nil
}
