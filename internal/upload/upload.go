// Package upload accepts image uploads from admin forms and stores them
// locally or in S3-compatible object storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/rjweb/internal/config"
)

const (
	// MaxRequestSize caps the body of a form carrying uploads.
	MaxRequestSize = 8 << 20
	// maxMemory is how much of a multipart form is buffered in RAM.
	maxMemory = 1 << 20
)

var ErrDisallowedType = errors.New("file type not allowed")

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
}

// Storage persists an uploaded object and returns its public URL.
type Storage interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// New selects the backend named by cfg.Backend.
func New(cfg config.UploadsConfig) (Storage, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalStorage(cfg.Dir, "/static/uploads")
	case "s3":
		return NewS3Storage(cfg), nil
	default:
		return nil, fmt.Errorf("unknown uploads backend %q", cfg.Backend)
	}
}

// File is an accepted upload waiting to be stored.
type File struct {
	// Name is the generated object name, <uuid>.<ext>.
	Name        string
	ContentType string
	Size        int64
	body        multipart.File
}

func (f *File) Close() error {
	return f.body.Close()
}

// Extension returns the lowercased extension of filename if it is an
// allowed image type, or "".
func Extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !allowedExtensions[ext] {
		return ""
	}
	return ext
}

// Accept reads the file posted in field. It returns (nil, nil) when no file
// was sent and ErrDisallowedType for non-image extensions. The client's
// file name is only used for its extension.
func Accept(r *http.Request, field string) (*File, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", field, err)
	}
	if hdr.Filename == "" {
		f.Close()
		return nil, nil
	}

	ext := Extension(hdr.Filename)
	if ext == "" {
		f.Close()
		return nil, ErrDisallowedType
	}

	contentType := mime.TypeByExtension("." + ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &File{
		Name:        uuid.NewString() + "." + ext,
		ContentType: contentType,
		Size:        hdr.Size,
		body:        f,
	}, nil
}

// Uploader ties form handling to a Storage backend.
type Uploader struct {
	storage Storage
}

func NewUploader(storage Storage) *Uploader {
	return &Uploader{storage: storage}
}

// ParseForm limits the request body and parses it as a multipart form.
// Plain url-encoded forms are accepted too.
func (u *Uploader) ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// SaveFormFile stores the file posted in field and returns its public URL,
// or "" when no file was sent.
func (u *Uploader) SaveFormFile(ctx context.Context, r *http.Request, field string) (string, error) {
	f, err := Accept(r, field)
	if err != nil || f == nil {
		return "", err
	}
	defer f.Close()

	url, err := u.storage.Save(ctx, f.Name, f.ContentType, f.body)
	if err != nil {
		return "", fmt.Errorf("save upload %s: %w", f.Name, err)
	}
	return url, nil
}
