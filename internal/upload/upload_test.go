package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var objectName = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(png|jpg|jpeg|gif|webp)$`)

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Hello"))
	if filename != "" || content != nil {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/manage-blog", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"photo.PNG":       "png",
		"a.b.jpeg":        "jpeg",
		"anim.gif":        "gif",
		"pic.webp":        "webp",
		"shell.php":       "",
		"noext":           "",
		"../../etc/x.jpg": "jpg",
	}
	for in, want := range tests {
		assert.Equal(t, want, Extension(in), in)
	}
}

func TestAcceptNoFile(t *testing.T) {
	req := multipartRequest(t, "image", "", nil)

	f, err := Accept(req, "image")
	assert.NoError(t, err)
	assert.Nil(t, f)
}

func TestAcceptURLEncodedForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, err := Accept(req, "image")
	assert.NoError(t, err)
	assert.Nil(t, f)
}

func TestAcceptDisallowed(t *testing.T) {
	req := multipartRequest(t, "image", "evil.exe", []byte("MZ"))

	_, err := Accept(req, "image")
	assert.ErrorIs(t, err, ErrDisallowedType)
}

func TestAcceptGeneratesName(t *testing.T) {
	req := multipartRequest(t, "image", "My Photo.JPG", []byte("jpeg-bytes"))

	f, err := Accept(req, "image")
	require.NoError(t, err)
	require.NotNil(t, f)
	defer f.Close()

	assert.Regexp(t, objectName, f.Name)
	assert.True(t, strings.HasSuffix(f.Name, ".jpg"))
	assert.Equal(t, "image/jpeg", f.ContentType)
	assert.Equal(t, int64(len("jpeg-bytes")), f.Size)
}

func TestLocalStorageSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	storage, err := NewLocalStorage(dir, "/static/uploads")
	require.NoError(t, err)

	u := NewUploader(storage)
	req := multipartRequest(t, "image", "pic.png", []byte("png-bytes"))
	rec := httptest.NewRecorder()
	require.NoError(t, u.ParseForm(rec, req))
	assert.Equal(t, "Hello", req.FormValue("title"))

	url, err := u.SaveFormFile(context.Background(), req, "image")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/static/uploads/"), url)

	name := strings.TrimPrefix(url, "/static/uploads/")
	assert.Regexp(t, objectName, name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSaveFormFileNoFile(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir(), "/static/uploads")
	require.NoError(t, err)

	url, err := NewUploader(storage).SaveFormFile(context.Background(), multipartRequest(t, "image", "", nil), "image")
	assert.NoError(t, err)
	assert.Empty(t, url)
}

func TestParseFormTooLarge(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir(), "/static/uploads")
	require.NoError(t, err)

	req := multipartRequest(t, "image", "big.png", bytes.Repeat([]byte("x"), MaxRequestSize+1))
	err = NewUploader(storage).ParseForm(httptest.NewRecorder(), req)
	assert.Error(t, err)
}

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Bucket+"/"+*input.Key] = data
	m.types[*input.Key] = *input.ContentType
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorageSave(t *testing.T) {
	mock := &mockS3Client{objects: map[string][]byte{}, types: map[string]string{}}
	storage := &S3Storage{client: mock, bucket: "site", publicBaseURL: "https://cdn.example.com"}

	url, err := storage.Save(context.Background(), "abc.webp", "image/webp", strings.NewReader("webp"))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/uploads/abc.webp", url)
	assert.Equal(t, "webp", string(mock.objects["site/uploads/abc.webp"]))
	assert.Equal(t, "image/webp", mock.types["uploads/abc.webp"])
}

func TestS3StorageSaveError(t *testing.T) {
	mock := &mockS3Client{putErr: errors.New("access denied")}
	storage := &S3Storage{client: mock, bucket: "site", publicBaseURL: "https://cdn.example.com"}

	_, err := storage.Save(context.Background(), "abc.png", "image/png", strings.NewReader("x"))
	assert.Error(t, err)
}
