package storage

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/support-me/internal/apperr"
)

// Минимальная сигнатура PNG, достаточная для определения типа.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(MaxImageSize*2))

	return req.MultipartForm.File["image"][0]
}

func TestSaveAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)

	stored, err := s.Save(SubscriptionImage, "creator", fileHeader(t, "my cover.png", "image/png", pngBytes))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored, "/static/uploads/subscription_images/creator_"), stored)
	assert.True(t, strings.HasSuffix(stored, "_my_cover.png"), stored)

	onDisk := filepath.Join(root, strings.TrimPrefix(stored, "/static/"))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	require.NoError(t, s.Delete(stored))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(stored), "deleting a missing file is not an error")
}

func TestSave_Validation(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name string
		kind Kind
		fh   *multipart.FileHeader
		want *apperr.Error
	}{
		{
			name: "empty file",
			kind: ProfilePicture,
			fh:   fileHeader(t, "a.png", "image/png", nil),
			want: apperr.ErrInvalidInput,
		},
		{
			name: "declared type is not an image",
			kind: ProfilePicture,
			fh:   fileHeader(t, "a.txt", "text/plain", []byte("hello")),
			want: ProfilePicture.notImage,
		},
		{
			name: "content is not an image",
			kind: CoverPicture,
			fh:   fileHeader(t, "a.png", "image/png", []byte("plain text pretending")),
			want: CoverPicture.notImage,
		},
		{
			name: "too large",
			kind: SubscriptionImage,
			fh:   fileHeader(t, "big.png", "image/png", append(pngBytes, make([]byte, MaxImageSize)...)),
			want: SubscriptionImage.tooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(tt.kind, "user", tt.fh)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDelete_RejectsForeignPaths(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete("/etc/passwd"), ErrOutsideRoot)
	assert.ErrorIs(t, s.Delete("/static/../go.mod"), ErrOutsideRoot)
	assert.ErrorIs(t, s.Delete("/static/uploads/../../secret"), ErrOutsideRoot)
	assert.NoError(t, s.Delete(""))
}

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"photo.png":            "photo.png",
		"my photo.png":         "my_photo.png",
		"../../etc/passwd":     "passwd",
		`C:\Users\me\pic.jpg`:  "pic.jpg",
		"фото.png":             "png",
		"..":                   "file",
		"  spaced  name .gif ": "spaced_name_.gif",
	}

	for in, want := range tests {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}
