// Package storage сохраняет загруженные изображения на локальный диск.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/mmeshcher/support-me/internal/apperr"
)

// MaxImageSize ограничивает размер загружаемого изображения.
const MaxImageSize = 2 << 20

// URLPrefix задаёт префикс, под которым раздаются статические файлы.
const URLPrefix = "/static"

// Kind описывает категорию изображений: каталог и сообщения об ошибках проверки.
type Kind struct {
	dir      string
	notImage *apperr.Error
	tooLarge *apperr.Error
}

var (
	ProfilePicture = Kind{
		dir:      "profile_pictures",
		notImage: apperr.BadRequest("Profile Picture must be an Image!"),
		tooLarge: apperr.BadRequest("The profile picture size must not exceed 2MB!"),
	}
	CoverPicture = Kind{
		dir:      "cover_pictures",
		notImage: apperr.BadRequest("Cover Picture must be an Image!"),
		tooLarge: apperr.BadRequest("The cover picture size must not exceed 2MB!"),
	}
	SubscriptionImage = Kind{
		dir:      "subscription_images",
		notImage: apperr.BadRequest("File Type must be an Image!"),
		tooLarge: apperr.BadRequest("The image size must not exceed 2MB!"),
	}
)

var kinds = []Kind{ProfilePicture, CoverPicture, SubscriptionImage}

// ErrOutsideRoot возвращается при попытке удалить файл вне каталога загрузок.
var ErrOutsideRoot = errors.New("path is outside of the uploads directory")

// Local хранит файлы в каталоге root, который раздаётся по URLPrefix.
type Local struct {
	root string
}

// NewLocal создаёт хранилище и каталоги загрузок внутри root.
func NewLocal(root string) (*Local, error) {
	for _, k := range kinds {
		if err := os.MkdirAll(filepath.Join(root, "uploads", k.dir), 0o755); err != nil {
			return nil, fmt.Errorf("create uploads dir: %w", err)
		}
	}
	return &Local{root: root}, nil
}

// Root возвращает каталог статических файлов.
func (l *Local) Root() string {
	return l.root
}

// Validate проверяет размер и тип изображения.
func Validate(kind Kind, fh *multipart.FileHeader) error {
	if fh == nil || fh.Size == 0 {
		return apperr.ErrInvalidInput
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image") {
		return kind.notImage
	}
	if fh.Size > MaxImageSize {
		return kind.tooLarge
	}
	return nil
}

// Save проверяет изображение и сохраняет его как uploads/<kind>/<prefix>_<uuid>_<имя файла>.
// Возвращает путь, по которому файл доступен клиенту.
func (l *Local) Save(kind Kind, prefix string, fh *multipart.FileHeader) (string, error) {
	if err := Validate(kind, fh); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("detect mime type: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", kind.notImage
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s", SecureFilename(prefix), uuid.NewString(), SecureFilename(fh.Filename))
	rel := path.Join("uploads", kind.dir, name)

	dst, err := os.OpenFile(filepath.Join(l.root, filepath.FromSlash(rel)), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	return URLPrefix + "/" + rel, nil
}

// Delete удаляет файл по пути, который вернул Save. Отсутствующий файл не считается ошибкой.
func (l *Local) Delete(stored string) error {
	if stored == "" {
		return nil
	}

	rel, ok := strings.CutPrefix(stored, URLPrefix+"/")
	if !ok {
		return ErrOutsideRoot
	}
	rel = path.Clean(rel)
	if !strings.HasPrefix(rel, "uploads/") {
		return ErrOutsideRoot
	}

	if err := os.Remove(filepath.Join(l.root, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SecureFilename оставляет в имени файла только латиницу, цифры, точку, дефис и подчёркивание.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
