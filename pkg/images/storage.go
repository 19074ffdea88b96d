package images

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"places_backend/pkg/apperr"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// URLPrefix is the public path images are served under.
const URLPrefix = "/uploads/places/"

// Storage keeps image files under <uploadsDir>/places.
type Storage struct {
	dir string
}

func NewStorage(uploadsDir string) *Storage {
	return &Storage{dir: filepath.Join(uploadsDir, "places")}
}

func (s *Storage) Dir() string { return s.dir }

// Save writes data as <uuid><ext> and returns its public URL. Data that does
// not sniff as an image is rejected.
func (s *Storage) Save(data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation("File missing", apperr.FieldError{Field: "file", Error: "file is empty"})
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", apperr.Validation("Unsupported file type",
			apperr.FieldError{Field: "file", Error: fmt.Sprintf("file must be an image, got %s", mime.String())})
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return URLPrefix + name, nil
}

// Remove deletes the file behind a URL returned by Save. Other URLs are ignored.
func (s *Storage) Remove(url string) error {
	if !strings.HasPrefix(url, URLPrefix) {
		return nil
	}
	name := path.Base(url)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Extension returns the lowercased extension of an uploaded file name, or .jpg.
func Extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ".jpg"
	}
	return ext
}

// ExtensionForContentType picks the stored extension for an imported image.
func ExtensionForContentType(contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "png") {
		return ".png"
	}
	return ".jpg"
}
