package filestore

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/eyuksel/reimbursement-api/internal"
)

// allowedTypes maps accepted MIME types to the stored file extension.
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Store persists uploaded receipt files on disk under random names and
// serves them back by their public URL path.
type Store struct {
	dir          string
	baseURL      string
	maxSizeBytes int64
	logger       *slog.Logger
}

func NewStore(dir, baseURL string, maxSizeBytes int64, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if maxSizeBytes <= 0 {
		maxSizeBytes = 10 << 20
	}
	return &Store{
		dir:          dir,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		maxSizeBytes: maxSizeBytes,
		logger:       logger,
	}, nil
}

func (s *Store) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}

// DetectType sniffs the content type from the file header and validates it
// against the whitelist. The client-declared Content-Type is ignored.
func (s *Store) DetectType(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)

	if _, ok := allowedTypes[mimeType]; !ok {
		s.logger.Warn("rejected upload with unsupported type", "mime_type", mimeType)
		return "", internal.ErrUnsupportedFileType
	}
	return mimeType, nil
}

// Save writes the file under a random name and returns its public URL.
func (s *Store) Save(data []byte, mimeType string) (string, error) {
	ext, ok := allowedTypes[mimeType]
	if !ok {
		return "", internal.ErrUnsupportedFileType
	}
	if int64(len(data)) > s.maxSizeBytes {
		return "", internal.NewValidationError(
			fmt.Sprintf("File exceeds the maximum size of %d bytes", s.maxSizeBytes),
			internal.ErrCodeValidationFailed)
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("failed to write uploaded file", "error", err, "path", path)
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	s.logger.Info("file stored", "name", name, "size_bytes", len(data), "mime_type", mimeType)
	return s.baseURL + "/" + name, nil
}

// Open resolves a stored file by its URL or bare name. Path traversal in
// the name is rejected.
func (s *Store) Open(urlOrName string) (*os.File, error) {
	name := urlOrName
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name != filepath.Base(name) {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(s.dir, name))
}

// Delete removes a stored file. A missing file is not an error.
func (s *Store) Delete(urlOrName string) error {
	name := urlOrName
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name != filepath.Base(name) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Handler serves stored files over HTTP.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix(s.baseURL+"/", http.FileServer(http.Dir(s.dir)))
}
