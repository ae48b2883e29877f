package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists meter images on local disk and builds the URLs under
// which the HTTP layer serves them back.
type Store struct {
	dir          string
	publicPrefix string
}

// NewStore creates a new image store rooted at dir. Images are served
// under publicPrefix by the HTTP layer.
func NewStore(dir, publicPrefix string) *Store {
	return &Store{
		dir:          dir,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
	}
}

// Dir returns the storage directory
func (s *Store) Dir() string {
	return s.dir
}

// PublicPrefix returns the public serving path prefix
func (s *Store) PublicPrefix() string {
	return s.publicPrefix
}

// Save writes image bytes under fileName, creating the storage
// directory if missing
func (s *Store) Save(fileName string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	path := filepath.Join(s.dir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	return nil
}

// URLFor builds the absolute URL for a stored file from the inbound
// request's scheme and host
func (s *Store) URLFor(scheme, host, fileName string) string {
	return fmt.Sprintf("%s://%s%s/%s", scheme, host, s.publicPrefix, fileName)
}
