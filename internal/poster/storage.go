package poster

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Dir is the media sub-directory holding poster files.
const Dir = "posters"

const maxNameAttempts = 5

// Storage writes poster files under a media root and maps them to URLs.
type Storage struct {
	root    string
	baseURL string
}

// NewStorage returns a Storage rooted at root whose files are served under baseURL.
func NewStorage(root, baseURL string) *Storage {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Storage{root: root, baseURL: baseURL}
}

// Root is the filesystem directory files are written to.
func (s *Storage) Root() string {
	return s.root
}

// Save writes data as name inside the posters directory and returns the
// media-relative path. Existing files are never replaced; a clashing name
// gets a random suffix.
func (s *Storage) Save(name string, data []byte) (string, error) {
	dir := filepath.Join(s.root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create poster dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("write poster: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", fmt.Errorf("chmod poster: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync poster: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close poster: %w", err)
	}

	candidate := name
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		// os.Link fails with ErrExist instead of replacing the target.
		err := os.Link(tmpName, filepath.Join(dir, candidate))
		if err == nil {
			return path.Join(Dir, candidate), nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("publish poster: %w", err)
		}
		candidate = withSuffix(name, uuid.NewString()[:8])
	}
	return "", fmt.Errorf("publish poster: no free name for %q", name)
}

// Delete removes a previously saved file. Missing files are not an error.
func (s *Storage) Delete(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the public access path for a media-relative path.
func (s *Storage) URL(rel string) string {
	return s.baseURL + strings.TrimPrefix(rel, "/")
}

func (s *Storage) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if !strings.HasPrefix(clean, "/"+Dir+"/") {
		return "", fmt.Errorf("poster path %q outside media directory", rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func withSuffix(name, suffix string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + suffix + ext
}
