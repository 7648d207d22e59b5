package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-relay/domain/apperror"
	"video-relay/domain/model"
	"video-relay/infrastructure/logger"

	"github.com/google/uuid"
)

const defaultExtension = ".mp4"

// Store is a scratch directory for downloaded videos awaiting upload.
type Store struct {
	dir     string
	maxSize int64
	now     func() time.Time
}

func NewStore(dir string, maxSize int64) *Store {
	return &Store{dir: dir, maxSize: maxSize, now: time.Now}
}

// Ensure creates the staging directory if it does not exist.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create staging dir %s: %w", s.dir, err)
	}
	return nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) MaxSize() int64 { return s.maxSize }

// NewName returns a unique file name keeping the extension of originalName.
func (s *Store) NewName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if ext == "" || ext == "." {
		ext = defaultExtension
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d_%s%s", s.now().UnixMilli(), suffix, ext)
}

// Write persists data under name and validates the resulting size.
// An empty or oversized file is removed before the error is returned.
func (s *Store) Write(name string, data []byte) (*model.StagedFile, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		_ = s.Remove(path)
		return nil, fmt.Errorf("write staged file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		_ = s.Remove(path)
		return nil, fmt.Errorf("stat staged file: %w", err)
	}
	if err := s.validate(info.Size()); err != nil {
		_ = s.Remove(path)
		return nil, err
	}

	return &model.StagedFile{Path: path, Size: info.Size(), FileName: filepath.Base(path)}, nil
}

func (s *Store) validate(size int64) error {
	if size == 0 {
		return apperror.New(apperror.CodeEmptyFile, "downloaded file is empty")
	}
	if s.maxSize > 0 && size > s.maxSize {
		return apperror.Newf(apperror.CodeFileTooLarge, "downloaded file is %d bytes, limit is %d", size, s.maxSize).
			WithContext("size", size).
			WithContext("max_size", s.maxSize)
	}
	return nil
}

// Remove deletes a staged file. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.GetLogger().WithField("path", path).WithField("error", err).Warn("Failed to remove staged file")
		return err
	}
	return nil
}

// Sweep removes files older than maxAge, left behind by an interrupted process.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := s.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		logger.GetLogger().WithField("removed", removed).WithField("dir", s.dir).Info("Swept stale staged files")
	}
	return removed, nil
}
