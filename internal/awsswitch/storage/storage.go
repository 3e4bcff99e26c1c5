package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/example/aws-credentials-switcher/internal/awsswitch/domain"
)

// Storage provides low-level file operations with security validations.
type Storage struct {
	fs afero.Fs
}

// New creates a new Storage instance.
func New(fs afero.Fs) *Storage {
	return &Storage{fs: fs}
}

// FileSystem returns the underlying filesystem.
func (s *Storage) FileSystem() afero.Fs {
	return s.fs
}

// IsSymlink reports whether path is a symlink. Filesystems without Lstat support never report one.
func (s *Storage) IsSymlink(path string) (bool, error) {
	lstater, ok := s.fs.(afero.Lstater)
	if !ok {
		return false, nil
	}
	info, _, err := lstater.LstatIfPossible(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check path: %w", err)
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// ValidatePathSafety checks that the path is not a symlink, preventing symlink attacks.
// It returns nil if the path doesn't exist or is a regular file/directory.
func (s *Storage) ValidatePathSafety(path string) error {
	link, err := s.IsSymlink(path)
	if err != nil {
		return err
	}
	if link {
		return fmt.Errorf("refusing to operate on symlink: %s", path)
	}
	return nil
}

// CopyFile copies a file from src to dst with 0600 permissions, atomically replacing the destination.
func (s *Storage) CopyFile(src, dst string) error {
	return s.copyFile(src, dst, 0o600)
}

func (s *Storage) copyFile(src, dst string, perm os.FileMode) (err error) {
	if err := s.ValidatePathSafety(src); err != nil {
		return fmt.Errorf("validate source: %w", err)
	}
	if err := s.ValidatePathSafety(dst); err != nil {
		return fmt.Errorf("validate destination: %w", err)
	}

	source, err := s.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close source: %w", cerr)
		}
	}()

	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// Temp file in the same directory so the rename stays on one filesystem
	tmp := dst + ".tmp"
	dest, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, copyErr := io.Copy(dest, source)
	closeErr := dest.Close()

	if copyErr != nil || closeErr != nil {
		s.fs.Remove(tmp)
		if copyErr != nil {
			return fmt.Errorf("copy data: %w", copyErr)
		}
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := s.fs.Rename(tmp, dst); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}

	return nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place.
func (s *Storage) WriteFileAtomic(path string, data []byte) error {
	if err := s.ValidatePathSafety(path); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// CopyDir recursively copies src into dst, keeping relative structure,
// file bytes and permission bits. Symlinks are recreated when the
// filesystem supports them.
func (s *Storage) CopyDir(src, dst string) error {
	return afero.Walk(s.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			if err := s.fs.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		case info.Mode()&os.ModeSymlink != 0:
			if err := s.copySymlink(path, target); err != nil {
				return err
			}
		default:
			if err := s.copyFile(path, target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
		}
		return nil
	})
}

func (s *Storage) copySymlink(src, dst string) error {
	reader, ok := s.fs.(afero.LinkReader)
	if !ok {
		return fmt.Errorf("read symlink %s: %w", src, afero.ErrNoReadlink)
	}
	linker, ok := s.fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("create symlink %s: %w", dst, afero.ErrNoSymlink)
	}
	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return fmt.Errorf("read symlink %s: %w", src, err)
	}
	if err := linker.SymlinkIfPossible(target, dst); err != nil {
		return fmt.Errorf("create symlink %s: %w", dst, err)
	}
	return nil
}

// ReplaceDir deletes everything under old and then copies new into its place.
//
// There is no rollback: a failed delete leaves old removed or partially
// removed, and a failed copy leaves old partially populated. Both cases
// return a *domain.IOError.
func (s *Storage) ReplaceDir(old, new string) error {
	if err := s.fs.RemoveAll(old); err != nil {
		return &domain.IOError{Op: "remove", Path: old, Err: err}
	}
	if err := s.CopyDir(new, old); err != nil {
		return &domain.IOError{Op: "copy", Path: new, Err: err}
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func (s *Storage) IsDir(path string) (bool, error) {
	ok, err := afero.IsDir(s.fs, path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return ok, err
}

// ReadFile reads the entire file.
func (s *Storage) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

// Exists checks if a path exists.
func (s *Storage) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

// Stat returns file information.
func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return s.fs.Stat(path)
}

// MkdirAll creates directory with secure permissions.
func (s *Storage) MkdirAll(path string) error {
	return s.fs.MkdirAll(path, 0o700)
}

// ReadDir reads directory contents.
func (s *Storage) ReadDir(path string) ([]os.FileInfo, error) {
	return afero.ReadDir(s.fs, path)
}

// Remove deletes a file.
func (s *Storage) Remove(path string) error {
	return s.fs.Remove(path)
}

// Chtimes changes file access and modification times.
func (s *Storage) Chtimes(path string, atime, mtime time.Time) error {
	return s.fs.Chtimes(path, atime, mtime)
}
