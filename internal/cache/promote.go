package cache

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const doneMarker = "DONE"

// isReady reports whether dir is a fully populated entry
func isReady(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, doneMarker))
	return err == nil && info.Mode().IsRegular()
}

// promote moves a populated staging directory to its final location. The
// DONE marker is written first so the entry is complete the moment it
// appears at dest.
func promote(staging, dest string, marker []byte) error {
	if err := os.WriteFile(filepath.Join(staging, doneMarker), marker, 0o644); err != nil {
		return fmt.Errorf("failed to write %s marker: %w", doneMarker, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create entry parent: %w", err)
	}

	err := os.Rename(staging, dest)
	if err == nil {
		return nil
	}

	// Staging on another filesystem: copy next to dest, then rename
	tmp := dest + ".promote"
	_ = os.RemoveAll(tmp)
	if cerr := copyTree(staging, tmp); cerr != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("failed to promote %s: %w (copy fallback: %v)", filepath.Base(dest), err, cerr)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("failed to promote %s: %w", filepath.Base(dest), err)
	}

	return os.RemoveAll(staging)
}

// copyTree copies a directory tree, recreating symlinks as symlinks
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target)
		}
	})
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer srcFile.Close()

	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	// Preserve file permissions
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.Chmod(dst, srcInfo.Mode())
}

// dirSize sums regular file sizes below dir
func dirSize(dir string) int64 {
	var total int64

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}

		return nil
	})

	return total
}
