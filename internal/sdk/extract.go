package sdk

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// ErrUnsafePath is returned for archive entries that would land outside
// the destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Extract unpacks a tarball into dest. The compression is chosen from the
// file name. A single top-level directory shared by every entry is
// stripped, so dest receives the payload root directly.
func Extract(ctx context.Context, archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archive, err)
	}
	defer f.Close()

	r, closer, err := decompressor(archive, f)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	prefix, err := commonPrefix(archive)
	if err != nil {
		return err
	}

	return extractTar(ctx, tar.NewReader(r), dest, prefix)
}

func decompressor(name string, f io.Reader) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader for %s: %w", name, err)
		}
		return gz, func() { gz.Close() }, nil
	case strings.HasSuffix(name, ".tar.xz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader for %s: %w", name, err)
		}
		return xr, nil, nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader for %s: %w", name, err)
		}
		return zr, zr.Close, nil
	case strings.HasSuffix(name, ".tar"):
		return f, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported archive format: %s", name)
	}
}

// commonPrefix returns "dir/" when every entry lives under one top-level
// directory, otherwise "".
func commonPrefix(archive string) (string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r, closer, err := decompressor(archive, f)
	if err != nil {
		return "", err
	}
	if closer != nil {
		defer closer()
	}

	tr := tar.NewReader(r)
	prefix := ""
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return "", fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return "", fmt.Errorf("error reading tar header in %s: %w", archive, err)
		}

		if hdr.Typeflag == tar.TypeXHeader || hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		top, rest, found := strings.Cut(name, "/")
		if !found || (rest == "" && hdr.Typeflag != tar.TypeDir) {
			// a file at the top level
			return "", nil
		}

		if prefix == "" {
			prefix = top + "/"
		} else if prefix != top+"/" {
			return "", nil
		}
	}

	return prefix, nil
}

func extractTar(ctx context.Context, tr *tar.Reader, dest, prefix string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return fmt.Errorf("error reading tar header: %w", err)
		}

		// Skip PAX headers (global or per-file)
		if hdr.Typeflag == tar.TypeXHeader || hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		name := strings.TrimPrefix(strings.TrimPrefix(hdr.Name, "./"), prefix)
		if name == "" || name == "." {
			continue
		}

		targetPath, err := safeJoin(dest, name)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return fmt.Errorf("failed to create parent dir for %s: %w", targetPath, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return fmt.Errorf("failed to create dir %s: %w", targetPath, err)
			}
		case tar.TypeReg:
			if err := writeFile(targetPath, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) {
				return fmt.Errorf("%w: %s -> %s", ErrUnsafePath, hdr.Name, hdr.Linkname)
			}
			if _, err := safeJoin(dest, filepath.Join(filepath.Dir(name), hdr.Linkname)); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, targetPath); err != nil && !os.IsExist(err) {
				return fmt.Errorf("failed to create symlink %s -> %s: %w", targetPath, hdr.Linkname, err)
			}
		default:
			// hard links, devices and fifos never appear in SDK payloads
		}
	}

	return nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return out.Close()
}

func safeJoin(dest, name string) (string, error) {
	path := filepath.Join(dest, filepath.FromSlash(name))

	rel, err := filepath.Rel(dest, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return path, nil
}
