package sdk

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type tarEntry struct {
	name     string
	body     string
	linkname string
	dir      bool
}

// buildArchive writes a tarball compressed according to name's suffix
func buildArchive(t *testing.T, dir, name string, entries []tarEntry) string {
	t.Helper()

	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644}
		switch {
		case e.dir:
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		case e.linkname != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.linkname
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var w io.WriteCloser
	switch {
	case strings.HasSuffix(name, ".tar.xz"):
		w, err = xz.NewWriter(f)
	case strings.HasSuffix(name, ".tar.gz"):
		w = pgzip.NewWriter(f)
	case strings.HasSuffix(name, ".tar.zst"):
		w, err = zstd.NewWriter(f)
	default:
		_, err = io.Copy(f, &raw)
		require.NoError(t, err)
		return path
	}
	require.NoError(t, err)

	_, err = io.Copy(w, &raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return path
}

func sysrootEntries() []tarEntry {
	return []tarEntry{
		{name: "windows-msvc-sysroot/", dir: true},
		{name: "windows-msvc-sysroot/include/", dir: true},
		{name: "windows-msvc-sysroot/include/windows.h", body: "#pragma once\n"},
		{name: "windows-msvc-sysroot/include/c++/stl/vector", body: "// vector\n"},
		{name: "windows-msvc-sysroot/lib/x86_64-unknown-windows-msvc/kernel32.lib", body: "lib"},
	}
}
