package utils

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/cargo-xwin/internal/codes"
)

type mockCommander struct {
	runFunc func() error
}

func (m *mockCommander) Run() error {
	return m.runFunc()
}

func mockExec(err error) ExecFunc {
	return func(context.Context, Command) Commander {
		return &mockCommander{runFunc: func() error { return err }}
	}
}

func TestSpawn_Classification(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, Spawn(ctx, mockExec(nil), Command{Name: "cargo"}))

	err := Spawn(ctx, mockExec(&exec.Error{Name: "cargo", Err: exec.ErrNotFound}), Command{Name: "cargo"})
	assert.True(t, codes.Is(err, codes.KindSpawn))
	assert.Equal(t, codes.ExitToolMissing, codes.ExitCodeFor(err))

	err = Spawn(ctx, mockExec(&fs.PathError{Op: "chdir", Path: "/gone", Err: fs.ErrNotExist}), Command{Name: "cargo", Dir: "/gone"})
	assert.Equal(t, codes.ExitSpawnFailed, codes.ExitCodeFor(err))

	err = Spawn(ctx, mockExec(os.ErrPermission), Command{Name: "wine"})
	assert.True(t, codes.Is(err, codes.KindSpawn))
	assert.Equal(t, codes.ExitSpawnFailed, codes.ExitCodeFor(err))
}

func TestSpawn_MissingFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name     string
		cmd      Command
		wantCode int
	}{
		{
			name:     "program path",
			cmd:      Command{Name: filepath.Join(missing, "wine")},
			wantCode: codes.ExitToolMissing,
		},
		{
			name:     "working directory",
			cmd:      Command{Name: "sh", Args: []string{"-c", "exit 0"}, Dir: missing},
			wantCode: codes.ExitSpawnFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Spawn(context.Background(), CurrentHost().Exec, tt.cmd)
			require.Error(t, err)
			assert.True(t, codes.Is(err, codes.KindSpawn))
			assert.Equal(t, tt.wantCode, codes.ExitCodeFor(err))
		})
	}
}

func TestSpawn_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Spawn(ctx, mockExec(errors.New("signal: killed")), Command{Name: "cargo"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpawn_RealProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	host := CurrentHost()
	ctx := context.Background()

	var out bytes.Buffer
	err := Spawn(ctx, host.Exec, Command{
		Name:   "sh",
		Args:   []string{"-c", "echo $GREETING; exit 0"},
		Env:    []string{"PATH=" + os.Getenv("PATH"), "GREETING=hello"},
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())

	err = Spawn(ctx, host.Exec, Command{Name: "sh", Args: []string{"-c", "exit 42"}})
	require.Error(t, err)
	assert.True(t, codes.Is(err, codes.KindCollaborator))
	assert.Equal(t, 42, codes.ExitCodeFor(err))
}

func TestExec_UsesChildPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell script")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "only-here")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 7\n"), 0o755))

	host := CurrentHost()
	ctx := context.Background()

	// Not on this process's PATH
	err := Spawn(ctx, host.Exec, Command{Name: "only-here", Env: []string{"PATH=/nonexistent"}})
	assert.Equal(t, codes.ExitToolMissing, codes.ExitCodeFor(err))

	err = Spawn(ctx, host.Exec, Command{Name: "only-here", Env: []string{"PATH=" + dir}})
	assert.Equal(t, 7, codes.ExitCodeFor(err))
}

func TestHost_PathOf(t *testing.T) {
	linux := Host{OS: "linux", ListSeparator: ":"}
	windows := Host{OS: "windows", ListSeparator: ";"}

	env := []string{"HOME=/h", "Path=C:/w", "PATH=/usr/bin"}
	assert.Equal(t, "/usr/bin", linux.pathOf(env))
	assert.Equal(t, "/usr/bin", windows.pathOf(env))
	assert.Equal(t, "C:/w", windows.pathOf([]string{"Path=C:/w"}))
	assert.Equal(t, "", linux.pathOf([]string{"Path=C:/w"}))
}
