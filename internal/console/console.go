// Package console prints cargo-xwin's own status lines.
//
// Everything goes to stderr so that stdout stays reserved for the output of
// cargo and of the programs it runs.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gookit/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	verbose atomic.Bool
)

// SetOutput redirects console output, returning the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()

	prev := out
	out = w
	return prev
}

func SetVerbose(v bool) {
	verbose.Store(v)
}

func IsVerbose() bool {
	return verbose.Load()
}

func Infof(format string, args ...any) {
	writeLine(color.Info.Sprint("info:"), fmt.Sprintf(format, args...))
}

func Successf(format string, args ...any) {
	writeLine(color.Success.Sprint("done:"), fmt.Sprintf(format, args...))
}

// Warnf prints a non-fatal problem, e.g. a cache index that could not be updated.
func Warnf(format string, args ...any) {
	writeLine(color.Warn.Sprint("Warning:"), fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	writeLine(color.Error.Sprint("error:"), fmt.Sprintf(format, args...))
}

// Debugf only prints in verbose mode.
func Debugf(format string, args ...any) {
	if !verbose.Load() {
		return
	}
	writeLine(color.Comment.Sprint("debug:"), fmt.Sprintf(format, args...))
}

func writeLine(prefix, msg string) {
	mu.Lock()
	defer mu.Unlock()

	fmt.Fprintln(out, prefix, msg)
}

// NewProgress returns a byte progress bar for a download of total bytes
// (-1 when unknown). The bar is hidden when stderr is not a terminal.
func NewProgress(total int64, description string) *progressbar.ProgressBar {
	mu.Lock()
	w := out
	mu.Unlock()

	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetVisibility(isTerminal(w)),
		progressbar.OptionClearOnFinish(),
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
