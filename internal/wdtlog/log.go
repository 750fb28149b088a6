// Package wdtlog configures structured logging via log/slog, writing to
// a size-rotated log file: wdt.log is renamed to wdt.old.log once it
// crosses MaxSizeBytes, and a fresh wdt.log is started.
package wdtlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mulgadc/wdtgo/internal/wdtfs"
)

// MaxSizeBytes is the rotation threshold for the active log file.
const MaxSizeBytes = 100 * 1024

// LogFileName is the active log file's name, relative to the directory
// passed to Open.
const LogFileName = "wdt.log"

// OldLogFileName is where LogFileName is moved to on rotation.
const OldLogFileName = "wdt.old.log"

// RotatingWriter is an io.Writer that rotates its backing file once it
// grows past MaxSizeBytes.
type RotatingWriter struct {
	mu      sync.Mutex
	dir     string
	path    string
	oldPath string
	file    *os.File
	size    int64
}

// Open creates (or appends to) dir/wdt.log.
func Open(dir string) (*RotatingWriter, error) {
	w := &RotatingWriter{
		dir:     dir,
		path:    dir + string(os.PathSeparator) + LogFileName,
		oldPath: dir + string(os.PathSeparator) + OldLogFileName,
	}
	if err := w.openFile(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) openFile() error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", w.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file %s: %w", w.path, err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write implements io.Writer, rotating first if p would push the file
// past MaxSizeBytes.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > MaxSizeBytes {
		if err := w.rotate(); err != nil {
			// Rotation failure is reported on stderr and is not fatal:
			// keep writing to the oversized file rather than lose log
			// output entirely.
			fmt.Fprintf(os.Stderr, "wdtlog: rotation failed: %v\n", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close log file before rotation: %w", err)
	}
	_ = wdtfs.Remove(w.oldPath)
	if err := wdtfs.Rename(w.path, w.oldPath); err != nil {
		// Reopen the unrotated file so later writes still land in it.
		if reopenErr := w.openFile(); reopenErr != nil {
			return fmt.Errorf("%v; reopen after failed rotation: %w", err, reopenErr)
		}
		return err
	}
	return w.openFile()
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// NewLogger builds a slog.Logger that writes text-formatted records to
// w (typically a *RotatingWriter); callers can also set the returned
// logger as the process-wide default.
func NewLogger(w io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler)
}
