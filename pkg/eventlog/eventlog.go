// Package eventlog writes the per-session recognition log file.
// One line per recognition event; lines are written atomically and
// flushed immediately so an aborted session never leaves a torn file.
package eventlog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrCodeEU/facewatch/pkg/fsutil"
)

// Writer appends recognition events to a timestamped session file.
type Writer struct {
	file *os.File
	path string
}

// New creates logs/face_log_<timestamp>.txt in dir and writes the
// session header.
func New(dir string) (*Writer, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("face_log_%s.txt", fsutil.Timestamp()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("create session log: %w", err)
	}

	w := &Writer{file: file, path: path}
	if err := w.writeLine(fmt.Sprintf("# session started %s", fsutil.TimestampHuman())); err != nil {
		_ = file.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the session log file path.
func (w *Writer) Path() string {
	return w.path
}

// Record appends one recognition event and flushes it to disk.
func (w *Writer) Record(name string) error {
	return w.writeLine(fmt.Sprintf("[%s] Recognized: %s", fsutil.TimestampHuman(), name))
}

// writeLine writes a complete line in a single syscall and syncs, so
// lines are atomic and survive abnormal termination.
func (w *Writer) writeLine(line string) error {
	if w.file == nil {
		return os.ErrClosed
	}
	if _, err := w.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log line: %w", err)
	}
	return w.file.Sync()
}

// Close writes the session footer and closes the file. Safe to call
// more than once.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	_ = w.writeLine(fmt.Sprintf("# session ended %s", fsutil.TimestampHuman()))
	err := w.file.Close()
	w.file = nil
	return err
}
