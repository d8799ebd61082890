// Package camera provides frame capture for the live session.
// The gocv-backed Device is the production source; tests feed the
// session pre-recorded frames through the same Source interface.
package camera

import (
	"errors"
	"time"
)

// Frame is a single captured frame, JPEG-encoded.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Source yields frames until closed. Read returns io.EOF when the
// stream is cleanly exhausted and ErrNoFrame on a transient failure.
type Source interface {
	Open() error
	Read() (*Frame, error)
	Close() error
}

// ErrCameraNotFound is returned when the device cannot be opened.
var ErrCameraNotFound = errors.New("camera device not found")

// ErrCameraNotOpen is returned when reading from a closed camera.
var ErrCameraNotOpen = errors.New("camera not open")

// ErrNoFrame is returned when a frame could not be captured.
var ErrNoFrame = errors.New("failed to capture frame")
