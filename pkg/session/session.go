// Package session runs the live recognition loop: read a frame, detect
// and encode faces, match them against the database, annotate the
// display, and log newly recognized names.
package session

import (
	"errors"
	"fmt"
	"io"

	"github.com/MrCodeEU/facewatch/pkg/camera"
	"github.com/MrCodeEU/facewatch/pkg/display"
	"github.com/MrCodeEU/facewatch/pkg/facedb"
	"github.com/MrCodeEU/facewatch/pkg/logging"
	"github.com/MrCodeEU/facewatch/pkg/recognition"
)

// UnknownLabel is drawn for faces that match nothing within tolerance.
const UnknownLabel = "Unknown"

// maxReadRetries bounds consecutive transient frame read failures.
const maxReadRetries = 3

// Screen displays an annotated frame and reports the pressed key.
type Screen interface {
	Show(frame *camera.Frame, boxes []display.Box) (int, error)
	Close() error
}

// Recorder receives recognition events.
type Recorder interface {
	Record(name string) error
	Close() error
}

// Stats summarizes a finished session.
type Stats struct {
	Frames int
	Faces  int
	Events int
}

// Session owns the camera, screen and event recorder for one run and
// releases all three on exit, normal or not.
type Session struct {
	db        *facedb.Database
	enc       recognition.Encoder
	src       camera.Source
	screen    Screen
	events    Recorder
	tolerance float64

	// Names recognized in the previous frame. A name is logged once
	// per contiguous run of frames recognizing it.
	prev  map[string]bool
	stats Stats
}

// New wires up a session. The database must contain at least one
// record; matching against nothing is a configuration error.
func New(db *facedb.Database, enc recognition.Encoder, src camera.Source, screen Screen, events Recorder, tolerance float64) (*Session, error) {
	if db.Len() == 0 {
		return nil, facedb.ErrEmptyDatabase
	}
	return &Session{
		db:        db,
		enc:       enc,
		src:       src,
		screen:    screen,
		events:    events,
		tolerance: tolerance,
		prev:      map[string]bool{},
	}, nil
}

// Run opens the camera and loops until a quit key, end of stream, or a
// fatal read failure. Resources are released in every exit path.
func (s *Session) Run() error {
	log := logging.Component("session")

	// Teardown covers the open failure path too; Close on a
	// never-opened source is a no-op.
	defer s.teardown()

	if err := s.src.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	log.Infof("session started, matching against %d encodings (tolerance %.2f)", s.db.Len(), s.tolerance)

	retries := 0
	for {
		frame, err := s.src.Read()
		if errors.Is(err, io.EOF) {
			log.Info("frame source exhausted")
			return nil
		}
		if err != nil {
			retries++
			log.WithError(err).Warnf("frame read failed (%d/%d)", retries, maxReadRetries)
			if retries >= maxReadRetries {
				return fmt.Errorf("frame read failed %d times: %w", retries, err)
			}
			continue
		}
		retries = 0
		s.stats.Frames++

		boxes, current := s.processFrame(frame)
		s.prev = current

		key, err := s.screen.Show(frame, boxes)
		if err != nil {
			log.WithError(err).Warn("display failed")
			continue
		}
		if display.IsQuitKey(key) {
			log.Info("quit requested")
			return nil
		}
	}
}

// processFrame detects faces, matches each one independently, logs
// names entering the frame, and returns the annotations to draw.
func (s *Session) processFrame(frame *camera.Frame) ([]display.Box, map[string]bool) {
	log := logging.Component("session")
	current := map[string]bool{}

	faces, err := s.enc.DetectAndEncode(frame.Data)
	if err != nil {
		log.WithError(err).Warn("face detection failed for frame")
		return nil, current
	}

	var boxes []display.Box
	for _, f := range faces {
		s.stats.Faces++

		label := UnknownLabel
		name, dist, ok := s.db.Match(f.Descriptor, s.tolerance)
		if ok {
			label = name
			current[name] = true

			if !s.prev[name] {
				if err := s.events.Record(name); err != nil {
					log.WithError(err).Error("failed to log recognition")
				} else {
					s.stats.Events++
					log.WithFields(logging.Fields{"name": name, "distance": dist}).Info("recognized")
				}
			}
		}

		boxes = append(boxes, display.Box{Rect: f.Box, Label: label, Known: ok})
	}

	return boxes, current
}

func (s *Session) teardown() {
	if err := s.src.Close(); err != nil {
		logging.Component("session").WithError(err).Warn("closing camera failed")
	}
	if err := s.screen.Close(); err != nil {
		logging.Component("session").WithError(err).Warn("closing display failed")
	}
	if err := s.events.Close(); err != nil {
		logging.Component("session").WithError(err).Warn("closing event log failed")
	}

	logging.Component("session").WithFields(logging.Fields{
		"frames": s.stats.Frames,
		"faces":  s.stats.Faces,
		"events": s.stats.Events,
	}).Info("session ended")
}

// Stats returns the counters accumulated so far.
func (s *Session) Stats() Stats {
	return s.stats
}
