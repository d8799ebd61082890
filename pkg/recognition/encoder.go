// Package recognition provides face detection and descriptor extraction.
// It wraps dlib via go-face behind a narrow Encoder boundary so the
// database builder and the live session can be tested with synthetic
// descriptors.
package recognition

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/MrCodeEU/facewatch/pkg/logging"
)

// Descriptor is a 128-dimensional face descriptor from dlib.
type Descriptor = face.Descriptor

// Face is a single detected face: its location in the image and its
// descriptor.
type Face struct {
	Box        image.Rectangle
	Descriptor Descriptor
}

// Encoder detects faces in a JPEG image and extracts their descriptors.
// An image without faces yields an empty slice and no error; callers
// decide how severe that is.
type Encoder interface {
	DetectAndEncode(jpegData []byte) ([]Face, error)
	Close() error
}

// ErrModelsNotFound is returned when the dlib model files are missing.
var ErrModelsNotFound = errors.New("recognition models not found")

// ErrEngineClosed is returned when encoding after Close.
var ErrEngineClosed = errors.New("recognition engine closed")

// ModelFiles are the dlib model files the engine requires.
var ModelFiles = []string{
	"shape_predictor_5_face_landmarks.dat",
	"dlib_face_recognition_resnet_model_v1.dat",
	"mmod_human_face_detector.dat",
}

// faceEngine is the seam over go-face so tests can run without dlib.
type faceEngine interface {
	Recognize(imgData []byte) ([]face.Face, error)
	Close()
}

type engineFactory func(modelDir string) (faceEngine, error)

func dlibFactory(modelDir string) (faceEngine, error) {
	return face.NewRecognizer(modelDir)
}

// DlibEncoder implements Encoder on top of go-face.
type DlibEncoder struct {
	mu      sync.Mutex
	engine  faceEngine
	factory engineFactory
}

// NewDlibEncoder loads the dlib models from modelDir and returns a
// ready encoder. Missing model files yield ErrModelsNotFound.
func NewDlibEncoder(modelDir string) (*DlibEncoder, error) {
	e := &DlibEncoder{factory: dlibFactory}
	if err := e.load(modelDir); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *DlibEncoder) load(modelDir string) error {
	for _, name := range ModelFiles {
		if _, err := os.Stat(filepath.Join(modelDir, name)); err != nil {
			return fmt.Errorf("%w: %s (run 'facewatch download-models')", ErrModelsNotFound, name)
		}
	}

	logging.Component("recognition").Infof("loading dlib models from %s", modelDir)
	engine, err := e.factory(modelDir)
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	e.engine = engine
	return nil
}

// DetectAndEncode detects every face in the JPEG image and returns its
// bounding box and descriptor.
func (e *DlibEncoder) DetectAndEncode(jpegData []byte) ([]Face, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.engine == nil {
		return nil, ErrEngineClosed
	}

	detected, err := e.engine.Recognize(jpegData)
	if err != nil {
		return nil, fmt.Errorf("face detection: %w", err)
	}

	faces := make([]Face, len(detected))
	for i, f := range detected {
		faces[i] = Face{Box: f.Rectangle, Descriptor: f.Descriptor}
	}
	return faces, nil
}

// Close releases the dlib engine.
func (e *DlibEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.engine != nil {
		e.engine.Close()
		e.engine = nil
	}
	return nil
}

// Distance is the Euclidean distance between two descriptors.
// Lower means more similar.
func Distance(a, b Descriptor) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Average returns the centroid of the given descriptors. Combining
// several photos of one person this way makes matching more stable.
func Average(descriptors []Descriptor) Descriptor {
	var avg Descriptor
	if len(descriptors) == 0 {
		return avg
	}

	for _, d := range descriptors {
		for i, v := range d {
			avg[i] += v
		}
	}
	n := float32(len(descriptors))
	for i := range avg {
		avg[i] /= n
	}
	return avg
}
