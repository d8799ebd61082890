package recognition

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Kagami/go-face"
)

// fakeModelDir creates a directory containing empty stand-ins for the
// dlib model files, enough to satisfy the load check.
func fakeModelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range ModelFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newMockEncoder(t *testing.T, engine *mockEngine) *DlibEncoder {
	t.Helper()
	e := &DlibEncoder{
		factory: func(string) (faceEngine, error) { return engine, nil },
	}
	if err := e.load(fakeModelDir(t)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return e
}

func TestLoad_MissingModels(t *testing.T) {
	e := &DlibEncoder{
		factory: func(string) (faceEngine, error) { return &mockEngine{}, nil },
	}
	err := e.load(t.TempDir())
	if !errors.Is(err, ErrModelsNotFound) {
		t.Errorf("expected ErrModelsNotFound, got %v", err)
	}
}

func TestLoad_FactoryFailure(t *testing.T) {
	e := &DlibEncoder{
		factory: func(string) (faceEngine, error) { return nil, errors.New("dlib init failed") },
	}
	if err := e.load(fakeModelDir(t)); err == nil {
		t.Error("expected error when engine init fails")
	}
}

func TestDetectAndEncode(t *testing.T) {
	engine := &mockEngine{
		RecognizeFunc: func(data []byte) ([]face.Face, error) {
			return []face.Face{
				{Rectangle: image.Rect(10, 20, 110, 120), Descriptor: face.Descriptor{1, 2, 3}},
				{Rectangle: image.Rect(200, 20, 300, 120), Descriptor: face.Descriptor{4, 5, 6}},
			}, nil
		},
	}
	e := newMockEncoder(t, engine)

	faces, err := e.DetectAndEncode([]byte("jpeg"))
	if err != nil {
		t.Fatalf("DetectAndEncode failed: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	if faces[0].Box != image.Rect(10, 20, 110, 120) {
		t.Errorf("unexpected box: %v", faces[0].Box)
	}
	if faces[1].Descriptor[0] != 4 {
		t.Errorf("descriptor not carried over: %v", faces[1].Descriptor[0])
	}
}

func TestDetectAndEncode_NoFaces(t *testing.T) {
	engine := &mockEngine{
		RecognizeFunc: func(data []byte) ([]face.Face, error) { return nil, nil },
	}
	e := newMockEncoder(t, engine)

	faces, err := e.DetectAndEncode([]byte("jpeg"))
	if err != nil {
		t.Fatalf("no faces must not be an error, got %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("expected 0 faces, got %d", len(faces))
	}
}

func TestDetectAndEncode_EngineError(t *testing.T) {
	engine := &mockEngine{
		RecognizeFunc: func(data []byte) ([]face.Face, error) {
			return nil, errors.New("bad jpeg")
		},
	}
	e := newMockEncoder(t, engine)

	if _, err := e.DetectAndEncode([]byte("x")); err == nil {
		t.Error("expected error from engine")
	}
}

func TestDetectAndEncode_AfterClose(t *testing.T) {
	closed := false
	e := newMockEncoder(t, &mockEngine{CloseFunc: func() { closed = true }})

	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !closed {
		t.Error("engine was not closed")
	}

	if _, err := e.DetectAndEncode([]byte("x")); err != ErrEngineClosed {
		t.Errorf("expected ErrEngineClosed, got %v", err)
	}

	// Closing twice is fine.
	if err := e.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestDistance(t *testing.T) {
	var a, b Descriptor
	a[0], a[1], a[2] = 1, 2, 3
	b[0], b[1], b[2] = 4, 6, 8

	if d := Distance(a, a); d != 0 {
		t.Errorf("identical descriptors should have distance 0, got %f", d)
	}

	want := math.Sqrt(9 + 16 + 25)
	if d := Distance(a, b); math.Abs(d-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, d)
	}
}

func TestAverage(t *testing.T) {
	var a, b Descriptor
	a[0], a[1] = 1, 2
	b[0], b[1] = 3, 4

	avg := Average([]Descriptor{a, b})
	if avg[0] != 2 || avg[1] != 3 {
		t.Errorf("expected [2 3 ...], got [%f %f ...]", avg[0], avg[1])
	}

	// Empty input yields the zero descriptor.
	zero := Average(nil)
	if zero[0] != 0 {
		t.Errorf("expected zero descriptor, got %f", zero[0])
	}
}
