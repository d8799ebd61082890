package recognition

import (
	"github.com/Kagami/go-face"
)

type mockEngine struct {
	RecognizeFunc func(data []byte) ([]face.Face, error)
	CloseFunc     func()
}

func (m *mockEngine) Recognize(data []byte) ([]face.Face, error) {
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(data)
	}
	return nil, nil
}

func (m *mockEngine) Close() {
	if m.CloseFunc != nil {
		m.CloseFunc()
	}
}
