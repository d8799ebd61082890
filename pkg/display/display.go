// Package display renders annotated frames in a gocv window.
package display

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/MrCodeEU/facewatch/pkg/camera"
)

// Box is one annotation: a face location and the label to draw.
type Box struct {
	Rect  image.Rectangle
	Label string
	Known bool
}

// Quit keys: 'q' or Esc.
const (
	keyQuit = 'q'
	keyEsc  = 27
)

// IsQuitKey reports whether the pressed key ends the session.
func IsQuitKey(key int) bool {
	return key == keyQuit || key == keyEsc
}

var (
	known   = color.RGBA{G: 255, A: 255}
	unknown = color.RGBA{R: 255, A: 255}
	white   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Window shows annotated frames and reports key presses.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a named display window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show draws the boxes on the frame, displays it, and returns the key
// pressed during the wait (negative when none).
func (w *Window) Show(frame *camera.Frame, boxes []Box) (int, error) {
	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return -1, fmt.Errorf("decode frame: %w", err)
	}
	defer mat.Close()

	for _, box := range boxes {
		c := unknown
		if box.Known {
			c = known
		}

		gocv.Rectangle(&mat, box.Rect, c, 2)

		// Filled label bar along the bottom edge of the face box.
		bar := image.Rect(box.Rect.Min.X, box.Rect.Max.Y-28, box.Rect.Max.X, box.Rect.Max.Y)
		gocv.Rectangle(&mat, bar, c, -1)
		gocv.PutText(&mat, box.Label,
			image.Pt(box.Rect.Min.X+6, box.Rect.Max.Y-8),
			gocv.FontHersheyDuplex, 0.7, white, 1)
	}

	w.win.IMShow(mat)
	return w.win.WaitKey(1), nil
}

// Close closes the window.
func (w *Window) Close() error {
	return w.win.Close()
}
