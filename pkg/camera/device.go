package camera

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/MrCodeEU/facewatch/pkg/logging"
)

// Device captures frames from a video device addressed by index.
type Device struct {
	index   int
	width   int
	height  int
	fps     int
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// NewDevice returns an unopened device for the given camera index.
// Zero width/height/fps keep the driver defaults.
func NewDevice(index, width, height, fps int) *Device {
	return &Device{index: index, width: width, height: height, fps: fps}
}

// Open opens the device and applies the requested resolution.
func (d *Device) Open() error {
	capture, err := gocv.OpenVideoCapture(d.index)
	if err != nil {
		return fmt.Errorf("%w: index %d: %v", ErrCameraNotFound, d.index, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return fmt.Errorf("%w: index %d", ErrCameraNotFound, d.index)
	}

	if d.width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
	}
	if d.height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(d.height))
	}
	if d.fps > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(d.fps))
	}

	d.capture = capture
	d.mat = gocv.NewMat()

	logging.Component("camera").Infof("opened camera %d", d.index)
	return nil
}

// Read captures one frame and returns it JPEG-encoded.
func (d *Device) Read() (*Frame, error) {
	if d.capture == nil {
		return nil, ErrCameraNotOpen
	}

	if ok := d.capture.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, d.mat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	defer buf.Close()

	// The buffer points at native memory released on Close.
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	return &Frame{
		Data:      data,
		Width:     d.mat.Cols(),
		Height:    d.mat.Rows(),
		Timestamp: time.Now(),
	}, nil
}

// Close releases the capture handle.
func (d *Device) Close() error {
	if d.capture == nil {
		return nil
	}
	_ = d.mat.Close()
	err := d.capture.Close()
	d.capture = nil
	return err
}
