// Package camera wraps webcam capture. The core only consumes frames; device
// enumeration and format negotiation stay with the driver.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrNoFrame means the device is open but produced no image, which usually
// means it was unplugged or claimed by another program.
var ErrNoFrame = errors.New("no frame from camera")

// Source is an open capture device. Safe for use from one reader goroutine;
// Close may be called from another.
type Source struct {
	deviceID int
	log      *logrus.Logger

	mu  sync.Mutex
	cap *gocv.VideoCapture
}

// Open opens the capture device at the given index (0 is the default
// webcam).
func Open(deviceID int, log *logrus.Logger) (*Source, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("error opening camera %d: %w", deviceID, err)
	}

	log.WithField("device", deviceID).Info("camera opened")
	return &Source{deviceID: deviceID, log: log, cap: cap}, nil
}

// DeviceID returns the index this source was opened with.
func (s *Source) DeviceID() int {
	return s.deviceID
}

// Read grabs the next frame. The returned Mat is owned by the caller and
// must be closed.
func (s *Source) Read() (gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return gocv.Mat{}, fmt.Errorf("%w: camera closed", ErrNoFrame)
	}

	img := gocv.NewMat()
	if ok := s.cap.Read(&img); !ok || img.Empty() {
		img.Close()
		return gocv.Mat{}, ErrNoFrame
	}
	return img, nil
}

// Poll reads frames at the given interval and hands each to fn, closing the
// frame after fn returns. It exits when the context is cancelled or the
// device stops producing frames.
func (s *Source) Poll(ctx context.Context, interval time.Duration, fn func(gocv.Mat)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			img, err := s.Read()
			if err != nil {
				s.log.WithError(err).WithField("device", s.deviceID).Warn("camera read failed")
				return err
			}
			fn(img)
			img.Close()
		}
	}
}

// Close releases the capture device.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.cap = nil
	return err
}
