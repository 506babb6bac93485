package ui

import (
	"sync"

	"smarthand"
	"smarthand/camera"
	"smarthand/mapping"
	"smarthand/robot"
	"smarthand/vision"
)

// session owns the mutable state the tabs share: the open camera, the
// current rectification, the current mapping, and the robot connection.
// Everything is created on operator action and replaced wholesale on
// re-detect, re-calibrate, or reconnect.
type session struct {
	mu sync.Mutex

	cam *camera.Source

	corners    *vision.CornerSet
	homography *vision.Homography
	outputSize vision.OutputSize

	samples   [2]*mapping.Sample
	transform *mapping.Transform

	robot   *robot.Controller
	toucher *robot.Toucher
}

func (s *session) setCamera(cam *camera.Source) *camera.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cam
	s.cam = cam
	return old
}

func (s *session) camera() *camera.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cam
}

// setRectification swaps in a freshly detected corner set and its
// homography. Any prior mapping samples stay: the operator may recalibrate
// or keep them.
func (s *session) setRectification(cs vision.CornerSet, h vision.Homography, size vision.OutputSize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corners = &cs
	s.homography = &h
	s.outputSize = size
}

func (s *session) rectification() (*vision.Homography, vision.OutputSize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.homography, s.outputSize
}

func (s *session) setSample(i int, sample mapping.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[i] = &sample
	// a new reference point invalidates the fitted transform
	s.transform = nil
}

func (s *session) sample(i int) *mapping.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples[i]
}

func (s *session) setTransform(t mapping.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform = &t
}

func (s *session) mappingTransform() *mapping.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform
}

func (s *session) setRobot(c *robot.Controller, t *robot.Toucher) (*robot.Controller, *robot.Toucher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldC, oldT := s.robot, s.toucher
	s.robot, s.toucher = c, t
	return oldC, oldT
}

func (s *session) robotController() *robot.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.robot
}

func (s *session) robotToucher() *robot.Toucher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toucher
}

// calibration assembles the persistent record from the current state.
func (s *session) calibration() (mapping.Calibration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transform == nil || s.samples[0] == nil || s.samples[1] == nil {
		return mapping.Calibration{}, false
	}

	cal := mapping.Calibration{
		Transform:  *s.transform,
		Samples:    [2]mapping.Sample{*s.samples[0], *s.samples[1]},
		OutputSize: s.outputSize,
		Homography: s.homography,
	}
	if s.corners != nil {
		cal.Corners = []smarthand.Point{s.corners[0], s.corners[1], s.corners[2], s.corners[3]}
	}
	return cal, true
}

// restore replaces the rectification and mapping state from a loaded record.
func (s *session) restore(cal mapping.Calibration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transform = &cal.Transform
	s.samples[0] = &cal.Samples[0]
	s.samples[1] = &cal.Samples[1]
	s.outputSize = cal.OutputSize
	s.homography = cal.Homography
	s.corners = nil
	if len(cal.Corners) == 4 {
		cs := vision.CornerSet{cal.Corners[0], cal.Corners[1], cal.Corners[2], cal.Corners[3]}
		s.corners = &cs
	}
}

// teardown closes the camera and robot; the session is reusable afterwards.
func (s *session) teardown() {
	s.mu.Lock()
	cam, rc := s.cam, s.robot
	s.cam, s.robot, s.toucher = nil, nil, nil
	s.mu.Unlock()

	if cam != nil {
		cam.Close()
	}
	if rc != nil {
		rc.Close()
	}
}
