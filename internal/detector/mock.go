package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/target"
)

// MockDetector is a test implementation of the Detector interface.
// It replays queued frames in order and then repeats the last one.
type MockDetector struct {
	mu     sync.Mutex
	frames [][]pose.Landmark
	next   int
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrames replaces the queued frames. A nil entry reports no body.
func (m *MockDetector) SetFrames(frames ...[]pose.Landmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued frame or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]pose.Landmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.frames) == 0 {
		return nil, nil
	}

	f := m.frames[m.next]
	if m.next < len(m.frames)-1 {
		m.next++
	}
	if f == nil {
		return nil, nil
	}
	out := make([]pose.Landmark, len(f))
	copy(out, f)
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// TemplateLandmarks returns a camera-space frame of the named catalog pose:
// the authored skeleton scaled into a 640x480-like view.
func TemplateLandmarks(name string) ([]pose.Landmark, bool) {
	raw, ok := target.Raw(name)
	if !ok {
		return nil, false
	}
	return pose.Transform(raw, 0.35, 0.5, 0.55), true
}

// StandingLandmarks returns a camera-space frame of a player standing still.
func StandingLandmarks() []pose.Landmark {
	return pose.Transform(target.StandingRaw(), 0.35, 0.5, 0.55)
}
