// Package detector turns camera frames into BlazePose body landmarks.
package detector

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posewall/internal/pose"
)

// Detector defines the interface for body pose estimators.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the most
	// prominent body, in image-normalized coordinates. A nil slice means no
	// body was found.
	Detect(frame *gocv.Mat) ([]pose.Landmark, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ModelComplexity selects the BlazePose model: 0 lite, 1 full, 2 heavy.
	ModelComplexity int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// IdleTimeout stops the estimator process after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}
