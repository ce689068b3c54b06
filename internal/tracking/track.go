// Package tracking implements the per-category track state machine, the
// scene-level demultiplexer, and the regulated-rate publisher.
//
// The predict/associate/update/birth/age/publish algorithm runs a 2D
// ground-plane constant-velocity Kalman filter, carrying a z-coordinate
// through unfiltered (most scene cameras view a ground plane from overhead).
package tracking

import (
	"fmt"

	"github.com/banshee-data/scene-analytics/internal/detect"
)

// Vec3 is a 3-D scene-metric position, velocity, or size vector.
type Vec3 = detect.Vec3

// Track is one persistent object identity.
type Track struct {
	ID       string
	Category string

	Position  Vec3
	Velocity  Vec3
	Predicted Vec3 // predicted next position, set by the last Predict() call

	Size           Vec3 // length/width/height
	BufferExtent   Vec3 // padding applied around Size for gating/rendering
	TrackingRadius float64

	Confidence float64

	// ReliabilityAge is the time elapsed since the track was last considered
	// reliable (reset to 0 on every matched update, advanced by dt while
	// unmatched). Exceeding MaxUnreliableTime flags the track unreliable.
	ReliabilityAge float64
	// MeasurementAge is the time elapsed since the track's last matched
	// measurement. Monotonic non-decreasing between updates.
	MeasurementAge float64

	Attributes []byte // persistent attributes, e.g. a reid vector

	ProjectToMap         bool
	RotationFromVelocity bool
	ShiftType            string

	Unreliable bool
	Retired    bool

	lastTime float64    // unix seconds of the track's last birth, update, or aging step, for dt computation
	cov      [16]float64 // Kalman covariance over (x, y, vx, vy), row-major
}

// newTrack births a track from an unmatched detection object: fresh
// identifier, zero velocity, initialized from the detection.
func newTrack(id, category string, pos Vec3, size Vec3, trackingRadius float64, attrs []byte, when float64) *Track {
	return &Track{
		ID:             id,
		Category:       category,
		Position:       pos,
		Predicted:      pos,
		Velocity:       Vec3{},
		Size:           size,
		TrackingRadius: trackingRadius,
		Confidence:     0.5,
		Attributes:     attrs,
		lastTime:       when,
	}
}

// newTrackID builds a process-unique track id from the category and a
// monotonically increasing counter. Since the counter never resets, an id
// is never reused for the lifetime of the process.
func newTrackID(category string, seq uint64) string {
	return fmt.Sprintf("%s-%d", category, seq)
}
