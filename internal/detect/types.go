// Package detect defines the inbound camera-detection message shape as a
// typed, validated record. Nothing downstream of Decode operates on a raw
// map/dict. Decode checks the camera id, timestamp, object categories and
// vector lengths on ingress; confidence and bounding boxes are taken as
// given.
package detect

import "time"

// BoundingBox is a 2-D pixel-space bounding box.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Vec3 is a 3-D scene-metric or velocity vector.
type Vec3 struct {
	X, Y, Z float64
}

// Quat is a rotation quaternion (x, y, z, w).
type Quat struct {
	X, Y, Z, W float64
}

// Object is one detected object within a Detection.
type Object struct {
	Category     string
	ID           string // optional persistent id carried by the detector, may be empty
	Confidence   float64
	BoundingBox  BoundingBox
	Translation  *Vec3 // scene-metric coordinates, nil if not yet projected
	Rotation     *Quat
	Velocity     *Vec3
	ReID         []byte // optional persistent attribute vector
}

// Detection is one camera's object list at one instant. Timestamp is
// authoritative for ordering — the core never relies on transport arrival
// order.
type Detection struct {
	CameraID  string
	Timestamp time.Time
	Objects   []Object
}
