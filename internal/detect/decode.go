package detect

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// wireObject mirrors the inbound camera-detection JSON schema.
type wireObject struct {
	Category    string     `json:"category"`
	ID          any        `json:"id,omitempty"` // string or int on the wire
	Confidence  float64    `json:"confidence"`
	BoundingBox wireBBox   `json:"bounding_box_px"`
	Translation []float64  `json:"translation,omitempty"`
	Rotation    []float64  `json:"rotation,omitempty"`
	Velocity    []float64  `json:"velocity,omitempty"`
	ReID        string     `json:"reid,omitempty"` // base64
}

type wireBBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type wireDetection struct {
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"` // ISO-8601
	Objects   []wireObject `json:"objects"`
}

// Decode parses and validates a camera detection message. Malformed payloads
// (bad JSON, missing required fields, wrong-length vectors) return an error;
// the caller is expected to drop the message and increment a
// malformed-payload counter, never retry.
func Decode(payload []byte) (Detection, error) {
	var w wireDetection
	if err := json.Unmarshal(payload, &w); err != nil {
		return Detection{}, fmt.Errorf("detect: invalid json: %w", err)
	}
	if w.ID == "" {
		return Detection{}, fmt.Errorf("detect: missing camera id")
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		ts, err = time.Parse(time.RFC3339, w.Timestamp)
		if err != nil {
			return Detection{}, fmt.Errorf("detect: invalid timestamp %q: %w", w.Timestamp, err)
		}
	}

	objects := make([]Object, 0, len(w.Objects))
	for i, wo := range w.Objects {
		if wo.Category == "" {
			return Detection{}, fmt.Errorf("detect: object[%d] missing category", i)
		}
		obj := Object{
			Category:   wo.Category,
			Confidence: wo.Confidence,
			BoundingBox: BoundingBox{
				X: wo.BoundingBox.X, Y: wo.BoundingBox.Y,
				Width: wo.BoundingBox.Width, Height: wo.BoundingBox.Height,
			},
		}
		switch v := wo.ID.(type) {
		case string:
			obj.ID = v
		case float64:
			obj.ID = fmt.Sprintf("%d", int64(v))
		}
		if wo.Translation != nil {
			vec, err := vec3(wo.Translation)
			if err != nil {
				return Detection{}, fmt.Errorf("detect: object[%d] translation: %w", i, err)
			}
			obj.Translation = vec
		}
		if wo.Velocity != nil {
			vec, err := vec3(wo.Velocity)
			if err != nil {
				return Detection{}, fmt.Errorf("detect: object[%d] velocity: %w", i, err)
			}
			obj.Velocity = vec
		}
		if wo.Rotation != nil {
			if len(wo.Rotation) != 4 {
				return Detection{}, fmt.Errorf("detect: object[%d] rotation must have 4 components", i)
			}
			obj.Rotation = &Quat{X: wo.Rotation[0], Y: wo.Rotation[1], Z: wo.Rotation[2], W: wo.Rotation[3]}
		}
		if wo.ReID != "" {
			raw, err := base64.StdEncoding.DecodeString(wo.ReID)
			if err != nil {
				return Detection{}, fmt.Errorf("detect: object[%d] reid: %w", i, err)
			}
			obj.ReID = raw
		}
		objects = append(objects, obj)
	}

	return Detection{CameraID: w.ID, Timestamp: ts, Objects: objects}, nil
}

func vec3(v []float64) (*Vec3, error) {
	if len(v) != 3 {
		return nil, fmt.Errorf("must have 3 components, got %d", len(v))
	}
	return &Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
