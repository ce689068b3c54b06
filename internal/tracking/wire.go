package tracking

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// wireVec3 is the [x,y,z] array encoding used throughout the wire schemas.
type wireVec3 [3]float64

func encodeVec3(v Vec3) wireVec3 { return wireVec3{v.X, v.Y, v.Z} }

type wireObject struct {
	Category   string    `json:"category"`
	ID         string    `json:"id"`
	Translation wireVec3 `json:"translation"`
	Velocity   wireVec3  `json:"velocity"`
	Size       wireVec3  `json:"size"`
	Confidence float64   `json:"confidence"`
	Attributes string    `json:"attributes,omitempty"`
}

type wireSummary struct {
	Categories   map[string]int `json:"categories"`
	TotalObjects int            `json:"total_objects"`
}

// wireSceneMessage is the scene-regulated schema:
// {scene_id, name, timestamp, objects[], summary}. Note the field is "name",
// not "scene_name" — that spelling belongs only to the cluster batch message,
// and the distinction is preserved here rather than normalized away.
type wireSceneMessage struct {
	SceneID   string        `json:"scene_id"`
	Name      string        `json:"name"`
	Timestamp string        `json:"timestamp"`
	Objects   []wireObject  `json:"objects"`
	Summary   wireSummary   `json:"summary"`
}

// EncodeSceneMessage renders a SceneMessage as the wire JSON payload
// published on `scenescape/data/scene/{scene_id}/regulated`.
func EncodeSceneMessage(msg SceneMessage) ([]byte, error) {
	objects := make([]wireObject, len(msg.Objects))
	for i, o := range msg.Objects {
		wo := wireObject{
			Category:    o.Category,
			ID:          o.ID,
			Translation: encodeVec3(o.Position),
			Velocity:    encodeVec3(o.Velocity),
			Size:        encodeVec3(o.Size),
			Confidence:  o.Confidence,
		}
		if len(o.Attributes) > 0 {
			wo.Attributes = base64.StdEncoding.EncodeToString(o.Attributes)
		}
		objects[i] = wo
	}

	wire := wireSceneMessage{
		SceneID:   msg.SceneID,
		Name:      msg.SceneName,
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339Nano),
		Objects:   objects,
		Summary: wireSummary{
			Categories:   msg.Summary.Categories,
			TotalObjects: msg.Summary.TotalObjects,
		},
	}
	return json.Marshal(wire)
}
