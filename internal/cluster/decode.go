package cluster

import "encoding/json"

type wireInboundObject struct {
	Category    string   `json:"category"`
	ID          string   `json:"id"`
	Translation wirePoint3 `json:"translation"`
	Velocity    wirePoint3 `json:"velocity"`
}

type wirePoint3 [3]float64

type wireInboundScene struct {
	SceneID string              `json:"scene_id"`
	Name    string              `json:"name"`
	Objects []wireInboundObject `json:"objects"`
}

// DecodeSceneRegulated parses a scene-regulated message into the
// ObjectPoints the DBSCAN runner consumes, projecting translation and
// velocity onto the ground plane (x, y).
func DecodeSceneRegulated(payload []byte) (sceneID, sceneName string, points []ObjectPoint, err error) {
	var wire wireInboundScene
	if err := json.Unmarshal(payload, &wire); err != nil {
		return "", "", nil, err
	}
	points = make([]ObjectPoint, len(wire.Objects))
	for i, o := range wire.Objects {
		points[i] = ObjectPoint{
			ID:       o.ID,
			Category: o.Category,
			Position: Vec2{X: o.Translation[0], Y: o.Translation[1]},
			Velocity: Vec2{X: o.Velocity[0], Y: o.Velocity[1]},
		}
	}
	return wire.SceneID, wire.Name, points, nil
}
