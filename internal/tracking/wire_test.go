package tracking

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeSceneMessage_Schema(t *testing.T) {
	msg := SceneMessage{
		SceneID:   "scene-1",
		SceneName: "Lobby",
		Timestamp: time.Unix(1700000000, 0),
		Objects: []PublishedObject{
			{ID: "person-1", Category: "person", Position: Vec3{X: 1, Y: 2, Z: 0}, Confidence: 0.9},
		},
		Summary: SceneSummary{Categories: map[string]int{"person": 1}, TotalObjects: 1},
	}

	raw, err := EncodeSceneMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["scene_id"] != "scene-1" {
		t.Fatalf("expected scene_id, got %+v", decoded)
	}
	if _, ok := decoded["name"]; !ok {
		t.Fatalf("expected top-level \"name\" field, got %+v", decoded)
	}
	if _, ok := decoded["scene_name"]; ok {
		t.Fatalf("did not expect \"scene_name\" on the regulated message, got %+v", decoded)
	}
	objs, ok := decoded["objects"].([]interface{})
	if !ok || len(objs) != 1 {
		t.Fatalf("expected 1 object, got %+v", decoded["objects"])
	}
}
