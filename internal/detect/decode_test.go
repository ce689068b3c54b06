package detect

import "testing"

func TestDecode_Valid(t *testing.T) {
	payload := []byte(`{
		"id": "cam1",
		"timestamp": "2026-01-01T00:00:00Z",
		"objects": [
			{"category": "person", "confidence": 0.9, "bounding_box_px": {"x":1,"y":2,"width":3,"height":4},
			 "translation": [1,2,0], "velocity": [0.1,0,0]}
		]
	}`)
	d, err := Decode(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.CameraID != "cam1" {
		t.Errorf("camera id = %q", d.CameraID)
	}
	if len(d.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(d.Objects))
	}
	obj := d.Objects[0]
	if obj.Category != "person" {
		t.Errorf("category = %q", obj.Category)
	}
	if obj.Translation == nil || obj.Translation.X != 1 || obj.Translation.Y != 2 {
		t.Errorf("translation = %+v", obj.Translation)
	}
	if obj.Velocity == nil || obj.Velocity.X != 0.1 {
		t.Errorf("velocity = %+v", obj.Velocity)
	}
}

func TestDecode_MissingCameraID(t *testing.T) {
	_, err := Decode([]byte(`{"timestamp":"2026-01-01T00:00:00Z","objects":[]}`))
	if err == nil {
		t.Fatal("expected error for missing camera id")
	}
}

func TestDecode_BadJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestDecode_MissingCategory(t *testing.T) {
	payload := []byte(`{"id":"cam1","timestamp":"2026-01-01T00:00:00Z","objects":[{"confidence":0.5,"bounding_box_px":{}}]}`)
	_, err := Decode(payload)
	if err == nil {
		t.Fatal("expected error for missing category")
	}
}

func TestDecode_BadTranslationLength(t *testing.T) {
	payload := []byte(`{"id":"cam1","timestamp":"2026-01-01T00:00:00Z","objects":[{"category":"person","bounding_box_px":{},"translation":[1,2]}]}`)
	_, err := Decode(payload)
	if err == nil {
		t.Fatal("expected error for malformed translation vector")
	}
}

func TestDecode_NumericID(t *testing.T) {
	payload := []byte(`{"id":"cam1","timestamp":"2026-01-01T00:00:00Z","objects":[{"category":"person","id":42,"bounding_box_px":{}}]}`)
	d, err := Decode(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Objects[0].ID != "42" {
		t.Errorf("id = %q, want 42", d.Objects[0].ID)
	}
}
