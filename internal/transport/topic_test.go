package transport

import (
	"testing"
)

func TestFormatParseRoundTrip(t *testing.T) {
	tmpl := "scenescape/data/camera/{camera_id}"
	cases := []map[string]string{
		{"camera_id": "cam1"},
		{"camera_id": "a-b_c123"},
	}
	for _, bindings := range cases {
		topic := FormatTopic(tmpl, bindings)
		got, ok := ParseTopic(tmpl, topic)
		if !ok {
			t.Fatalf("ParseTopic(%q) failed to match", topic)
		}
		if got["camera_id"] != bindings["camera_id"] {
			t.Errorf("got %v, want %v", got, bindings)
		}
	}
}

func TestFormatTopic_PlaceholderMidTemplate(t *testing.T) {
	tmpl := "scenescape/data/scene/{scene_id}/regulated"
	topic := FormatTopic(tmpl, map[string]string{"scene_id": "scene-1"})
	if topic != "scenescape/data/scene/scene-1/regulated" {
		t.Errorf("got %q", topic)
	}
	bindings, ok := ParseTopic(tmpl, topic)
	if !ok || bindings["scene_id"] != "scene-1" {
		t.Errorf("ParseTopic failed: %v ok=%v", bindings, ok)
	}
}

func TestParseTopic_ShapeMismatch(t *testing.T) {
	tmpl := "scenescape/data/camera/{camera_id}"
	if _, ok := ParseTopic(tmpl, "scenescape/data/camera"); ok {
		t.Error("expected mismatch for shorter topic")
	}
	if _, ok := ParseTopic(tmpl, "scenescape/data/camera/cam1/extra"); ok {
		t.Error("expected mismatch for longer topic")
	}
}

func TestParseTopic_LiteralMismatch(t *testing.T) {
	tmpl := "scenescape/data/camera/{camera_id}"
	if _, ok := ParseTopic(tmpl, "other/data/camera/cam1"); ok {
		t.Error("expected mismatch on literal segment")
	}
}

func TestSubscriptionFilter(t *testing.T) {
	got := SubscriptionFilter("scenescape/data/camera/{camera_id}")
	want := "scenescape/data/camera/+"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
