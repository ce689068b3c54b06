package tracking

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/banshee-data/scene-analytics/internal/detect"
	"github.com/banshee-data/scene-analytics/internal/metrics"
)

func testDroppedCount(category string) float64 {
	return testutil.ToFloat64(metrics.DroppedMessages.WithLabelValues("tracker_busy", category))
}

func testWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Category:              "person",
		NonMeasurementTime:    1.0,
		MaxUnreliableTime:     2.0,
		DefaultTrackingRadius: 2.0,
		Kalman:                DefaultKalmanConfig(),
	}
}

func personObject(x, y float64) detect.Object {
	return detect.Object{
		Category:    "person",
		Confidence:  0.9,
		Translation: &detect.Vec3{X: x, Y: y, Z: 0},
	}
}

func waitForSettle(w *Worker) {
	// Enqueue is async; give the worker goroutine a moment to drain.
	time.Sleep(20 * time.Millisecond)
}

func TestWorker_BirthAndRetire(t *testing.T) {
	w := NewWorker(testWorkerConfig())
	defer w.Retire()

	base := time.Unix(0, 0)
	w.Enqueue([][]detect.Object{{personObject(1, 1)}}, base, false, Streaming)
	waitForSettle(w)

	objs := w.CurrentObjects()
	if len(objs) != 1 {
		t.Fatalf("expected 1 track after birth, got %d", len(objs))
	}
	id := objs[0].ID

	// Walk the same track forward in time with nearby detections.
	for i := 1; i <= 10; i++ {
		ts := base.Add(time.Duration(i) * 100 * time.Millisecond)
		w.Enqueue([][]detect.Object{{personObject(1, 1+float64(i)*0.1)}}, ts, false, Streaming)
		waitForSettle(w)
	}
	objs = w.CurrentObjects()
	if len(objs) != 1 || objs[0].ID != id {
		t.Fatalf("expected stable track id %q, got %+v", id, objs)
	}

	// Silence past the retirement timer: the track must disappear and its
	// id must never be re-emitted.
	ts := base.Add(5 * time.Second)
	w.Enqueue([][]detect.Object{{}}, ts, false, Streaming)
	waitForSettle(w)

	objs = w.CurrentObjects()
	if len(objs) != 0 {
		t.Fatalf("expected track retired after silence, got %+v", objs)
	}

	// Rebirth: a brand-new detection must get a different id.
	ts2 := ts.Add(100 * time.Millisecond)
	w.Enqueue([][]detect.Object{{personObject(1, 1)}}, ts2, false, Streaming)
	waitForSettle(w)
	objs = w.CurrentObjects()
	if len(objs) != 1 {
		t.Fatalf("expected 1 track after rebirth, got %d", len(objs))
	}
	if objs[0].ID == id {
		t.Fatalf("track id %q was reused after retire", id)
	}
}

func TestWorker_BackpressureDrop(t *testing.T) {
	w := NewWorker(testWorkerConfig())
	w.stepDelay = 35 * time.Millisecond // blocks the worker goroutine inside step()
	defer w.Retire()

	before := testDroppedCount("person")

	base := time.Unix(0, 0)
	// Three detections placed far enough apart (beyond the 2.0 tracking
	// radius) that each would birth its own track if processed. First
	// enqueue is picked up immediately and blocks inside step() for
	// stepDelay. The second, sent 1ms later, finds the pending slot empty
	// and occupies it. The third finds the slot still occupied (step()
	// hasn't returned yet) and must be dropped.
	w.Enqueue([][]detect.Object{{personObject(1, 1)}}, base, false, Streaming)
	time.Sleep(1 * time.Millisecond)
	w.Enqueue([][]detect.Object{{personObject(50, 50)}}, base, false, Streaming)
	time.Sleep(1 * time.Millisecond)
	w.Enqueue([][]detect.Object{{personObject(100, 100)}}, base, false, Streaming)

	after := testDroppedCount("person")
	if got, want := after-before, 1.0; got != want {
		t.Fatalf("dropped_messages{tracker_busy,person} incremented by %v, want exactly %v", got, want)
	}

	// Give both accepted items time to process, then confirm the dropped
	// detection (100,100) never became a track: only (1,1) and (50,50) ran.
	time.Sleep(100 * time.Millisecond)
	objs := w.CurrentObjects()
	if len(objs) != 2 {
		t.Fatalf("expected exactly 2 tracks from the accepted enqueues, got %d: %+v", len(objs), objs)
	}
	for _, o := range objs {
		if o.Position.X == 100 && o.Position.Y == 100 {
			t.Fatalf("dropped detection (100,100) was reflected in current objects: %+v", objs)
		}
	}
}

func TestWorker_IdempotentUpdate(t *testing.T) {
	w := NewWorker(testWorkerConfig())
	defer w.Retire()

	base := time.Unix(0, 0)
	w.Enqueue([][]detect.Object{{personObject(2, 2)}}, base, false, Streaming)
	waitForSettle(w)
	first := w.CurrentObjects()

	ts := base.Add(100 * time.Millisecond)
	w.Enqueue([][]detect.Object{{personObject(2, 2)}}, ts, false, Streaming)
	waitForSettle(w)
	w.Enqueue([][]detect.Object{{personObject(2, 2)}}, ts, false, Streaming)
	waitForSettle(w)
	second := w.CurrentObjects()

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected single track throughout, got %d then %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("track id changed: %q -> %q", first[0].ID, second[0].ID)
	}
}
