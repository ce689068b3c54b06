package tracking

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRegulator_SkipsTickWhilePublishInFlight(t *testing.T) {
	scene := NewSceneTracker("scene-1", func(c string) WorkerConfig {
		return WorkerConfig{Category: c, NonMeasurementTime: 5, MaxUnreliableTime: 2, DefaultTrackingRadius: 2, Kalman: DefaultKalmanConfig()}
	})
	defer scene.Shutdown()

	var calls atomic.Int64
	release := make(chan struct{})
	publish := func(msg SceneMessage) error {
		calls.Add(1)
		<-release // block the first publish to force the second tick to skip
		return nil
	}

	r := NewRegulator(scene, "scene-one", 10*time.Millisecond, publish)
	go r.Run()

	// Three ticks fire by 35ms (at 10, 20, 30ms). The first publish call
	// blocks on release, so if the in-flight skip logic works, the second
	// and third ticks must be skipped entirely rather than queued or
	// called concurrently: exactly one call before release is closed.
	time.Sleep(35 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 publish call while the first is in flight, got %d", got)
	}

	close(release)
	time.Sleep(20 * time.Millisecond)
	r.Stop()
}

func TestRegulator_StopIsClean(t *testing.T) {
	scene := NewSceneTracker("scene-1", func(c string) WorkerConfig {
		return WorkerConfig{Category: c, NonMeasurementTime: 5, MaxUnreliableTime: 2, DefaultTrackingRadius: 2, Kalman: DefaultKalmanConfig()}
	})
	defer scene.Shutdown()

	r := NewRegulator(scene, "scene-one", 5*time.Millisecond, func(SceneMessage) error { return nil })
	go r.Run()
	time.Sleep(20 * time.Millisecond)
	r.Stop()
}
