package tracking

import (
	"sync/atomic"
	"time"
)

// SceneMessage is the fused scene-regulated payload.
type SceneMessage struct {
	SceneID   string
	SceneName string
	Timestamp time.Time
	Objects   []PublishedObject
	Summary   SceneSummary
}

// SceneSummary is a small rollup attached to each regulated message.
type SceneSummary struct {
	Categories   map[string]int
	TotalObjects int
}

// Publisher sends an assembled SceneMessage; the regulator never retries a
// failed publish, since transport errors are local to the caller.
type Publisher func(SceneMessage) error

// Regulator drives periodic publish of fused scene state at a configured
// cadence. It runs on a single dedicated goroutine and reads the scene
// tracker via lock-free snapshots, so there is never a blocking lock held
// across the timer's suspension point.
type Regulator struct {
	scene     *SceneTracker
	sceneName string
	period    time.Duration
	publish   Publisher

	inFlight atomic.Bool
	stop     chan struct{}
	done     chan struct{}
}

// NewRegulator constructs a regulator for one scene at the given period
// (the inverse of the configured regulate rate).
func NewRegulator(scene *SceneTracker, sceneName string, period time.Duration, publish Publisher) *Regulator {
	return &Regulator{
		scene:     scene,
		sceneName: sceneName,
		period:    period,
		publish:   publish,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run blocks, ticking at the configured period until Stop is called. If the
// previous tick's publish has not completed when the next tick fires, the
// current tick is skipped entirely — no queueing, since the next tick's
// snapshot will already be fresher.
func (r *Regulator) Run() {
	defer close(r.done)
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.tick(now)
			// Discard a tick that fired while the publish was running.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (r *Regulator) tick(now time.Time) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return // previous publish still in flight; skip this tick
	}
	defer r.inFlight.Store(false)

	objects := r.scene.CurrentObjects("")
	summary := SceneSummary{Categories: map[string]int{}, TotalObjects: len(objects)}
	for _, o := range objects {
		summary.Categories[o.Category]++
	}
	msg := SceneMessage{
		SceneID:   r.scene.SceneID(),
		SceneName: r.sceneName,
		Timestamp: now,
		Objects:   objects,
		Summary:   summary,
	}
	_ = r.publish(msg) // publish errors are local/logged by the Publisher
}

// Stop halts the ticker loop and waits for Run to return.
func (r *Regulator) Stop() {
	close(r.stop)
	<-r.done
}
