package tracking

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/scene-analytics/internal/detect"
	"github.com/banshee-data/scene-analytics/internal/metrics"
	"github.com/banshee-data/scene-analytics/internal/monitoring"
)

// Mode selects how enqueue's objects argument is interpreted.
type Mode int

const (
	// Streaming carries one camera's objects per enqueue; the worker fuses
	// against its current track set.
	Streaming Mode = iota
	// Batched carries multiple cameras' object lists per enqueue; the
	// worker fuses across cameras before tracking.
	Batched
)

// WorkerConfig parameterizes one category worker.
type WorkerConfig struct {
	Category               string
	Static                 bool // governs non_measurement_time_static vs _dynamic
	NonMeasurementTime     float64
	MaxUnreliableTime      float64
	DefaultTrackingRadius  float64
	Kalman                 KalmanConfig
}

type pendingItem struct {
	cameraObjects [][]detect.Object
	when          time.Time
	alreadyTracked bool
	mode          Mode
}

// Worker owns the track set for one (scene, category) pair. It holds a
// bounded single-item pending slot: a full slot causes the new item to be
// dropped (oldest-wins backpressure).
type Worker struct {
	cfg WorkerConfig

	pending chan *pendingItem
	done    chan struct{}
	wg      sync.WaitGroup

	mu          sync.Mutex
	tracks      map[string]*Track
	nextTrackID uint64

	frameInterval atomic.Int64 // nanoseconds, set by the owning SceneTracker

	snapshot atomic.Pointer[[]PublishedObject]

	// stepDelay, when set before the worker goroutine starts consuming,
	// makes step() block for a fixed duration before doing any work. It
	// exists only so tests can deterministically saturate the pending
	// slot; production callers never set it.
	stepDelay time.Duration
}

// PublishedObject is the externally visible, immutable result of a track at
// publish time, after an atomic swap of the current-objects snapshot.
type PublishedObject struct {
	ID         string
	Category   string
	Position   Vec3
	Velocity   Vec3
	Size       Vec3
	Confidence float64
	Attributes []byte
}

// NewWorker constructs a category worker with an idle track set.
func NewWorker(cfg WorkerConfig) *Worker {
	w := &Worker{
		cfg:     cfg,
		pending: make(chan *pendingItem, 1),
		done:    make(chan struct{}),
		tracks:  make(map[string]*Track),
	}
	empty := []PublishedObject{}
	w.snapshot.Store(&empty)
	w.frameInterval.Store(int64(100 * time.Millisecond))
	w.wg.Add(1)
	go w.run()
	return w
}

// SetFrameInterval updates the reference camera frame interval. It is used
// as the prediction step only for a track whose last timestamp is zero (the
// Unix epoch); every other step is the time since the track's last step.
func (w *Worker) SetFrameInterval(interval time.Duration) {
	w.frameInterval.Store(int64(interval))
}

// Enqueue submits new detections for processing. It is non-blocking: if the
// worker's pending slot is already occupied, the new item is dropped and a
// tracker_busy counter is incremented — oldest-wins: the queued item is
// processed, the new one discarded.
func (w *Worker) Enqueue(cameraObjects [][]detect.Object, when time.Time, alreadyTracked bool, mode Mode) {
	item := &pendingItem{cameraObjects: cameraObjects, when: when, alreadyTracked: alreadyTracked, mode: mode}
	select {
	case w.pending <- item:
	default:
		metrics.DroppedMessages.WithLabelValues("tracker_busy", w.cfg.Category).Inc()
	}
}

// CurrentObjects is a lock-free read of the last published result snapshot.
func (w *Worker) CurrentObjects() []PublishedObject {
	p := w.snapshot.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Retire drains any pending item and stops the worker goroutine. It blocks
// until the goroutine has exited.
func (w *Worker) Retire() {
	close(w.done)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			metrics.WorkerFaults.WithLabelValues(w.cfg.Category).Inc()
			monitoring.Logf("tracking: worker[%s] fault: %v", w.cfg.Category, r)
		}
	}()
	for {
		select {
		case <-w.done:
			// Drain any item left in the slot before exiting.
			select {
			case item := <-w.pending:
				w.step(item)
			default:
			}
			return
		case item := <-w.pending:
			w.step(item)
		}
	}
}

func (w *Worker) step(item *pendingItem) {
	if w.stepDelay > 0 {
		time.Sleep(w.stepDelay)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	when := float64(item.when.UnixNano()) / 1e9

	var objects []detect.Object
	for _, cam := range item.cameraObjects {
		objects = append(objects, cam...)
	}

	w.predictAll(when)

	var matches []string
	if item.alreadyTracked {
		// Detections already carry a stable persistent id (e.g. a
		// re-identification pipeline upstream); skip nearest-neighbor
		// association and match directly by id.
		matches = w.associateByID(objects)
	} else {
		matches = w.associate(objects, when)
	}
	w.updateMatched(objects, matches, when)
	w.birthUnmatched(objects, matches, when)
	w.ageUnmatched(matches, when)
	w.publish()
}

// associateByID matches detections that already carry a persistent
// identity to existing tracks by that id, creating the track bookkeeping
// entry on first sight. Used when the caller enqueues with alreadyTracked.
func (w *Worker) associateByID(objects []detect.Object) []string {
	matches := make([]string, len(objects))
	for oi, obj := range objects {
		if obj.ID == "" {
			continue
		}
		if _, ok := w.tracks[obj.ID]; ok {
			matches[oi] = obj.ID
		}
	}
	return matches
}

func (w *Worker) predictAll(when float64) {
	for _, tr := range w.tracks {
		if tr.Retired {
			continue
		}
		dt := when - tr.lastTime
		if tr.lastTime == 0 {
			dt = float64(w.frameInterval.Load()) / 1e9
		}
		if dt < 0 {
			dt = 0
		}
		predict(tr, dt, w.cfg.Kalman)
	}
}

// associate matches detections to predicted tracks by nearest neighbor
// under the track's tracking radius. Ties break on smaller Euclidean
// distance, then lower track id — both rules are deterministic given
// identical inputs.
func (w *Worker) associate(objects []detect.Object, when float64) []string {
	matches := make([]string, len(objects))

	ids := make([]string, 0, len(w.tracks))
	for id, tr := range w.tracks {
		if !tr.Retired {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	used := make(map[string]bool, len(ids))
	for oi, obj := range objects {
		if obj.Translation == nil {
			continue
		}
		best := ""
		bestDist := 0.0
		for _, id := range ids {
			if used[id] {
				continue
			}
			tr := w.tracks[id]
			if tr.Category != obj.Category {
				continue
			}
			dist := distance(tr.Predicted, Vec3(*obj.Translation))
			if dist > tr.TrackingRadius {
				continue
			}
			if best == "" || dist < bestDist || (dist == bestDist && id < best) {
				best = id
				bestDist = dist
			}
		}
		if best != "" {
			matches[oi] = best
			used[best] = true
		}
	}
	return matches
}

func distance(a, b Vec3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (w *Worker) updateMatched(objects []detect.Object, matches []string, when float64) {
	for oi, id := range matches {
		if id == "" {
			continue
		}
		tr := w.tracks[id]
		obj := objects[oi]
		kalmanUpdate(tr, Vec3(*obj.Translation), w.cfg.Kalman)
		tr.Confidence = obj.Confidence
		if len(obj.ReID) > 0 {
			tr.Attributes = obj.ReID
		}
		tr.MeasurementAge = 0
		tr.ReliabilityAge = 0
		tr.Unreliable = false
		tr.lastTime = when
	}
}

func (w *Worker) birthUnmatched(objects []detect.Object, matches []string, when float64) {
	for oi, id := range matches {
		if id != "" {
			continue
		}
		obj := objects[oi]
		if obj.Translation == nil {
			continue
		}
		id := obj.ID
		if id == "" {
			w.nextTrackID++
			id = newTrackID(w.cfg.Category, w.nextTrackID)
		}
		radius := w.cfg.DefaultTrackingRadius
		size := Vec3{X: obj.BoundingBox.Width, Y: obj.BoundingBox.Height}
		tr := newTrack(id, obj.Category, Vec3(*obj.Translation), size, radius, obj.ReID, when)
		tr.Confidence = obj.Confidence
		w.tracks[id] = tr
	}
}

func (w *Worker) ageUnmatched(matches []string, when float64) {
	matched := make(map[string]bool, len(matches))
	for _, id := range matches {
		if id != "" {
			matched[id] = true
		}
	}
	for id, tr := range w.tracks {
		if tr.Retired || matched[id] {
			continue
		}
		dt := when - tr.lastTime
		if dt < 0 {
			dt = 0
		}
		tr.MeasurementAge += dt
		tr.ReliabilityAge += dt
		tr.lastTime = when

		if tr.ReliabilityAge > w.cfg.MaxUnreliableTime {
			tr.Unreliable = true
		}
		if tr.MeasurementAge > w.cfg.NonMeasurementTime {
			tr.Retired = true
		}
	}
	// Drop retired tracks from the map entirely; ids are never reused
	// since nextTrackID only increases.
	for id, tr := range w.tracks {
		if tr.Retired {
			delete(w.tracks, id)
		}
	}
}

func (w *Worker) publish() {
	ids := make([]string, 0, len(w.tracks))
	for id := range w.tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]PublishedObject, 0, len(ids))
	for _, id := range ids {
		tr := w.tracks[id]
		if tr.Unreliable || tr.Retired {
			continue
		}
		out = append(out, PublishedObject{
			ID:         tr.ID,
			Category:   tr.Category,
			Position:   tr.Position,
			Velocity:   tr.Velocity,
			Size:       tr.Size,
			Confidence: tr.Confidence,
			Attributes: tr.Attributes,
		})
	}
	w.snapshot.Store(&out)
}
