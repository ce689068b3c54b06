package tracking

import (
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/scene-analytics/internal/config"
	"github.com/banshee-data/scene-analytics/internal/detect"
)

// WorkerFactory builds a WorkerConfig for a newly-seen category, resolving
// category-specific defaults from static config.
type WorkerFactory func(category string) WorkerConfig

// SceneTracker demultiplexes inbound detections by category, lazily creates
// a Worker per category, and aggregates the latest per-category snapshots
// into a single ordered scene object list.
type SceneTracker struct {
	sceneID string
	factory WorkerFactory

	mu               sync.RWMutex
	workers          map[string]*Worker
	referenceFrameFPS float64
}

// NewSceneTracker creates an empty scene tracker. Workers are created on
// first demand.
func NewSceneTracker(sceneID string, factory WorkerFactory) *SceneTracker {
	return &SceneTracker{
		sceneID:           sceneID,
		factory:           factory,
		workers:           make(map[string]*Worker),
		referenceFrameFPS: 10,
	}
}

// SceneID returns the scene this tracker serves.
func (s *SceneTracker) SceneID() string { return s.sceneID }

// Dispatch routes a decoded detection to per-category workers. cameraFPS is
// the reporting camera's current frame-rate. The scene's reference
// frame-rate starts at 10 fps and is lowered to the slowest camera rate
// seen; a camera faster than the current reference does not raise it. Any
// change propagates to every worker.
func (s *SceneTracker) Dispatch(det detect.Detection, cameraFPS float64, mode Mode) {
	byCategory := make(map[string][]detect.Object)
	for _, obj := range det.Objects {
		byCategory[obj.Category] = append(byCategory[obj.Category], obj)
	}

	s.updateReferenceFrameRate(cameraFPS)

	for category, objects := range byCategory {
		w := s.workerFor(category)
		w.Enqueue([][]detect.Object{objects}, det.Timestamp, false, mode)
	}
}

func (s *SceneTracker) updateReferenceFrameRate(cameraFPS float64) {
	if cameraFPS <= 0 {
		return
	}
	s.mu.Lock()
	changed := cameraFPS < s.referenceFrameFPS || s.referenceFrameFPS == 0
	if changed {
		s.referenceFrameFPS = cameraFPS
	}
	workers := make([]*Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	fps := s.referenceFrameFPS
	s.mu.Unlock()

	if changed {
		interval := time.Duration(float64(time.Second) / fps)
		for _, w := range workers {
			w.SetFrameInterval(interval)
		}
	}
}

func (s *SceneTracker) workerFor(category string) *Worker {
	s.mu.RLock()
	w, ok := s.workers[category]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workers[category]; ok {
		return w
	}
	cfg := s.factory(category)
	w = NewWorker(cfg)
	interval := time.Duration(float64(time.Second) / s.referenceFrameFPS)
	w.SetFrameInterval(interval)
	s.workers[category] = w
	return w
}

// CurrentObjects merges the latest snapshots across all workers into a
// single ordered list grouped by category. If category is non-empty, only
// that category's objects are returned.
func (s *SceneTracker) CurrentObjects(category string) []PublishedObject {
	s.mu.RLock()
	categories := make([]string, 0, len(s.workers))
	workers := make(map[string]*Worker, len(s.workers))
	for c, w := range s.workers {
		categories = append(categories, c)
		workers[c] = w
	}
	s.mu.RUnlock()
	sort.Strings(categories)

	var out []PublishedObject
	for _, c := range categories {
		if category != "" && c != category {
			continue
		}
		out = append(out, workers[c].CurrentObjects()...)
	}
	return out
}

// Shutdown signals every worker to retire and waits for them to drain.
func (s *SceneTracker) Shutdown() {
	s.mu.RLock()
	workers := make([]*Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Retire()
		}(w)
	}
	wg.Wait()
}

// DefaultWorkerFactory builds a WorkerFactory from static config, resolving
// per-category non-measurement timers via the dynamic/static classification
// supplied by isStatic.
func DefaultWorkerFactory(cfg config.Config, isStatic func(category string) bool, trackingRadius func(category string) float64) WorkerFactory {
	return func(category string) WorkerConfig {
		static := isStatic(category)
		radius := trackingRadius(category)
		if radius <= 0 {
			radius = 1.5
		}
		return WorkerConfig{
			Category:              category,
			Static:                static,
			NonMeasurementTime:    cfg.NonMeasurementTime(static),
			MaxUnreliableTime:     cfg.MaxUnreliableTime,
			DefaultTrackingRadius: radius,
			Kalman:                DefaultKalmanConfig(),
		}
	}
}
