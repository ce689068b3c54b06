package cluster

import (
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/scene-analytics/internal/config"
	"github.com/banshee-data/scene-analytics/internal/metrics"
	"github.com/banshee-data/scene-analytics/internal/monitoring"
)

// isTrackable reports whether a cluster's lifecycle state is eligible for
// matching against fresh detections.
func isTrackable(s ClusterState) bool {
	switch s {
	case StateNew, StateActive, StateStable, StateFading:
		return true
	default:
		return false
	}
}

// Hooks lets a caller observe the coordinator's per-message pass without it
// depending on a transport or storage concern.
type Hooks struct {
	OnBeforeAnalyze func(sceneID string, detections []ClusterDetection)
	OnAfterPublish  func(sceneID string, published []*TrackedCluster)
}

// Coordinator is the per-frame orchestration component: it runs the density
// clustering runner's outputs through the matcher against the memory
// store's live clusters, applies the lifecycle state machine, and reports
// the publishable subset.
type Coordinator struct {
	memory *Memory
	cfg    config.ClusterTrackingConfig
	hooks  Hooks

	nextID uint64
}

// NewCoordinator constructs a coordinator backed by the given memory store
// and lifecycle/confidence configuration.
func NewCoordinator(memory *Memory, cfg config.ClusterTrackingConfig, hooks Hooks) *Coordinator {
	return &Coordinator{memory: memory, cfg: cfg, hooks: hooks}
}

// Process runs one inbound message's cluster detections through the full
// match/update/age/cleanup pass and returns the scene's publishable
// clusters (state in {ACTIVE, STABLE, FADING}) afterward.
func (co *Coordinator) Process(sceneID string, detections []ClusterDetection, now time.Time) []*TrackedCluster {
	if co.hooks.OnBeforeAnalyze != nil {
		co.hooks.OnBeforeAnalyze(sceneID, detections)
	}

	byCategory := make(map[string][]ClusterDetection)
	for _, d := range detections {
		byCategory[d.Category] = append(byCategory[d.Category], d)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	touched := make(map[string]bool)

	for _, category := range categories {
		dets := byCategory[category]
		trackable := filterTrackable(co.memory.ByCategory(sceneID, category))

		result := MatchCategory(trackable, dets)

		for _, m := range result.Matches {
			c := trackable[m.TrackedIndex]
			co.update(c, dets[m.DetectionIndex], now)
			touched[c.ID] = true
		}
		for _, ti := range result.UnmatchedTracked {
			c := trackable[ti]
			co.markMissed(c, now)
			touched[c.ID] = true
		}
		for _, di := range result.UnmatchedDetections {
			c := co.create(sceneID, dets[di], now)
			co.memory.Add(c)
			touched[c.ID] = true
		}
	}

	// Belt-and-braces: any cluster in this scene not touched this frame
	// still ages.
	for _, c := range co.memory.ByScene(sceneID) {
		if !touched[c.ID] && c.LastUpdated.Before(now) {
			co.markMissed(c, now)
		}
	}

	co.memory.CleanupOld(now, co.cfg.Archival.ArchiveTimeThresholdSeconds)

	var published []*TrackedCluster
	stateCounts := make(map[[3]string]int)
	for _, c := range co.memory.ByScene(sceneID) {
		stateCounts[[3]string{c.SceneID, c.Category, string(c.State)}]++
		if c.State.Publishable() {
			published = append(published, c)
		}
	}
	for key, n := range stateCounts {
		metrics.ClustersByState.WithLabelValues(key[0], key[1], key[2]).Set(float64(n))
	}
	if co.hooks.OnAfterPublish != nil {
		co.hooks.OnAfterPublish(sceneID, published)
	}
	return published
}

func filterTrackable(clusters []*TrackedCluster) []*TrackedCluster {
	out := make([]*TrackedCluster, 0, len(clusters))
	for _, c := range clusters {
		if isTrackable(c.State) {
			out = append(out, c)
		}
	}
	return out
}

func (co *Coordinator) create(sceneID string, det ClusterDetection, now time.Time) *TrackedCluster {
	co.nextID++
	c := &TrackedCluster{
		ID:                clusterID(sceneID, det.Category, co.nextID),
		SceneID:           sceneID,
		Category:          det.Category,
		Centroid:          det.Centroid,
		Shape:             det.Shape,
		Velocity:          det.Velocity,
		MemberIDs:         det.MemberIDs,
		Params:            det.Params,
		PredictedCentroid: det.Centroid,
		FirstSeen:         now,
		LastSeen:          now,
		LastUpdated:       now,
		FramesDetected:    1,
		Confidence:        co.cfg.Confidence.InitialConfidence,
		State:             StateNew,
		FramesToFade:      co.cfg.StateTransitions.FramesToFade,
	}
	c.pushHistory(observationOf(det, now))
	co.recompute(c)
	monitoring.Logf("cluster %s created in scene %s category %s", c.ID, sceneID, det.Category)
	return c
}

func (co *Coordinator) update(c *TrackedCluster, det ClusterDetection, now time.Time) {
	c.Centroid = det.Centroid
	c.Shape = det.Shape
	c.Velocity = det.Velocity
	c.MemberIDs = det.MemberIDs
	c.Params = det.Params
	c.PredictedCentroid = predictCentroid(c, det.Centroid, now)
	c.LastSeen = now
	c.LastUpdated = now
	c.FramesDetected++
	c.FramesMissed = 0
	c.pushHistory(observationOf(det, now))
	co.recompute(c)
	co.transition(c)
}

func (co *Coordinator) markMissed(c *TrackedCluster, now time.Time) {
	c.FramesMissed++
	c.LastUpdated = now
	co.recompute(c)
	co.transition(c)
}

// predictCentroid extrapolates the cluster's centroid forward using its
// velocity descriptor, feeding PredictedCentroid used by the next frame's
// matching cost.
func predictCentroid(c *TrackedCluster, observed Vec2, now time.Time) Vec2 {
	dt := now.Sub(c.LastUpdated).Seconds()
	if dt <= 0 {
		return observed
	}
	return Vec2{
		X: observed.X + c.Velocity.Mean.X*dt,
		Y: observed.Y + c.Velocity.Mean.Y*dt,
	}
}

func observationOf(det ClusterDetection, now time.Time) Observation {
	return Observation{
		Position:  det.Centroid,
		Velocity:  det.Velocity.Mean,
		Size:      len(det.MemberIDs),
		Shape:     det.Shape.Kind,
		Timestamp: now,
	}
}

// recompute applies the confidence and stability formulas.
func (co *Coordinator) recompute(c *TrackedCluster) {
	total := c.TotalFrames()
	if total < 1 {
		total = 1
	}
	detectionRatio := float64(c.FramesDetected) / float64(total)
	missPenalty := minF(float64(c.FramesMissed)*co.cfg.Confidence.MissPenaltyPerFrame, co.cfg.Confidence.MaxMissPenalty)
	longevityBonus := minF(float64(c.FramesDetected)/co.cfg.Confidence.LongevityDivisor, co.cfg.Confidence.MaxLongevityBonus)
	c.Confidence = clamp01(detectionRatio - missPenalty + longevityBonus)
	c.Stability = stabilityOf(c.History)
}

// stabilityOf computes a weighted stability score over the last 10
// observations, blending position variance, size variance, and shape
// consistency.
func stabilityOf(history []Observation) float64 {
	window := history
	if len(window) > 10 {
		window = window[len(window)-10:]
	}
	if len(window) < 2 {
		return 0
	}

	xs := make([]float64, len(window))
	ys := make([]float64, len(window))
	sizes := make([]float64, len(window))
	shapeCounts := make(map[ShapeKind]int, 4)
	for i, o := range window {
		xs[i] = o.Position.X
		ys[i] = o.Position.Y
		sizes[i] = float64(o.Size)
		shapeCounts[o.Shape]++
	}

	positionVar := stat.Variance(xs, nil) + stat.Variance(ys, nil)
	sizeVar := stat.Variance(sizes, nil)

	modalCount := 0
	for _, n := range shapeCounts {
		if n > modalCount {
			modalCount = n
		}
	}
	shapeConsistency := float64(modalCount) / float64(len(window))

	positionStability := 1 / (1 + positionVar)
	sizeStability := 1 / (1 + sizeVar)

	return 0.4*positionStability + 0.3*sizeStability + 0.3*shapeConsistency
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// transition applies the cluster lifecycle state machine.
func (co *Coordinator) transition(c *TrackedCluster) {
	st := co.cfg.StateTransitions
	switch c.State {
	case StateNew:
		if c.FramesDetected >= st.FramesToActivate && c.Confidence > st.ActivationThreshold {
			c.State = StateActive
		}
	case StateActive:
		switch {
		case c.FramesMissed >= c.FramesToFade:
			c.State = StateFading
		case c.FramesDetected >= st.FramesToStable && c.Stability > st.StabilityThreshold:
			c.State = StateStable
		}
	case StateStable:
		if c.FramesMissed >= c.FramesToFade {
			c.State = StateFading
		}
	case StateFading:
		switch {
		case c.FramesMissed >= st.FramesToLost:
			c.State = StateLost
		case c.FramesMissed == 0:
			c.State = StateActive
		}
	}
}

func clusterID(sceneID, category string, seq uint64) string {
	return sceneID + "-" + category + "-" + strconv.FormatUint(seq, 10)
}
