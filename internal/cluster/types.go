// Package cluster implements the density-clustering runner, the indexed
// cluster memory, the optimal-assignment matcher, and the per-frame
// coordinator that together track clusters of scene objects across frames.
package cluster

import (
	"time"

	"github.com/banshee-data/scene-analytics/internal/config"
)

// Vec2 is a ground-plane (x, y) point or vector.
type Vec2 struct {
	X, Y float64
}

// ObjectPoint is one scene-regulated object as seen by the clustering
// pipeline — a minimal projection of tracking.PublishedObject plus the
// fields DBSCAN and descriptor classification need.
type ObjectPoint struct {
	ID       string
	Category string
	Position Vec2
	Velocity Vec2
}

// ShapeKind classifies a cluster's spatial arrangement.
type ShapeKind string

const (
	ShapeCircle    ShapeKind = "circle"
	ShapeRectangle ShapeKind = "rectangle"
	ShapeLine      ShapeKind = "line"
	ShapeIrregular ShapeKind = "irregular"
)

// MovementClass classifies member-velocity coherence.
type MovementClass string

const (
	MovementStationary           MovementClass = "stationary"
	MovementCoordinatedParallel  MovementClass = "coordinated_parallel"
	MovementConverging           MovementClass = "converging"
	MovementDiverging            MovementClass = "diverging"
	MovementLooselyCoordinated   MovementClass = "loosely_coordinated"
	MovementChaotic              MovementClass = "chaotic"
)

// ShapeDescriptor summarizes a cluster's spatial distribution.
type ShapeDescriptor struct {
	Kind            ShapeKind
	DistanceVariance float64
}

// VelocityDescriptor summarizes a cluster's member-velocity coherence.
type VelocityDescriptor struct {
	Mean     Vec2
	Coherence float64
	Movement MovementClass
}

// ClusterDetection is one non-noise DBSCAN cluster produced by the runner
// for a single category in a single frame.
type ClusterDetection struct {
	Category  string
	MemberIDs []string
	Centroid  Vec2
	Shape     ShapeDescriptor
	Velocity  VelocityDescriptor
	Params    config.CategoryParams
}

// ClusterState is the tracked cluster's lifecycle state.
type ClusterState string

const (
	StateNew     ClusterState = "NEW"
	StateActive  ClusterState = "ACTIVE"
	StateStable  ClusterState = "STABLE"
	StateFading  ClusterState = "FADING"
	StateLost    ClusterState = "LOST"
)

// Publishable reports whether clusters in this state are visible externally.
func (s ClusterState) Publishable() bool {
	return s == StateActive || s == StateStable || s == StateFading
}

// Observation is one bounded history ring-buffer entry.
type Observation struct {
	Position  Vec2
	Velocity  Vec2
	Size      int // member count at the time of observation
	Shape     ShapeKind
	Timestamp time.Time
}

// maxHistory is the bounded observation history capacity: 100 newest entries.
const maxHistory = 100

// TrackedCluster is a cluster whose identity is maintained frame-to-frame.
type TrackedCluster struct {
	ID       string
	SceneID  string
	Category string

	Centroid           Vec2
	Shape              ShapeDescriptor
	Velocity           VelocityDescriptor
	MemberIDs          []string
	Params             config.CategoryParams
	PredictedCentroid  Vec2

	FirstSeen   time.Time
	LastSeen    time.Time
	LastUpdated time.Time // frame timestamp of the last touch (update or miss)

	FramesDetected int
	FramesMissed   int

	Confidence float64
	Stability  float64

	State ClusterState

	// FramesToFade is attached to the object at creation time: the
	// object-attached value (15) is authoritative over any later config
	// default unless this specific cluster is reconfigured.
	FramesToFade int

	History []Observation
}

// TotalFrames returns frames_detected + frames_missed.
func (c *TrackedCluster) TotalFrames() int {
	return c.FramesDetected + c.FramesMissed
}

// pushHistory appends an observation, dropping the oldest entry once the
// bound is exceeded.
func (c *TrackedCluster) pushHistory(obs Observation) {
	c.History = append(c.History, obs)
	if len(c.History) > maxHistory {
		c.History = c.History[len(c.History)-maxHistory:]
	}
}
