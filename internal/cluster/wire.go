package cluster

import (
	"encoding/json"
	"time"
)

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireShape struct {
	Kind             string  `json:"kind"`
	DistanceVariance float64 `json:"distance_variance"`
}

type wireVelocity struct {
	Mean      wirePoint `json:"mean"`
	Coherence float64   `json:"coherence"`
	Movement  string    `json:"movement"`
}

type wireDBSCANParams struct {
	Eps        float64 `json:"eps"`
	MinSamples int     `json:"min_samples"`
}

type wireTracking struct {
	State              string    `json:"state"`
	Confidence         float64   `json:"confidence"`
	StabilityScore     float64   `json:"stability_score"`
	FramesDetected     int       `json:"frames_detected"`
	FramesMissed       int       `json:"frames_missed"`
	AgeSeconds         float64   `json:"age_seconds"`
	TimeSinceLastSeen  float64   `json:"time_since_last_seen"`
	FirstSeen          string    `json:"first_seen"`
	LastSeen           string    `json:"last_seen"`
	PredictedPosition  wirePoint `json:"predicted_position"`
}

type wireCluster struct {
	ID             string           `json:"id"`
	Category       string           `json:"category"`
	ObjectsCount   int              `json:"objects_count"`
	CenterOfMass   wirePoint        `json:"center_of_mass"`
	ShapeAnalysis  wireShape        `json:"shape_analysis"`
	VelocityAnalysis wireVelocity   `json:"velocity_analysis"`
	ObjectIDs      []string         `json:"object_ids"`
	DBSCANParams   wireDBSCANParams `json:"dbscan_params"`
	Tracking       wireTracking     `json:"tracking"`
}

type wireBatchSummary struct {
	Categories   map[string]int `json:"categories"`
	TotalObjects int            `json:"total_objects"`
}

// wireClusterBatch is the cluster batch schema. Note the top-level field is
// "scene_name" here, unlike the scene-regulated message's "name"
// (tracking.wireSceneMessage) — the distinction is preserved verbatim
// rather than normalized.
type wireClusterBatch struct {
	SceneID   string           `json:"scene_id"`
	SceneName string           `json:"scene_name"`
	Timestamp string           `json:"timestamp"`
	Clusters  []wireCluster    `json:"clusters"`
	Summary   wireBatchSummary `json:"summary"`
}

// EncodeClusterBatch renders a scene's publishable clusters as the wire JSON
// payload for `scenescape/analytics/clusters/{scene_id}`.
func EncodeClusterBatch(sceneID, sceneName string, now time.Time, clusters []*TrackedCluster) ([]byte, error) {
	wireClusters := make([]wireCluster, len(clusters))
	categories := make(map[string]int, 8)
	totalObjects := 0

	for i, c := range clusters {
		wireClusters[i] = wireCluster{
			ID:           c.ID,
			Category:     c.Category,
			ObjectsCount: len(c.MemberIDs),
			CenterOfMass: wirePoint{X: c.Centroid.X, Y: c.Centroid.Y},
			ShapeAnalysis: wireShape{
				Kind:             string(c.Shape.Kind),
				DistanceVariance: c.Shape.DistanceVariance,
			},
			VelocityAnalysis: wireVelocity{
				Mean:      wirePoint{X: c.Velocity.Mean.X, Y: c.Velocity.Mean.Y},
				Coherence: c.Velocity.Coherence,
				Movement:  string(c.Velocity.Movement),
			},
			ObjectIDs: c.MemberIDs,
			DBSCANParams: wireDBSCANParams{
				Eps:        c.Params.Eps,
				MinSamples: c.Params.MinSamples,
			},
			Tracking: wireTracking{
				State:             string(c.State),
				Confidence:        c.Confidence,
				StabilityScore:    c.Stability,
				FramesDetected:    c.FramesDetected,
				FramesMissed:      c.FramesMissed,
				AgeSeconds:        now.Sub(c.FirstSeen).Seconds(),
				TimeSinceLastSeen: now.Sub(c.LastSeen).Seconds(),
				FirstSeen:         c.FirstSeen.UTC().Format(time.RFC3339Nano),
				LastSeen:          c.LastSeen.UTC().Format(time.RFC3339Nano),
				PredictedPosition: wirePoint{X: c.PredictedCentroid.X, Y: c.PredictedCentroid.Y},
			},
		}
		categories[c.Category]++
		totalObjects += len(c.MemberIDs)
	}

	batch := wireClusterBatch{
		SceneID:   sceneID,
		SceneName: sceneName,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Clusters:  wireClusters,
		Summary:   wireBatchSummary{Categories: categories, TotalObjects: totalObjects},
	}
	return json.Marshal(batch)
}
