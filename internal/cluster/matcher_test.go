package cluster

import "testing"

func TestHungarianAssign_Square(t *testing.T) {
	cost := [][]float64{
		{1, 2},
		{2, 1},
	}
	assign := hungarianAssign(cost)
	if assign[0] != 0 || assign[1] != 1 {
		t.Fatalf("expected identity assignment, got %v", assign)
	}
}

func TestHungarianAssign_RectangularMoreRowsThanCols(t *testing.T) {
	cost := [][]float64{
		{1},
		{2},
		{3},
	}
	assign := hungarianAssign(cost)
	count := 0
	for _, a := range assign {
		if a >= 0 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row assigned with only 1 column available, got %d (%v)", count, assign)
	}
	if assign[0] != 0 {
		t.Fatalf("expected the cheapest row assigned to the only column, got %v", assign)
	}
}

func TestMatchCategory_HardCategoryExclusion(t *testing.T) {
	tracked := []*TrackedCluster{
		{ID: "t1", Category: "person", PredictedCentroid: Vec2{X: 0, Y: 0}},
	}
	dets := []ClusterDetection{
		{Category: "car", Centroid: Vec2{X: 0, Y: 0}},
	}
	result := MatchCategory(tracked, dets)
	if len(result.Matches) != 0 {
		t.Fatalf("expected no matches across category mismatch, got %+v", result.Matches)
	}
	if len(result.UnmatchedTracked) != 1 || len(result.UnmatchedDetections) != 1 {
		t.Fatalf("expected both sides unmatched, got %+v", result)
	}
}

func TestMatchCategory_DiscardsBeyondMaxDistance(t *testing.T) {
	tracked := []*TrackedCluster{
		{ID: "t1", Category: "person", PredictedCentroid: Vec2{X: 0, Y: 0}},
	}
	dets := []ClusterDetection{
		{Category: "person", Centroid: Vec2{X: 100, Y: 100}},
	}
	result := MatchCategory(tracked, dets)
	if len(result.Matches) != 0 {
		t.Fatalf("expected far-apart pairing discarded, got %+v", result.Matches)
	}
}

func TestMatchCategory_NearPairMatches(t *testing.T) {
	tracked := []*TrackedCluster{
		{ID: "t1", Category: "person", PredictedCentroid: Vec2{X: 0, Y: 0}, MemberIDs: []string{"a", "b"}},
	}
	dets := []ClusterDetection{
		{Category: "person", Centroid: Vec2{X: 0.1, Y: 0}, MemberIDs: []string{"a", "b"}},
	}
	result := MatchCategory(tracked, dets)
	if len(result.Matches) != 1 {
		t.Fatalf("expected 1 match, got %+v", result)
	}
	if result.Matches[0].Similarity <= 0 || result.Matches[0].Similarity > 1 {
		t.Fatalf("similarity out of range: %v", result.Matches[0].Similarity)
	}
}
