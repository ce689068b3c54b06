package cluster

import "math"

// hungarianInf stands in for an unreachable assignment in the cost matrix.
const hungarianInf = 1e18

// hungarianAssign solves the rectangular assignment problem for an n x m
// cost matrix, returning assignments[i] = column assigned to row i, or -1 if
// row i is left unassigned. Costs >= hungarianInf are treated as forbidden.
// This is the Jonker-Volgenant variant of Kuhn-Munkres, operating on the
// float64 weighted-sum costs this package computes.
func hungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		result := make([]int, n)
		for i := range result {
			result[i] = -1
		}
		return result
	}

	// Explicit rectangular padding: build a square matrix, padding with
	// hungarianInf so excess rows or columns are never selected.
	dim := n
	if m > dim {
		dim = m
	}
	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			if i < n && j < m {
				c[i][j] = cost[i][j]
			} else {
				c[i][j] = hungarianInf
			}
		}
	}

	const inf = math.MaxFloat64 / 2
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 && p[j] <= dim {
			rowAssign[p[j]-1] = j - 1
		}
	}

	result := make([]int, n)
	for i := 0; i < n; i++ {
		col := rowAssign[i]
		if col < 0 || col >= m || cost[i][col] >= hungarianInf {
			result[i] = -1
		} else {
			result[i] = col
		}
	}
	return result
}

// maxMatchingDistance is the cost beyond which a cluster/detection pair is
// discarded even if the solver would otherwise pair them.
const maxMatchingDistance = 5.0

// Matching weights for the four cost components.
const (
	weightPosition = 0.4
	weightVelocity = 0.3
	weightSize     = 0.2
	weightShape    = 0.1
)

// Match is one accepted cluster-to-detection pairing, with its similarity
// score for diagnostics: similarity = 1 - cost/max_distance.
type Match struct {
	TrackedIndex   int
	DetectionIndex int
	Similarity     float64
}

// MatchResult is the outcome of matching a category's tracked clusters
// against its fresh detections for one frame.
type MatchResult struct {
	Matches            []Match
	UnmatchedTracked    []int
	UnmatchedDetections []int
}

// matchCost computes the weighted assignment cost between a tracked cluster
// and a fresh detection. Category mismatch is an immediate hard exclusion —
// a cluster is only ever matched within its own category.
func matchCost(tracked *TrackedCluster, det ClusterDetection) float64 {
	if tracked.Category != det.Category {
		return hungarianInf
	}

	dx := tracked.PredictedCentroid.X - det.Centroid.X
	dy := tracked.PredictedCentroid.Y - det.Centroid.Y
	posCost := math.Hypot(dx, dy)

	dvx := tracked.Velocity.Mean.X - det.Velocity.Mean.X
	dvy := tracked.Velocity.Mean.Y - det.Velocity.Mean.Y
	velCost := math.Hypot(dvx, dvy)

	sizeCost := math.Abs(float64(len(tracked.MemberIDs) - len(det.MemberIDs)))

	// Deliberately preserved: shape_cost is 1 when shapes already agree and
	// 2 when they differ, both scaled by w_shape — a small matching penalty
	// even on a shape match, not a bonus for mismatching.
	shapeCost := 1.0
	if tracked.Shape.Kind != det.Shape.Kind {
		shapeCost = 2.0
	}

	return weightPosition*posCost + weightVelocity*velCost + weightSize*sizeCost + weightShape*shapeCost
}

// MatchCategory solves the optimal assignment between a category's tracked
// clusters and its fresh detections for one frame, discarding any pairing
// whose cost exceeds maxMatchingDistance.
func MatchCategory(tracked []*TrackedCluster, detections []ClusterDetection) MatchResult {
	n, m := len(tracked), len(detections)
	if n == 0 || m == 0 {
		res := MatchResult{}
		for i := range tracked {
			res.UnmatchedTracked = append(res.UnmatchedTracked, i)
		}
		for j := range detections {
			res.UnmatchedDetections = append(res.UnmatchedDetections, j)
		}
		return res
	}

	cost := make([][]float64, n)
	for i, t := range tracked {
		cost[i] = make([]float64, m)
		for j, d := range detections {
			cost[i][j] = matchCost(t, d)
		}
	}

	assign := hungarianAssign(cost)

	matchedDet := make(map[int]bool, m)
	var res MatchResult
	for i, j := range assign {
		if j < 0 || cost[i][j] > maxMatchingDistance {
			res.UnmatchedTracked = append(res.UnmatchedTracked, i)
			continue
		}
		res.Matches = append(res.Matches, Match{
			TrackedIndex:   i,
			DetectionIndex: j,
			Similarity:     1 - cost[i][j]/maxMatchingDistance,
		})
		matchedDet[j] = true
	}
	for j := range detections {
		if !matchedDet[j] {
			res.UnmatchedDetections = append(res.UnmatchedDetections, j)
		}
	}
	return res
}
