package cluster

import (
	"math"
	"sort"

	"github.com/banshee-data/scene-analytics/internal/config"
)

// spatialIndex is a regular-grid nearest-neighbor index over ObjectPoints:
// cell size equal to eps, Szudzik-style cell ids.
type spatialIndex struct {
	cellSize float64
	grid     map[int64][]int
}

func newSpatialIndex(cellSize float64) *spatialIndex {
	return &spatialIndex{cellSize: cellSize, grid: make(map[int64][]int)}
}

func (si *spatialIndex) build(points []ObjectPoint) {
	si.grid = make(map[int64][]int, len(points)/4+1)
	for i, p := range points {
		id := si.cellID(p.Position.X, p.Position.Y)
		si.grid[id] = append(si.grid[id], i)
	}
}

func (si *spatialIndex) cellID(x, y float64) int64 {
	cx := int64(math.Floor(x / si.cellSize))
	cy := int64(math.Floor(y / si.cellSize))
	var a, b int64
	if cx >= 0 {
		a = 2 * cx
	} else {
		a = -2*cx - 1
	}
	if cy >= 0 {
		b = 2 * cy
	} else {
		b = -2*cy - 1
	}
	// Szudzik pairing function.
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// regionQuery returns the indices of every point within eps of points[i],
// scanning the 3x3 neighborhood of grid cells around it.
func (si *spatialIndex) regionQuery(points []ObjectPoint, i int, eps float64) []int {
	p := points[i]
	cx := int64(math.Floor(p.Position.X / si.cellSize))
	cy := int64(math.Floor(p.Position.Y / si.cellSize))
	eps2 := eps * eps

	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			id := si.cellID((float64(cx+dx)+0.5)*si.cellSize, (float64(cy+dy)+0.5)*si.cellSize)
			for _, idx := range si.grid[id] {
				q := points[idx]
				ddx := q.Position.X - p.Position.X
				ddy := q.Position.Y - p.Position.Y
				if ddx*ddx+ddy*ddy <= eps2 {
					neighbors = append(neighbors, idx)
				}
			}
		}
	}
	return neighbors
}

// dbscan performs density-based clustering over points, using 2D Euclidean
// distance, returning a label per point: 0 unvisited/noise-not-yet-set,
// -1 noise, >0 cluster id.
func dbscan(points []ObjectPoint, eps float64, minPts int) []int {
	n := len(points)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	si := newSpatialIndex(eps)
	si.build(points)

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}
		neighbors := si.regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			labels[i] = -1
			continue
		}
		clusterID++
		expandCluster(points, si, labels, i, neighbors, clusterID, eps, minPts)
	}
	return labels
}

func expandCluster(points []ObjectPoint, si *spatialIndex, labels []int, seed int, neighbors []int, clusterID int, eps float64, minPts int) {
	labels[seed] = clusterID
	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]
		if labels[idx] == -1 {
			labels[idx] = clusterID
		}
		if labels[idx] != 0 {
			continue
		}
		labels[idx] = clusterID
		more := si.regionQuery(points, idx, eps)
		if len(more) >= minPts {
			neighbors = append(neighbors, more...)
		}
	}
}

// Runner is the per-category density clustering component. It resolves
// effective parameters per scene+category before running DBSCAN.
type Runner struct {
	params *config.ParamStore
}

// NewRunner constructs a DBSCAN runner backed by the given parameter store.
func NewRunner(params *config.ParamStore) *Runner {
	return &Runner{params: params}
}

// Run groups points by category and clusters each category independently,
// applying min_samples_c as a pre-filter before invoking DBSCAN, and
// computing shape/velocity descriptors for every non-noise cluster.
// Clusters are sorted by centroid (x, y) for determinism.
func (r *Runner) Run(sceneID string, points []ObjectPoint) []ClusterDetection {
	byCategory := make(map[string][]ObjectPoint)
	for _, p := range points {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var out []ClusterDetection
	for _, category := range categories {
		members := byCategory[category]
		params := r.params.Resolve(sceneID, category)
		if len(members) < params.MinSamples {
			continue
		}
		labels := dbscan(members, params.Eps, params.MinSamples)

		buckets := make(map[int][]ObjectPoint)
		for i, lbl := range labels {
			if lbl > 0 {
				buckets[lbl] = append(buckets[lbl], members[i])
			}
		}
		ids := make([]int, 0, len(buckets))
		for id := range buckets {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		for _, id := range ids {
			out = append(out, buildClusterDetection(category, buckets[id], params))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Centroid.X != out[j].Centroid.X {
			return out[i].Centroid.X < out[j].Centroid.X
		}
		return out[i].Centroid.Y < out[j].Centroid.Y
	})
	return out
}
