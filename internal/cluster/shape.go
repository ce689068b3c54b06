package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/scene-analytics/internal/config"
)

const (
	// stationarySpeed is the mean-speed threshold below which a cluster's
	// movement is classified stationary rather than computing alignment.
	stationarySpeed = 0.05

	lineElongationThreshold = 3.0
	circleVarianceRatio     = 0.15
)

func centroidOf(points []ObjectPoint) Vec2 {
	var sx, sy float64
	for _, p := range points {
		sx += p.Position.X
		sy += p.Position.Y
	}
	n := float64(len(points))
	return Vec2{X: sx / n, Y: sy / n}
}

// classifyShape derives a ShapeDescriptor from point-to-centroid distance
// variance and the spread (elongation) of the point cloud's principal axes.
// distanceVariance uses gonum/stat.Variance.
func classifyShape(points []ObjectPoint, centroid Vec2) ShapeDescriptor {
	n := len(points)
	if n < 3 {
		return ShapeDescriptor{Kind: ShapeIrregular}
	}

	dists := make([]float64, n)
	var sumDist float64
	for i, p := range points {
		dx, dy := p.Position.X-centroid.X, p.Position.Y-centroid.Y
		d := math.Hypot(dx, dy)
		dists[i] = d
		sumDist += d
	}
	meanDist := sumDist / float64(n)
	distVar := stat.Variance(dists, nil)

	// 2x2 covariance of the centered cloud, used for an elongation ratio
	// between the major and minor axes (a cheap proxy for "how line-like").
	var sxx, syy, sxy float64
	for _, p := range points {
		dx, dy := p.Position.X-centroid.X, p.Position.Y-centroid.Y
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	sxx /= float64(n)
	syy /= float64(n)
	sxy /= float64(n)

	trace := sxx + syy
	det := sxx*syy - sxy*sxy
	disc := math.Sqrt(math.Max(trace*trace/4-det, 0))
	lambdaMax := trace/2 + disc
	lambdaMin := trace/2 - disc
	elongation := 1.0
	if lambdaMin > 1e-9 {
		elongation = math.Sqrt(lambdaMax / lambdaMin)
	} else if lambdaMax > 1e-9 {
		elongation = math.Inf(1)
	}

	var kind ShapeKind
	switch {
	case elongation > lineElongationThreshold:
		kind = ShapeLine
	case meanDist > 0 && distVar/(meanDist*meanDist) < circleVarianceRatio:
		kind = ShapeCircle
	case elongation > 1.3:
		kind = ShapeRectangle
	default:
		kind = ShapeIrregular
	}

	return ShapeDescriptor{Kind: kind, DistanceVariance: distVar}
}

// classifyVelocity derives a VelocityDescriptor from member velocity
// alignment with the vector toward the cluster centroid.
func classifyVelocity(points []ObjectPoint, centroid Vec2) VelocityDescriptor {
	n := len(points)
	if n == 0 {
		return VelocityDescriptor{Movement: MovementStationary}
	}

	var sumVX, sumVY float64
	for _, p := range points {
		sumVX += p.Velocity.X
		sumVY += p.Velocity.Y
	}
	mean := Vec2{X: sumVX / float64(n), Y: sumVY / float64(n)}
	speed := math.Hypot(mean.X, mean.Y)

	if speed < stationarySpeed {
		return VelocityDescriptor{Mean: mean, Coherence: 1, Movement: MovementStationary}
	}

	var coherenceSum, toCentroidSum float64
	var counted int
	for _, p := range points {
		vspeed := math.Hypot(p.Velocity.X, p.Velocity.Y)
		if vspeed < 1e-9 {
			continue
		}
		counted++
		coherenceSum += cosineSim(p.Velocity, mean)

		toward := Vec2{X: centroid.X - p.Position.X, Y: centroid.Y - p.Position.Y}
		if math.Hypot(toward.X, toward.Y) > 1e-9 {
			toCentroidSum += cosineSim(p.Velocity, toward)
		}
	}
	if counted == 0 {
		return VelocityDescriptor{Mean: mean, Coherence: 0, Movement: MovementChaotic}
	}
	coherence := coherenceSum / float64(counted)
	toCentroid := toCentroidSum / float64(counted)

	var movement MovementClass
	switch {
	case toCentroid > 0.5:
		movement = MovementConverging
	case toCentroid < -0.5:
		movement = MovementDiverging
	case coherence > 0.8:
		movement = MovementCoordinatedParallel
	case coherence > 0.4:
		movement = MovementLooselyCoordinated
	default:
		movement = MovementChaotic
	}

	return VelocityDescriptor{Mean: mean, Coherence: coherence, Movement: movement}
}

func cosineSim(a, b Vec2) float64 {
	na := math.Hypot(a.X, a.Y)
	nb := math.Hypot(b.X, b.Y)
	if na < 1e-9 || nb < 1e-9 {
		return 0
	}
	return (a.X*b.X + a.Y*b.Y) / (na * nb)
}

func buildClusterDetection(category string, members []ObjectPoint, params config.CategoryParams) ClusterDetection {
	centroid := centroidOf(members)
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)

	return ClusterDetection{
		Category:  category,
		MemberIDs: ids,
		Centroid:  centroid,
		Shape:     classifyShape(members, centroid),
		Velocity:  classifyVelocity(members, centroid),
		Params:    params,
	}
}
