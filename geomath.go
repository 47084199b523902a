package crossnet

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// DistanceFunc returns distance in meters between two locations
type DistanceFunc func(p, q orb.Point) float64

var (
	// PlanarDistance assumes metric Euclidean coordinates (X, Y in meters)
	PlanarDistance DistanceFunc = planar.Distance
	// HaversineDistance assumes WGS84 coordinates (X == Lon, Y == Lat)
	HaversineDistance DistanceFunc = geo.DistanceHaversine
)

// findDistance returns distance between two points (assuming they are Euclidean)
func findDistance(p, q orb.Point) float64 {
	xdistance := p.X() - q.X()
	ydistance := p.Y() - q.Y()
	return math.Sqrt(xdistance*xdistance + ydistance*ydistance)
}

// getLength returns length for given line (assuming points of the line are Euclidean)
func getLength(line orb.LineString) float64 {
	totalLength := 0.0
	if len(line) < 2 {
		return totalLength
	}
	for i := 1; i < len(line); i++ {
		totalLength += findDistance(line[i-1], line[i])
	}
	return totalLength
}

// segmentContains checks if point lies on segment [p, q] (collinear and between endpoints within tolerance).
// Returns distance from p to the point along the segment
func segmentContains(p, q, pt orb.Point, tolerance float64) (bool, float64) {
	segX, segY := q.X()-p.X(), q.Y()-p.Y()
	ptX, ptY := pt.X()-p.X(), pt.Y()-p.Y()
	segLength := math.Sqrt(segX*segX + segY*segY)
	if segLength == 0 {
		return math.Sqrt(ptX*ptX+ptY*ptY) <= tolerance, 0
	}
	// Perpendicular distance from the point to segment line
	cross := segX*ptY - segY*ptX
	if math.Abs(cross)/segLength > tolerance {
		return false, -1
	}
	// Scalar projection onto segment direction
	along := (segX*ptX + segY*ptY) / segLength
	if along < -tolerance || along > segLength+tolerance {
		return false, -1
	}
	return true, math.Max(0, math.Min(segLength, along))
}

// pointOnSegment returns a point on given segment using distance
func pointOnSegment(p, q orb.Point, distance float64) orb.Point {
	segLength := findDistance(p, q)
	if segLength == 0 {
		return p
	}
	fraction := distance / segLength
	return orb.Point{
		(1-fraction)*p.X() + (fraction * q.X()),
		(1-fraction)*p.Y() + (fraction * q.Y()),
	}
}

// pointAtDistanceAlongLine returns point placed at given distance from the start of the line.
// Distances beyond line's length are clamped to the last point
func pointAtDistanceAlongLine(line orb.LineString, distance float64) orb.Point {
	if len(line) == 0 {
		return orb.Point{}
	}
	if distance <= 0 || len(line) == 1 {
		return line[0]
	}
	cl := 0.0
	for i := 1; i < len(line); i++ {
		tmpDist := findDistance(line[i-1], line[i])
		if distance <= cl+tmpDist {
			return pointOnSegment(line[i-1], line[i], distance-cl)
		}
		cl += tmpDist
	}
	return line[len(line)-1]
}

// copyLine returns copy of given line
func copyLine(pts orb.LineString) orb.LineString {
	output := make(orb.LineString, len(pts))
	copy(output, pts)
	return output
}
