package crossnet

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// PrepareWKTLinestring returns WKT representation of LineString
func PrepareWKTLinestring(pts orb.LineString) string {
	return wkt.MarshalString(pts)
}

// PrepareWKTPoint returns WKT representation of Point
func PrepareWKTPoint(pt orb.Point) string {
	return wkt.MarshalString(pt)
}

// WKT returns WKT representation of the route's polyline
func (route *Route) WKT() string {
	return PrepareWKTLinestring(route.Points)
}
