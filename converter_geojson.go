package crossnet

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

func lineTo2D(pts orb.LineString) [][]float64 {
	pts2d := make([][]float64, len(pts))
	for i := range pts {
		pts2d[i] = []float64{pts[i].X(), pts[i].Y()}
	}
	return pts2d
}

// PrepareGeoJSONLinestring returns GeoJSON representation of LineString
func PrepareGeoJSONLinestring(pts orb.LineString) string {
	b, err := geojson.NewLineStringGeometry(lineTo2D(pts)).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// PrepareGeoJSONPoint returns GeoJSON representation of Point
func PrepareGeoJSONPoint(pt orb.Point) string {
	b, err := geojson.NewPointGeometry([]float64{pt.X(), pt.Y()}).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// GeoJSON returns FeatureCollection with single LineString feature for the route
func (route *Route) GeoJSON() ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	feature := geojson.NewLineStringFeature(lineTo2D(route.Points))
	links := make([]int, len(route.Links))
	for i, id := range route.Links {
		links[i] = int(id)
	}
	crossSections := make([]int, len(route.CrossSections))
	for i, id := range route.CrossSections {
		crossSections[i] = int(id)
	}
	feature.SetProperty("links", links)
	feature.SetProperty("cross_sections", crossSections)
	fc.AddFeature(feature)
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal route")
	}
	return b, nil
}

// CrossSectionsGeoJSON returns FeatureCollection of Point features, one per cross section
func CrossSectionsGeoJSON(crossSections []*CrossSection) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, cs := range crossSections {
		feature := geojson.NewPointFeature([]float64{cs.Location.X(), cs.Location.Y()})
		feature.ID = int(cs.ID)
		feature.SetProperty("name", cs.Name())
		feature.SetProperty("type", cs.Type.String())
		feature.SetProperty("lanes", cs.Lanes)
		feature.SetProperty("hard_shoulder", cs.HardShoulder())
		if linkID, offset, ok := cs.Position(); ok {
			feature.SetProperty("link_id", int(linkID))
			feature.SetProperty("offset", offset)
		}
		fc.AddFeature(feature)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal cross sections")
	}
	return b, nil
}
