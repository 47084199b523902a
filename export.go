package crossnet

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ExportToCSV writes '<fname>_cross_sections.csv' and, for topology-aware simulators, '<fname>_links.csv' and '<fname>_route.csv'
func (svc *PlacementService) ExportToCSV(fname string) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameCrossSections := fnameParts[0] + "_cross_sections.csv"
	fnameLinks := fnameParts[0] + "_links.csv"
	fnameRoute := fnameParts[0] + "_route.csv"

	err := ExportCrossSectionsToCSV(svc.CrossSections(), fnameCrossSections)
	if err != nil {
		return errors.Wrap(err, "Can't export cross sections")
	}
	if svc.graph == nil {
		return nil
	}
	err = svc.graph.ExportLinksToCSV(fnameLinks)
	if err != nil {
		return errors.Wrap(err, "Can't export links")
	}
	route, err := svc.GetRoute()
	if err != nil {
		return errors.Wrap(err, "Can't extract route")
	}
	err = route.ExportToCSV(fnameRoute)
	if err != nil {
		return errors.Wrap(err, "Can't export route")
	}
	return nil
}

// ExportCrossSectionsToCSV writes cross sections with WKT geometry
func ExportCrossSectionsToCSV(crossSections []*CrossSection, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "name", "type", "lanes", "hard_shoulder", "link_id", "offset", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, cs := range crossSections {
		linkID, offset := "", ""
		if id, off, ok := cs.Position(); ok {
			linkID = fmt.Sprintf("%d", id)
			offset = fmt.Sprintf("%f", off)
		}
		err = writer.Write([]string{
			fmt.Sprintf("%d", cs.ID),
			cs.Name(),
			cs.Type.String(),
			fmt.Sprintf("%d", cs.Lanes),
			fmt.Sprintf("%t", cs.HardShoulder()),
			linkID,
			offset,
			wkt.MarshalString(cs.Location),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write cross section")
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportLinksToCSV writes links with their successors and attached cross sections
func (graph *LinkGraph) ExportLinksToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "is_connector", "lanes", "length_meters", "successors", "cross_sections", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, link := range graph.Links() {
		successors := link.Successors()
		successorsStr := make([]string, len(successors))
		for i, succ := range successors {
			successorsStr[i] = fmt.Sprintf("%d", succ.ID)
		}
		crossSections := link.CrossSections()
		crossSectionsStr := make([]string, len(crossSections))
		for i, id := range crossSections {
			crossSectionsStr[i] = fmt.Sprintf("%d", id)
		}
		err = writer.Write([]string{
			fmt.Sprintf("%d", link.ID),
			fmt.Sprintf("%t", link.isConnector),
			fmt.Sprintf("%d", link.GetLanes()),
			fmt.Sprintf("%f", link.lengthMeters),
			strings.Join(successorsStr, ","),
			strings.Join(crossSectionsStr, ","),
			wkt.MarshalString(link.geom),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write link")
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportToCSV writes single row describing the route
func (route *Route) ExportToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"links", "cross_sections", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	links := make([]string, len(route.Links))
	for i, id := range route.Links {
		links[i] = fmt.Sprintf("%d", id)
	}
	crossSections := make([]string, len(route.CrossSections))
	for i, id := range route.CrossSections {
		crossSections[i] = fmt.Sprintf("%d", id)
	}
	err = writer.Write([]string{
		strings.Join(links, ","),
		strings.Join(crossSections, ","),
		route.WKT(),
	})
	if err != nil {
		return errors.Wrap(err, "Can't write route")
	}
	writer.Flush()
	return writer.Error()
}
