package crossnet

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

var (
	// DefaultHighwayTags is a set of `highway` values turned into links
	DefaultHighwayTags = []string{"motorway", "motorway_link", "trunk", "trunk_link", "primary", "primary_link", "secondary", "secondary_link", "tertiary", "tertiary_link", "residential", "unclassified", "road"}

	defaultLanesByHighway = map[string]int{
		"motorway":       4,
		"motorway_link":  1,
		"trunk":          3,
		"trunk_link":     1,
		"primary":        3,
		"primary_link":   1,
		"secondary":      2,
		"secondary_link": 1,
		"tertiary":       2,
		"tertiary_link":  1,
	}
	onewayByHighway = map[string]bool{
		"motorway":      true,
		"motorway_link": true,
	}
	junctionTypes = map[string]struct{}{
		"roundabout": {},
		"circular":   {},
	}
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

type osmWay struct {
	ID            osm.WayID
	Nodes         []osm.NodeID
	highway       string
	oneway        bool
	isReversed    bool
	lanes         int
	lanesForward  int
	lanesBackward int
}

// osmLink is directed link prepared from an OSM way before connectors are resolved
type osmLink struct {
	raw          RawLink
	wayID        osm.WayID
	sourceNodeID osm.NodeID
	targetNodeID osm.NodeID
}

func newScanner(ctx context.Context, filename string, file io.Reader) (OSMScanner, error) {
	// Guess file extension and prepare correct scanner
	ext := filepath.Ext(filename)
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(ctx, file), nil
	case ".pbf":
		return osmpbf.New(ctx, file, 4), nil
	default:
		return nil, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, filename)
	}
}

// parseLanes returns first integer of lanes-like tag value or -1
func parseLanes(text string) int {
	if text == "" {
		return -1
	}
	value, err := strconv.Atoi(strings.TrimSpace(strings.Split(text, ";")[0]))
	if err != nil || value <= 0 {
		return -1
	}
	return value
}

// ReadOSMNetwork turns OSM extract (XML or PBF) into network description.
//
// Every highway way becomes one link per travel direction with geometry in EPSG:3857 (meters).
// Links sharing a node are joined by connectors. When a link diverges, outgoing links are sorted from left to right
// by turning angle and the leftmost one is reached from the highest-numbered lane
func ReadOSMNetwork(ctx context.Context, filename string, tags []string, verbose bool) (*RawNetwork, error) {
	if len(tags) == 0 {
		tags = DefaultHighwayTags
	}
	allowed := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		allowed[tag] = struct{}{}
	}

	if verbose {
		fmt.Printf("Opening file: '%s'...\n", filename)
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open OSM file")
	}
	defer file.Close()

	/* Process ways */
	if verbose {
		fmt.Printf("\tProcessing ways... ")
	}
	st := time.Now()
	ways := []*osmWay{}
	nodesSeen := make(map[osm.NodeID]struct{})
	{
		scannerWays, err := newScanner(ctx, filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerWays.Close()

		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			highway := way.Tags.Find("highway")
			if _, ok := allowed[highway]; !ok {
				continue
			}
			if len(way.Nodes) < 2 {
				if verbose {
					fmt.Printf("\n\t[WARNING]: Way with %d nodes met. Way ID: '%d'\n", len(way.Nodes), way.ID)
				}
				continue
			}
			prepared := &osmWay{
				ID:            way.ID,
				Nodes:         make([]osm.NodeID, 0, len(way.Nodes)),
				highway:       highway,
				oneway:        onewayByHighway[highway],
				lanes:         parseLanes(way.Tags.Find("lanes")),
				lanesForward:  parseLanes(way.Tags.Find("lanes:forward")),
				lanesBackward: parseLanes(way.Tags.Find("lanes:backward")),
			}
			switch way.Tags.Find("oneway") {
			case "yes", "1", "true":
				prepared.oneway = true
			case "no", "0", "false":
				prepared.oneway = false
			case "-1", "reverse":
				prepared.oneway = true
				prepared.isReversed = true
			case "":
				if _, ok := junctionTypes[way.Tags.Find("junction")]; ok {
					prepared.oneway = true
				}
			}
			for _, node := range way.Nodes {
				nodesSeen[node.ID] = struct{}{}
				prepared.Nodes = append(prepared.Nodes, node.ID)
			}
			ways = append(ways, prepared)
		}
		if err := scannerWays.Err(); err != nil {
			return nil, errors.Wrap(err, "Can't scan ways")
		}
	}
	if verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}

	// Seek file to start
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}

	/* Process nodes */
	if verbose {
		fmt.Printf("\tProcessing nodes... ")
	}
	st = time.Now()
	nodes := make(map[osm.NodeID]orb.Point, len(nodesSeen))
	{
		scannerNodes, err := newScanner(ctx, filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerNodes.Close()

		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			if _, ok := nodesSeen[node.ID]; ok {
				nodes[node.ID] = pointToEuclidean(orb.Point{node.Lon, node.Lat})
			}
		}
		if err := scannerNodes.Err(); err != nil {
			return nil, errors.Wrap(err, "Can't scan nodes")
		}
	}
	if verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}

	network, err := networkFromOSM(ways, nodes)
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Printf("Number of ways: %d\n", len(ways))
		fmt.Printf("Number of links: %d\n", len(network.Links))
		fmt.Printf("Number of connectors: %d\n", len(network.Connectors))
	}
	return network, nil
}

// lanesFor returns number of lanes for given travel direction of the way
func (way *osmWay) lanesFor(forward bool) int {
	lanes := -1
	switch {
	case way.oneway:
		lanes = way.lanes
	case forward && way.lanesForward > 0:
		lanes = way.lanesForward
	case !forward && way.lanesBackward > 0:
		lanes = way.lanesBackward
	case way.lanes > 0:
		lanes = int(math.Ceil(float64(way.lanes) / 2.0))
	}
	if lanes <= 0 {
		if defaultLanes, ok := defaultLanesByHighway[way.highway]; ok {
			return defaultLanes
		}
		return 1
	}
	return lanes
}

func networkFromOSM(ways []*osmWay, nodes map[osm.NodeID]orb.Point) (*RawNetwork, error) {
	links := make([]*osmLink, 0, 2*len(ways))
	nextID := NetworkLinkID(1)
	addLink := func(way *osmWay, nodeIDs []osm.NodeID, forward bool) error {
		geom := make(orb.LineString, 0, len(nodeIDs))
		for _, nodeID := range nodeIDs {
			pt, ok := nodes[nodeID]
			if !ok {
				return errors.Wrapf(ErrNotFound, "No such node %d in way %d", nodeID, way.ID)
			}
			geom = append(geom, pt)
		}
		links = append(links, &osmLink{
			raw:          RawLink{ID: nextID, Geom: geom, Lanes: way.lanesFor(forward)},
			wayID:        way.ID,
			sourceNodeID: nodeIDs[0],
			targetNodeID: nodeIDs[len(nodeIDs)-1],
		})
		nextID++
		return nil
	}
	for _, way := range ways {
		reversed := make([]osm.NodeID, len(way.Nodes))
		for i, nodeID := range way.Nodes {
			reversed[len(way.Nodes)-1-i] = nodeID
		}
		if !way.isReversed {
			if err := addLink(way, way.Nodes, true); err != nil {
				return nil, err
			}
		}
		if !way.oneway || way.isReversed {
			if err := addLink(way, reversed, false); err != nil {
				return nil, err
			}
		}
	}

	outgoing := make(map[osm.NodeID][]*osmLink)
	for _, link := range links {
		outgoing[link.sourceNodeID] = append(outgoing[link.sourceNodeID], link)
	}

	network := &RawNetwork{
		Links:      make([]RawLink, len(links)),
		Connectors: make([]RawConnector, 0),
	}
	connectorID := nextID
	for i, incoming := range links {
		network.Links[i] = incoming.raw
		candidates := make([]*osmLink, 0)
		for _, out := range outgoing[incoming.targetNodeID] {
			// Ignore reverse direction of the same way
			if out.wayID == incoming.wayID && out.targetNodeID == incoming.sourceNodeID {
				continue
			}
			candidates = append(candidates, out)
		}
		if len(candidates) == 0 {
			continue
		}
		if len(incoming.raw.Geom) < 2 {
			continue
		}
		// Sort outgoing links by angle in descending order (left to right)
		angles := make(map[NetworkLinkID]float64, len(candidates))
		for _, out := range candidates {
			angles[out.raw.ID] = angleBetweenLines(incoming.raw.Geom, out.raw.Geom)
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			return angles[candidates[a].raw.ID] > angles[candidates[b].raw.ID]
		})
		for rank, out := range candidates {
			fromLane := incoming.raw.Lanes - rank
			if fromLane < 1 {
				fromLane = 1
			}
			toLane := 1
			if rank == 0 {
				toLane = out.raw.Lanes
			}
			network.Connectors = append(network.Connectors, RawConnector{
				ID:       connectorID,
				FromLink: incoming.raw.ID,
				FromLane: fromLane,
				ToLink:   out.raw.ID,
				ToLane:   toLane,
			})
			connectorID++
		}
	}
	return network, nil
}
