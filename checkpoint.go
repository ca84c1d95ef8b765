package lanenet

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

const bzip2Extension = ".bz2"

// readCloser closes decompressor together with underlying file
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var firstErr error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if err := rc.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openFile opens file for reading. Files with '.bz2' extension are decompressed on the fly
func openFile(fname string) (io.ReadCloser, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(fname), bzip2Extension) {
		return file, nil
	}
	bz, err := bzip2.NewReader(file, nil)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "Can't prepare bzip2 reader")
	}
	return &readCloser{Reader: bz, closers: []io.Closer{file, bz}}, nil
}

// writeFile creates file and passes writer to given function. Files with '.bz2' extension are compressed
func writeFile(fname string, write func(w io.Writer) error) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()
	var target io.Writer = file
	var bz *bzip2.Writer
	if strings.HasSuffix(strings.ToLower(fname), bzip2Extension) {
		bz, err = bzip2.NewWriter(file, &bzip2.WriterConfig{})
		if err != nil {
			return errors.Wrap(err, "Can't prepare bzip2 writer")
		}
		target = bz
	}
	buffered := bufio.NewWriter(target)
	if err = write(buffered); err != nil {
		return err
	}
	if err = buffered.Flush(); err != nil {
		return errors.Wrap(err, "Can't flush data")
	}
	if bz != nil {
		if err = bz.Close(); err != nil {
			return errors.Wrap(err, "Can't finish bzip2 stream")
		}
	}
	return nil
}

func readFeatureCollection(fname string) (*geojson.FeatureCollection, error) {
	reader, err := openFile(fname)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read file")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode GeoJSON")
	}
	return fc, nil
}

func writeFeatureCollection(fname string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't encode GeoJSON")
	}
	return writeFile(fname, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

const (
	featureKindNode    = "node"
	featureKindLink    = "link"
	featureKindNetwork = "network"
)

// WriteCheckpoint stores network snapshot as GeoJSON: nodes are Point features, links are LineString features.
// Identifier counters go to a feature without geometry, so retired identifiers stay retired after restore
func WriteCheckpoint(fname string, net *Network) error {
	fc := geojson.NewFeatureCollection()
	counters := geojson.NewFeature(nil)
	counters.SetProperty("kind", featureKindNetwork)
	counters.SetProperty("next_node_id", int(net.nextNodeID))
	counters.SetProperty("next_link_id", int(net.nextLinkID))
	fc.AddFeature(counters)
	for _, id := range net.NodeIDs() {
		node := net.nodes[id]
		feature := geojson.NewFeature(pointGeometry(node.geom))
		feature.SetProperty("kind", featureKindNode)
		feature.SetProperty("node_id", int(node.ID))
		feature.SetProperty("virtual", node.virtual)
		fc.AddFeature(feature)
	}
	for _, id := range net.LinkIDs() {
		link := net.links[id]
		feature := geojson.NewFeature(lineStringGeometry(link.geom))
		feature.SetProperty("kind", featureKindLink)
		feature.SetProperty("link_id", int(link.ID))
		feature.SetProperty("source", int(link.sourceNodeID))
		feature.SetProperty("target", int(link.targetNodeID))
		feature.SetProperty("opposite", int(link.oppositeLinkID))
		feature.SetProperty("origin_id", link.originID)
		feature.SetProperty("virtual", link.virtual)
		feature.SetProperty("was_reversed", link.wasReversed)
		feature.SetProperty("lanes", link.lanesNum)
		feature.SetProperty("length", link.lengthMeters)
		feature.SetProperty("direction", link.attributes.Direction.String())
		feature.SetProperty("lanes_attr", link.attributes.LanesNum)
		feature.SetProperty("width", link.attributes.StreetWidth)
		feature.SetProperty("speed", link.attributes.SpeedLimit)
		feature.SetProperty("from_level", link.attributes.FromLevel)
		feature.SetProperty("to_level", link.attributes.ToLevel)
		feature.SetProperty("priority", link.attributes.PriorityClass)
		feature.SetProperty("bike_lane", link.attributes.HasBikeLane)
		feature.SetProperty("road_type", link.attributes.RoadType)
		feature.SetProperty("name", link.attributes.Name)
		fc.AddFeature(feature)
	}
	if err := writeFeatureCollection(fname, fc); err != nil {
		return errors.Wrapf(err, "Can't write checkpoint '%s'", fname)
	}
	return nil
}

// ReadCheckpoint restores network snapshot written by WriteCheckpoint
func ReadCheckpoint(fname string) (*Network, error) {
	fc, err := readFeatureCollection(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read checkpoint '%s'", fname)
	}
	net := NewNetwork()
	links := make([]*NetworkLink, 0, len(fc.Features))
	nextNodeID, nextLinkID := NetworkNodeID(0), NetworkLinkID(0)
	for idx, feature := range fc.Features {
		kind, _ := propertyString(feature.Properties, "kind")
		switch kind {
		case featureKindNetwork:
			if value, ok := propertyInt(feature.Properties, "next_node_id"); ok {
				nextNodeID = NetworkNodeID(value)
			}
			if value, ok := propertyInt(feature.Properties, "next_link_id"); ok {
				nextLinkID = NetworkLinkID(value)
			}
		case featureKindNode:
			pt, err := geometryPoint(feature.Geometry)
			if err != nil {
				return nil, errors.Wrapf(err, "Bad node feature %d", idx)
			}
			id, ok := propertyInt(feature.Properties, "node_id")
			if !ok {
				return nil, errors.Wrapf(ErrMissingAttribute, "feature %d: 'node_id'", idx)
			}
			virtual, _ := propertyBool(feature.Properties, "virtual")
			net.addNodeWithID(NetworkNodeID(id), pt, virtual)
		case featureKindLink:
			link, err := linkFromFeature(feature)
			if err != nil {
				return nil, errors.Wrapf(err, "Bad link feature %d", idx)
			}
			links = append(links, link)
		default:
			return nil, errors.Errorf("feature %d has unknown kind '%s'", idx, kind)
		}
	}
	for _, link := range links {
		if _, err := net.addLink(link); err != nil {
			return nil, errors.Wrapf(err, "Can't restore link %d", link.ID)
		}
	}
	if nextNodeID > net.nextNodeID {
		net.nextNodeID = nextNodeID
	}
	if nextLinkID > net.nextLinkID {
		net.nextLinkID = nextLinkID
	}
	return net, nil
}

func linkFromFeature(feature *geojson.Feature) (*NetworkLink, error) {
	geom, err := geometryLineString(feature.Geometry)
	if err != nil {
		return nil, err
	}
	props := feature.Properties
	required := func(key string) (int, error) {
		value, ok := propertyInt(props, key)
		if !ok {
			return 0, errors.Wrapf(ErrMissingAttribute, "'%s'", key)
		}
		return value, nil
	}
	id, err := required("link_id")
	if err != nil {
		return nil, err
	}
	source, err := required("source")
	if err != nil {
		return nil, err
	}
	target, err := required("target")
	if err != nil {
		return nil, err
	}
	opposite, ok := propertyInt(props, "opposite")
	if !ok {
		opposite = int(NO_LINK)
	}
	link := &NetworkLink{
		geom:           geom,
		ID:             NetworkLinkID(id),
		sourceNodeID:   NetworkNodeID(source),
		targetNodeID:   NetworkNodeID(target),
		oppositeLinkID: NetworkLinkID(opposite),
	}
	link.originID, _ = propertyInt(props, "origin_id")
	link.virtual, _ = propertyBool(props, "virtual")
	link.wasReversed, _ = propertyBool(props, "was_reversed")
	link.lanesNum, _ = propertyInt(props, "lanes")
	link.lengthMeters, _ = propertyFloat(props, "length")
	direction, _ := propertyString(props, "direction")
	link.attributes.Direction = directionCodeFromString(direction)
	link.attributes.LanesNum, _ = propertyInt(props, "lanes_attr")
	link.attributes.StreetWidth, _ = propertyFloat(props, "width")
	link.attributes.SpeedLimit, _ = propertyFloat(props, "speed")
	link.attributes.FromLevel, _ = propertyInt(props, "from_level")
	link.attributes.ToLevel, _ = propertyInt(props, "to_level")
	link.attributes.PriorityClass, _ = propertyString(props, "priority")
	link.attributes.HasBikeLane, _ = propertyBool(props, "bike_lane")
	link.attributes.RoadType, _ = propertyString(props, "road_type")
	link.attributes.Name, _ = propertyString(props, "name")
	return link, nil
}

// WriteRoadsGeoJSON stores road table so lanes could be generated in a separate run
func WriteRoadsGeoJSON(fname string, roads *RoadTable) error {
	fc := geojson.NewFeatureCollection()
	for _, road := range roads.Roads {
		feature := geojson.NewFeature(lineStringGeometry(road.Geom))
		feature.SetProperty("LinkID", road.LinkID)
		feature.SetProperty("SourceLink", int(road.SourceLink))
		feature.SetProperty("LaneNum", road.LanesNum)
		feature.SetProperty("RoadType", road.RoadType)
		feature.SetProperty("TLinkID", road.OppositeID)
		feature.SetProperty("FnJunction", int(road.FromNode))
		feature.SetProperty("TnJunction", int(road.ToNode))
		feature.SetProperty("Left", road.Left)
		feature.SetProperty("Through", road.Through)
		feature.SetProperty("Right", road.Right)
		feature.SetProperty("Lanes", road.Lanes)
		feature.SetProperty("Length", road.Length)
		fc.AddFeature(feature)
	}
	if err := writeFeatureCollection(fname, fc); err != nil {
		return errors.Wrapf(err, "Can't write roads '%s'", fname)
	}
	return nil
}

// ReadRoadsGeoJSON restores road table written by WriteRoadsGeoJSON
func ReadRoadsGeoJSON(fname string) (*RoadTable, error) {
	fc, err := readFeatureCollection(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read roads '%s'", fname)
	}
	table := newRoadTable(len(fc.Features))
	for idx, feature := range fc.Features {
		geom, err := geometryLineString(feature.Geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad road feature %d", idx)
		}
		props := feature.Properties
		linkID, ok := propertyInt(props, "LinkID")
		if !ok {
			return nil, errors.Wrapf(ErrMissingAttribute, "road feature %d: 'LinkID'", idx)
		}
		lanesNum, ok := propertyInt(props, "LaneNum")
		if !ok || lanesNum < 1 {
			return nil, errors.Wrapf(ErrMissingAttribute, "road feature %d: 'LaneNum'", idx)
		}
		road := &Road{
			LinkID:   linkID,
			LanesNum: lanesNum,
			Lanes:    laneIDs(linkID, lanesNum),
			Geom:     orb.LineString(geom),
		}
		sourceLink, _ := propertyInt(props, "SourceLink")
		road.SourceLink = NetworkLinkID(sourceLink)
		road.RoadType, _ = propertyString(props, "RoadType")
		road.OppositeID, _ = propertyInt(props, "TLinkID")
		fromNode, _ := propertyInt(props, "FnJunction")
		toNode, _ := propertyInt(props, "TnJunction")
		road.FromNode, road.ToNode = NetworkNodeID(fromNode), NetworkNodeID(toNode)
		road.Left, _ = propertyInt(props, "Left")
		road.Through, _ = propertyInt(props, "Through")
		road.Right, _ = propertyInt(props, "Right")
		road.Length, _ = propertyFloat(props, "Length")
		table.add(road)
	}
	return table, nil
}
