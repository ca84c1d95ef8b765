package lanenet

import (
	"math"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// segmentEndpoints is a segment with node identifiers assigned to its endpoints
type segmentEndpoints struct {
	index   int
	segment RawSegment
	source  NetworkNodeID
	target  NetworkNodeID
}

// canonicalKey stringifies point with fixed precision
func canonicalKey(pt orb.Point, precision int) string {
	return strconv.FormatFloat(pt.X(), 'f', precision, 64) + " " + strconv.FormatFloat(pt.Y(), 'f', precision, 64)
}

// canonicalPoint returns point rounded to the same precision as its canonical key
func canonicalPoint(pt orb.Point, precision int) orb.Point {
	x, errX := strconv.ParseFloat(strconv.FormatFloat(pt.X(), 'f', precision, 64), 64)
	y, errY := strconv.ParseFloat(strconv.FormatFloat(pt.Y(), 'f', precision, 64), 64)
	if errX != nil || errY != nil {
		return pt
	}
	return orb.Point{x, y}
}

// IdentifyNodes assigns integer identifiers to coincident segment endpoints and builds the initial network.
//
// Identifier of a node is the rank of its canonical coordinate in the sorted list of all distinct endpoints,
// so the mapping does not depend on segments order. Segments sharing both endpoints but lying on different
// vertical levels are split onto cloned nodes. Remaining self-loops are dropped and parallel segments
// are deduplicated keeping the first one.
func IdentifyNodes(segments []RawSegment, cfg *Config, logger *zap.Logger) (*Network, error) {
	logger = loggerOrNop(logger)
	precision := cfg.Geometry.Precision

	records := make([]*segmentEndpoints, 0, len(segments))
	degenerate := 0
	for idx, segment := range segments {
		geom := cleanLine(segment.Geom)
		if len(geom) < 2 {
			degenerate++
			logger.Warn("degenerate segment skipped", zap.Int("segment_id", segment.ID), zap.Int("points", len(segment.Geom)))
			continue
		}
		segment.Geom = geom
		records = append(records, &segmentEndpoints{index: idx, segment: segment})
	}
	if len(records) == 0 {
		return nil, errors.Wrap(ErrEmptyNetwork, "no valid segments to identify nodes")
	}

	keys := make([]string, 0, 2*len(records))
	points := make(map[string]orb.Point, 2*len(records))
	for _, rec := range records {
		for _, pt := range []orb.Point{rec.segment.Geom[0], rec.segment.Geom[len(rec.segment.Geom)-1]} {
			key := canonicalKey(pt, precision)
			if _, ok := points[key]; !ok {
				points[key] = canonicalPoint(pt, precision)
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	// Index of representative key for every key. Without snapping every key represents itself
	representatives := snapRepresentatives(keys, points, cfg.Geometry.SnapTolerance)
	nodeOfRepresentative := make(map[int]NetworkNodeID)
	for _, rep := range representatives {
		if _, ok := nodeOfRepresentative[rep]; !ok {
			nodeOfRepresentative[rep] = NetworkNodeID(len(nodeOfRepresentative))
		}
	}
	nodeID := func(pt orb.Point) NetworkNodeID {
		idx := sort.SearchStrings(keys, canonicalKey(pt, precision))
		return nodeOfRepresentative[representatives[idx]]
	}
	positions := make(map[NetworkNodeID]orb.Point, len(nodeOfRepresentative))
	for rep, id := range nodeOfRepresentative {
		positions[id] = points[keys[rep]]
	}
	nextNodeID := NetworkNodeID(len(nodeOfRepresentative))

	for _, rec := range records {
		rec.source = nodeID(rec.segment.Geom[0])
		rec.target = nodeID(rec.segment.Geom[len(rec.segment.Geom)-1])
	}

	splitted := splitLevels(records, positions, &nextNodeID)
	if splitted > 0 {
		logger.Info("nodes splitted by vertical levels", zap.Int("new_nodes", splitted))
	}

	net := NewNetwork()
	ids := sortedKeys(positions)
	for _, id := range ids {
		net.addNodeWithID(id, positions[id], false)
	}
	type pair struct {
		source NetworkNodeID
		target NetworkNodeID
	}
	seen := make(map[pair]struct{}, len(records))
	linkOfSegment := make(map[int]NetworkLinkID, len(records))
	selfLoops, duplicates := 0, 0
	for _, rec := range records {
		if rec.source == rec.target {
			selfLoops++
			logger.Warn("self-loop segment skipped", zap.Int("segment_id", rec.segment.ID), zap.Int("node_id", int(rec.source)))
			continue
		}
		key := pair{rec.source, rec.target}
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		link := &NetworkLink{
			geom:           rec.segment.Geom.Clone(),
			attributes:     rec.segment.Attributes,
			ID:             NO_LINK,
			sourceNodeID:   rec.source,
			targetNodeID:   rec.target,
			oppositeLinkID: NO_LINK,
			originID:       rec.segment.ID,
		}
		net.snapEndpoints(link)
		link.lengthMeters = Distance(link.geom, cfg.Geometry.metric())
		link.lanesNum = lanesFromAttributes(link.attributes, cfg.Lanes.WidthPerLane)
		linkID, err := net.addLink(link)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't add link for segment %d", rec.segment.ID)
		}
		linkOfSegment[rec.index] = linkID
	}
	// Reversed copies of two-way segments know their twins
	for _, rec := range records {
		if rec.segment.twin == 0 {
			continue
		}
		linkID, ok := linkOfSegment[rec.index]
		if !ok {
			continue
		}
		twinID, ok := linkOfSegment[rec.segment.twin-1]
		if !ok {
			continue
		}
		net.links[linkID].oppositeLinkID = twinID
		net.links[twinID].oppositeLinkID = linkID
	}
	isolated := net.removeIsolatedNodes()
	if duplicates > 0 {
		logger.Info("parallel segments deduplicated", zap.Int("removed", duplicates))
	}
	if degenerate+selfLoops+isolated > 0 {
		logger.Warn("degenerate geometry dropped", zap.Int("segments", degenerate), zap.Int("self_loops", selfLoops), zap.Int("isolated_nodes", isolated))
	}
	if net.LinksNum() == 0 {
		return nil, errors.Wrap(ErrEmptyNetwork, "every segment is degenerate")
	}
	return net, nil
}

// snapRepresentatives merges sorted keys whose points are within tolerance of an earlier key.
// Returned slice holds index of representative key for every key
func snapRepresentatives(keys []string, points map[string]orb.Point, tolerance float64) []int {
	representatives := make([]int, len(keys))
	if tolerance <= 0 {
		for i := range keys {
			representatives[i] = i
		}
		return representatives
	}
	var tr rtree.RTreeG[int]
	for i, key := range keys {
		pt := points[key]
		best, bestDist := -1, math.Inf(1)
		tr.Search(
			[2]float64{pt.X() - tolerance, pt.Y() - tolerance},
			[2]float64{pt.X() + tolerance, pt.Y() + tolerance},
			func(min, max [2]float64, rep int) bool {
				dist := planar.Distance(pt, points[keys[rep]])
				if dist <= tolerance && (dist < bestDist || (dist == bestDist && rep < best)) {
					best, bestDist = rep, dist
				}
				return true
			},
		)
		if best >= 0 {
			representatives[i] = best
			continue
		}
		representatives[i] = i
		tr.Insert([2]float64{pt.X(), pt.Y()}, [2]float64{pt.X(), pt.Y()}, i)
	}
	return representatives
}

// splitLevels separates segments which share both endpoints (or close on themselves) while declaring different vertical levels.
// Returns number of created nodes
func splitLevels(records []*segmentEndpoints, positions map[NetworkNodeID]orb.Point, nextNodeID *NetworkNodeID) int {
	type pair struct {
		source NetworkNodeID
		target NetworkNodeID
	}
	counter := make(map[pair]int)
	for _, rec := range records {
		counter[pair{rec.source, rec.target}]++
	}
	toProcess := make([]pair, 0)
	for key, cnt := range counter {
		if cnt > 1 && key.source != key.target {
			toProcess = append(toProcess, key)
		}
	}
	sort.Slice(toProcess, func(i, j int) bool {
		if toProcess[i].source == toProcess[j].source {
			return toProcess[i].target < toProcess[j].target
		}
		return toProcess[i].source < toProcess[j].source
	})

	created := 0
	newNode := func(like NetworkNodeID) NetworkNodeID {
		id := *nextNodeID
		*nextNodeID++
		positions[id] = positions[like]
		created++
		return id
	}

	for _, key := range toProcess {
		group := make([]*segmentEndpoints, 0)
		predecessors := make([]*segmentEndpoints, 0)
		successors := make([]*segmentEndpoints, 0)
		for _, rec := range records {
			switch {
			case rec.source == key.source && rec.target == key.target:
				group = append(group, rec)
			case rec.target == key.source:
				predecessors = append(predecessors, rec)
			case rec.source == key.target:
				successors = append(successors, rec)
			}
		}

		// Starting side: every level group beyond the lowest one moves to a new node if some predecessor arrives on that level
		byFromLevel := groupByLevel(group, func(rec *segmentEndpoints) int { return rec.segment.FromLevel })
		for _, level := range sortedKeys(byFromLevel)[1:] {
			arriving := filterByLevel(predecessors, level, func(rec *segmentEndpoints) int { return rec.segment.ToLevel })
			if len(arriving) == 0 {
				continue
			}
			id := newNode(key.source)
			for _, rec := range byFromLevel[level] {
				rec.source = id
			}
			for _, rec := range arriving {
				rec.target = id
			}
		}

		// Ending side, the same with successors
		byToLevel := groupByLevel(group, func(rec *segmentEndpoints) int { return rec.segment.ToLevel })
		for _, level := range sortedKeys(byToLevel)[1:] {
			departing := filterByLevel(successors, level, func(rec *segmentEndpoints) int { return rec.segment.FromLevel })
			if len(departing) == 0 {
				continue
			}
			id := newNode(key.target)
			for _, rec := range byToLevel[level] {
				rec.target = id
			}
			for _, rec := range departing {
				rec.source = id
			}
		}
	}

	// Self-loops connecting different levels: the end of the loop is a distinct node on its own level.
	// Loops are visited in canonical order so new identifiers do not depend on input order
	loops := make([]*segmentEndpoints, 0)
	for _, rec := range records {
		if rec.source == rec.target && rec.segment.FromLevel != rec.segment.ToLevel {
			loops = append(loops, rec)
		}
	}
	sort.SliceStable(loops, func(i, j int) bool {
		a, b := loops[i], loops[j]
		if a.source != b.source {
			return a.source < b.source
		}
		if a.segment.FromLevel != b.segment.FromLevel {
			return a.segment.FromLevel < b.segment.FromLevel
		}
		if a.segment.ToLevel != b.segment.ToLevel {
			return a.segment.ToLevel < b.segment.ToLevel
		}
		return wkt.MarshalString(a.segment.Geom) < wkt.MarshalString(b.segment.Geom)
	})
	for _, rec := range loops {
		if rec.source != rec.target {
			continue
		}
		node := rec.source
		id := newNode(node)
		for _, other := range records {
			if other != rec && other.source == node && other.segment.FromLevel == rec.segment.ToLevel {
				other.source = id
			}
		}
		rec.target = id
	}
	return created
}

func groupByLevel(records []*segmentEndpoints, level func(*segmentEndpoints) int) map[int][]*segmentEndpoints {
	groups := make(map[int][]*segmentEndpoints)
	for _, rec := range records {
		groups[level(rec)] = append(groups[level(rec)], rec)
	}
	return groups
}

func filterByLevel(records []*segmentEndpoints, target int, level func(*segmentEndpoints) int) []*segmentEndpoints {
	result := make([]*segmentEndpoints, 0)
	for _, rec := range records {
		if level(rec) == target {
			result = append(result, rec)
		}
	}
	return result
}
