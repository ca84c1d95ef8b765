package lanenet

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/LdDl/ch"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// buildContractionGraph creates routing graph over network links weighted by length in meters.
// Parallel links keep the shortest one, self-loops are ignored
func buildContractionGraph(net *Network) (*ch.Graph, error) {
	type pair struct{ source, target NetworkNodeID }
	weights := make(map[pair]float64, net.LinksNum())
	order := make([]pair, 0, net.LinksNum())
	for _, id := range net.LinkIDs() {
		link := net.links[id]
		if link.sourceNodeID == link.targetNodeID {
			continue
		}
		key := pair{link.sourceNodeID, link.targetNodeID}
		if weight, ok := weights[key]; ok {
			if link.lengthMeters < weight {
				weights[key] = link.lengthMeters
			}
			continue
		}
		weights[key] = link.lengthMeters
		order = append(order, key)
	}
	graph := ch.Graph{}
	for _, id := range net.NodeIDs() {
		err := graph.CreateVertex(int64(id))
		if err != nil {
			return nil, errors.Wrapf(err, "Can't create vertex %d", id)
		}
	}
	for _, key := range order {
		err := graph.AddEdge(int64(key.source), int64(key.target), weights[key])
		if err != nil {
			return nil, errors.Wrapf(err, "Can't add edge %d -> %d", key.source, key.target)
		}
	}
	return &graph, nil
}

// ExportContraction prepares contraction hierarchies over the network and writes
// '<prefix>_vertices.csv' and '<prefix>_shortcuts.csv'
func ExportContraction(net *Network, prefix string, logger *zap.Logger) error {
	logger = loggerOrNop(logger)
	if net.NodesNum() == 0 {
		return ErrEmptyNetwork
	}
	graph, err := buildContractionGraph(net)
	if err != nil {
		return errors.Wrap(err, "Can't build routing graph")
	}
	st := time.Now()
	graph.PrepareContractionHierarchies()
	logger.Info("contraction hierarchies prepared", zap.Duration("took", time.Since(st)))

	err = writeFile(prefix+"_vertices.csv", func(w io.Writer) error {
		return writeContractionVertices(w, graph, func(label int64) (orb.Geometry, bool) {
			node, ok := net.Node(NetworkNodeID(label))
			if !ok {
				return nil, false
			}
			return node.Geom(), true
		})
	})
	if err != nil {
		return errors.Wrap(err, "Can't export vertices")
	}
	err = graph.ExportShortcutsToFile(prefix + "_shortcuts.csv")
	if err != nil {
		return errors.Wrap(err, "Can't export shortcuts")
	}

	// Sanity query between nodes with the lowest and the highest identifiers
	ids := net.NodeIDs()
	source, target := ids[0], ids[len(ids)-1]
	cost, path := graph.ShortestPath(int64(source), int64(target))
	logger.Debug("routing sanity check", zap.Int("source", int(source)), zap.Int("target", int(target)), zap.Float64("cost", cost), zap.Int("path_vertices", len(path)))
	return nil
}

func writeContractionVertices(w io.Writer, graph *ch.Graph, geom func(label int64) (orb.Geometry, bool)) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	err := writer.Write([]string{"vertex_id", "order_pos", "importance", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for i := range graph.Vertices {
		label := graph.Vertices[i].Label
		vertexGeom, ok := geom(label)
		if !ok {
			return errors.Errorf("vertex %d has no geometry", label)
		}
		err = writer.Write([]string{
			fmt.Sprintf("%d", label),
			fmt.Sprintf("%d", graph.Vertices[i].OrderPos()),
			fmt.Sprintf("%d", graph.Vertices[i].Importance()),
			wkt.MarshalString(vertexGeom),
		})
		if err != nil {
			return errors.Wrapf(err, "Can't write vertex %d", label)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportMovementContraction prepares contraction hierarchies over turn-expanded graph of roads, so routes respect
// classified movements. Writes '<prefix>_edges.csv', '<prefix>_vertices.csv' and '<prefix>_shortcuts.csv'
func ExportMovementContraction(roads *RoadTable, prefix string, logger *zap.Logger) error {
	logger = loggerOrNop(logger)
	if len(roads.Roads) == 0 {
		return ErrEmptyNetwork
	}
	edges := expandRoads(roads)
	graph := ch.Graph{}
	for _, road := range roads.Roads {
		err := graph.CreateVertex(int64(road.LinkID))
		if err != nil {
			return errors.Wrapf(err, "Can't create vertex %d", road.LinkID)
		}
	}
	for _, edge := range edges {
		err := graph.AddEdge(int64(edge.Source), int64(edge.Target), edge.CostMeters)
		if err != nil {
			return errors.Wrapf(err, "Can't add movement %d -> %d", edge.Source, edge.Target)
		}
	}
	err := writeFile(prefix+"_edges.csv", func(w io.Writer) error {
		return writeExpandedEdges(w, edges)
	})
	if err != nil {
		return errors.Wrap(err, "Can't export edges")
	}
	st := time.Now()
	graph.PrepareContractionHierarchies()
	logger.Info("movement contraction hierarchies prepared", zap.Int("movements", len(edges)), zap.Duration("took", time.Since(st)))
	err = writeFile(prefix+"_vertices.csv", func(w io.Writer) error {
		return writeContractionVertices(w, &graph, func(label int64) (orb.Geometry, bool) {
			road, ok := roads.Road(int(label))
			if !ok {
				return nil, false
			}
			return road.Geom, true
		})
	})
	if err != nil {
		return errors.Wrap(err, "Can't export vertices")
	}
	return errors.Wrap(graph.ExportShortcutsToFile(prefix+"_shortcuts.csv"), "Can't export shortcuts")
}

func writeExpandedEdges(w io.Writer, edges []ExpandedEdge) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	err := writer.Write([]string{"from_vertex_id", "to_vertex_id", "weight", "movement", "edge_id"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, edge := range edges {
		err = writer.Write([]string{
			fmt.Sprintf("%d", edge.Source),
			fmt.Sprintf("%d", edge.Target),
			fmt.Sprintf("%f", edge.CostMeters),
			edge.Movement.String(),
			fmt.Sprintf("%d", edge.ID),
		})
		if err != nil {
			return errors.Wrapf(err, "Can't write edge %d", edge.ID)
		}
	}
	writer.Flush()
	return writer.Error()
}
