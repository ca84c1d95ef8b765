package lanenet

// ExpandedEdge is an edge of turn-expanded graph: vertices are roads and edges are permitted movements between them
type ExpandedEdge struct {
	ID       int64
	Source   int
	Target   int
	Movement MovementType
	// Cost of leaving source road for target one is the length of target road
	CostMeters float64
}

// expandRoads returns movement edges of every road in road table order: left, through, right
func expandRoads(roads *RoadTable) []ExpandedEdge {
	edges := make([]ExpandedEdge, 0, len(roads.Roads)*2)
	for _, road := range roads.Roads {
		for _, movement := range []MovementType{MOVEMENT_LEFT, MOVEMENT_THRU, MOVEMENT_RIGHT} {
			targetID := road.Neighbor(movement)
			if targetID == 0 {
				continue
			}
			target, ok := roads.Road(targetID)
			if !ok {
				continue
			}
			edges = append(edges, ExpandedEdge{
				ID:         int64(len(edges)),
				Source:     road.LinkID,
				Target:     targetID,
				Movement:   movement,
				CostMeters: target.Length,
			})
		}
	}
	return edges
}
