package lanenet

import (
	"go.uber.org/zap"
)

// NormalizeDirections turns every segment into one or two segments digitized along the travel direction.
//
// Forward segments are kept as is. Reverse segments get reversed geometry and swapped levels.
// Two-way segments are halved (street width and explicit lanes) and complemented by a reversed copy.
// Every returned segment is marked as forward.
func NormalizeDirections(segments []RawSegment, logger *zap.Logger) []RawSegment {
	logger = loggerOrNop(logger)
	result := make([]RawSegment, 0, len(segments)*2)
	reversedCopies := make([]RawSegment, 0, len(segments))
	twinOf := make([]int, 0, len(segments))
	flipped := 0
	for _, segment := range segments {
		switch segment.Direction {
		case DIRECTION_FORWARD:
		case DIRECTION_REVERSE:
			segment.Geom = reverseLine(segment.Geom)
			segment.Attributes = segment.Attributes.swapLevels()
			flipped++
		default:
			segment.StreetWidth = segment.StreetWidth / 2.0
			if segment.LanesNum > 0 {
				segment.LanesNum = (segment.LanesNum + 1) / 2
			}
			reversed := segment
			reversed.Geom = reverseLine(segment.Geom)
			reversed.Attributes = segment.Attributes.swapLevels()
			reversed.Direction = DIRECTION_FORWARD
			reversedCopies = append(reversedCopies, reversed)
			twinOf = append(twinOf, len(result))
		}
		segment.Direction = DIRECTION_FORWARD
		segment.twin = 0
		result = append(result, segment)
	}
	base := len(result)
	for i, reversed := range reversedCopies {
		original := twinOf[i]
		reversed.twin = original + 1
		result[original].twin = base + i + 1
		result = append(result, reversed)
	}
	logger.Debug("directions normalized", zap.Int("segments", len(segments)), zap.Int("flipped", flipped), zap.Int("two_way", len(reversedCopies)))
	return result
}
