package lanenet

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
)

// Phase is a pipeline stage index. Every phase writes its own checkpoint, so a run could start from any of them
type Phase uint16

const (
	PHASE_INGEST = Phase(iota + 1)
	PHASE_CORRECT
	PHASE_GRADES
	PHASE_REDUCE
	PHASE_CONNECT
	PHASE_DEGREE
	PHASE_SIMULATION
	PHASE_ROADS
	PHASE_LANES

	PHASE_UNDEFINED = Phase(0)
)

const (
	PHASE_FIRST = PHASE_INGEST
	PHASE_LAST  = PHASE_LANES
)

func (iotaIdx Phase) String() string {
	return [...]string{"undefined", "ingest", "correct", "grade separation", "chain reduction", "connectivity repair", "degree normalization", "simulator preparation", "road file", "lane file"}[iotaIdx]
}

// ParsePhase checks that index refers to an existing phase
func ParsePhase(idx int) (Phase, error) {
	if idx < int(PHASE_FIRST) || idx > int(PHASE_LAST) {
		return PHASE_UNDEFINED, errors.Wrapf(ErrInvalidPhase, "expected value in [%d, %d], but got %d", PHASE_FIRST, PHASE_LAST, idx)
	}
	return Phase(idx), nil
}

var checkpointSuffixes = [...]string{
	PHASE_INGEST:     "_streets",
	PHASE_CORRECT:    "_joined_corrected",
	PHASE_GRADES:     "_joined_correctedbridges",
	PHASE_REDUCE:     "_joined_correctedbridges_red",
	PHASE_CONNECT:    "_joined_correctedbridges_red_strong",
	PHASE_DEGREE:     "_joined_correctedbridges_red_4legs_strong",
	PHASE_SIMULATION: "_joined_correctedbridges_red_4legs_strong_sim",
}

// baseName returns output file name of the phase without extension
func (phase Phase) baseName(city string) string {
	switch phase {
	case PHASE_ROADS:
		return fmt.Sprintf("road_file%s", city)
	case PHASE_LANES:
		return fmt.Sprintf("lane_file%s", city)
	case PHASE_UNDEFINED:
		return ""
	default:
		return city + checkpointSuffixes[phase]
	}
}

// checkpointPath returns GeoJSON checkpoint written by the phase. The lane file phase has no checkpoint
func (phase Phase) checkpointPath(dir, city string, compress bool) string {
	if phase == PHASE_LANES || phase == PHASE_UNDEFINED {
		return ""
	}
	fname := filepath.Join(dir, phase.baseName(city)+".geojson")
	if compress {
		fname += bzip2Extension
	}
	return fname
}
