package lanenet

import (
	"github.com/pkg/errors"
)

var (
	// ErrMissingAttribute is returned when input layer lacks a required attribute column
	ErrMissingAttribute = errors.New("missing required attribute")
	// ErrAmbiguousIntersection is returned when a node has more outgoing candidates than movements could describe
	ErrAmbiguousIntersection = errors.New("ambiguous intersection")
	// ErrCheckpointMissing is returned when resuming from a phase whose input checkpoint does not exist
	ErrCheckpointMissing = errors.New("checkpoint file is missing")
	// ErrNotStronglyConnected is returned when connectivity repair post-condition fails
	ErrNotStronglyConnected = errors.New("network is not strongly connected")
	// ErrInvalidPhase is returned for phase index outside of supported range
	ErrInvalidPhase = errors.New("invalid phase")
	// ErrEmptyNetwork is returned when a stage has nothing to work with
	ErrEmptyNetwork = errors.New("empty network")
	// ErrUnsupportedFormat is returned for input files of unknown format
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrInvalidConfig is returned when configuration does not pass validation
	ErrInvalidConfig = errors.New("invalid configuration")
)
