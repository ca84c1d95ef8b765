package lanenet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// readWhitelist reads JSON object whose values are lists of segment identifiers. Identifiers could be numbers or strings
func readWhitelist(fname string) (map[string]struct{}, error) {
	reader, err := openFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open whitelist")
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read whitelist")
	}
	groups := make(map[string][]interface{})
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err = decoder.Decode(&groups); err != nil {
		return nil, errors.Wrap(err, "Can't decode whitelist")
	}
	whitelist := make(map[string]struct{})
	for _, ids := range groups {
		for _, id := range ids {
			whitelist[fmt.Sprintf("%v", id)] = struct{}{}
		}
	}
	return whitelist, nil
}

// FilterBySpeed drops segments of configured road type with speed limit below threshold unless they are whitelisted.
// Segments without known speed are kept
func FilterBySpeed(segments []RawSegment, cfg FilterConfig, logger *zap.Logger) ([]RawSegment, error) {
	logger = loggerOrNop(logger)
	if !cfg.Enabled {
		return segments, nil
	}
	whitelist := map[string]struct{}{}
	if cfg.Whitelist != "" {
		var err error
		whitelist, err = readWhitelist(cfg.Whitelist)
		if err != nil {
			return nil, err
		}
	}
	kept := make([]RawSegment, 0, len(segments))
	dropped := make([]int, 0)
	for _, segment := range segments {
		if _, ok := whitelist[strconv.Itoa(segment.ID)]; ok {
			kept = append(kept, segment)
			continue
		}
		if segment.RoadType == cfg.RoadType && segment.SpeedLimit > 0 && segment.SpeedLimit < cfg.SpeedThreshold {
			dropped = append(dropped, segment.ID)
			continue
		}
		kept = append(kept, segment)
	}
	logger.Info("low-speed segments filtered", zap.String("road_type", cfg.RoadType), zap.Float64("threshold", cfg.SpeedThreshold), zap.Int("dropped", len(dropped)), zap.Int("whitelisted", len(whitelist)))
	return kept, nil
}
