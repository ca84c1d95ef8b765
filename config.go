package lanenet

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config enumerates recognized attribute names and every policy knob of the pipeline
type Config struct {
	Attributes AttributeNames  `mapstructure:"attributes"`
	Directions DirectionValues `mapstructure:"directions"`
	Geometry   GeometryConfig  `mapstructure:"geometry"`
	Reduction  ReductionConfig `mapstructure:"reduction"`
	Degree     DegreeConfig    `mapstructure:"degree"`
	Lanes      LanesConfig     `mapstructure:"lanes"`
	Filter     FilterConfig    `mapstructure:"filter"`
	IO         IOConfig        `mapstructure:"io"`
}

// AttributeNames maps logical segment attributes to column names of the input layer.
// Empty name means the attribute is not present in the layer.
type AttributeNames struct {
	ID          string `mapstructure:"id"`
	SpeedLimit  string `mapstructure:"speed_limit"`
	LanesNum    string `mapstructure:"lanes"`
	StreetWidth string `mapstructure:"street_width"`
	FromLevel   string `mapstructure:"from_level"`
	ToLevel     string `mapstructure:"to_level"`
	Direction   string `mapstructure:"direction" validate:"required"`
	Priority    string `mapstructure:"priority"`
	BikeLane    string `mapstructure:"bike_lane"`
	RoadType    string `mapstructure:"road_type"`
	Name        string `mapstructure:"name"`
	// Logical names (see ATTRIBUTE_* constants) which must be present in every feature
	Required []string `mapstructure:"required" validate:"dive,oneof=id speed_limit lanes street_width from_level to_level direction priority bike_lane road_type name"`
}

// Logical attribute names
const (
	ATTRIBUTE_ID           = "id"
	ATTRIBUTE_SPEED_LIMIT  = "speed_limit"
	ATTRIBUTE_LANES        = "lanes"
	ATTRIBUTE_STREET_WIDTH = "street_width"
	ATTRIBUTE_FROM_LEVEL   = "from_level"
	ATTRIBUTE_TO_LEVEL     = "to_level"
	ATTRIBUTE_DIRECTION    = "direction"
	ATTRIBUTE_PRIORITY     = "priority"
	ATTRIBUTE_BIKE_LANE    = "bike_lane"
	ATTRIBUTE_ROAD_TYPE    = "road_type"
	ATTRIBUTE_NAME         = "name"
)

// column returns configured column name for given logical attribute
func (names AttributeNames) column(logical string) string {
	switch logical {
	case ATTRIBUTE_ID:
		return names.ID
	case ATTRIBUTE_SPEED_LIMIT:
		return names.SpeedLimit
	case ATTRIBUTE_LANES:
		return names.LanesNum
	case ATTRIBUTE_STREET_WIDTH:
		return names.StreetWidth
	case ATTRIBUTE_FROM_LEVEL:
		return names.FromLevel
	case ATTRIBUTE_TO_LEVEL:
		return names.ToLevel
	case ATTRIBUTE_DIRECTION:
		return names.Direction
	case ATTRIBUTE_PRIORITY:
		return names.Priority
	case ATTRIBUTE_BIKE_LANE:
		return names.BikeLane
	case ATTRIBUTE_ROAD_TYPE:
		return names.RoadType
	case ATTRIBUTE_NAME:
		return names.Name
	default:
		return ""
	}
}

// DirectionValues lists raw values of the direction column for every direction code
type DirectionValues struct {
	Forward []string `mapstructure:"forward" validate:"min=1"`
	Reverse []string `mapstructure:"reverse" validate:"min=1"`
	TwoWay  []string `mapstructure:"two_way"`
}

// parse returns direction code for raw value. Unknown values are reported with false
func (values DirectionValues) parse(raw string) (DirectionCode, bool) {
	raw = strings.TrimSpace(raw)
	for _, v := range values.Forward {
		if strings.EqualFold(v, raw) {
			return DIRECTION_FORWARD, true
		}
	}
	for _, v := range values.Reverse {
		if strings.EqualFold(v, raw) {
			return DIRECTION_REVERSE, true
		}
	}
	for _, v := range values.TwoWay {
		if strings.EqualFold(v, raw) {
			return DIRECTION_TWO_WAY, true
		}
	}
	return DIRECTION_TWO_WAY, false
}

// encode returns canonical raw value for given direction code
func (values DirectionValues) encode(code DirectionCode) string {
	switch code {
	case DIRECTION_FORWARD:
		return values.Forward[0]
	case DIRECTION_REVERSE:
		return values.Reverse[0]
	default:
		if len(values.TwoWay) > 0 {
			return values.TwoWay[0]
		}
		return ""
	}
}

type GeometryConfig struct {
	Metric string `mapstructure:"metric" validate:"oneof=haversine euclidean"`
	// Number of decimal digits kept when endpoints are canonicalized
	Precision int `mapstructure:"precision" validate:"gte=0,lte=15"`
	// Endpoints closer than this (in coordinate units) are merged into one node. Zero disables snapping
	SnapTolerance float64 `mapstructure:"snap_tolerance" validate:"gte=0"`
}

func (cfg GeometryConfig) metric() DistanceMetric {
	metric, err := distanceMetricFromString(cfg.Metric)
	if err != nil {
		return METRIC_HAVERSINE
	}
	return metric
}

type ReductionConfig struct {
	MaxIterations int  `mapstructure:"max_iterations" validate:"gte=1"`
	TrimDeadEnds  bool `mapstructure:"trim_dead_ends"`
}

type DegreeConfig struct {
	MaxLegs int `mapstructure:"max_legs" validate:"gte=3"`
	// Distance from intersection to inserted virtual node (meters for haversine metric)
	VirtualOffset float64 `mapstructure:"virtual_offset" validate:"gt=0"`
}

type LanesConfig struct {
	WidthPerLane float64 `mapstructure:"width_per_lane" validate:"gt=0"`
	MinLanes     int     `mapstructure:"min_lanes" validate:"gte=1"`
	MaxLanes     int     `mapstructure:"max_lanes" validate:"gtefield=MinLanes,lte=9"`
	// Perpendicular distance between neighboring lane centerlines (coordinate units)
	LaneOffset float64   `mapstructure:"lane_offset" validate:"gt=0"`
	Turns      TurnTable `mapstructure:"turns"`
}

type FilterConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	RoadType       string  `mapstructure:"road_type"`
	SpeedThreshold float64 `mapstructure:"speed_threshold" validate:"gte=0"`
	// JSON file with object of identifiers lists which are never filtered out
	Whitelist string `mapstructure:"whitelist"`
}

type IOConfig struct {
	City      string `mapstructure:"city" validate:"required"`
	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`
	// Input layer file name relative to InputDir. Default is '<city>_streets.geojson'
	Input               string `mapstructure:"input"`
	CompressCheckpoints bool   `mapstructure:"compress_checkpoints"`
	LaneGeometry        string `mapstructure:"lane_geometry" validate:"oneof=wkt polyline"`
	Shapefiles          bool   `mapstructure:"shapefiles"`
	Contraction         bool   `mapstructure:"contraction"`
}

// DefaultAttributeNames returns column names of the generic street centerline layer
func DefaultAttributeNames() AttributeNames {
	return AttributeNames{
		ID:          "fid",
		SpeedLimit:  "SPEED",
		StreetWidth: "st_width",
		FromLevel:   "FromZlev",
		ToLevel:     "ToZlev",
		Direction:   "trafdir",
		Priority:    "snow_pri",
		BikeLane:    "bike_lane",
		RoadType:    "rw_type",
		Name:        "st_name",
		Required:    []string{ATTRIBUTE_DIRECTION, ATTRIBUTE_FROM_LEVEL, ATTRIBUTE_TO_LEVEL, ATTRIBUTE_STREET_WIDTH},
	}
}

// NYCAttributes returns column names of the NYC street layer
func NYCAttributes() AttributeNames {
	names := DefaultAttributeNames()
	names.Direction = "OneWay"
	return names
}

// DefaultConfig returns configuration with every field populated
func DefaultConfig() *Config {
	return &Config{
		Attributes: DefaultAttributeNames(),
		Directions: DirectionValues{
			Forward: []string{"FT"},
			Reverse: []string{"TF"},
			TwoWay:  []string{"TW", "", "None"},
		},
		Geometry: GeometryConfig{
			Metric:    "haversine",
			Precision: 9,
		},
		Reduction: ReductionConfig{
			MaxIterations: 50,
			TrimDeadEnds:  true,
		},
		Degree: DegreeConfig{
			MaxLegs:       4,
			VirtualOffset: 15,
		},
		Lanes: LanesConfig{
			WidthPerLane: 12,
			MinLanes:     1,
			MaxLanes:     9,
			LaneOffset:   0.00003,
			Turns:        DefaultTurnTable(),
		},
		Filter: FilterConfig{
			RoadType:       "residential",
			SpeedThreshold: 15,
		},
		IO: IOConfig{
			City:         "NYC",
			InputDir:     "input",
			OutputDir:    "output",
			LaneGeometry: "wkt",
		},
	}
}

func (cfg *Config) String() string {
	return fmt.Sprintf(`
Pipeline configuration:
	city: '%s'
	input: '%s'
	input_dir: '%s'
	output_dir: '%s'
	direction column: '%s'
	levels columns: '%s' / '%s'
	metric: '%s'
	precision: %d
	snap_tolerance: %f
	max_iterations: %d
	trim_dead_ends: %t
	max_legs: %d
	virtual_offset: %f
	lanes: [%d; %d], width_per_lane: %f, lane_offset: %f
	speed filter enabled?: %t
	`,
		cfg.IO.City,
		cfg.IO.Input,
		cfg.IO.InputDir,
		cfg.IO.OutputDir,
		cfg.Attributes.Direction,
		cfg.Attributes.FromLevel,
		cfg.Attributes.ToLevel,
		cfg.Geometry.Metric,
		cfg.Geometry.Precision,
		cfg.Geometry.SnapTolerance,
		cfg.Reduction.MaxIterations,
		cfg.Reduction.TrimDeadEnds,
		cfg.Degree.MaxLegs,
		cfg.Degree.VirtualOffset,
		cfg.Lanes.MinLanes,
		cfg.Lanes.MaxLanes,
		cfg.Lanes.WidthPerLane,
		cfg.Lanes.LaneOffset,
		cfg.Filter.Enabled,
	)
}

// Validate checks configuration constraints
func (cfg *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if err := cfg.Lanes.Turns.validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// LoadConfig reads configuration file (YAML, TOML or JSON) on top of defaults.
// Values could be overridden by LANENET_* environment variables, e.g. LANENET_IO_CITY.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LANENET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Environment is looked up only for known keys, so every key gets its default
	registerDefaults(v, "", reflect.ValueOf(cfg).Elem())
	err := v.ReadInConfig()
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read configuration file '%s'", path)
	}
	err = v.Unmarshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode configuration")
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerDefaults walks 'mapstructure' tags of the struct and sets nested keys defaults
func registerDefaults(v *viper.Viper, prefix string, value reflect.Value) {
	valueType := value.Type()
	for i := 0; i < valueType.NumField(); i++ {
		field := valueType.Field(i)
		tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fieldValue := value.Field(i)
		if fieldValue.Kind() == reflect.Struct {
			registerDefaults(v, key, fieldValue)
			continue
		}
		v.SetDefault(key, fieldValue.Interface())
	}
}
