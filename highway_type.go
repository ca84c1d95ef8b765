package lanenet

type HighwayType uint16

const (
	HIGHWAY_MOTORWAY = HighwayType(iota + 1)
	HIGHWAY_MOTORWAY_LINK
	HIGHWAY_TRUNK
	HIGHWAY_TRUNK_LINK
	HIGHWAY_PRIMARY
	HIGHWAY_PRIMARY_LINK
	HIGHWAY_SECONDARY
	HIGHWAY_SECONDARY_LINK
	HIGHWAY_TERTIARY
	HIGHWAY_TERTIARY_LINK
	HIGHWAY_RESIDENTIAL
	HIGHWAY_RESIDENTIAL_LINK
	HIGHWAY_LIVING_STREET
	HIGHWAY_SERVICE
	HIGHWAY_UNCLASSIFIED

	HIGHWAY_UNDEFINED = HighwayType(0)
)

func (iotaIdx HighwayType) String() string {
	return [...]string{"undefined", "motorway", "motorway_link", "trunk", "trunk_link", "primary", "primary_link", "secondary", "secondary_link", "tertiary", "tertiary_link", "residential", "residential_link", "living_street", "service", "unclassified"}[iotaIdx]
}

func getHighwayType(str string) HighwayType {
	if found, ok := highwaysTypes[str]; ok {
		return found
	}
	return HIGHWAY_UNDEFINED
}

// highwayDefaults are used when OSM way has no explicit tags. Lanes are per direction, speed is in km/h
type highwayDefaults struct {
	lanes  int
	speed  float64
	oneway bool
}

var (
	highwaysTypes = map[string]HighwayType{
		"motorway":         HIGHWAY_MOTORWAY,
		"motorway_link":    HIGHWAY_MOTORWAY_LINK,
		"trunk":            HIGHWAY_TRUNK,
		"trunk_link":       HIGHWAY_TRUNK_LINK,
		"primary":          HIGHWAY_PRIMARY,
		"primary_link":     HIGHWAY_PRIMARY_LINK,
		"secondary":        HIGHWAY_SECONDARY,
		"secondary_link":   HIGHWAY_SECONDARY_LINK,
		"tertiary":         HIGHWAY_TERTIARY,
		"tertiary_link":    HIGHWAY_TERTIARY_LINK,
		"residential":      HIGHWAY_RESIDENTIAL,
		"residential_link": HIGHWAY_RESIDENTIAL_LINK,
		"living_street":    HIGHWAY_LIVING_STREET,
		"service":          HIGHWAY_SERVICE,
		"unclassified":     HIGHWAY_UNCLASSIFIED,
	}

	defaultsByHighway = map[HighwayType]highwayDefaults{
		HIGHWAY_MOTORWAY:         {lanes: 4, speed: 120, oneway: true},
		HIGHWAY_MOTORWAY_LINK:    {lanes: 1, speed: 60, oneway: true},
		HIGHWAY_TRUNK:            {lanes: 3, speed: 100},
		HIGHWAY_TRUNK_LINK:       {lanes: 1, speed: 50},
		HIGHWAY_PRIMARY:          {lanes: 3, speed: 80},
		HIGHWAY_PRIMARY_LINK:     {lanes: 1, speed: 50},
		HIGHWAY_SECONDARY:        {lanes: 2, speed: 60},
		HIGHWAY_SECONDARY_LINK:   {lanes: 1, speed: 40},
		HIGHWAY_TERTIARY:         {lanes: 2, speed: 40},
		HIGHWAY_TERTIARY_LINK:    {lanes: 1, speed: 30},
		HIGHWAY_RESIDENTIAL:      {lanes: 1, speed: 30},
		HIGHWAY_RESIDENTIAL_LINK: {lanes: 1, speed: 30},
		HIGHWAY_LIVING_STREET:    {lanes: 1, speed: 20},
		HIGHWAY_SERVICE:          {lanes: 1, speed: 30},
		HIGHWAY_UNCLASSIFIED:     {lanes: 1, speed: 30},
	}
)
