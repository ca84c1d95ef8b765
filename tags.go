package lanenet

// AccessType is an OSM tag which could forbid motor traffic on a way
type AccessType uint16

const (
	ACCESS_MOTOR_VEHICLE = AccessType(iota + 1)
	ACCESS_MOTORCAR
	ACCESS_OSM_ACCESS
	ACCESS_SERVICE
	ACCESS_AREA
)

func (iotaIdx AccessType) String() string {
	return [...]string{"motor_vehicle", "motorcar", "access", "service", "area"}[iotaIdx-1]
}

var (
	// Tag values excluding way from the drivable network
	autoExcludeValues = map[AccessType]map[string]struct{}{
		ACCESS_MOTOR_VEHICLE: {
			"no": {},
		},
		ACCESS_MOTORCAR: {
			"no": {},
		},
		ACCESS_OSM_ACCESS: {
			"private": {},
			"no":      {},
		},
		ACCESS_SERVICE: {
			"parking":          {},
			"parking_aisle":    {},
			"driveway":         {},
			"private":          {},
			"emergency_access": {},
		},
		ACCESS_AREA: {
			"yes": {},
		},
	}

	junctionTypes = map[string]struct{}{
		"circular":   {},
		"roundabout": {},
	}

	// See ref.: https://wiki.openstreetmap.org/wiki/Tag:oneway%3Dreversible
	onewayReversible = map[string]struct{}{
		"reversible":  {},
		"alternating": {},
	}

	onewayForward = map[string]struct{}{
		"yes":  {},
		"1":    {},
		"true": {},
	}

	onewayNone = map[string]struct{}{
		"no":    {},
		"0":     {},
		"false": {},
	}
)
