package ai

// Entity type labels produced by extractors. Extractors coerce anything
// else the model invents to TypeOther.
const (
	TypeLocation     = "LOCATION"
	TypeOrganization = "ORGANIZATION"
	TypeDate         = "DATE"
	TypePrice        = "PRICE"
	TypeActivity     = "ACTIVITY"
	TypeHotel        = "HOTEL"
	TypeFlight       = "FLIGHT"
	TypeOther        = "OTHER"
)

// EntityTypes lists the valid categories for extracted entities.
var EntityTypes = []string{
	TypeLocation,
	TypeOrganization,
	TypeDate,
	TypePrice,
	TypeActivity,
	TypeHotel,
	TypeFlight,
	TypeOther,
}

// ValidEntityType reports whether t is one of EntityTypes.
func ValidEntityType(t string) bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}
