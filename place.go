package voyagebed

import "fmt"

// PlaceType identifies the level of a place in the gazetteer hierarchy.
// The string form is exactly what the store holds in places.place_type.
type PlaceType string

const (
	PlaceTypePort           PlaceType = "Port"
	PlaceTypeSpecificRegion PlaceType = "SpecificRegion"
	PlaceTypeBroadRegion    PlaceType = "BroadRegion"
)

// ParsePlaceType converts a stored place_type value into a PlaceType.
// Unknown values are an error, never a default.
func ParsePlaceType(s string) (PlaceType, error) {
	switch t := PlaceType(s); t {
	case PlaceTypePort, PlaceTypeSpecificRegion, PlaceTypeBroadRegion:
		return t, nil
	}
	return "", &InvalidPlaceTypeError{Value: s}
}

func (t PlaceType) String() string { return string(t) }

// Level returns the hierarchy level a place of this type sits at.
func (t PlaceType) Level() Level {
	switch t {
	case PlaceTypeSpecificRegion:
		return LevelRegion
	case PlaceTypeBroadRegion:
		return LevelBroadRegion
	}
	return LevelPort
}

// Place is a node in the port / specific region / broad region hierarchy.
//
// Value is the domain key used by voyages; ID is assigned by the store and
// only identifies the row.
type Place struct {
	ID               int64
	Type             PlaceType
	Value            int
	Name             string
	RegionValue      *int
	RegionName       *string
	BroadRegionValue *int
	BroadRegionName  *string
}

// Validate checks the hierarchy invariant: a port references both its
// region and broad region, a specific region only its broad region, and a
// broad region neither.
func (p Place) Validate() error {
	hasRegion := p.RegionValue != nil || p.RegionName != nil
	hasBroad := p.BroadRegionValue != nil || p.BroadRegionName != nil

	switch p.Type {
	case PlaceTypePort:
		if p.RegionValue == nil || p.RegionName == nil {
			return &MissingFieldError{Place: p.Name, Field: "region"}
		}
		if p.BroadRegionValue == nil || p.BroadRegionName == nil {
			return &MissingFieldError{Place: p.Name, Field: "broad_region"}
		}
	case PlaceTypeSpecificRegion:
		if hasRegion {
			return fmt.Errorf("specific region %q must not reference a region", p.Name)
		}
		if p.BroadRegionValue == nil || p.BroadRegionName == nil {
			return &MissingFieldError{Place: p.Name, Field: "broad_region"}
		}
	case PlaceTypeBroadRegion:
		if hasRegion || hasBroad {
			return fmt.Errorf("broad region %q must not reference a parent", p.Name)
		}
	default:
		return &InvalidPlaceTypeError{Value: string(p.Type)}
	}
	return nil
}

func (p Place) String() string {
	return fmt.Sprintf("%s (%s %d)", p.Name, p.Type, p.Value)
}

// PortCandidate is the flat port row ranked by the fuzzy matcher.
type PortCandidate struct {
	Value          int
	Name           string
	SpecificRegion string
	BroadRegion    string
}

// PortCandidateFromPlace flattens a port place into a PortCandidate.
func PortCandidateFromPlace(p Place) (PortCandidate, error) {
	if p.Type != PlaceTypePort {
		return PortCandidate{}, fmt.Errorf("place %q is a %s: %w", p.Name, p.Type, ErrNotAPort)
	}
	if p.RegionName == nil {
		return PortCandidate{}, &MissingFieldError{Place: p.Name, Field: "region_name"}
	}
	if p.BroadRegionName == nil {
		return PortCandidate{}, &MissingFieldError{Place: p.Name, Field: "broad_region_name"}
	}
	return PortCandidate{
		Value:          p.Value,
		Name:           p.Name,
		SpecificRegion: *p.RegionName,
		BroadRegion:    *p.BroadRegionName,
	}, nil
}

// Role is the endpoint of a route a search is resolving.
type Role int

const (
	Origin Role = iota
	Destination
)

// Opposite returns the other endpoint.
func (r Role) Opposite() Role {
	if r == Origin {
		return Destination
	}
	return Origin
}

func (r Role) String() string {
	if r == Destination {
		return "destination"
	}
	return "origin"
}

// ParseRole accepts "origin" or "destination".
func ParseRole(s string) (Role, error) {
	switch s {
	case "origin", "Origin":
		return Origin, nil
	case "destination", "Destination":
		return Destination, nil
	}
	return Origin, fmt.Errorf("invalid role %q: want origin or destination", s)
}
