package airport

import (
	"errors"
	"fmt"

	"github.com/yegors/routemap/internal/geo"
)

var (
	// ErrInvalidICAO is returned for identifiers that are not 4 uppercase alphanumerics
	ErrInvalidICAO = errors.New("invalid ICAO code")
	// ErrInvalidSpeed is returned when a route is built with a non-positive speed
	ErrInvalidSpeed = errors.New("invalid speed")
	// ErrAirportNotFound is returned by lookups for unknown airports
	ErrAirportNotFound = errors.New("airport not found")
)

// Position is a geographic coordinate in decimal degrees
type Position = geo.Position

// RunwayMarker is one physical end of a runway
type RunwayMarker struct {
	Name     string   `json:"name"`
	Position Position `json:"position"`
}

// Runway is a runway with optional dimensions and end markers
type Runway struct {
	LengthFT *int          `json:"lengthFT,omitempty"`
	WidthFT  *int          `json:"widthFT,omitempty"`
	HEMarker *RunwayMarker `json:"heMarker,omitempty"`
	LEMarker *RunwayMarker `json:"leMarker,omitempty"`
}

// Complete reports whether both ends of the runway are known
func (r Runway) Complete() bool {
	return r.HEMarker != nil && r.LEMarker != nil
}

// Class is the OurAirports airport type
type Class string

const (
	ClassLarge        Class = "large_airport"
	ClassMedium       Class = "medium_airport"
	ClassSmall        Class = "small_airport"
	ClassHeliport     Class = "heliport"
	ClassSeaplaneBase Class = "seaplane_base"
	ClassBalloonport  Class = "balloonport"
	ClassClosed       Class = "closed"
)

// FrequencyType names a radio frequency published for an airport
type FrequencyType string

const (
	FrequencyATIS             FrequencyType = "atis"
	FrequencyArrival          FrequencyType = "arrival"
	FrequencyDeparture        FrequencyType = "departure"
	FrequencyArrivalDeparture FrequencyType = "arrivalDeparture"
	FrequencyGround           FrequencyType = "ground"
	FrequencyTower            FrequencyType = "tower"
	FrequencyUnicom           FrequencyType = "unicom"
)

// Frequencies maps a frequency type to its value in MHz. Any type may be absent.
type Frequencies map[FrequencyType]string

// Airport is an airport with its runways and frequencies
type Airport struct {
	ICAO        string      `json:"icao"`
	Class       Class       `json:"class,omitempty"`
	Position    Position    `json:"position"`
	Runways     []Runway    `json:"runways"`
	Frequencies Frequencies `json:"frequencies"`
	CountryName string      `json:"countryName"`
}

// Validate checks the airport's invariants
func (a *Airport) Validate() error {
	return ValidateICAO(a.ICAO)
}

// CompleteRunways returns the runways that have both markers
func (a *Airport) CompleteRunways() []Runway {
	var out []Runway
	for _, rwy := range a.Runways {
		if rwy.Complete() {
			out = append(out, rwy)
		}
	}
	return out
}

// Country is an ISO country code and its display name
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Time is a flight time split into hours and minutes
type Time struct {
	Hour    int `json:"hour"`
	Minutes int `json:"minutes"`
}

func (t Time) String() string {
	return fmt.Sprintf("%dh %02dm", t.Hour, t.Minutes)
}

// Route is a flight between two airports
type Route struct {
	From     *Airport `json:"from"`
	To       *Airport `json:"to"`
	Distance float64  `json:"distance"` // nautical miles
	Time     Time     `json:"time"`
}

// ValidateICAO checks that s is exactly 4 uppercase ASCII letters or digits
func ValidateICAO(s string) error {
	if len(s) != 4 {
		return fmt.Errorf("%w: %q must be 4 characters", ErrInvalidICAO, s)
	}
	for _, ch := range s {
		if !(ch >= 'A' && ch <= 'Z') && !(ch >= '0' && ch <= '9') {
			return fmt.Errorf("%w: %q must be uppercase alphanumeric", ErrInvalidICAO, s)
		}
	}
	return nil
}
