package airport

import (
	"fmt"
	"math"

	"github.com/yegors/routemap/internal/geo"
)

// KnotsPerMach is the speed of sound used to convert Mach numbers
const KnotsPerMach = 666.739

// SpeedType is the unit a cruise speed is expressed in
type SpeedType string

const (
	SpeedMach  SpeedType = "mach"
	SpeedKnots SpeedType = "knots"
)

// Speed is a cruise speed in knots or Mach
type Speed struct {
	Type  SpeedType `json:"type"`
	Value float64   `json:"value"`
}

// Knots returns the speed in knots
func (s Speed) Knots() float64 {
	if s.Type == SpeedMach {
		return s.Value * KnotsPerMach
	}
	return s.Value
}

// Validate checks the speed is a known unit with a positive value
func (s Speed) Validate() error {
	switch s.Type {
	case SpeedMach, SpeedKnots:
	default:
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidSpeed, s.Type)
	}
	if !(s.Value > 0) || math.IsInf(s.Value, 0) {
		return fmt.Errorf("%w: %v must be positive", ErrInvalidSpeed, s.Value)
	}
	return nil
}

// TimeFromDistance converts a distance flown at speed into whole hours and
// minutes. Hours are capped at 99 and minutes at 59.
func TimeFromDistance(distanceNM float64, speed Speed) Time {
	totalHours := distanceNM / speed.Knots()

	hour := math.Min(math.Floor(totalHours), 99)
	minutes := math.Min(math.Floor((totalHours-hour)*60), 59)

	return Time{Hour: int(hour), Minutes: int(minutes)}
}

// NewRoute builds the route from one airport to another flown at speed
func NewRoute(from, to *Airport, speed Speed) (*Route, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("route needs both airports")
	}
	if err := speed.Validate(); err != nil {
		return nil, err
	}

	distance := geo.DistanceNM(from.Position, to.Position)

	return &Route{
		From:     from,
		To:       to,
		Distance: distance,
		Time:     TimeFromDistance(distance, speed),
	}, nil
}
