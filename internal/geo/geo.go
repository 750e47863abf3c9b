// Package geo holds the spherical geometry used to draw routes and runways:
// initial great-circle bearings, haversine distances and great-circle
// densification of polylines.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Conversion factors
const (
	EarthRadiusNM = 3440.0 // Earth radius in nautical miles
	MetersPerNM   = 1852.0
	FeetPerMeter  = 3.28084
)

// ErrInvalidSegmentLength is returned by Densify for a non-positive sampling interval
var ErrInvalidSegmentLength = errors.New("max segment length must be positive")

// Position is a geographic coordinate in decimal degrees
type Position struct {
	LatitudeDeg  float64 `json:"latitudeDeg"`
	LongitudeDeg float64 `json:"longitudeDeg"`
}

// Point converts the position into an orb point (x = longitude, y = latitude)
func (p Position) Point() orb.Point {
	return orb.Point{p.LongitudeDeg, p.LatitudeDeg}
}

// FromPoint converts an orb point back into a position
func FromPoint(p orb.Point) Position {
	return Position{LatitudeDeg: p.Lat(), LongitudeDeg: NormalizeLongitude(p.Lon())}
}

func (p Position) String() string {
	return fmt.Sprintf("%.5f,%.5f", p.LatitudeDeg, p.LongitudeDeg)
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// Bearing returns the initial great-circle bearing in degrees from start to
// end, in [0, 360) with 0 = north and 90 = east.
//
// Coincident positions have no defined direction; atan2(0, 0) yields 0 and
// that is the value returned.
func Bearing(start, end Position) float64 {
	deltaLon := toRad(end.LongitudeDeg) - toRad(start.LongitudeDeg)
	lat1 := toRad(start.LatitudeDeg)
	lat2 := toRad(end.LatitudeDeg)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)

	bearing := math.Mod(toDeg(math.Atan2(y, x))+360.0, 360.0)
	// -0 and values rounding up to 360 both belong at 0
	if bearing >= 360.0 || bearing == 0 {
		return 0
	}
	return bearing
}

// centralAngle is the haversine angular distance in radians between two positions
func centralAngle(from, to Position) float64 {
	lat1 := toRad(from.LatitudeDeg)
	lat2 := toRad(to.LatitudeDeg)
	dlat := lat2 - lat1
	dlon := toRad(to.LongitudeDeg - from.LongitudeDeg)

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceNM returns the haversine distance in nautical miles
func DistanceNM(from, to Position) float64 {
	return EarthRadiusNM * centralAngle(from, to)
}

// DistanceMeters returns the haversine distance in meters on orb's earth radius
func DistanceMeters(from, to Position) float64 {
	return orbgeo.DistanceHaversine(from.Point(), to.Point())
}

// MetersToNM converts meters to nautical miles
func MetersToNM(meters float64) float64 {
	return meters / MetersPerNM
}

// FeetToMeters converts feet to meters
func FeetToMeters(feet float64) float64 {
	return feet / FeetPerMeter
}

// Intermediate returns the point at fraction f (0..1) of the great circle from a to b
func Intermediate(a, b Position, f float64) Position {
	delta := centralAngle(a, b)
	sinDelta := math.Sin(delta)
	if sinDelta < 1e-12 {
		// coincident or antipodal: no unique great circle
		if f < 0.5 {
			return a
		}
		return b
	}

	lat1, lon1 := toRad(a.LatitudeDeg), toRad(a.LongitudeDeg)
	lat2, lon2 := toRad(b.LatitudeDeg), toRad(b.LongitudeDeg)

	wa := math.Sin((1-f)*delta) / sinDelta
	wb := math.Sin(f*delta) / sinDelta

	x := wa*math.Cos(lat1)*math.Cos(lon1) + wb*math.Cos(lat2)*math.Cos(lon2)
	y := wa*math.Cos(lat1)*math.Sin(lon1) + wb*math.Cos(lat2)*math.Sin(lon2)
	z := wa*math.Sin(lat1) + wb*math.Sin(lat2)

	return Position{
		LatitudeDeg:  toDeg(math.Atan2(z, math.Sqrt(x*x+y*y))),
		LongitudeDeg: toDeg(math.Atan2(y, x)),
	}
}

// Densify splits every segment of line so that no piece is longer than
// maxSegmentMeters along the great circle. Longitudes in the result are
// continuous: a line crossing the antimeridian continues past +/-180 instead
// of jumping a full turn. Input vertices are kept exactly apart from that
// shift by whole turns.
func Densify(line orb.LineString, maxSegmentMeters float64) (orb.LineString, error) {
	if maxSegmentMeters <= 0 || math.IsNaN(maxSegmentMeters) {
		return nil, ErrInvalidSegmentLength
	}
	if len(line) < 2 {
		return line.Clone(), nil
	}

	out := orb.LineString{line[0]}
	for i := 1; i < len(line); i++ {
		a, b := FromPoint(line[i-1]), FromPoint(line[i])
		d := orbgeo.DistanceHaversine(line[i-1], line[i])
		pieces := int(math.Ceil(d / maxSegmentMeters))
		for k := 1; k < pieces; k++ {
			out = appendContinuous(out, Intermediate(a, b, float64(k)/float64(pieces)).Point())
		}
		out = appendContinuous(out, line[i])
	}

	return out, nil
}

// appendContinuous appends p with its longitude moved by whole turns to
// within 180 degrees of the last vertex
func appendContinuous(line orb.LineString, p orb.Point) orb.LineString {
	ref := line[len(line)-1].Lon()
	lon := p.Lon()
	for lon-ref > 180 {
		lon -= 360
	}
	for lon-ref < -180 {
		lon += 360
	}
	return append(line, orb.Point{lon, p.Lat()})
}

// NormalizeLongitude maps lon into [-180, 180)
func NormalizeLongitude(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
