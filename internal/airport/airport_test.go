package airport

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestValidateICAO(t *testing.T) {
	tests := []struct {
		icao  string
		valid bool
	}{
		{"KSFO", true},
		{"EGLL", true},
		{"00AA", true},
		{"K1G4", true},
		{"ksfo", false},
		{"KSF", false},
		{"KSFOO", false},
		{"", false},
		{"KS-O", false},
		{"KSFÖ", false},
	}

	for _, tt := range tests {
		t.Run(tt.icao, func(t *testing.T) {
			err := ValidateICAO(tt.icao)
			if tt.valid && err != nil {
				t.Errorf("ValidateICAO(%q) returned error: %v", tt.icao, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidICAO) {
				t.Errorf("ValidateICAO(%q) = %v, want ErrInvalidICAO", tt.icao, err)
			}
		})
	}
}

func TestRunwayComplete(t *testing.T) {
	marker := &RunwayMarker{Name: "09"}

	if (Runway{}).Complete() {
		t.Error("runway without markers should be incomplete")
	}
	if (Runway{HEMarker: marker}).Complete() {
		t.Error("runway with only heMarker should be incomplete")
	}
	if !(Runway{HEMarker: marker, LEMarker: &RunwayMarker{Name: "27"}}).Complete() {
		t.Error("runway with both markers should be complete")
	}

	apt := Airport{Runways: []Runway{{HEMarker: marker}, {HEMarker: marker, LEMarker: marker}}}
	if n := len(apt.CompleteRunways()); n != 1 {
		t.Errorf("CompleteRunways returned %d runways, want 1", n)
	}
}

func TestSpeedKnots(t *testing.T) {
	if got := (Speed{Type: SpeedKnots, Value: 450}).Knots(); got != 450 {
		t.Errorf("450 knots = %f knots", got)
	}
	if got := (Speed{Type: SpeedMach, Value: 0.78}).Knots(); math.Abs(got-520.05642) > 1e-3 {
		t.Errorf("Mach 0.78 = %f knots, want about 520.056", got)
	}
}

func TestSpeedValidate(t *testing.T) {
	tests := []struct {
		name  string
		speed Speed
		valid bool
	}{
		{"knots", Speed{SpeedKnots, 250}, true},
		{"mach", Speed{SpeedMach, 0.8}, true},
		{"zero", Speed{SpeedKnots, 0}, false},
		{"negative", Speed{SpeedMach, -1}, false},
		{"nan", Speed{SpeedKnots, math.NaN()}, false},
		{"unknown unit", Speed{"kph", 300}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.speed.Validate()
			if tt.valid != (err == nil) {
				t.Errorf("Validate() = %v, valid=%v", err, tt.valid)
			}
		})
	}
}

func TestTimeFromDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		speed    Speed
		want     Time
	}{
		{"one hour", 400, Speed{SpeedKnots, 400}, Time{1, 0}},
		{"ninety minutes", 600, Speed{SpeedKnots, 400}, Time{1, 30}},
		{"short hop", 293, Speed{SpeedKnots, 410}, Time{0, 42}},
		{"zero distance", 0, Speed{SpeedKnots, 100}, Time{0, 0}},
		{"capped hours", 100_000, Speed{SpeedKnots, 100}, Time{99, 59}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeFromDistance(tt.distance, tt.speed); got != tt.want {
				t.Errorf("TimeFromDistance(%f, %v) = %v, want %v", tt.distance, tt.speed, got, tt.want)
			}
		})
	}
}

func TestNewRoute(t *testing.T) {
	ksfo := &Airport{ICAO: "KSFO", Position: Position{LatitudeDeg: 37.62, LongitudeDeg: -122.38}}
	klax := &Airport{ICAO: "KLAX", Position: Position{LatitudeDeg: 33.94, LongitudeDeg: -118.41}}

	route, err := NewRoute(ksfo, klax, Speed{SpeedKnots, 410})
	if err != nil {
		t.Fatalf("NewRoute returned error: %v", err)
	}
	if math.Abs(route.Distance-293) > 3 {
		t.Errorf("route distance = %f, want about 293", route.Distance)
	}
	if route.Distance < 0 {
		t.Error("route distance must not be negative")
	}
	if route.Time.Hour != 0 || route.Time.Minutes < 40 || route.Time.Minutes > 45 {
		t.Errorf("route time = %v, want about 0h 43m", route.Time)
	}
	if route.From != ksfo || route.To != klax {
		t.Error("route endpoints not preserved")
	}

	if _, err := NewRoute(ksfo, klax, Speed{SpeedKnots, 0}); !errors.Is(err, ErrInvalidSpeed) {
		t.Errorf("expected ErrInvalidSpeed, got %v", err)
	}
	if _, err := NewRoute(nil, klax, Speed{SpeedKnots, 100}); err == nil {
		t.Error("expected error for missing departure")
	}
}

func TestRunwayLengthFits(t *testing.T) {
	tests := []struct {
		filter RunwayLength
		length int
		want   bool
	}{
		{RunwayLength{LengthEqual, 12345}, 12345, true},
		{RunwayLength{LengthEqual, 12345}, 12346, false},
		{RunwayLength{LengthGreaterThan, 1000}, 1001, true},
		{RunwayLength{LengthGreaterThan, 1000}, 1000, false},
		{RunwayLength{LengthLessThan, 1000}, 999, true},
		{RunwayLength{LengthLessThan, 1000}, 1000, false},
		{RunwayLength{"ge", 1000}, 1000, false},
	}

	for _, tt := range tests {
		if got := tt.filter.Fits(tt.length); got != tt.want {
			t.Errorf("%+v.Fits(%d) = %v, want %v", tt.filter, tt.length, got, tt.want)
		}
	}
}

func TestFilterMatches(t *testing.T) {
	length := func(n int) *int { return &n }
	ksfo := &Airport{
		ICAO:        "KSFO",
		Class:       ClassLarge,
		Runways:     []Runway{{LengthFT: length(7500)}, {LengthFT: nil}},
		CountryName: "United States",
	}
	ksac := &Airport{
		ICAO:        "KSAC",
		Class:       ClassMedium,
		Runways:     []Runway{{LengthFT: length(3836)}},
		CountryName: "United States",
	}
	rjaa := &Airport{
		ICAO:        "RJAA",
		Class:       ClassLarge,
		Runways:     []Runway{{LengthFT: length(13123)}},
		CountryName: "Japan",
	}
	all := []*Airport{ksfo, ksac, rjaa}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter", Filter{}, []string{"KSFO", "KSAC", "RJAA"}},
		{"class", Filter{Class: ClassLarge}, []string{"KSFO", "RJAA"}},
		{"runway longer", Filter{RunwayLength: &RunwayLength{LengthGreaterThan, 5000}}, []string{"KSFO", "RJAA"}},
		{"runway shorter", Filter{RunwayLength: &RunwayLength{LengthLessThan, 5000}}, []string{"KSAC"}},
		{"country any case", Filter{Countries: []string{"japan"}}, []string{"RJAA"}},
		{"several countries", Filter{Countries: []string{"Japan", "United States"}}, []string{"KSFO", "KSAC", "RJAA"}},
		{"combined", Filter{Class: ClassLarge, Countries: []string{"United States"}}, []string{"KSFO"}},
		{"nothing", Filter{Class: ClassHeliport}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, apt := range all {
				if tt.filter.Matches(apt) {
					got = append(got, apt.ICAO)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("matched %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{"empty", Filter{}, false},
		{"known class", Filter{Class: ClassSmall}, false},
		{"unknown class", Filter{Class: "spaceport"}, true},
		{"bad selector", Filter{RunwayLength: &RunwayLength{Selector: "ge", Length: 10}}, true},
		{"negative length", Filter{RunwayLength: &RunwayLength{Selector: LengthEqual, Length: -1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidFilter) {
				t.Errorf("Validate() = %v, want ErrInvalidFilter", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() returned error: %v", err)
			}
		})
	}
}
