package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestBearing(t *testing.T) {
	tests := []struct {
		name  string
		start Position
		end   Position
		want  float64
	}{
		{"due east along equator", Position{0, 0}, Position{0, 90}, 90},
		{"due north to pole", Position{0, 0}, Position{90, 0}, 0},
		{"due south", Position{10, 20}, Position{-10, 20}, 180},
		{"due west along equator", Position{0, 10}, Position{0, -10}, 270},
		{"coincident points", Position{37.62, -122.38}, Position{37.62, -122.38}, 0},
		{"coincident at origin", Position{0, 0}, Position{0, 0}, 0},
		{"KSFO to KLAX", Position{37.62, -122.38}, Position{33.94, -118.41}, 137.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(tt.start, tt.end)
			if !almostEqual(got, tt.want, 0.5) {
				t.Errorf("Bearing(%v, %v) = %f, want %f", tt.start, tt.end, got, tt.want)
			}
			if got < 0 || got >= 360 {
				t.Errorf("Bearing(%v, %v) = %f, out of [0, 360)", tt.start, tt.end, got)
			}
		})
	}
}

func TestBearingRange(t *testing.T) {
	for lat1 := -80.0; lat1 <= 80; lat1 += 20 {
		for lon1 := -170.0; lon1 <= 170; lon1 += 34 {
			for lat2 := -85.0; lat2 <= 85; lat2 += 17 {
				for lon2 := -180.0; lon2 <= 180; lon2 += 45 {
					b := Bearing(Position{lat1, lon1}, Position{lat2, lon2})
					if math.IsNaN(b) || b < 0 || b >= 360 {
						t.Fatalf("Bearing out of range for (%f,%f)->(%f,%f): %f", lat1, lon1, lat2, lon2, b)
					}
				}
			}
		}
	}
}

func TestBearingIsNotPlanar(t *testing.T) {
	// Along the equator the forward and reverse bearings are exactly opposite
	a, b := Position{0, 0}, Position{0, 30}
	if sum := Bearing(a, b) + Bearing(b, a); !almostEqual(sum, 360, 1e-9) {
		t.Errorf("equator bearings should sum to 360, got %f", sum)
	}

	// Off the equator a great circle is not a rhumb line, so the reverse
	// bearing is not the forward bearing plus 180
	jfk := Position{40.64, -73.78}
	lhr := Position{51.47, -0.45}
	fwd := Bearing(jfk, lhr)
	rev := Bearing(lhr, jfk)
	diff := math.Mod(math.Abs(fwd-rev), 360)
	if almostEqual(diff, 180, 5) {
		t.Errorf("JFK/LHR bearings look planar: fwd=%f rev=%f", fwd, rev)
	}
	if !almostEqual(fwd, 51.4, 1) {
		t.Errorf("JFK->LHR initial bearing = %f, want about 51.4", fwd)
	}
}

func TestDistanceNM(t *testing.T) {
	ksfo := Position{37.62, -122.38}
	klax := Position{33.94, -118.41}

	got := DistanceNM(ksfo, klax)
	if !almostEqual(got, 293, 3) {
		t.Errorf("DistanceNM(KSFO, KLAX) = %f, want about 293", got)
	}
	if d := DistanceNM(ksfo, ksfo); d != 0 {
		t.Errorf("DistanceNM of a point to itself = %f, want 0", d)
	}
	if !almostEqual(DistanceNM(ksfo, klax), DistanceNM(klax, ksfo), 1e-9) {
		t.Error("DistanceNM should be symmetric")
	}
}

func TestIntermediate(t *testing.T) {
	a := Position{0, 0}
	b := Position{0, 90}

	mid := Intermediate(a, b, 0.5)
	if !almostEqual(mid.LatitudeDeg, 0, 1e-9) || !almostEqual(mid.LongitudeDeg, 45, 1e-9) {
		t.Errorf("midpoint along equator = %v, want 0,45", mid)
	}

	start := Intermediate(a, b, 0)
	if !almostEqual(start.LongitudeDeg, 0, 1e-9) {
		t.Errorf("f=0 should return start, got %v", start)
	}

	same := Intermediate(a, a, 0.3)
	if same != a {
		t.Errorf("coincident points should return the start, got %v", same)
	}
}

func TestDensify(t *testing.T) {
	line := orb.LineString{{-122.38, 37.62}, {-118.41, 33.94}}

	dense, err := Densify(line, 10_000)
	if err != nil {
		t.Fatalf("Densify returned error: %v", err)
	}

	total := DistanceMeters(FromPoint(line[0]), FromPoint(line[1]))
	wantVertices := int(math.Ceil(total/10_000)) + 1
	if len(dense) != wantVertices {
		t.Errorf("Densify produced %d vertices, want %d", len(dense), wantVertices)
	}
	if dense[0] != line[0] || dense[len(dense)-1] != line[1] {
		t.Error("Densify must keep the input endpoints")
	}

	for i := 1; i < len(dense); i++ {
		d := DistanceMeters(FromPoint(dense[i-1]), FromPoint(dense[i]))
		if d > 10_000+1 {
			t.Fatalf("segment %d is %f m long, longer than the sampling interval", i, d)
		}
	}
}

func TestDensifyFollowsGreatCircle(t *testing.T) {
	// A long east-west route at high latitude bulges poleward on a great circle
	line := orb.LineString{{-60, 60}, {60, 60}}

	dense, err := Densify(line, 100_000)
	if err != nil {
		t.Fatalf("Densify returned error: %v", err)
	}

	maxLat := 0.0
	for _, p := range dense {
		maxLat = math.Max(maxLat, p.Lat())
	}
	if maxLat < 70 {
		t.Errorf("great circle between (60N,60W) and (60N,60E) should pass north of 70N, max lat %f", maxLat)
	}
}

func TestDensifyAcrossAntimeridian(t *testing.T) {
	// RJAA to KSFO crosses 180 degrees east-bound
	line := orb.LineString{{140.39, 35.76}, {-122.38, 37.62}}

	dense, err := Densify(line, 10_000)
	if err != nil {
		t.Fatalf("Densify returned error: %v", err)
	}

	for i := 1; i < len(dense); i++ {
		if step := math.Abs(dense[i].Lon() - dense[i-1].Lon()); step > 1 {
			t.Fatalf("vertex %d jumps %.1f degrees of longitude (%.2f -> %.2f)",
				i, step, dense[i-1].Lon(), dense[i].Lon())
		}
	}

	if dense[0] != line[0] {
		t.Errorf("start = %v, want %v", dense[0], line[0])
	}
	last := dense[len(dense)-1]
	if !almostEqual(last.Lon(), -122.38+360, 1e-9) || last.Lat() != 37.62 {
		t.Errorf("end = %v, want KSFO one turn east", last)
	}
	if !almostEqual(NormalizeLongitude(last.Lon()), -122.38, 1e-9) {
		t.Errorf("normalized end longitude = %f", NormalizeLongitude(last.Lon()))
	}

	crossed := false
	for _, p := range dense {
		if p.Lon() > 180 {
			crossed = true
			break
		}
	}
	if !crossed {
		t.Error("trans-Pacific line should continue past 180E")
	}
}

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{237.62, -122.38},
		{-190, 170},
		{180, -180},
		{-180, -180},
		{540, -180},
	}
	for _, tt := range tests {
		if got := NormalizeLongitude(tt.in); !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("NormalizeLongitude(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDensifyEdgeCases(t *testing.T) {
	if _, err := Densify(orb.LineString{{0, 0}, {1, 1}}, 0); !errors.Is(err, ErrInvalidSegmentLength) {
		t.Errorf("expected ErrInvalidSegmentLength, got %v", err)
	}

	single := orb.LineString{{5, 5}}
	out, err := Densify(single, 10)
	if err != nil || len(out) != 1 {
		t.Errorf("single vertex line should pass through, got %v, %v", out, err)
	}

	zero := orb.LineString{{5, 5}, {5, 5}}
	out, err = Densify(zero, 10)
	if err != nil || len(out) != 2 {
		t.Errorf("zero-length segment should keep both vertices, got %v, %v", out, err)
	}
}
