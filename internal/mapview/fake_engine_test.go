package mapview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/yegors/routemap/internal/airport"
)

// fakeEngine records everything the map view asks of it. loadHook, when set,
// runs on every LoadModules call and may block or fail it.
type fakeEngine struct {
	mu         sync.Mutex
	loadHook   func(ctx context.Context, names []string) error
	densifyErr error
	loads      [][]string
	densified  []float64
	maps       []*fakeMap
	views      []*fakeView
	layers     []*fakeGraphicsLayer
	toggles    []string
}

func (e *fakeEngine) LoadModules(ctx context.Context, names ...string) error {
	e.mu.Lock()
	e.loads = append(e.loads, names)
	hook := e.loadHook
	e.mu.Unlock()

	if hook != nil {
		return hook(ctx, names)
	}
	return ctx.Err()
}

func (e *fakeEngine) NewMap(opts MapOptions) (Map, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := &fakeMap{basemap: opts.Basemap}
	e.maps = append(e.maps, m)
	return m, nil
}

func (e *fakeEngine) NewView(m Map, container Container, opts ViewOptions) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := &fakeView{container: container, zoom: opts.Zoom}
	e.views = append(e.views, v)
	return v, nil
}

func (e *fakeEngine) NewBasemapToggle(v View, nextBasemap string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toggles = append(e.toggles, nextBasemap)
	return nil
}

func (e *fakeEngine) NewGraphicsLayer(opts LayerOptions) (GraphicsLayer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l := &fakeGraphicsLayer{title: opts.Title, minScale: opts.MinScale}
	e.layers = append(e.layers, l)
	return l, nil
}

func (e *fakeEngine) GeodesicDensify(line orb.LineString, maxSegmentLength float64) (orb.LineString, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.densified = append(e.densified, maxSegmentLength)
	if e.densifyErr != nil {
		return nil, e.densifyErr
	}
	mid := orb.Point{(line[0][0] + line[1][0]) / 2, (line[0][1] + line[1][1]) / 2}
	return orb.LineString{line[0], mid, line[1]}, nil
}

func (e *fakeEngine) view(t *testing.T) *fakeView {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.views) != 1 {
		t.Fatalf("expected exactly one view, got %d", len(e.views))
	}
	return e.views[0]
}

type fakeMap struct {
	mu      sync.Mutex
	basemap string
	layers  []GraphicsLayer
}

func (m *fakeMap) AddLayer(layer GraphicsLayer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers = append(m.layers, layer)
}

type fakeView struct {
	mu        sync.Mutex
	container Container
	zoom      int
	targets   []Target
}

func (v *fakeView) GoTo(ctx context.Context, target Target) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.targets = append(v.targets, target)
	return nil
}

func (v *fakeView) SetContainer(container Container) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.container = container
}

func (v *fakeView) Container() Container {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.container
}

type fakeGraphicsLayer struct {
	mu       sync.Mutex
	title    string
	minScale float64
	graphics []Graphic
}

func (l *fakeGraphicsLayer) Add(graphics ...Graphic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.graphics = append(l.graphics, graphics...)
}

func (l *fakeGraphicsLayer) RemoveAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.graphics = nil
}

func (l *fakeGraphicsLayer) Graphics() []Graphic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Graphic(nil), l.graphics...)
}

func (l *fakeGraphicsLayer) MinScale() float64 {
	return l.minScale
}

// gate blocks LoadModules calls matched by match until released
type gate struct {
	release chan struct{}
	entered chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{release: make(chan struct{}), entered: make(chan struct{}, 16)}
}

func (g *gate) wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) open() {
	g.once.Do(func() { close(g.release) })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitEntered(t *testing.T, g *gate) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for module load")
	}
}

func hasModule(names []string, module string) bool {
	for _, n := range names {
		if n == module {
			return true
		}
	}
	return false
}

func marker(name string, lat, lon float64) *airport.RunwayMarker {
	return &airport.RunwayMarker{Name: name, Position: airport.Position{LatitudeDeg: lat, LongitudeDeg: lon}}
}

func ksfo() *airport.Airport {
	return &airport.Airport{
		ICAO:     "KSFO",
		Position: airport.Position{LatitudeDeg: 37.62, LongitudeDeg: -122.38},
		Runways: []airport.Runway{
			{HEMarker: marker("10L", 37.6287, -122.3934), LEMarker: marker("28R", 37.6135, -122.3571)},
			{HEMarker: marker("01R", 37.6063, -122.3810), LEMarker: marker("19L", 37.6271, -122.3671)},
		},
		CountryName: "United States",
	}
}

func klax() *airport.Airport {
	return &airport.Airport{
		ICAO:     "KLAX",
		Position: airport.Position{LatitudeDeg: 33.94, LongitudeDeg: -118.41},
		Runways: []airport.Runway{
			{HEMarker: marker("06L", 33.9491, -118.4312), LEMarker: marker("24R", 33.9521, -118.4019)},
			{HEMarker: marker("07R", 33.9347, -118.4191)},
		},
		CountryName: "United States",
	}
}

func kjfk() *airport.Airport {
	return &airport.Airport{
		ICAO:     "KJFK",
		Position: airport.Position{LatitudeDeg: 40.64, LongitudeDeg: -73.78},
		Runways: []airport.Runway{
			{HEMarker: marker("04L", 40.6222, -73.7856), LEMarker: marker("22R", 40.6425, -73.7637)},
		},
	}
}

func sfoToLax() *airport.Route {
	return &airport.Route{From: ksfo(), To: klax(), Distance: 293, Time: airport.Time{Hour: 0, Minutes: 43}}
}

func laxToJfk() *airport.Route {
	return &airport.Route{From: klax(), To: kjfk(), Distance: 2146, Time: airport.Time{Hour: 4, Minutes: 46}}
}

// texts returns the text of every text symbol on graphics, in order
func texts(graphics []Graphic) []string {
	var out []string
	for _, g := range graphics {
		if ts, ok := g.Symbol.(TextSymbol); ok {
			out = append(out, ts.Text)
		}
	}
	return out
}

func countSymbols(graphics []Graphic) (markers, lines, labels int) {
	for _, g := range graphics {
		switch g.Symbol.(type) {
		case MarkerSymbol:
			markers++
		case LineSymbol:
			lines++
		case TextSymbol:
			labels++
		}
	}
	return
}
