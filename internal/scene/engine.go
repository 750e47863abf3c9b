// Package scene is an in-process mapping engine. It keeps maps, views and
// graphics layers in memory and renders them as GeoJSON for the browser.
package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/yegors/routemap/internal/geo"
	"github.com/yegors/routemap/internal/mapview"
	"github.com/yegors/routemap/pkg/logger"
)

var (
	// ErrUnknownModule is returned by LoadModules for names the engine does not provide
	ErrUnknownModule = errors.New("unknown module")
	// ErrNoView is returned when no view is bound to a container
	ErrNoView = errors.New("no view bound to container")
	// ErrForeignObject is returned when a map or view from another engine is passed in
	ErrForeignObject = errors.New("object not created by this engine")
)

var knownModules = map[string]bool{
	mapview.ModuleMap:            true,
	mapview.ModuleMapView:        true,
	mapview.ModuleBasemapToggle:  true,
	mapview.ModuleGraphicsLayer:  true,
	mapview.ModulePoint:          true,
	mapview.ModulePolyline:       true,
	mapview.ModuleGeometryEngine: true,
	mapview.ModuleMarkerSymbol:   true,
	mapview.ModuleLineSymbol:     true,
	mapview.ModuleTextSymbol:     true,
	mapview.ModuleGraphic:        true,
}

// Engine implements mapview.Engine in memory
type Engine struct {
	loadDelay time.Duration
	logger    *logger.Logger

	mu     sync.Mutex
	loaded map[string]bool
	views  []*View
	subs   map[int]chan struct{}
	nextID int
}

var _ mapview.Engine = (*Engine)(nil)

// NewEngine creates a scene engine. loadDelay simulates module fetch latency
// on the first load of each module.
func NewEngine(loadDelay time.Duration, logger *logger.Logger) *Engine {
	return &Engine{
		loadDelay: loadDelay,
		logger:    logger.Named("scene-engine"),
		loaded:    make(map[string]bool),
		subs:      make(map[int]chan struct{}),
	}
}

// LoadModules resolves module names. Unknown names fail the whole load.
func (e *Engine) LoadModules(ctx context.Context, names ...string) error {
	var missing []string
	e.mu.Lock()
	for _, name := range names {
		if !knownModules[name] {
			e.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownModule, name)
		}
		if !e.loaded[name] {
			missing = append(missing, name)
		}
	}
	e.mu.Unlock()

	if len(missing) > 0 && e.loadDelay > 0 {
		select {
		case <-time.After(e.loadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	for _, name := range missing {
		e.loaded[name] = true
	}
	e.mu.Unlock()

	if len(missing) > 0 {
		e.logger.Debug("Modules loaded", logger.Strings("modules", missing))
	}
	return nil
}

// NewMap creates an empty map
func (e *Engine) NewMap(opts mapview.MapOptions) (mapview.Map, error) {
	return &Map{engine: e, basemap: opts.Basemap}, nil
}

// NewView binds a new view of m to container
func (e *Engine) NewView(m mapview.Map, container mapview.Container, opts mapview.ViewOptions) (mapview.View, error) {
	sm, ok := m.(*Map)
	if !ok || sm.engine != e {
		return nil, ErrForeignObject
	}

	v := &View{
		engine:    e,
		m:         sm,
		container: container,
		zoom:      opts.Zoom,
	}

	e.mu.Lock()
	e.views = append(e.views, v)
	e.mu.Unlock()

	e.logger.Debug("View created",
		logger.String("container", string(container)),
		logger.String("basemap", sm.basemap),
		logger.Int("zoom", opts.Zoom))

	e.notify()
	return v, nil
}

// NewBasemapToggle adds a toggle between the view's basemap and nextBasemap
func (e *Engine) NewBasemapToggle(v mapview.View, nextBasemap string) error {
	sv, ok := v.(*View)
	if !ok || sv.engine != e {
		return ErrForeignObject
	}

	sv.mu.Lock()
	sv.toggle = &BasemapToggle{NextBasemap: nextBasemap, Position: "bottom-right"}
	sv.mu.Unlock()

	e.notify()
	return nil
}

// NewGraphicsLayer creates a detached graphics layer
func (e *Engine) NewGraphicsLayer(opts mapview.LayerOptions) (mapview.GraphicsLayer, error) {
	return &GraphicsLayer{engine: e, title: opts.Title, minScale: opts.MinScale}, nil
}

// GeodesicDensify follows the great circle between vertices, sampling at most
// every maxSegmentLength meters
func (e *Engine) GeodesicDensify(line orb.LineString, maxSegmentLength float64) (orb.LineString, error) {
	return geo.Densify(line, maxSegmentLength)
}

// ViewFor returns the view bound to container
func (e *Engine) ViewFor(container mapview.Container) (*View, error) {
	if container == mapview.NoContainer {
		return nil, ErrNoView
	}

	e.mu.Lock()
	views := append([]*View(nil), e.views...)
	e.mu.Unlock()

	for _, v := range views {
		if v.Container() == container {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoView, container)
}

// Subscribe returns a channel signalled after every scene change. The channel
// coalesces bursts; call cancel to stop receiving.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Map is an ordered list of graphics layers with a basemap
type Map struct {
	engine  *Engine
	basemap string

	mu     sync.Mutex
	layers []*GraphicsLayer
}

// AddLayer appends layer on top of the existing ones
func (m *Map) AddLayer(layer mapview.GraphicsLayer) {
	gl, ok := layer.(*GraphicsLayer)
	if !ok {
		m.engine.logger.Warn("Ignoring foreign graphics layer")
		return
	}

	m.mu.Lock()
	m.layers = append(m.layers, gl)
	m.mu.Unlock()

	m.engine.notify()
}

// Layers returns the map's layers, bottom first
func (m *Map) Layers() []*GraphicsLayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*GraphicsLayer(nil), m.layers...)
}

// BasemapToggle is the basemap switcher shown on a view
type BasemapToggle struct {
	NextBasemap string `json:"nextBasemap"`
	Position    string `json:"position"`
}

// View is a map shown in a page container
type View struct {
	engine *Engine
	m      *Map

	mu        sync.Mutex
	container mapview.Container
	zoom      int
	center    *orb.Point
	scale     float64
	toggle    *BasemapToggle
}

// GoTo moves the view to target
func (v *View) GoTo(ctx context.Context, target mapview.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	center := target.Center
	v.mu.Lock()
	v.center = &center
	v.scale = target.Scale
	v.mu.Unlock()

	v.engine.notify()
	return nil
}

// SetContainer rebinds or, with NoContainer, detaches the view
func (v *View) SetContainer(container mapview.Container) {
	v.mu.Lock()
	v.container = container
	v.mu.Unlock()

	v.engine.notify()
}

// Container returns the container the view is bound to
func (v *View) Container() mapview.Container {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.container
}

// GraphicsLayer is an in-memory graphics layer
type GraphicsLayer struct {
	engine   *Engine
	title    string
	minScale float64

	mu       sync.Mutex
	graphics []mapview.Graphic
}

// Add appends graphics
func (l *GraphicsLayer) Add(graphics ...mapview.Graphic) {
	l.mu.Lock()
	l.graphics = append(l.graphics, graphics...)
	l.mu.Unlock()

	l.engine.notify()
}

// RemoveAll drops every graphic
func (l *GraphicsLayer) RemoveAll() {
	l.mu.Lock()
	empty := len(l.graphics) == 0
	l.graphics = nil
	l.mu.Unlock()

	if !empty {
		l.engine.notify()
	}
}

// Graphics returns a copy of the layer's graphics
func (l *GraphicsLayer) Graphics() []mapview.Graphic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]mapview.Graphic(nil), l.graphics...)
}

// MinScale is the scale above which the layer is hidden
func (l *GraphicsLayer) MinScale() float64 {
	return l.minScale
}

// Title names the layer
func (l *GraphicsLayer) Title() string {
	return l.title
}
