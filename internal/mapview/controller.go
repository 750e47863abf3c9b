package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yegors/routemap/internal/airport"
	"github.com/yegors/routemap/pkg/logger"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAlreadyMounted is returned by Mount on a controller that was mounted before
	ErrAlreadyMounted = errors.New("map view already mounted")
	// ErrDestroyed is returned by Mount after Unmount
	ErrDestroyed = errors.New("map view destroyed")
	// ErrNotReady is reported when the map view has not finished loading
	ErrNotReady = errors.New("map view not ready")
)

// State is the lifecycle state of a Controller
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Controller
type Options struct {
	Basemap           string
	NextBasemap       string
	Zoom              int
	LabelColor        string
	RunwayMinScale    float64
	DensifyMaxSegment float64
}

func (o Options) withDefaults() Options {
	if o.Basemap == "" {
		o.Basemap = "gray-vector"
	}
	if o.NextBasemap == "" {
		o.NextBasemap = "hybrid"
	}
	if o.Zoom == 0 {
		o.Zoom = 2
	}
	if o.LabelColor == "" {
		o.LabelColor = "black"
	}
	if o.RunwayMinScale <= 0 {
		o.RunwayMinScale = DefaultRunwayMinScale
	}
	if o.DensifyMaxSegment <= 0 {
		o.DensifyMaxSegment = DefaultDensifyMaxSegment
	}
	return o
}

// Controller owns the map view and its route and runway layers.
//
// Mount loads the engine asynchronously; DrawRoute and ViewAirport only take
// effect once the controller is Ready and are dropped before that. Unmount
// detaches the view, and anything still loading afterwards is discarded.
type Controller struct {
	engine Engine
	opts   Options
	logger *logger.Logger

	mu         sync.Mutex
	state      State
	alive      bool
	ctx        context.Context
	cancel     context.CancelFunc
	view       View
	routeLine  *RouteLineLayer
	runways    *RunwayLayer
	route      *airport.Route
	labelColor string
	ready      chan struct{}

	// drawMu keeps the layer updates of one DrawRoute together; drawSeq
	// orders DrawRoute calls so only the latest one draws.
	drawMu  sync.Mutex
	drawSeq atomic.Uint64
}

// NewController creates an unmounted controller
func NewController(engine Engine, opts Options, log *logger.Logger) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		engine:     engine,
		opts:       opts,
		logger:     log.Named("mapview"),
		state:      StateUninitialized,
		labelColor: opts.LabelColor,
		ready:      make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready is closed when the controller reaches StateReady
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Mount starts loading the engine and binds a new view to container. It
// returns immediately; the controller stays Loading until everything is built.
// ctx bounds the lifetime of the mounted view.
func (c *Controller) Mount(ctx context.Context, container Container) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUninitialized:
	case StateDestroyed:
		return ErrDestroyed
	default:
		return ErrAlreadyMounted
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.alive = true
	c.state = StateLoading

	c.logger.Info("Mounting map view", logger.String("container", string(container)))

	go c.load(c.ctx, container)

	return nil
}

func (c *Controller) isAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// load builds the map, view, basemap toggle and layers. A failure leaves the
// controller Loading until it is unmounted.
func (c *Controller) load(ctx context.Context, container Container) {
	if err := c.engine.LoadModules(ctx, CoreModules...); err != nil {
		if c.isAlive() {
			c.logger.Error("Failed to load map modules", logger.Error(err))
		}
		return
	}
	if !c.isAlive() {
		return
	}

	m, err := c.engine.NewMap(MapOptions{Basemap: c.opts.Basemap})
	if err != nil {
		c.logger.Error("Failed to create map", logger.Error(err))
		return
	}

	view, err := c.engine.NewView(m, container, ViewOptions{Zoom: c.opts.Zoom})
	if err != nil {
		c.logger.Error("Failed to create view", logger.Error(err))
		return
	}

	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		view.SetContainer(NoContainer)
		return
	}
	c.view = view
	c.mu.Unlock()

	if err := c.engine.NewBasemapToggle(view, c.opts.NextBasemap); err != nil {
		c.logger.Error("Failed to create basemap toggle", logger.Error(err))
		return
	}

	var routeGraphics, runwayGraphics GraphicsLayer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.engine.LoadModules(gctx, ModuleGraphicsLayer); err != nil {
			return err
		}
		gl, err := c.engine.NewGraphicsLayer(LayerOptions{Title: "route"})
		routeGraphics = gl
		return err
	})
	g.Go(func() error {
		if err := c.engine.LoadModules(gctx, ModuleGraphicsLayer); err != nil {
			return err
		}
		gl, err := c.engine.NewGraphicsLayer(LayerOptions{Title: "runways", MinScale: c.opts.RunwayMinScale})
		runwayGraphics = gl
		return err
	})
	if err := g.Wait(); err != nil {
		if c.isAlive() {
			c.logger.Error("Failed to create map layers", logger.Error(err))
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return
	}

	// Runways go under the route line
	c.runways = NewRunwayLayer(c.engine, m, runwayGraphics, c.logger)
	c.routeLine = NewRouteLineLayer(c.engine, m, routeGraphics, c.opts.DensifyMaxSegment, c.logger)
	c.state = StateReady
	close(c.ready)

	c.logger.Info("Map view ready",
		logger.String("basemap", c.opts.Basemap),
		logger.Float64("runway_min_scale", c.opts.RunwayMinScale))
}

// Unmount detaches the view from its container and discards any loading still
// in flight. It is safe to call more than once.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDestroyed {
		return
	}

	c.alive = false
	if c.cancel != nil {
		c.cancel()
	}
	if c.view != nil {
		c.view.SetContainer(NoContainer)
		c.view = nil
	}
	c.routeLine = nil
	c.runways = nil
	c.route = nil
	c.state = StateDestroyed

	c.logger.Info("Map view unmounted")
}

type readyView struct {
	ctx       context.Context
	view      View
	routeLine *RouteLineLayer
	runways   *RunwayLayer
}

func (c *Controller) readyView() (readyView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return readyView{}, false
	}
	return readyView{ctx: c.ctx, view: c.view, routeLine: c.routeLine, runways: c.runways}, true
}

// drawContext is cancelled when either ctx is done or the view is unmounted
func drawContext(ctx, mounted context.Context) (context.Context, context.CancelFunc) {
	dctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(mounted, cancel)
	return dctx, func() {
		stop()
		cancel()
	}
}

// DrawRoute replaces the drawn route and the runways of both its airports.
// A nil route leaves the current drawing untouched; ClearRoute removes it.
// Draw failures are logged, never returned.
func (c *Controller) DrawRoute(ctx context.Context, route *airport.Route) {
	if route == nil {
		return
	}

	rv, ok := c.readyView()
	if !ok {
		c.logger.Debug("Dropping route draw, map view not ready")
		return
	}

	seq := c.drawSeq.Add(1)

	c.drawMu.Lock()
	defer c.drawMu.Unlock()

	if c.drawSeq.Load() != seq {
		return
	}

	dctx, cancel := drawContext(ctx, rv.ctx)
	defer cancel()

	color := c.LabelColor()

	// A failed route line keeps the previous drawing, so runways stay with it
	if err := rv.routeLine.Draw(dctx, route, color); err != nil {
		c.logDrawFailure("route", route, err)
		return
	}

	if c.drawSeq.Load() != seq {
		return
	}

	rv.runways.Clear()
	for _, apt := range []*airport.Airport{route.From, route.To} {
		if c.drawSeq.Load() != seq {
			return
		}
		if err := rv.runways.Draw(dctx, apt, color); err != nil {
			c.logDrawFailure("runways", route, err)
		}
	}

	c.mu.Lock()
	if c.alive && c.drawSeq.Load() == seq {
		c.route = route
	}
	c.mu.Unlock()
}

func (c *Controller) logDrawFailure(layer string, route *airport.Route, err error) {
	if !c.isAlive() {
		return
	}
	c.logger.Error("Failed to draw map layer",
		logger.String("layer", layer),
		logger.String("from", route.From.ICAO),
		logger.String("to", route.To.ICAO),
		logger.Error(err))
}

// ClearRoute removes the drawn route and runways and cancels pending draws
func (c *Controller) ClearRoute() {
	rv, ok := c.readyView()
	if !ok {
		return
	}

	// Invalidate commits in flight, then wait out the draw holding drawMu
	c.drawSeq.Add(1)
	rv.routeLine.Clear()
	rv.runways.Clear()

	c.drawMu.Lock()
	defer c.drawMu.Unlock()

	rv.routeLine.Clear()
	rv.runways.Clear()

	c.mu.Lock()
	c.route = nil
	c.mu.Unlock()
}

// CurrentRoute returns the route last drawn, if any
func (c *Controller) CurrentRoute() *airport.Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route
}

// LabelColor returns the color used for labels
func (c *Controller) LabelColor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.labelColor
}

// SetLabelColor changes the label color and redraws the current route with it
func (c *Controller) SetLabelColor(ctx context.Context, color string) {
	c.mu.Lock()
	c.labelColor = color
	route := c.route
	c.mu.Unlock()

	if route != nil {
		c.DrawRoute(ctx, route)
	}
}

// TargetScale is the scale ViewAirport zooms to: half the runway layer's
// minimum scale, so runways are visible once the view arrives.
func (c *Controller) TargetScale() float64 {
	if rv, ok := c.readyView(); ok {
		return rv.runways.MinScale() / 2
	}
	return c.opts.RunwayMinScale / 2
}

// ViewAirport centers the view on apt at TargetScale
func (c *Controller) ViewAirport(ctx context.Context, apt *airport.Airport) {
	if apt == nil {
		return
	}

	rv, ok := c.readyView()
	if !ok {
		c.logger.Debug("Dropping view change, map view not ready", logger.ICAO(apt.ICAO))
		return
	}

	dctx, cancel := drawContext(ctx, rv.ctx)
	defer cancel()

	target := Target{Center: apt.Position.Point(), Scale: rv.runways.MinScale() / 2}
	if err := rv.view.GoTo(dctx, target); err != nil {
		if c.isAlive() {
			c.logger.Error("Failed to move view",
				logger.ICAO(apt.ICAO),
				logger.Error(err))
		}
	}
}
