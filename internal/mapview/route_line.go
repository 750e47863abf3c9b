package mapview

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/yegors/routemap/internal/airport"
	"github.com/yegors/routemap/pkg/logger"
)

// DefaultDensifyMaxSegment is the geodesic sampling interval in engine units (meters)
const DefaultDensifyMaxSegment = 10_000

var routeLineModules = []string{
	ModuleMarkerSymbol,
	ModuleLineSymbol,
	ModuleTextSymbol,
	ModulePolyline,
	ModuleGeometryEngine,
	ModulePoint,
	ModuleGraphic,
}

// RouteLineLayer draws a single route: the geodesic line between both
// airports, a marker at each end and the ICAO code of each airport.
type RouteLineLayer struct {
	*layer
	engine     Engine
	maxSegment float64
	logger     *logger.Logger
}

// NewRouteLineLayer attaches graphics to m and returns the route layer drawing into it
func NewRouteLineLayer(engine Engine, m Map, graphics GraphicsLayer, maxSegment float64, logger *logger.Logger) *RouteLineLayer {
	if maxSegment <= 0 {
		maxSegment = DefaultDensifyMaxSegment
	}
	return &RouteLineLayer{
		layer:      newLayer(m, graphics),
		engine:     engine,
		maxSegment: maxSegment,
		logger:     logger.Named("route-line"),
	}
}

// Draw replaces the layer content with route. On error the layer keeps its
// previous content; it never shows part of a route.
func (l *RouteLineLayer) Draw(ctx context.Context, route *airport.Route, labelColor string) error {
	if route == nil || route.From == nil || route.To == nil {
		return errors.New("route needs both airports")
	}

	gen := l.beginReplace()

	if err := l.engine.LoadModules(ctx, routeLineModules...); err != nil {
		return fmt.Errorf("failed to load drawing modules: %w", err)
	}

	dep := route.From.Position.Point()
	arr := route.To.Position.Point()

	path := orb.LineString{dep, arr}
	line, err := l.engine.GeodesicDensify(path, l.maxSegment)
	if err != nil {
		return fmt.Errorf("failed to densify route line: %w", err)
	}

	posSymbol := MarkerSymbol{Style: "diamond", Size: "10px"}
	label := func(icao string) TextSymbol {
		return TextSymbol{Text: icao, Color: labelColor, YOffset: 7, Font: labelFont}
	}

	graphics := []Graphic{
		{Geometry: dep, Symbol: posSymbol},
		{Geometry: arr, Symbol: posSymbol},
		{Geometry: line, Symbol: LineSymbol{Width: 2}},
		{Geometry: dep, Symbol: label(route.From.ICAO)},
		{Geometry: arr, Symbol: label(route.To.ICAO)},
	}

	if !l.replace(ctx, gen, graphics) {
		l.logger.Debug("Route draw superseded",
			logger.String("from", route.From.ICAO),
			logger.String("to", route.To.ICAO))
		return nil
	}

	l.logger.Debug("Route drawn",
		logger.String("from", route.From.ICAO),
		logger.String("to", route.To.ICAO),
		logger.Int("line_vertices", len(line)))

	return nil
}
