package mapview

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/yegors/routemap/internal/airport"
	"github.com/yegors/routemap/internal/geo"
	"github.com/yegors/routemap/pkg/logger"
)

// DefaultRunwayMinScale hides runways when zoomed out past 1:200 000
const DefaultRunwayMinScale = 200_000

var runwayModules = []string{
	ModuleLineSymbol,
	ModulePoint,
	ModulePolyline,
	ModuleTextSymbol,
	ModuleGraphic,
}

// RunwayLayer draws runway centerlines with a label at each end, rotated to
// the runway heading. It does not clear itself between airports.
type RunwayLayer struct {
	*layer
	engine Engine
	logger *logger.Logger
}

// NewRunwayLayer attaches graphics to m and returns the runway layer drawing into it
func NewRunwayLayer(engine Engine, m Map, graphics GraphicsLayer, logger *logger.Logger) *RunwayLayer {
	return &RunwayLayer{
		layer:  newLayer(m, graphics),
		engine: engine,
		logger: logger.Named("runway-layer"),
	}
}

// Draw adds every complete runway of apt. Runways missing an end are skipped.
func (l *RunwayLayer) Draw(ctx context.Context, apt *airport.Airport, labelColor string) error {
	if apt == nil || len(apt.Runways) == 0 {
		return nil
	}

	gen := l.begin()

	if err := l.engine.LoadModules(ctx, runwayModules...); err != nil {
		return fmt.Errorf("failed to load drawing modules: %w", err)
	}

	runwaySymbol := LineSymbol{Width: 3, Color: "black"}

	var graphics []Graphic
	skipped := 0
	for _, rwy := range apt.Runways {
		if !rwy.Complete() {
			skipped++
			continue
		}

		hePos := rwy.HEMarker.Position.Point()
		lePos := rwy.LEMarker.Position.Point()

		angle := geo.Bearing(rwy.HEMarker.Position, rwy.LEMarker.Position)

		graphics = append(graphics,
			Graphic{Geometry: orb.LineString{hePos, lePos}, Symbol: runwaySymbol},
			Graphic{Geometry: hePos, Symbol: runwayLabel(rwy.HEMarker.Name, labelColor, angle)},
			Graphic{Geometry: lePos, Symbol: runwayLabel(rwy.LEMarker.Name, labelColor, math.Mod(angle+180, 360))},
		)
	}

	if !l.commit(ctx, gen, graphics) {
		l.logger.Debug("Runway draw superseded", logger.ICAO(apt.ICAO))
		return nil
	}

	l.logger.Debug("Runways drawn",
		logger.ICAO(apt.ICAO),
		logger.Int("drawn", len(apt.Runways)-skipped),
		logger.Int("skipped", skipped))

	return nil
}

func runwayLabel(name, color string, angle float64) TextSymbol {
	return TextSymbol{
		Text:    name,
		Color:   color,
		Angle:   angle,
		YOffset: -10,
		Font:    labelFont,
	}
}
