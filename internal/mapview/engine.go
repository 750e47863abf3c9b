// Package mapview draws flight routes and airport runway layouts on a
// geospatial view. The mapping engine itself is injected through Engine so
// the controller and its layers run against any implementation, including
// the in-process scene engine and test fakes.
package mapview

import (
	"context"

	"github.com/paulmach/orb"
)

// Engine module names. An engine resolves these in LoadModules before the
// matching constructors may be used.
const (
	ModuleMap            = "Map"
	ModuleMapView        = "views/MapView"
	ModuleBasemapToggle  = "widgets/BasemapToggle"
	ModuleGraphicsLayer  = "layers/GraphicsLayer"
	ModulePoint          = "geometry/Point"
	ModulePolyline       = "geometry/Polyline"
	ModuleGeometryEngine = "geometry/geometryEngine"
	ModuleMarkerSymbol   = "symbols/SimpleMarkerSymbol"
	ModuleLineSymbol     = "symbols/SimpleLineSymbol"
	ModuleTextSymbol     = "symbols/TextSymbol"
	ModuleGraphic        = "Graphic"
)

// CoreModules are resolved once while mounting
var CoreModules = []string{ModuleMap, ModuleMapView, ModuleBasemapToggle, ModuleGraphicsLayer}

// Container identifies the page element a view renders into
type Container string

// NoContainer detaches a view from the page
const NoContainer Container = ""

// MapOptions configures a new map
type MapOptions struct {
	Basemap string
}

// ViewOptions configures a new view
type ViewOptions struct {
	Zoom int
}

// LayerOptions configures a new graphics layer
type LayerOptions struct {
	Title string
	// MinScale is the scale above which the layer is hidden. Zero means always visible.
	MinScale float64
}

// Target is a view navigation target
type Target struct {
	Center orb.Point
	Scale  float64
}

// Engine is the capability set the map view needs from a mapping engine
type Engine interface {
	// LoadModules blocks until the named modules are available or ctx is done
	LoadModules(ctx context.Context, names ...string) error
	NewMap(opts MapOptions) (Map, error)
	NewView(m Map, container Container, opts ViewOptions) (View, error)
	NewBasemapToggle(v View, nextBasemap string) error
	NewGraphicsLayer(opts LayerOptions) (GraphicsLayer, error)
	GeodesicDensify(line orb.LineString, maxSegmentLength float64) (orb.LineString, error)
}

// Map holds the layers drawn in a view
type Map interface {
	AddLayer(layer GraphicsLayer)
}

// View renders a map into a container
type View interface {
	GoTo(ctx context.Context, target Target) error
	SetContainer(container Container)
	Container() Container
}

// GraphicsLayer is a clearable collection of graphics.
// Implementations must be safe for concurrent use.
type GraphicsLayer interface {
	Add(graphics ...Graphic)
	RemoveAll()
	Graphics() []Graphic
	MinScale() float64
}

// Graphic is a geometry drawn with a symbol
type Graphic struct {
	Geometry orb.Geometry
	Symbol   Symbol
}

// Symbol describes how a geometry is drawn
type Symbol interface {
	SymbolType() string
}

// Font of a text symbol
type Font struct {
	Size   float64 `json:"size"`
	Family string  `json:"family"`
}

// MarkerSymbol draws a point
type MarkerSymbol struct {
	Style string `json:"style"` // circle, diamond, square, ...
	Size  string `json:"size"`
	Color string `json:"color,omitempty"`
}

// LineSymbol draws a polyline
type LineSymbol struct {
	Width float64 `json:"width"`
	Color string  `json:"color,omitempty"`
}

// TextSymbol draws a label at a point
type TextSymbol struct {
	Text    string  `json:"text"`
	Color   string  `json:"color,omitempty"`
	Angle   float64 `json:"angle"`
	YOffset float64 `json:"yoffset"`
	Font    Font    `json:"font"`
}

func (MarkerSymbol) SymbolType() string { return "simple-marker" }
func (LineSymbol) SymbolType() string   { return "simple-line" }
func (TextSymbol) SymbolType() string   { return "text" }

var labelFont = Font{Size: 8, Family: "sans-serif"}
