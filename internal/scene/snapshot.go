package scene

import (
	"github.com/paulmach/orb/geojson"
	"github.com/yegors/routemap/internal/geo"
	"github.com/yegors/routemap/internal/mapview"
)

// Scene is what a browser needs to render one view
type Scene struct {
	Container     string         `json:"container"`
	Basemap       string         `json:"basemap"`
	Zoom          int            `json:"zoom"`
	Center        *geo.Position  `json:"center,omitempty"`
	Scale         float64        `json:"scale,omitempty"`
	BasemapToggle *BasemapToggle `json:"basemapToggle,omitempty"`
	Layers        []LayerScene   `json:"layers"`
}

// LayerScene is one graphics layer as GeoJSON
type LayerScene struct {
	Title    string                     `json:"title"`
	MinScale float64                    `json:"minScale,omitempty"`
	Features *geojson.FeatureCollection `json:"features"`
}

// Snapshot renders the view bound to container
func (e *Engine) Snapshot(container mapview.Container) (*Scene, error) {
	v, err := e.ViewFor(container)
	if err != nil {
		return nil, err
	}
	return v.Snapshot(), nil
}

// Snapshot renders the view and its map's layers, bottom layer first
func (v *View) Snapshot() *Scene {
	v.mu.Lock()
	s := &Scene{
		Container: string(v.container),
		Basemap:   v.m.basemap,
		Zoom:      v.zoom,
		Scale:     v.scale,
	}
	if v.center != nil {
		center := geo.FromPoint(*v.center)
		s.Center = &center
	}
	if v.toggle != nil {
		toggle := *v.toggle
		s.BasemapToggle = &toggle
	}
	v.mu.Unlock()

	layers := v.m.Layers()
	s.Layers = make([]LayerScene, 0, len(layers))
	for _, l := range layers {
		s.Layers = append(s.Layers, LayerScene{
			Title:    l.title,
			MinScale: l.minScale,
			Features: featureCollection(l.Graphics()),
		})
	}

	return s
}

func featureCollection(graphics []mapview.Graphic) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, g := range graphics {
		if g.Geometry == nil {
			continue
		}
		fc.Append(feature(g))
	}
	return fc
}

func feature(g mapview.Graphic) *geojson.Feature {
	f := geojson.NewFeature(g.Geometry)
	if g.Symbol == nil {
		return f
	}

	f.Properties["symbol"] = g.Symbol.SymbolType()
	switch s := g.Symbol.(type) {
	case mapview.MarkerSymbol:
		f.Properties["style"] = s.Style
		f.Properties["size"] = s.Size
		if s.Color != "" {
			f.Properties["color"] = s.Color
		}
	case mapview.LineSymbol:
		f.Properties["width"] = s.Width
		if s.Color != "" {
			f.Properties["color"] = s.Color
		}
	case mapview.TextSymbol:
		f.Properties["text"] = s.Text
		f.Properties["color"] = s.Color
		f.Properties["angle"] = s.Angle
		f.Properties["yoffset"] = s.YOffset
		f.Properties["font"] = s.Font
	}

	return f
}
