package mapview

import (
	"context"
	"sync"
)

// layer owns one graphics layer attached to a map. Drawing layers embed it.
//
// Every draw captures a generation before it suspends on the engine and
// commits only if the generation is unchanged, so a draw that was cleared or
// replaced while loading never reaches the map.
type layer struct {
	graphics GraphicsLayer

	mu  sync.Mutex
	gen uint64
}

func newLayer(m Map, graphics GraphicsLayer) *layer {
	m.AddLayer(graphics)
	return &layer{graphics: graphics}
}

// Clear removes every graphic of the layer. Clearing an empty layer is a no-op.
func (l *layer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++
	l.graphics.RemoveAll()
}

// Len returns the number of graphics currently on the layer
func (l *layer) Len() int {
	return len(l.graphics.Graphics())
}

// Graphics returns a copy of the graphics currently on the layer
func (l *layer) Graphics() []Graphic {
	return l.graphics.Graphics()
}

// MinScale is the scale above which the layer is hidden
func (l *layer) MinScale() float64 {
	return l.graphics.MinScale()
}

// beginReplace starts a draw that replaces the layer content on commit. Draws
// started earlier can no longer commit.
func (l *layer) beginReplace() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++
	return l.gen
}

// begin starts a draw that adds to the current content
func (l *layer) begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.gen
}

// replace swaps the layer content for graphics in one step if the draw
// started at gen is still current and ctx is live
func (l *layer) replace(ctx context.Context, gen uint64, graphics []Graphic) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen || ctx.Err() != nil {
		return false
	}
	l.graphics.RemoveAll()
	l.graphics.Add(graphics...)
	return true
}

// commit adds graphics in one step if the draw started at gen is still current
// and ctx is live. It reports whether the graphics were added.
func (l *layer) commit(ctx context.Context, gen uint64, graphics []Graphic) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen || ctx.Err() != nil {
		return false
	}
	if len(graphics) > 0 {
		l.graphics.Add(graphics...)
	}
	return true
}
