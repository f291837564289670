package world

import (
	"isovox.app/internal/render"
	"isovox.app/internal/worldtime"
)

// frameAnchor is the chunk-projection-space point the compositor puts
// at frame center: the rotated chunk center lifted to the mean surface
// height. Cursor picking inverts through the same anchor.
func (e *Engine) frameAnchor(c *Chunk) (float64, float64) {
	mid := c.Size / 2
	u, v := e.cam.RotateIn(mid, mid, c.Size)
	return e.cam.Project(u, v, int(c.MeanSurface+0.5))
}

// renderFrame rebuilds the chunk raster if it went stale, composites a
// frame over the sky and hands it to the surface. The raster is cached
// under the camera key; ambient is applied at composite time so the
// cache survives the day cycle.
func (e *Engine) renderFrame(state worldtime.State) {
	c := e.currentChunk()
	key := e.cam.Key()
	if c.dirty || c.bitmap == nil || c.bitmapKey != key {
		c.bitmap = render.RenderChunk(chunkView{c: c, mats: e.mats}, e.cam)
		c.bitmapKey = key
		c.dirty = false
	}

	w, h := e.surface.Size()
	ax, ay := e.frameAnchor(c)
	frame := render.ComposeFrame(w, h, c.bitmap, ax, ay, state.Ambient)
	if err := e.surface.Present(frame); err != nil {
		e.logf("present: %v", err)
	}
	e.frames++
}
