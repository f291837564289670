package world

import "time"

// emitStats samples frames rendered since the last sample into a rate
// plus the visible voxel count of the current raster.
func (e *Engine) emitStats() {
	defer func() {
		e.frames = 0
		e.statsMark = time.Now()
	}()
	if e.OnStatsUpdate == nil {
		return
	}

	fps := 0.0
	if elapsed := time.Since(e.statsMark).Seconds(); elapsed > 0 {
		fps = float64(e.frames) / elapsed
	}
	visible := 0
	if bm := e.currentChunk().bitmap; bm != nil {
		visible = bm.Voxels
	}
	e.OnStatsUpdate(fps, visible, e.current)
}
