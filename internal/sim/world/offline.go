package world

import (
	"fmt"

	"isovox.app/internal/render"
	"isovox.app/internal/sim/catalogs"
	"isovox.app/internal/sim/terrain"
	"isovox.app/internal/worldtime"
)

// Workbench builds fully lit chunks outside an engine session, for
// offline tooling. It shares the session's generation, overlay replay
// and lighting paths, so a chunk it produces matches what a session
// with the same inputs would load. Not safe for concurrent use.
type Workbench struct {
	mats *materialTable
	gen  *terrain.Generator
	ovl  *overlay
	sky  uint8
}

// NewWorkbench takes the same config as a live session; cfg.Logger
// reports overlay edits that name unknown materials. The sky light
// defaults to the overlay's saved tick (midday for a fresh world).
func NewWorkbench(cfg EngineConfig, cats *catalogs.Catalogs) (*Workbench, error) {
	if cats == nil {
		return nil, fmt.Errorf("workbench: catalogs are required")
	}
	pal, err := resolvePalette(cats.Materials)
	if err != nil {
		return nil, fmt.Errorf("workbench: %w", err)
	}
	mats := newMaterialTable(cats.Materials)

	if snap := cfg.Overlay; snap != nil && snap.Header.Seed != "" && snap.Header.Seed != cfg.Seed {
		return nil, fmt.Errorf("workbench: overlay snapshot is for seed %q, not %q", snap.Header.Seed, cfg.Seed)
	}
	ovl, skipped := importOverlay(cfg.Overlay, mats)
	if skipped > 0 && cfg.Logger != nil {
		cfg.Logger.Printf("overlay: dropped %d edits naming unknown materials", skipped)
	}

	clock := worldtime.NewClock(cfg.Tuning.DayTicks)
	if cfg.Overlay != nil {
		clock.SetTick(cfg.Overlay.Header.Tick)
	}

	return &Workbench{
		mats: mats,
		gen: terrain.NewGenerator(cfg.Seed, terrain.Config{
			WorldHeight:     cfg.Tuning.WorldHeight,
			SizeMin:         cfg.Tuning.ChunkSizeMin,
			SizeMax:         cfg.Tuning.ChunkSizeMax,
			SpawnSafeRadius: cfg.Tuning.SpawnSafeRadius,
		}, pal),
		ovl: ovl,
		sky: clock.SkyLight(),
	}, nil
}

// SetSkyLight overrides the sky seed for subsequent Chunk calls.
// Values clamp to the 0..15 voxel light scale.
func (wb *Workbench) SetSkyLight(l int) {
	if l < 0 {
		l = 0
	}
	if l > 15 {
		l = 15
	}
	wb.sky = uint8(l)
}

// Chunk generates the chunk at coord, replays any overlay edits onto
// it and lights it.
func (wb *Workbench) Chunk(coord ChunkCoord) *Chunk {
	neighbors := wb.gen.Classifier().NeighborBiomes(coord.CX, coord.CY)
	d := wb.gen.Generate(coord.CX, coord.CY, neighbors)
	c := newChunk(d, wb.mats)
	wb.ovl.applyTo(c, wb.mats)
	relight(c, wb.mats, wb.sky)
	return c
}

// Render rasterizes a workbench chunk under cam.
func (wb *Workbench) Render(c *Chunk, cam render.Camera) *render.Bitmap {
	return render.RenderChunk(chunkView{c: c, mats: wb.mats}, cam)
}

// MaterialName resolves a palette id for display.
func (wb *Workbench) MaterialName(id uint16) string { return wb.mats.name(id) }
