package world

import (
	"image"
	"path/filepath"
	"testing"

	"isovox.app/internal/sim/catalogs"
	"isovox.app/internal/sim/tuning"
)

// fakeSurface collects composed frames.
type fakeSurface struct {
	w, h     int
	presents int
	last     *image.RGBA
}

func (s *fakeSurface) Size() (int, int) { return s.w, s.h }

func (s *fakeSurface) Present(img *image.RGBA) error {
	s.presents++
	s.last = img
	return nil
}

func newTestSurface() *fakeSurface { return &fakeSurface{w: 320, h: 240} }

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func testMaterials(t *testing.T) *materialTable {
	t.Helper()
	return newMaterialTable(testCatalogs(t).Materials)
}

// testTuning shrinks the world so per-test generation and relighting
// stay cheap.
func testTuning() tuning.Tuning {
	tun := tuning.Defaults()
	tun.WorldHeight = 48
	tun.ChunkSizeMin = 20
	tun.ChunkSizeMax = 24
	tun.SpawnSafeRadius = 6
	tun.MiningRate = 1
	tun.FellingDelayTicks = 2
	tun.LeafDecayDelayTicks = 4
	tun.LeafDecayJitter = 3
	tun.CacheChunks = 4
	tun.AutosaveEveryTicks = 0
	tun.StatsEveryTicks = 5
	return tun
}

func newTestEngine(t *testing.T, seed string) (*Engine, *fakeSurface) {
	t.Helper()
	surf := newTestSurface()
	eng, err := NewEngine(EngineConfig{Seed: seed, Tuning: testTuning()}, testCatalogs(t), surf, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng, surf
}

func materialID(t *testing.T, e *Engine, name string) uint16 {
	t.Helper()
	id, ok := e.mats.index[name]
	if !ok {
		t.Fatalf("material %s missing from palette", name)
	}
	return id
}

func topSolidZ(c *Chunk, air uint16, x, y int) int {
	for z := c.Height - 1; z >= 0; z-- {
		if c.At(x, y, z).Type != air {
			return z
		}
	}
	return -1
}

// frameXY maps a voxel's top-face center to frame pixel coordinates,
// the inverse of the cursor's anchor arithmetic.
func frameXY(e *Engine, c *Chunk, x, y, z int) (float64, float64) {
	u, v := e.cam.RotateIn(x, y, c.Size)
	sx, sy := e.cam.Project(u, v, z)
	ax, ay := e.frameAnchor(c)
	w, h := e.surface.Size()
	return sx + float64(w/2) - float64(int(ax)), sy + float64(h/2) - float64(int(ay))
}
