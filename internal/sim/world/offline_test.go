package world

import (
	"testing"

	"isovox.app/internal/persistence/snapshot"
	"isovox.app/internal/render"
)

func newTestWorkbench(t *testing.T, seed string, ovl *snapshot.OverlayV1) *Workbench {
	t.Helper()
	wb, err := NewWorkbench(EngineConfig{Seed: seed, Tuning: testTuning(), Overlay: ovl}, testCatalogs(t))
	if err != nil {
		t.Fatalf("new workbench: %v", err)
	}
	return wb
}

func TestWorkbenchMatchesEngineChunk(t *testing.T) {
	eng, _ := newTestEngine(t, "workbench-parity")
	wb := newTestWorkbench(t, "workbench-parity", nil)

	got := wb.Chunk(ChunkCoord{})
	want := eng.currentChunk()

	if got.Size != want.Size || got.Height != want.Height || got.Biome != want.Biome {
		t.Fatalf("chunk shape mismatch: workbench %dx%d %s, engine %dx%d %s",
			got.Size, got.Height, got.Biome, want.Size, want.Height, want.Biome)
	}
	if got.Digest() != want.Digest() {
		t.Fatalf("workbench grid diverged from the engine's")
	}
}

func TestWorkbenchRepliesOverlayEdits(t *testing.T) {
	const seed = "workbench-overlay"
	base := newTestWorkbench(t, seed, nil).Chunk(ChunkCoord{})
	mats := testMaterials(t)

	zTop := topSolidZ(base, mats.air, 3, 3)
	if zTop < 0 || zTop+2 >= base.Height {
		t.Fatalf("column (3,3) unusable: top %d height %d", zTop, base.Height)
	}

	ovl := &snapshot.OverlayV1{
		Header: snapshot.Header{Version: 1, Seed: seed, Tick: 90},
		Chunks: []snapshot.ChunkEditsV1{{
			Key: "0,0",
			Edits: []snapshot.EditV1{
				{Key: vkey(3, 3, zTop), Cleared: true},
				{Key: vkey(3, 3, zTop+2), Type: "STONE"},
			},
		}},
	}

	wb := newTestWorkbench(t, seed, ovl)
	c := wb.Chunk(ChunkCoord{})

	if got := c.At(3, 3, zTop).Type; got != mats.air {
		t.Fatalf("cleared voxel regenerated as %s", wb.MaterialName(got))
	}
	placed := c.At(3, 3, zTop+2)
	if wb.MaterialName(placed.Type) != "STONE" {
		t.Fatalf("placed voxel came back as %s", wb.MaterialName(placed.Type))
	}
	if placed.Durability != mats.durability[placed.Type] {
		t.Fatalf("placed STONE durability = %d, want catalog default %d",
			placed.Durability, mats.durability[placed.Type])
	}
}

func TestWorkbenchRejectsForeignSeedOverlay(t *testing.T) {
	ovl := &snapshot.OverlayV1{Header: snapshot.Header{Version: 1, Seed: "other", Tick: 10}}
	_, err := NewWorkbench(EngineConfig{Seed: "mine", Tuning: testTuning(), Overlay: ovl}, testCatalogs(t))
	if err == nil {
		t.Fatalf("workbench accepted an overlay for a different seed")
	}
}

func TestWorkbenchRenderDrawsVoxels(t *testing.T) {
	wb := newTestWorkbench(t, "workbench-render", nil)
	c := wb.Chunk(ChunkCoord{})

	bm := wb.Render(c, render.DefaultCamera(c.Height))
	if bm.Voxels == 0 {
		t.Fatalf("render drew no voxels")
	}
	if b := bm.Img.Bounds(); b.Dx() < 2 || b.Dy() < 2 {
		t.Fatalf("render produced a degenerate bitmap %v", b)
	}
}
