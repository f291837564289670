package world

import (
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"isovox.app/internal/persistence/snapshot"
	"isovox.app/internal/protocol"
	"isovox.app/internal/worldtime"
)

func TestNewEngineRequiresSurfaceAndCatalogs(t *testing.T) {
	cats := testCatalogs(t)
	if _, err := NewEngine(EngineConfig{Seed: "x", Tuning: testTuning()}, cats, nil, nil); err == nil {
		t.Fatalf("engine accepted a nil surface")
	}
	if _, err := NewEngine(EngineConfig{Seed: "x", Tuning: testTuning()}, nil, newTestSurface(), nil); err == nil {
		t.Fatalf("engine accepted nil catalogs")
	}
}

func TestEngineWorldsAreSeedDeterministic(t *testing.T) {
	a, _ := newTestEngine(t, "det-seed")
	b, _ := newTestEngine(t, "det-seed")

	ca, cb := a.currentChunk(), b.currentChunk()
	if ca.Size != cb.Size || ca.Biome != cb.Biome {
		t.Fatalf("origin chunks differ: %dx%d %v vs %dx%d %v",
			ca.Size, ca.Height, ca.Biome, cb.Size, cb.Height, cb.Biome)
	}
	if ca.Digest() != cb.Digest() {
		t.Fatalf("same seed generated different origin chunks")
	}

	a.Navigate(East)
	b.Navigate(East)
	if a.currentChunk().Digest() != b.currentChunk().Digest() {
		t.Fatalf("same seed diverged one chunk east")
	}

	other, _ := newTestEngine(t, "det-other")
	if other.currentChunk().Digest() == ca.Digest() {
		t.Fatalf("different seeds agreed on the origin chunk")
	}
}

// plainSurfacePos finds a generated surface voxel that is not part of
// a tree, so destroying it has no scheduled follow-up.
func plainSurfacePos(t *testing.T, e *Engine, c *Chunk) [3]int {
	t.Helper()
	for y := 0; y < c.Size; y++ {
		for x := 0; x < c.Size; x++ {
			z := topSolidZ(c, e.mats.air, x, y)
			if z <= 0 {
				continue
			}
			typ := c.At(x, y, z).Type
			if e.mats.trunk[typ] || e.mats.canopy[typ] {
				continue
			}
			return [3]int{x, y, z}
		}
	}
	t.Fatalf("no plain surface voxel in the origin chunk")
	return [3]int{}
}

func TestEngineOverlayRoundTrip(t *testing.T) {
	a, _ := newTestEngine(t, "persist")
	c := a.currentChunk()
	pos := plainSurfacePos(t, a, c)

	a.destroyVoxel(c, pos, a.clock.Tick())
	for i := 0; i < 5; i++ {
		a.Step()
	}

	snap := a.ExportOverlay()
	if snap.Header.Seed != "persist" || snap.Header.Tick != a.clock.Tick() {
		t.Fatalf("export header = %+v", snap.Header)
	}

	b, err := NewEngine(EngineConfig{Seed: "persist", Tuning: testTuning(), Overlay: &snap},
		testCatalogs(t), newTestSurface(), nil)
	if err != nil {
		t.Fatalf("restore engine: %v", err)
	}
	if b.clock.Tick() != snap.Header.Tick {
		t.Fatalf("tick = %d, want %d restored", b.clock.Tick(), snap.Header.Tick)
	}
	if b.EditCount() != 1 {
		t.Fatalf("EditCount = %d after restore, want 1", b.EditCount())
	}
	if got := b.currentChunk().At(pos[0], pos[1], pos[2]).Type; got != b.mats.air {
		t.Fatalf("restored world still holds %d at the mined cell", got)
	}

	fresh, _ := newTestEngine(t, "persist")
	if got := fresh.currentChunk().At(pos[0], pos[1], pos[2]).Type; got == fresh.mats.air {
		t.Fatalf("fresh world is already empty at the mined cell")
	}
}

func TestEngineRejectsForeignOverlay(t *testing.T) {
	snap := snapshot.OverlayV1{
		Header: snapshot.Header{Version: 1, Seed: "someone-else", Tick: 77},
		Chunks: []snapshot.ChunkEditsV1{{Key: "0,0", Edits: []snapshot.EditV1{{Key: "1,1,1", Cleared: true}}}},
	}
	var buf strings.Builder
	e, err := NewEngine(EngineConfig{
		Seed:    "mine",
		Tuning:  testTuning(),
		Overlay: &snap,
		Logger:  log.New(&buf, "", 0),
	}, testCatalogs(t), newTestSurface(), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if e.EditCount() != 0 {
		t.Fatalf("EditCount = %d, want a foreign overlay ignored", e.EditCount())
	}
	if e.clock.Tick() != 0 {
		t.Fatalf("tick = %d, want 0 for an ignored overlay", e.clock.Tick())
	}
	if !strings.Contains(buf.String(), "starting empty") {
		t.Fatalf("mismatch not logged: %q", buf.String())
	}
}

func TestEngineDropsUnknownOverlayMaterials(t *testing.T) {
	snap := snapshot.OverlayV1{
		Header: snapshot.Header{Version: 1, Seed: "drop", Tick: 5},
		Chunks: []snapshot.ChunkEditsV1{{Key: "0,0", Edits: []snapshot.EditV1{
			{Key: "1,1,1", Type: "MYSTERY_ORE"},
			{Key: "2,2,2", Cleared: true},
		}}},
	}
	var buf strings.Builder
	e, err := NewEngine(EngineConfig{
		Seed:    "drop",
		Tuning:  testTuning(),
		Overlay: &snap,
		Logger:  log.New(&buf, "", 0),
	}, testCatalogs(t), newTestSurface(), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if e.EditCount() != 1 {
		t.Fatalf("EditCount = %d, want only the cleared edit", e.EditCount())
	}
	if !strings.Contains(buf.String(), "dropped 1") {
		t.Fatalf("skip not logged: %q", buf.String())
	}
	if e.clock.Tick() != 5 {
		t.Fatalf("tick = %d, want 5 restored", e.clock.Tick())
	}
}

func TestNavigateTracksExploration(t *testing.T) {
	e, _ := newTestEngine(t, "explore")
	if got := e.Navigate(East); got != (ChunkCoord{CX: 1, CY: 0}) {
		t.Fatalf("east landed at %+v", got)
	}
	if got := e.Navigate(South); got != (ChunkCoord{CX: 1, CY: 1}) {
		t.Fatalf("south landed at %+v", got)
	}

	keys, current := e.ExplorationData()
	want := []string{"0,0", "1,0", "1,1"}
	if len(keys) != len(want) {
		t.Fatalf("visited = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("visited = %v, want %v", keys, want)
		}
	}
	if current != (ChunkCoord{CX: 1, CY: 1}) {
		t.Fatalf("current = %+v", current)
	}

	if got := e.Navigate(Direction("Q")); got != current {
		t.Fatalf("bogus direction moved the viewport to %+v", got)
	}
	if after, _ := e.ExplorationData(); len(after) != len(want) {
		t.Fatalf("bogus direction grew the visited set: %v", after)
	}
}

func TestCameraControlsClamp(t *testing.T) {
	e, _ := newTestEngine(t, "camera")

	e.SetZoom(500)
	if e.Camera().Zoom != 48 {
		t.Fatalf("zoom = %v, want clamped to 48", e.Camera().Zoom)
	}
	e.SetZoom(1)
	if e.Camera().Zoom != 6 {
		t.Fatalf("zoom = %v, want clamped to 6", e.Camera().Zoom)
	}
	e.SetPitch(3)
	if e.Camera().Pitch != 1 {
		t.Fatalf("pitch = %v, want clamped to 1", e.Camera().Pitch)
	}
	e.SetPitch(0.01)
	if e.Camera().Pitch != 0.25 {
		t.Fatalf("pitch = %v, want clamped to 0.25", e.Camera().Pitch)
	}
	e.SetCeiling(0)
	if e.Camera().Ceiling != 1 {
		t.Fatalf("ceiling = %v, want clamped to 1", e.Camera().Ceiling)
	}
	e.SetCeiling(9999)
	if e.Camera().Ceiling != e.tun.WorldHeight {
		t.Fatalf("ceiling = %v, want clamped to %d", e.Camera().Ceiling, e.tun.WorldHeight)
	}
	e.RotateCamera(-1)
	if e.Camera().Rotation != 3 {
		t.Fatalf("rotation = %v, want -1 to wrap to 3", e.Camera().Rotation)
	}
}

func TestApplyMsgRoutesClientMessages(t *testing.T) {
	e, _ := newTestEngine(t, "route")

	e.applyMsg(protocol.ClientMsg{Type: protocol.TypeMode, Mode: "edit"})
	if e.Mode() != ModeEdit {
		t.Fatalf("mode = %v", e.Mode())
	}

	c, top := plantPillar(e, materialID(t, e, "STONE"))
	fx, fy := frameXY(e, c, 5, 5, top)
	hw, hh, zu := faceMetrics(e)

	e.applyMsg(protocol.ClientMsg{Type: protocol.TypePointer, X: fx + hw/2, Y: fy + hh/2 + zu/2, Kind: "touch"})
	if cur := e.CursorState(); !cur.OK || cur.Pos != [3]int{5, 5, top} {
		t.Fatalf("pointer message missed: %+v", cur)
	}
	if e.pointerKind != PointerTouch {
		t.Fatalf("pointer kind = %v", e.pointerKind)
	}

	sand := materialID(t, e, "SAND")
	e.applyMsg(protocol.ClientMsg{Type: protocol.TypeSelect, Material: "SAND"})
	if e.SelectedType() != sand {
		t.Fatalf("selected = %d, want %d", e.SelectedType(), sand)
	}
	e.applyMsg(protocol.ClientMsg{Type: protocol.TypeSelect, Material: "NOT_A_MATERIAL"})
	if e.SelectedType() != sand {
		t.Fatalf("unknown material changed the selection to %d", e.SelectedType())
	}

	e.applyMsg(protocol.ClientMsg{Type: protocol.TypePlace})
	if got := c.At(6, 5, top).Type; got != sand {
		t.Fatalf("place message put %d at the face", got)
	}

	e.applyMsg(protocol.ClientMsg{Type: protocol.TypeInput, Down: true})
	if !e.miningHeld {
		t.Fatalf("input message did not press the button")
	}

	e.applyMsg(protocol.ClientMsg{Type: protocol.TypeCamera, Rotate: 1, Zoom: 20})
	if cam := e.Camera(); cam.Rotation != 1 || cam.Zoom != 20 {
		t.Fatalf("camera message applied %+v", cam)
	}

	e.applyMsg(protocol.ClientMsg{Type: protocol.TypeNavigate, Direction: "E"})
	if e.current != (ChunkCoord{CX: 1, CY: 0}) {
		t.Fatalf("navigate message landed at %+v", e.current)
	}

	e.applyMsg(protocol.ClientMsg{Type: "BOGUS"})
}

func TestAutosaveDeliversLatestSnapshot(t *testing.T) {
	tun := testTuning()
	tun.AutosaveEveryTicks = 3
	e, err := NewEngine(EngineConfig{Seed: "autosave", Tuning: tun}, testCatalogs(t), newTestSurface(), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	// Saves fire at ticks 3 and 6; an undrained channel keeps only the
	// newest.
	for i := 0; i < 7; i++ {
		e.Step()
	}
	select {
	case snap := <-e.Snapshots():
		if snap.Header.Tick != 6 || snap.Header.Seed != "autosave" {
			t.Fatalf("snapshot header = %+v, want tick 6", snap.Header)
		}
	default:
		t.Fatalf("no autosave delivered")
	}
	select {
	case snap := <-e.Snapshots():
		t.Fatalf("extra autosave queued: %+v", snap.Header)
	default:
	}
}

func TestStatsAndTimeCallbacks(t *testing.T) {
	e, _ := newTestEngine(t, "stats")

	var ticks []int64
	e.OnTimeUpdate = func(s worldtime.State) { ticks = append(ticks, s.Tick) }

	stats := 0
	visible := 0
	var coord ChunkCoord
	e.OnStatsUpdate = func(fps float64, visibleVoxels int, at ChunkCoord) {
		if fps < 0 {
			t.Fatalf("fps = %v", fps)
		}
		stats++
		visible = visibleVoxels
		coord = at
	}

	for i := 0; i < 5; i++ {
		e.Step()
	}
	if len(ticks) != 5 || ticks[0] != 1 || ticks[4] != 5 {
		t.Fatalf("time callbacks = %v, want ticks 1..5", ticks)
	}
	if stats != 1 {
		t.Fatalf("stats fired %d times in 5 ticks, want 1", stats)
	}
	if visible <= 0 {
		t.Fatalf("visible voxels = %d, want terrain on screen", visible)
	}
	if coord != (ChunkCoord{}) {
		t.Fatalf("stats coord = %+v, want the origin", coord)
	}
}

func TestInventoryTotalsCopiesByName(t *testing.T) {
	e, _ := newTestEngine(t, "tally")
	c, top := plantPillar(e, materialID(t, e, "STONE"))

	e.destroyVoxel(c, [3]int{5, 5, top}, e.clock.Tick())
	totals := e.InventoryTotals()
	if totals["STONE"] != 1 {
		t.Fatalf("totals = %v", totals)
	}
	totals["STONE"] = 99
	if e.InventoryTotals()["STONE"] != 1 {
		t.Fatalf("InventoryTotals leaked internal state")
	}
}

func TestCurrentChunkAverageHeight(t *testing.T) {
	e, _ := newTestEngine(t, "height")
	h := e.CurrentChunkAverageHeight()
	if h <= 0 || h >= float64(e.tun.WorldHeight) {
		t.Fatalf("mean surface = %v, want inside the world column", h)
	}
}

func TestRunAppliesQueuedMessagesAndStops(t *testing.T) {
	e, _ := newTestEngine(t, "run")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	e.Inbox() <- protocol.ClientMsg{Type: protocol.TypeMode, Mode: "edit"}
	time.Sleep(300 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
	if e.Mode() != ModeEdit {
		t.Fatalf("queued mode message never applied")
	}
}

func TestStopEndsRunCleanly(t *testing.T) {
	e, _ := newTestEngine(t, "stop")
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	e.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on Stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
}
