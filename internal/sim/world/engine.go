package world

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"isovox.app/internal/persistence/snapshot"
	"isovox.app/internal/protocol"
	"isovox.app/internal/render"
	"isovox.app/internal/sim/catalogs"
	"isovox.app/internal/sim/terrain"
	"isovox.app/internal/sim/tuning"
	"isovox.app/internal/worldtime"
)

// EngineConfig carries the per-session inputs. Seed is the sole
// determinism source: two engines with the same seed, tuning and
// overlay walk through identical worlds.
type EngineConfig struct {
	Seed   string
	Tuning tuning.Tuning

	// Overlay is the saved edit snapshot for this seed, nil for a
	// fresh world.
	Overlay *snapshot.OverlayV1

	Logger *log.Logger
}

// Engine owns one world session: the chunk cache, the edit overlay,
// camera, cursor and mining state. All fields are confined to the
// goroutine that calls Step (or the Run loop); the inbox channel is
// the only way in from outside.
type Engine struct {
	seed    string
	tun     tuning.Tuning
	cats    *catalogs.Catalogs
	mats    *materialTable
	gen     *terrain.Generator
	clock   *worldtime.Clock
	surface render.Surface
	logger  *log.Logger

	overlay *overlay
	chunks  *chunkCache
	sched   editScheduler
	editLog EditLogger

	current ChunkCoord
	visited map[ChunkCoord]bool

	cam render.Camera

	mode        Mode
	pointerX    float64
	pointerY    float64
	pointerKind PointerKind
	pointerOK   bool
	cursor      Cursor
	selected    uint16

	miningHeld bool

	inventory map[uint16]int

	inbox     chan protocol.ClientMsg
	snapshots chan snapshot.OverlayV1
	stop      chan struct{}

	frames    int
	statsMark time.Time
	lastSky   uint8

	// Callbacks fire synchronously on the engine goroutine during
	// Step. Nil callbacks are skipped.
	OnInventoryUpdate func(id uint16, count int)
	OnBlockPlaced     func(id uint16, pos [3]int)
	OnStatsUpdate     func(fps float64, visibleVoxels int, coord ChunkCoord)
	OnTimeUpdate      func(state worldtime.State)
}

// NewEngine builds a session around the given frame surface and clock.
// A nil clock gets a fresh day cycle from the tuning; a nil surface is
// an initialization failure since the engine is useless without an
// output target.
func NewEngine(cfg EngineConfig, cats *catalogs.Catalogs, surface render.Surface, cycle *worldtime.Clock) (*Engine, error) {
	if surface == nil {
		return nil, fmt.Errorf("engine: frame surface is required")
	}
	if cats == nil {
		return nil, fmt.Errorf("engine: catalogs are required")
	}
	if cycle == nil {
		cycle = worldtime.NewClock(cfg.Tuning.DayTicks)
	}

	pal, err := resolvePalette(cats.Materials)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	mats := newMaterialTable(cats.Materials)

	e := &Engine{
		seed:    cfg.Seed,
		tun:     cfg.Tuning,
		cats:    cats,
		mats:    mats,
		clock:   cycle,
		surface: surface,
		logger:  cfg.Logger,

		current:   ChunkCoord{},
		visited:   map[ChunkCoord]bool{},
		cam:       render.DefaultCamera(cfg.Tuning.WorldHeight),
		mode:      ModeCamera,
		inventory: map[uint16]int{},

		inbox:     make(chan protocol.ClientMsg, 64),
		snapshots: make(chan snapshot.OverlayV1, 1),
		stop:      make(chan struct{}),
		statsMark: time.Now(),
	}

	e.gen = terrain.NewGenerator(cfg.Seed, terrain.Config{
		WorldHeight:     cfg.Tuning.WorldHeight,
		SizeMin:         cfg.Tuning.ChunkSizeMin,
		SizeMax:         cfg.Tuning.ChunkSizeMax,
		SpawnSafeRadius: cfg.Tuning.SpawnSafeRadius,
	}, pal)

	if snap := cfg.Overlay; snap != nil && snap.Header.Seed != "" && snap.Header.Seed != cfg.Seed {
		e.logf("overlay snapshot is for seed %q, not %q; starting empty", snap.Header.Seed, cfg.Seed)
		cfg.Overlay = nil
	}
	var skipped int
	e.overlay, skipped = importOverlay(cfg.Overlay, mats)
	if skipped > 0 {
		e.logf("overlay: dropped %d edits naming unknown materials", skipped)
	}
	if cfg.Overlay != nil {
		cycle.SetTick(cfg.Overlay.Header.Tick)
	}
	e.lastSky = cycle.SkyLight()

	e.chunks = newChunkCache(cfg.Tuning.CacheChunks, e.buildChunk)
	e.visited[e.current] = true
	e.chunks.pin(e.current)
	e.chunks.get(e.current)

	return e, nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// SetEditLogger installs the audit sink for voxel mutations. Call
// before the loop starts.
func (e *Engine) SetEditLogger(l EditLogger) { e.editLog = l }

// Inbox is the channel the transport feeds client messages into.
func (e *Engine) Inbox() chan<- protocol.ClientMsg { return e.inbox }

// Snapshots delivers autosave overlay exports. The engine drops stale
// snapshots rather than block the loop, so the consumer always sees
// the newest one.
func (e *Engine) Snapshots() <-chan snapshot.OverlayV1 { return e.snapshots }

// buildChunk is the cache miss path: generate, replay edits, light.
func (e *Engine) buildChunk(coord ChunkCoord) *Chunk {
	neighbors := e.gen.Classifier().NeighborBiomes(coord.CX, coord.CY)
	d := e.gen.Generate(coord.CX, coord.CY, neighbors)
	c := newChunk(d, e.mats)
	e.overlay.applyTo(c, e.mats)
	relight(c, e.mats, e.clock.SkyLight())
	return c
}

func (e *Engine) currentChunk() *Chunk { return e.chunks.get(e.current) }

// Run drives the engine at the tuned tick rate until the context ends
// or Stop is called. Client messages queue between ticks and apply in
// arrival order at the head of each tick, so the loop goroutine stays
// the sole owner of engine state.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []protocol.ClientMsg
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case msg := <-e.inbox:
			pending = append(pending, msg)
		case <-ticker.C:
			for i := range pending {
				e.applyMsg(pending[i])
			}
			pending = pending[:0]
			e.Step()
		}
	}
}

func (e *Engine) Stop() { close(e.stop) }

// Step advances exactly one simulation tick. Tests drive the engine
// through it directly; Run calls it from the ticker.
func (e *Engine) Step() {
	tick := e.clock.Tick()

	e.applyDueEdits(tick)
	e.advanceMining(tick)

	e.clock.Advance()
	state := e.clock.State()
	if e.OnTimeUpdate != nil {
		e.OnTimeUpdate(state)
	}

	if sky := e.clock.SkyLight(); sky != e.lastSky {
		e.lastSky = sky
		c := e.currentChunk()
		relight(c, e.mats, sky)
		c.MarkDirty()
	}

	if n := e.tun.AutosaveEveryTicks; n > 0 && state.Tick%int64(n) == 0 {
		sendLatestSnapshot(e.snapshots, e.ExportOverlay())
	}

	e.renderFrame(state)

	if n := e.tun.StatsEveryTicks; n > 0 && state.Tick%int64(n) == 0 {
		e.emitStats()
	}
}

func (e *Engine) applyDueEdits(tick int64) {
	applied := 0
	for _, ed := range e.sched.due(tick) {
		c := e.chunks.get(ed.coord)
		x, y, z := ed.pos[0], ed.pos[1], ed.pos[2]
		if !c.In(x, y, z) {
			continue
		}
		if c.At(x, y, z).Type != ed.expect {
			// The cell changed since scheduling; the edit is stale.
			continue
		}
		e.clearVoxel(c, ed.pos, ed.reason)
		applied++
	}
	if applied > 0 {
		e.refreshCursor()
	}
}

// applyMsg routes one client message to the matching mutation. Bad
// payloads are silent no-ops; shape validation happened at the
// transport.
func (e *Engine) applyMsg(m protocol.ClientMsg) {
	switch m.Type {
	case protocol.TypePointer:
		kind := PointerMouse
		if m.Kind == string(PointerTouch) {
			kind = PointerTouch
		}
		e.UpdateCursorPosition(m.X, m.Y, kind)
	case protocol.TypeInput:
		e.HandleInput(m.Down)
	case protocol.TypeMode:
		e.SetMode(Mode(m.Mode))
	case protocol.TypeSelect:
		if id, ok := e.mats.index[m.Material]; ok {
			e.SelectType(id)
		}
	case protocol.TypePlace:
		e.PlaceBlock()
	case protocol.TypeNavigate:
		e.Navigate(Direction(m.Direction))
	case protocol.TypeCamera:
		e.applyCamera(m)
	}
}

func (e *Engine) applyCamera(m protocol.ClientMsg) {
	if m.Rotate != 0 {
		e.RotateCamera(m.Rotate)
	}
	if m.Zoom != 0 {
		e.SetZoom(m.Zoom)
	}
	if m.Pitch != 0 {
		e.SetPitch(m.Pitch)
	}
	if m.Ceiling != 0 {
		e.SetCeiling(m.Ceiling)
	}
}

// SetMode switches between camera and edit interaction. Leaving edit
// mode releases the mining button and hides the cursor.
func (e *Engine) SetMode(m Mode) {
	if m != ModeCamera && m != ModeEdit {
		return
	}
	if e.mode == m {
		return
	}
	e.mode = m
	if m == ModeCamera {
		e.miningHeld = false
		e.cursor = Cursor{}
	} else {
		e.refreshCursor()
	}
}

func (e *Engine) Mode() Mode { return e.mode }

// SelectType picks the material the next PlaceBlock uses. Unplaceable
// materials are ignored and keep the previous selection.
func (e *Engine) SelectType(id uint16) {
	if int(id) >= e.mats.count() || !e.mats.placeable[id] {
		return
	}
	e.selected = id
}

func (e *Engine) SelectedType() uint16 { return e.selected }

// Navigate moves the viewport one chunk over and returns the new
// coordinate. The target chunk is generated (or re-fetched) now so the
// next frame has content.
func (e *Engine) Navigate(dir Direction) ChunkCoord {
	dx, dy, ok := dir.Delta()
	if !ok {
		return e.current
	}
	e.current = ChunkCoord{CX: e.current.CX + dx, CY: e.current.CY + dy}
	e.visited[e.current] = true
	e.chunks.pin(e.current)
	e.chunks.get(e.current)
	e.miningHeld = false
	e.refreshCursor()
	return e.current
}

// Tick reports the clock's current tick. Like every query method it
// is only safe on the engine goroutine, which includes the Step
// callbacks and the surface Present call.
func (e *Engine) Tick() int64 { return e.clock.Tick() }

// CurrentCoord reports the chunk the viewport is anchored on.
func (e *Engine) CurrentCoord() ChunkCoord { return e.current }

// ExplorationData lists every visited chunk key plus the current
// coordinate, for the UI minimap.
func (e *Engine) ExplorationData() ([]string, ChunkCoord) {
	keys := make([]string, 0, len(e.visited))
	for coord := range e.visited {
		keys = append(keys, coord.Key())
	}
	sort.Strings(keys)
	return keys, e.current
}

// CurrentChunkAverageHeight reports the mean topmost-solid z of the
// chunk on screen, the anchor height the camera centers on.
func (e *Engine) CurrentChunkAverageHeight() float64 {
	return e.currentChunk().MeanSurface
}

// InventoryTotals copies the mined tally keyed by material id string.
func (e *Engine) InventoryTotals() map[string]int {
	out := make(map[string]int, len(e.inventory))
	for id, n := range e.inventory {
		out[e.mats.name(id)] = n
	}
	return out
}

// ExportOverlay flattens the current edit state into its persisted
// form, stamped with the seed and tick.
func (e *Engine) ExportOverlay() snapshot.OverlayV1 {
	return e.overlay.export(e.seed, e.clock.Tick(), e.mats)
}

// EditCount reports how many voxel edits the overlay holds.
func (e *Engine) EditCount() int { return e.overlay.len() }

// RotateCamera turns the view by quarter turns; positive steps rotate
// counter-clockwise.
func (e *Engine) RotateCamera(steps int) {
	e.cam.Rotation = (e.cam.Rotation + steps) & 3
	e.refreshCursor()
}

func (e *Engine) SetZoom(z float64) {
	if z < 6 {
		z = 6
	}
	if z > 48 {
		z = 48
	}
	e.cam.Zoom = z
	e.refreshCursor()
}

func (e *Engine) SetPitch(p float64) {
	if p < 0.25 {
		p = 0.25
	}
	if p > 1 {
		p = 1
	}
	e.cam.Pitch = p
	e.refreshCursor()
}

// SetCeiling caps rendering (and cursor hits) below the given z, the
// slice-view control for inspecting caves.
func (e *Engine) SetCeiling(z int) {
	if z < 1 {
		z = 1
	}
	if z > e.tun.WorldHeight {
		z = e.tun.WorldHeight
	}
	e.cam.Ceiling = z
	e.refreshCursor()
}

func (e *Engine) Camera() render.Camera { return e.cam }

func sendLatestSnapshot(ch chan snapshot.OverlayV1, snap snapshot.OverlayV1) {
	select {
	case ch <- snap:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
