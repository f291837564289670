package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"math"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"isovox.app/internal/persistence/archive"
	"isovox.app/internal/persistence/indexdb"
	persistlog "isovox.app/internal/persistence/log"
	"isovox.app/internal/persistence/snapshot"
	"isovox.app/internal/protocol"
	"isovox.app/internal/sim/catalogs"
	"isovox.app/internal/sim/tuning"
	"isovox.app/internal/sim/world"
	"isovox.app/internal/transport/ws"
	"isovox.app/internal/worldtime"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id (names the data directory)")
		seed       = flag.String("seed", "isovox", "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (edit audit + catalogs + save metadata)")

		snapPath   = flag.String("snapshot", "", "path to overlay snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from the world dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	// .env feeds the optional ISOVOX_* switches; a missing file is the
	// normal case.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Printf("load .env: %v", err)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	// Queryable index beside the save files (edit audit, catalogs, save
	// metadata); nil when disabled. The sim never reads it back.
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	// Resume from a save when one exists. A broken save must not brick
	// the world: terrain is regenerable from the seed, so log and start
	// with an empty overlay instead.
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	var overlay *snapshot.OverlayV1
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadOverlay(snapshotToLoad)
		if err != nil {
			logger.Printf("read snapshot %s: %v; starting with an empty overlay", snapshotToLoad, err)
		} else {
			overlay = &snap
			logger.Printf("resuming from snapshot=%s tick=%d chunks=%d", filepath.Base(snapshotToLoad), snap.Header.Tick, len(snap.Chunks))
		}
	}
	worldSeed := *seed
	if overlay != nil && overlay.Header.Seed != "" {
		// The save's seed wins on resume; the flag only seeds fresh
		// worlds.
		worldSeed = overlay.Header.Seed
	}

	surface := &uiSurface{w: tune.ViewportW, h: tune.ViewportH}
	surface.enc.CompressionLevel = png.BestSpeed

	eng, err := world.NewEngine(world.EngineConfig{
		Seed:    worldSeed,
		Tuning:  tune,
		Overlay: overlay,
		Logger:  logger,
	}, cats, surface, nil)
	if err != nil {
		logger.Fatalf("engine: %v", err)
	}

	journal := persistlog.NewEditJournal(worldDir)
	defer journal.Close()
	sinks := persistlog.MultiEditLogger{journal}
	if idx != nil {
		sinks = append(sinks, idx)
	}
	eng.SetEditLogger(sinks)

	hub := ws.NewHub(eng, welcomeTemplate(worldSeed, tune, cats), logger)
	surface.attach(eng, hub)

	// Gauges for /metrics, fed from the engine callbacks below. The
	// engine itself is confined to its loop goroutine, so the HTTP
	// handlers read these instead of touching it.
	var (
		lastTick  atomic.Int64
		fpsBits   atomic.Uint64
		visVoxels atomic.Int64
	)

	// Callbacks run on the engine goroutine, which makes the engine
	// queries inside them safe.
	var explorationCoord world.ChunkCoord
	eng.OnTimeUpdate = func(state worldtime.State) {
		lastTick.Store(state.Tick)
		hub.Broadcast(protocol.TimeMsg{
			Type:      protocol.TypeTime,
			Tick:      state.Tick,
			TimeOfDay: state.TimeOfDay,
			Phase:     string(state.Phase),
			Ambient:   state.Ambient,
		})
		if cur := eng.CurrentCoord(); cur != explorationCoord {
			explorationCoord = cur
			broadcastExploration(hub, eng)
		}
	}
	eng.OnStatsUpdate = func(fps float64, visibleVoxels int, coord world.ChunkCoord) {
		fpsBits.Store(math.Float64bits(fps))
		visVoxels.Store(int64(visibleVoxels))
		hub.Broadcast(protocol.StatsMsg{
			Type:          protocol.TypeStats,
			Tick:          eng.Tick(),
			FPS:           fps,
			VisibleVoxels: visibleVoxels,
			Coord:         [2]int{coord.CX, coord.CY},
		})
		// Periodic resend so a viewer that attached mid-session gets the
		// minimap within one stats interval.
		broadcastExploration(hub, eng)
	}
	pal := cats.Materials.Palette
	eng.OnInventoryUpdate = func(id uint16, count int) {
		hub.Broadcast(protocol.InventoryMsg{
			Type:     protocol.TypeInventory,
			Material: pal[id],
			Count:    count,
			Totals:   eng.InventoryTotals(),
		})
	}
	eng.OnBlockPlaced = func(id uint16, pos [3]int) {
		cur := eng.CurrentCoord()
		hub.Broadcast(protocol.PlacedMsg{
			Type:     protocol.TypePlaced,
			Material: pal[id],
			Pos:      pos,
			Coord:    [2]int{cur.CX, cur.CY},
		})
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Save writer. A full disk must not kill the session: after the
	// first failed write the world keeps running memory-only.
	saveDir := filepath.Join(worldDir, "saves")
	savesDisabled := false
	writeSave := func(snap snapshot.OverlayV1) {
		if savesDisabled {
			return
		}
		path := filepath.Join(saveDir, fmt.Sprintf("world-%d.ovl.zst", snap.Header.Tick))
		if err := snapshot.WriteOverlay(path, snap); err != nil {
			logger.Printf("snapshot write: %v; continuing without saves for this session", err)
			savesDisabled = true
			return
		}
		if idx != nil {
			idx.RecordSave(path, snap)
		}
		if day, archivedPath, ok, err := archive.ArchiveDaySnapshot(worldDir, path, snap, tune.DayTicks); err != nil {
			logger.Printf("archive day snapshot: %v", err)
		} else if ok {
			logger.Printf("archived day %d save to %s", day, archivedPath)
		}
	}
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-eng.Snapshots():
				writeSave(snap)
			}
		}
	}()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP isovox_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE isovox_world_tick gauge\n")
		fmt.Fprintf(rw, "isovox_world_tick{world=%q} %d\n", *worldID, lastTick.Load())

		fmt.Fprintf(rw, "# HELP isovox_engine_fps Frames composed per second over the last stats window.\n")
		fmt.Fprintf(rw, "# TYPE isovox_engine_fps gauge\n")
		fmt.Fprintf(rw, "isovox_engine_fps{world=%q} %.3f\n", *worldID, math.Float64frombits(fpsBits.Load()))

		fmt.Fprintf(rw, "# HELP isovox_visible_voxels Voxels drawn in the last sampled frame.\n")
		fmt.Fprintf(rw, "# TYPE isovox_visible_voxels gauge\n")
		fmt.Fprintf(rw, "isovox_visible_voxels{world=%q} %d\n", *worldID, visVoxels.Load())

		fmt.Fprintf(rw, "# HELP isovox_viewer_connected Whether a UI viewer holds the session slot.\n")
		fmt.Fprintf(rw, "# TYPE isovox_viewer_connected gauge\n")
		fmt.Fprintf(rw, "isovox_viewer_connected{world=%q} %d\n", *worldID, boolGauge(hub.HasViewer()))
	})
	if envBool("ISOVOX_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (ISOVOX_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", hub.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("world %s seed=%q listening on %s", *worldID, worldSeed, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// The engine loop and the save writer are down before the final
	// export, so nothing races the flush and no autosave is newer.
	<-engineDone
	<-snapDone
	writeSave(eng.ExportOverlay())
	logger.Printf("shutdown complete tick=%d edits=%d", eng.Tick(), eng.EditCount())
}

// uiSurface bridges engine frames to the websocket hub. Present runs
// on the engine goroutine, so querying the engine here is as safe as
// doing it from a Step callback.
type uiSurface struct {
	w, h int

	eng *world.Engine
	hub *ws.Hub

	buf bytes.Buffer
	enc png.Encoder
}

// attach closes the construction cycle: the engine needs the surface
// at build time, the hub needs the engine. Call before Run starts.
func (s *uiSurface) attach(eng *world.Engine, hub *ws.Hub) {
	s.eng = eng
	s.hub = hub
}

func (s *uiSurface) Size() (int, int) { return s.w, s.h }

func (s *uiSurface) Present(img *image.RGBA) error {
	if s.hub == nil || !s.hub.HasViewer() {
		// Nobody would see the frame; skip the PNG encode entirely.
		return nil
	}
	s.buf.Reset()
	if err := s.enc.Encode(&s.buf, img); err != nil {
		return err
	}
	coord := s.eng.CurrentCoord()
	s.hub.Broadcast(protocol.FrameMsg{
		Type:  protocol.TypeFrame,
		Tick:  s.eng.Tick(),
		Coord: [2]int{coord.CX, coord.CY},
		W:     img.Bounds().Dx(),
		H:     img.Bounds().Dy(),
		PNG:   base64.StdEncoding.EncodeToString(s.buf.Bytes()),
	})
	return nil
}

// welcomeTemplate builds the per-world handshake payload. The hub
// stamps the session id per connection.
func welcomeTemplate(seed string, tune tuning.Tuning, cats *catalogs.Catalogs) protocol.WelcomeMsg {
	refs := make([]protocol.MaterialRef, 0, len(cats.Materials.Palette))
	for i, id := range cats.Materials.Palette {
		d := cats.Materials.Defs[id]
		refs = append(refs, protocol.MaterialRef{
			ID:        id,
			Palette:   uint16(i),
			Color:     d.Color,
			Placeable: d.Placeable,
			Emission:  uint8(d.Emission),
		})
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldParams: protocol.WorldParams{
			Seed:         seed,
			TickRateHz:   tune.TickRateHz,
			DayTicks:     tune.DayTicks,
			WorldHeight:  tune.WorldHeight,
			ChunkSizeMin: tune.ChunkSizeMin,
			ChunkSizeMax: tune.ChunkSizeMax,
			ViewportW:    tune.ViewportW,
			ViewportH:    tune.ViewportH,
		},
		Catalogs: protocol.CatalogDigests{
			MaterialPalette: protocol.DigestRef{
				Digest: cats.Materials.PaletteDigest,
				Count:  len(cats.Materials.Palette),
			},
			MaterialDefs: cats.Materials.DefsDigest,
			Tuning:       tune.Digest(),
		},
		Materials: refs,
	}
}

// broadcastExploration is only called from engine callbacks; the
// ExplorationData query is not safe anywhere else.
func broadcastExploration(hub *ws.Hub, eng *world.Engine) {
	visited, cur := eng.ExplorationData()
	hub.Broadcast(protocol.ExplorationMsg{
		Type:    protocol.TypeExploration,
		Visited: visited,
		Current: [2]int{cur.CX, cur.CY},
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "saves")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick int64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "world-") || !strings.HasSuffix(name, ".ovl.zst") {
			continue
		}
		base := strings.TrimSuffix(strings.TrimPrefix(name, "world-"), ".ovl.zst")
		tick, err := strconv.ParseInt(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
