package main

import (
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"isovox.app/internal/persistence/indexdb"
	"isovox.app/internal/persistence/snapshot"
	"isovox.app/internal/render"
	"isovox.app/internal/sim/catalogs"
	"isovox.app/internal/sim/encoding"
	"isovox.app/internal/sim/terrain"
	"isovox.app/internal/sim/tuning"
	"isovox.app/internal/sim/world"
)

func main() {
	app := &cli.App{
		Name:  "worldtool",
		Usage: "offline inspection of isovox worlds",
		Commands: []*cli.Command{
			renderCommand(),
			infoCommand(),
			biomesCommand(),
			dumpCommand(),
			savesCommand(),
			editsCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// worldFlags are shared by every command that generates chunks.
func worldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "seed", Value: "isovox", Usage: "world seed (ignored when -snapshot carries one)"},
		&cli.StringFlag{Name: "configs", Value: "./configs", Usage: "config directory"},
		&cli.StringFlag{Name: "tuning", Usage: "path to tuning.yaml (default: <configs>/tuning.yaml)"},
		&cli.StringFlag{Name: "snapshot", Usage: "overlay snapshot to replay onto the terrain"},
		&cli.StringFlag{Name: "chunk", Value: "0,0", Usage: "chunk coordinate \"cx,cy\""},
	}
}

// indexFlags are shared by the commands that read a world's index db.
func indexFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "data", Value: "./data", Usage: "runtime data directory"},
		&cli.StringFlag{Name: "world", Value: "world_1", Usage: "world id"},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "render one chunk to a PNG",
		Flags: append(worldFlags(),
			&cli.StringFlag{Name: "out", Value: "chunk.png", Usage: "output PNG path"},
			&cli.IntFlag{Name: "rotation", Usage: "camera quarter turns counter-clockwise"},
			&cli.Float64Flag{Name: "zoom", Value: 14, Usage: "tile half-width in pixels"},
			&cli.Float64Flag{Name: "pitch", Value: 0.6, Usage: "vertical squash (1 = steep overhead)"},
			&cli.IntFlag{Name: "ceiling", Usage: "hide voxels at z >= ceiling (0 = world height)"},
			&cli.IntFlag{Name: "sky", Value: -1, Usage: "sky light 0..15 (-1 = derive from the save tick)"},
			&cli.BoolFlag{Name: "frame", Usage: "compose a viewport frame instead of the tight chunk raster"},
		),
		Action: runRender,
	}
}

func runRender(c *cli.Context) error {
	wb, tune, err := loadWorkbench(c)
	if err != nil {
		return err
	}
	coord, err := world.ParseChunkKey(c.String("chunk"))
	if err != nil {
		return err
	}
	if sky := c.Int("sky"); sky >= 0 {
		wb.SetSkyLight(sky)
	}
	chunk := wb.Chunk(coord)

	cam := render.DefaultCamera(tune.WorldHeight)
	cam.Rotation = c.Int("rotation") & 3
	cam.Zoom = c.Float64("zoom")
	cam.Pitch = c.Float64("pitch")
	if ceil := c.Int("ceiling"); ceil > 0 {
		cam.Ceiling = ceil
	}

	bm := wb.Render(chunk, cam)
	img := bm.Img
	if c.Bool("frame") {
		mid := chunk.Size / 2
		u, v := cam.RotateIn(mid, mid, chunk.Size)
		ax, ay := cam.Project(u, v, int(chunk.MeanSurface+0.5))
		img = render.ComposeFrame(tune.ViewportW, tune.ViewportH, bm, ax, ay, 1.0)
	}

	out := c.String("out")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%dx%d, %d voxels drawn)\n", out, img.Bounds().Dx(), img.Bounds().Dy(), bm.Voxels)
	return nil
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:   "info",
		Usage:  "print chunk metadata and material counts",
		Flags:  worldFlags(),
		Action: runInfo,
	}
}

func runInfo(c *cli.Context) error {
	wb, _, err := loadWorkbench(c)
	if err != nil {
		return err
	}
	coord, err := world.ParseChunkKey(c.String("chunk"))
	if err != nil {
		return err
	}
	chunk := wb.Chunk(coord)

	counts := map[uint16]int{}
	for i := range chunk.Voxels {
		counts[chunk.Voxels[i].Type]++
	}
	type matCount struct {
		name string
		n    int
	}
	list := make([]matCount, 0, len(counts))
	for id, n := range counts {
		list = append(list, matCount{name: wb.MaterialName(id), n: n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].n != list[j].n {
			return list[i].n > list[j].n
		}
		return list[i].name < list[j].name
	})

	digest := chunk.Digest()
	fmt.Printf("chunk %s\n", coord.Key())
	fmt.Printf("  biome        %s\n", chunk.Biome)
	fmt.Printf("  size         %dx%dx%d\n", chunk.Size, chunk.Size, chunk.Height)
	fmt.Printf("  mean surface %.1f\n", chunk.MeanSurface)
	fmt.Printf("  grid digest  %x\n", digest[:8])
	fmt.Printf("  materials\n")
	for _, mc := range list {
		fmt.Printf("    %-16s %d\n", mc.name, mc.n)
	}
	return nil
}

func biomesCommand() *cli.Command {
	return &cli.Command{
		Name:  "biomes",
		Usage: "print the biome map a seed produces around a chunk",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "seed", Value: "isovox", Usage: "world seed"},
			&cli.StringFlag{Name: "chunk", Value: "0,0", Usage: "center chunk coordinate \"cx,cy\""},
			&cli.IntFlag{Name: "radius", Value: 8, Usage: "chunks shown on each side of the center"},
		},
		Action: runBiomes,
	}
}

func runBiomes(c *cli.Context) error {
	coord, err := world.ParseChunkKey(c.String("chunk"))
	if err != nil {
		return err
	}
	r := c.Int("radius")
	if r < 0 {
		r = 0
	}
	cls := terrain.NewClassifier(c.String("seed"))

	fmt.Printf("seed %q around chunk %s, radius %d (center lowercase)\n", c.String("seed"), coord.Key(), r)
	counts := map[terrain.Biome]int{}
	for cy := coord.CY - r; cy <= coord.CY+r; cy++ {
		var row strings.Builder
		for cx := coord.CX - r; cx <= coord.CX+r; cx++ {
			b := cls.BiomeAt(cx, cy)
			counts[b]++
			ch := b[0]
			if cx == coord.CX && cy == coord.CY {
				ch += 'a' - 'A'
			}
			row.WriteByte(ch)
		}
		fmt.Println(row.String())
	}

	names := make([]string, 0, len(counts))
	for b := range counts {
		names = append(names, string(b))
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[terrain.Biome(names[i])] != counts[terrain.Biome(names[j])] {
			return counts[terrain.Biome(names[i])] > counts[terrain.Biome(names[j])]
		}
		return names[i] < names[j]
	})
	for _, n := range names {
		fmt.Printf("  %c %-12s %d\n", n[0], n, counts[terrain.Biome(n)])
	}
	return nil
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "dump voxel layers as RLE text, for fixtures and diffs",
		Flags: append(worldFlags(),
			&cli.IntFlag{Name: "z", Value: -1, Usage: "single layer to dump (-1 = all layers)"},
		),
		Action: runDump,
	}
}

func runDump(c *cli.Context) error {
	wb, _, err := loadWorkbench(c)
	if err != nil {
		return err
	}
	coord, err := world.ParseChunkKey(c.String("chunk"))
	if err != nil {
		return err
	}
	chunk := wb.Chunk(coord)

	dumpLayer := func(z int) {
		ids := make([]uint16, 0, chunk.Size*chunk.Size)
		for y := 0; y < chunk.Size; y++ {
			for x := 0; x < chunk.Size; x++ {
				ids = append(ids, chunk.At(x, y, z).Type)
			}
		}
		fmt.Printf("z=%d %s\n", z, encoding.EncodeRLE(ids))
	}

	if z := c.Int("z"); z >= 0 {
		if z >= chunk.Height {
			return fmt.Errorf("layer %d out of range (height %d)", z, chunk.Height)
		}
		dumpLayer(z)
		return nil
	}
	for z := 0; z < chunk.Height; z++ {
		dumpLayer(z)
	}
	return nil
}

func savesCommand() *cli.Command {
	return &cli.Command{
		Name:   "saves",
		Usage:  "list the saves recorded in a world's index db",
		Flags:  indexFlags(),
		Action: runSaves,
	}
}

func runSaves(c *cli.Context) error {
	idx, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	rows, err := idx.ListSaves()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no saves recorded")
		return nil
	}
	fmt.Printf("%-10s %-8s %-8s %-26s %s\n", "TICK", "CHUNKS", "EDITS", "WRITTEN", "PATH")
	for _, r := range rows {
		fmt.Printf("%-10d %-8d %-8d %-26s %s\n", r.Tick, r.Chunks, r.Edits, r.WrittenAt, r.Path)
	}
	return nil
}

func editsCommand() *cli.Command {
	return &cli.Command{
		Name:  "edits",
		Usage: "show the newest voxel edits from a world's index db",
		Flags: append(indexFlags(),
			&cli.IntFlag{Name: "limit", Value: 50, Usage: "max edits to show"},
		),
		Action: runEdits,
	}
}

func runEdits(c *cli.Context) error {
	idx, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	entries, err := idx.EditTail(c.Int("limit"))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no edits recorded")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("tick=%-8d chunk=%d,%d pos=%d,%d,%d %s -> %s",
			e.Tick, e.Chunk[0], e.Chunk[1], e.Pos[0], e.Pos[1], e.Pos[2], e.From, e.To)
		if e.Reason != "" {
			line += " (" + e.Reason + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// loadWorkbench assembles the offline chunk builder from the shared
// world flags. A snapshot's seed wins over the flag, mirroring how the
// server resumes.
func loadWorkbench(c *cli.Context) (*world.Workbench, tuning.Tuning, error) {
	cats, err := catalogs.Load(c.String("configs"))
	if err != nil {
		return nil, tuning.Tuning{}, fmt.Errorf("load catalogs: %w", err)
	}
	tp := strings.TrimSpace(c.String("tuning"))
	if tp == "" {
		tp = filepath.Join(c.String("configs"), "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		return nil, tuning.Tuning{}, fmt.Errorf("load tuning: %w", err)
	}

	seed := c.String("seed")
	var ovl *snapshot.OverlayV1
	if p := strings.TrimSpace(c.String("snapshot")); p != "" {
		snap, err := snapshot.ReadOverlay(p)
		if err != nil {
			return nil, tuning.Tuning{}, fmt.Errorf("read snapshot: %w", err)
		}
		ovl = &snap
		if snap.Header.Seed != "" {
			seed = snap.Header.Seed
		}
	}

	wb, err := world.NewWorkbench(world.EngineConfig{
		Seed:    seed,
		Tuning:  tune,
		Overlay: ovl,
		Logger:  log.New(os.Stderr, "[worldtool] ", 0),
	}, cats)
	if err != nil {
		return nil, tuning.Tuning{}, err
	}
	return wb, tune, nil
}

// openIndex opens an existing index db read-style. It refuses to
// create one: a missing file means the server never indexed this
// world, not an empty history.
func openIndex(c *cli.Context) (*indexdb.SQLiteIndex, error) {
	path := filepath.Join(c.String("data"), "worlds", c.String("world"), "index.db")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no index db at %s (run the server without -disable_db)", path)
	}
	return indexdb.OpenSQLite(path)
}
