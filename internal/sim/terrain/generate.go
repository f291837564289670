package terrain

import "math"

// Palette carries the resolved material ids the generator stamps into
// chunks. The world resolves these from the material catalog once at
// startup, so the generator never touches catalog files itself.
type Palette struct {
	Air     uint16
	Bedrock uint16
	Stone   uint16
	Dirt    uint16

	Grass        uint16
	PrairieGrass uint16
	Sand         uint16
	Sandstone    uint16
	JungleGrass  uint16
	Snow         uint16
	Ice          uint16

	OakTrunk     uint16
	OakLeaves    uint16
	JungleTrunk  uint16
	JungleLeaves uint16
	SpruceTrunk  uint16
	SpruceLeaves uint16
	Cactus       uint16
	Vine         uint16
	Crystal      uint16

	// Visual variant count per material id (absent means 1).
	Variants map[uint16]uint8
}

func (p Palette) variantsOf(id uint16) int {
	if n := p.Variants[id]; n > 1 {
		return int(n)
	}
	return 1
}

// Cell is one generated voxel: material id, whether it grew naturally
// (trunks and canopies, for felling), and its visual variant.
type Cell struct {
	Type    uint16
	Natural bool
	Variant uint8
}

// ChunkData is the output of one generation run: a [z][y][x] grid in a
// flat slice plus the per-chunk metadata the engine caches.
type ChunkData struct {
	CX, CY int
	Size   int
	Height int
	Biome  Biome
	Cells  []Cell

	// Mean topmost-solid z across all columns, for camera anchoring.
	MeanSurface float64
}

func (d *ChunkData) Index(x, y, z int) int {
	return (z*d.Size+y)*d.Size + x
}

func (d *ChunkData) In(x, y, z int) bool {
	return x >= 0 && x < d.Size && y >= 0 && y < d.Size && z >= 0 && z < d.Height
}

func (d *ChunkData) At(x, y, z int) Cell {
	return d.Cells[d.Index(x, y, z)]
}

func (d *ChunkData) Set(x, y, z int, c Cell) {
	d.Cells[d.Index(x, y, z)] = c
}

// setIfIn stamps a cell only when the coordinate is inside the grid;
// structures near edges clip instead of wrapping.
func (d *ChunkData) setIfIn(x, y, z int, c Cell) {
	if d.In(x, y, z) {
		d.Set(x, y, z, c)
	}
}

// Config is the fixed world-shape input of generation.
type Config struct {
	WorldHeight     int
	SizeMin         int
	SizeMax         int
	SpawnSafeRadius int
}

// Layer and carving constants.
const (
	// Subsurface thickness between stone and the surface cap.
	subsurfaceDepth = 4

	// Cave field: carve where |noise| falls under the band, but only
	// this far below the surface so caves never breach it.
	caveFreq          = 0.09
	caveBand          = 0.11
	CaveSurfaceBuffer = 6

	// Columns this close to an edge may adopt the neighbor's surface.
	BlendBand = 4

	blendFreq = 0.31
)

// Generator produces chunks as a pure function of (world seed, chunk
// coordinate, neighbor biomes). It holds no mutable state: every draw
// comes from streams derived from the chunk's own sub-seed.
type Generator struct {
	seed  string
	cfg   Config
	pal   Palette
	class *Classifier
}

func NewGenerator(worldSeed string, cfg Config, pal Palette) *Generator {
	return &Generator{
		seed:  worldSeed,
		cfg:   cfg,
		pal:   pal,
		class: NewClassifier(worldSeed),
	}
}

// Classifier exposes the biome map so callers can resolve neighbor
// biomes without generating the neighbors.
func (g *Generator) Classifier() *Classifier { return g.class }

// Generate builds the chunk at (cx, cy). neighbors are the biomes of
// the west, east, north and south neighbor chunks, in that order.
func (g *Generator) Generate(cx, cy int, neighbors [4]Biome) *ChunkData {
	sub := ChunkSeed(g.seed, cx, cy)
	r := NewRand(sub)

	d := &ChunkData{
		CX:     cx,
		CY:     cy,
		Size:   r.Between(g.cfg.SizeMin, g.cfg.SizeMax),
		Height: g.cfg.WorldHeight,
		Biome:  g.class.BiomeAt(cx, cy),
	}
	d.Cells = make([]Cell, d.Size*d.Size*d.Height)

	surface := g.heightField(d, sub)
	g.fillColumns(d, r, surface)
	g.carveCaves(d, sub, surface)
	g.blendBorders(d, r, sub, surface, neighbors)
	g.placeStructures(d, r, surface)
	if cx == 0 && cy == 0 {
		g.placeLandmark(d, surface)
	}
	d.MeanSurface = meanTopSolid(d, g.pal.Air)
	return d
}

// heightField samples per-biome noise into a surface z per column.
func (g *Generator) heightField(d *ChunkData, sub string) []int {
	p := ParamsFor(d.Biome)
	n := NewNoise(sub + "|height")
	base := float64(d.Height) * p.HeightBase

	surface := make([]int, d.Size*d.Size)
	lo, hi := subsurfaceDepth+2, d.Height-14
	for y := 0; y < d.Size; y++ {
		for x := 0; x < d.Size; x++ {
			h := base + n.FBM(float64(x)*p.HeightFreq, float64(y)*p.HeightFreq, 0, 3, 2.0, 0.5)*p.HeightAmp
			s := int(math.Round(h))
			if s < lo {
				s = lo
			}
			if s > hi {
				s = hi
			}
			surface[y*d.Size+x] = s
		}
	}
	return surface
}

// fillColumns lays bedrock, stone, subsurface and the surface cap.
func (g *Generator) fillColumns(d *ChunkData, r *Rand, surface []int) {
	sub := g.subsurfaceMaterial(d.Biome)
	top := g.surfaceMaterial(d.Biome)
	for y := 0; y < d.Size; y++ {
		for x := 0; x < d.Size; x++ {
			s := surface[y*d.Size+x]
			for z := 0; z <= s; z++ {
				var id uint16
				switch {
				case z == 0:
					id = g.pal.Bedrock
				case z < s-subsurfaceDepth:
					id = g.pal.Stone
				case z < s:
					id = sub
				default:
					id = top
				}
				d.Set(x, y, z, Cell{Type: id, Variant: uint8(r.IntN(g.pal.variantsOf(id)))})
			}
		}
	}
}

// carveCaves hollows cells where the 3D field sits inside the band.
// The surface buffer keeps every cave ceiling underground.
func (g *Generator) carveCaves(d *ChunkData, sub string, surface []int) {
	n := NewNoise(sub + "|caves")
	for y := 0; y < d.Size; y++ {
		for x := 0; x < d.Size; x++ {
			limit := surface[y*d.Size+x] - CaveSurfaceBuffer
			for z := 1; z <= limit; z++ {
				v := n.At(float64(x)*caveFreq, float64(y)*caveFreq, float64(z)*caveFreq)
				if math.Abs(v) < caveBand {
					d.Set(x, y, z, Cell{Type: g.pal.Air})
				}
			}
		}
	}
}

// blendBorders lets columns near an edge adopt that neighbor's surface
// material, with the odds falling off away from the edge and jittered
// by noise so the band reads ragged instead of ruled.
func (g *Generator) blendBorders(d *ChunkData, r *Rand, sub string, surface []int, neighbors [4]Biome) {
	n := NewNoise(sub + "|blend")
	for y := 0; y < d.Size; y++ {
		for x := 0; x < d.Size; x++ {
			// Edge distances in west, east, north, south order,
			// matching Classifier.NeighborBiomes.
			dists := [4]int{x, d.Size - 1 - x, y, d.Size - 1 - y}
			for side, dist := range dists {
				nb := neighbors[side]
				if nb == d.Biome || dist >= BlendBand {
					continue
				}
				falloff := 1.0 - float64(dist+1)/float64(BlendBand+1)
				jitter := 0.5 + 0.5*math.Abs(n.At(float64(x)*blendFreq, float64(y)*blendFreq, float64(side)))
				if !r.Chance(falloff * jitter) {
					continue
				}
				id := g.surfaceMaterial(nb)
				s := surface[y*d.Size+x]
				d.Set(x, y, s, Cell{Type: id, Variant: uint8(r.IntN(g.pal.variantsOf(id)))})
				break
			}
		}
	}
}

func (g *Generator) surfaceMaterial(b Biome) uint16 {
	switch b {
	case BiomePrairie:
		return g.pal.PrairieGrass
	case BiomeDesert:
		return g.pal.Sand
	case BiomeJungle:
		return g.pal.JungleGrass
	case BiomeSnow:
		return g.pal.Snow
	default:
		return g.pal.Grass
	}
}

func (g *Generator) subsurfaceMaterial(b Biome) uint16 {
	if b == BiomeDesert {
		return g.pal.Sandstone
	}
	return g.pal.Dirt
}

// placeLandmark stamps the origin crystal one cell above the surface
// at the chunk center. It is ordinary emissive content: the lighting
// engine seeds from its emission like any other material.
func (g *Generator) placeLandmark(d *ChunkData, surface []int) {
	x, y := d.Size/2, d.Size/2
	z := surface[y*d.Size+x] + 1
	d.setIfIn(x, y, z, Cell{Type: g.pal.Crystal})
}

// meanTopSolid averages the topmost solid z over all columns.
func meanTopSolid(d *ChunkData, air uint16) float64 {
	var sum int
	for y := 0; y < d.Size; y++ {
		for x := 0; x < d.Size; x++ {
			for z := d.Height - 1; z >= 0; z-- {
				if d.At(x, y, z).Type != air {
					sum += z
					break
				}
			}
		}
	}
	return float64(sum) / float64(d.Size*d.Size)
}
