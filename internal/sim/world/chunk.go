package world

import (
	"crypto/sha256"
	"encoding/binary"

	"isovox.app/internal/render"
	"isovox.app/internal/sim/terrain"
)

// Chunk is one loaded grid plus its lighting and render cache. All
// access happens on the engine loop goroutine.
type Chunk struct {
	Coord  ChunkCoord
	Size   int
	Height int
	Biome  terrain.Biome

	Voxels []Voxel // len = Size*Size*Height, index (z*Size+y)*Size+x
	Light  []uint8

	// Mean topmost-solid z across columns, for camera auto-centering.
	MeanSurface float64

	// Render cache: the rasterized bitmap is valid while the chunk is
	// clean and the camera key matches.
	dirty     bool
	bitmap    *render.Bitmap
	bitmapKey string

	hash   [32]byte
	hashOK bool
}

func newChunk(d *terrain.ChunkData, mats *materialTable) *Chunk {
	c := &Chunk{
		Coord:       ChunkCoord{CX: d.CX, CY: d.CY},
		Size:        d.Size,
		Height:      d.Height,
		Biome:       d.Biome,
		Voxels:      make([]Voxel, len(d.Cells)),
		Light:       make([]uint8, len(d.Cells)),
		MeanSurface: d.MeanSurface,
		dirty:       true,
	}
	for i := range d.Cells {
		cell := d.Cells[i]
		c.Voxels[i] = Voxel{
			Type:       cell.Type,
			Durability: mats.durability[cell.Type],
			Natural:    cell.Natural,
			Variant:    cell.Variant,
		}
	}
	return c
}

func (c *Chunk) Index(x, y, z int) int {
	return (z*c.Size+y)*c.Size + x
}

func (c *Chunk) In(x, y, z int) bool {
	return x >= 0 && x < c.Size && y >= 0 && y < c.Size && z >= 0 && z < c.Height
}

func (c *Chunk) At(x, y, z int) Voxel {
	return c.Voxels[c.Index(x, y, z)]
}

// Set replaces a voxel and invalidates the chunk's digest and raster.
func (c *Chunk) Set(x, y, z int, v Voxel) {
	c.Voxels[c.Index(x, y, z)] = v
	c.dirty = true
	c.hashOK = false
}

// MarkDirty forces a raster rebuild without touching the grid (used
// when a neighbor's silhouette changes).
func (c *Chunk) MarkDirty() { c.dirty = true }

// Digest hashes the voxel grid deterministically. Light is derived
// state and stays out of the digest.
func (c *Chunk) Digest() [32]byte {
	if !c.hashOK {
		h := sha256.New()
		var tmp [8]byte
		binary.LittleEndian.PutUint32(tmp[:4], uint32(c.Size))
		binary.LittleEndian.PutUint32(tmp[4:], uint32(c.Height))
		h.Write(tmp[:])
		for i := range c.Voxels {
			v := &c.Voxels[i]
			binary.LittleEndian.PutUint16(tmp[:2], v.Type)
			binary.LittleEndian.PutUint16(tmp[2:4], uint16(v.Durability))
			flags := uint16(v.Variant)
			if v.Natural {
				flags |= 1 << 8
			}
			binary.LittleEndian.PutUint16(tmp[4:6], flags)
			h.Write(tmp[:6])
		}
		copy(c.hash[:], h.Sum(nil))
		c.hashOK = true
	}
	return c.hash
}

// chunkView adapts a chunk to the rasterizer's read interface. Edge
// voxels treat the unseen neighbor chunk as absent, so face culling
// stays local to the chunk.
type chunkView struct {
	c    *Chunk
	mats *materialTable
}

func (v chunkView) Size() int   { return v.c.Size }
func (v chunkView) Height() int { return v.c.Height }

func (v chunkView) VoxelAt(x, y, z int) (render.VoxelInfo, bool) {
	if !v.c.In(x, y, z) {
		return render.VoxelInfo{}, false
	}
	vox := v.c.At(x, y, z)
	if vox.Type == v.mats.air {
		return render.VoxelInfo{}, false
	}
	return render.VoxelInfo{
		RGB:     v.mats.rgb[vox.Type],
		Variant: vox.Variant,
		Thin:    v.mats.thin[vox.Type],
	}, true
}

func (v chunkView) LightAt(x, y, z int) uint8 {
	if !v.c.In(x, y, z) {
		return 0
	}
	return v.c.Light[v.c.Index(x, y, z)]
}
