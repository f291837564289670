package render

import (
	"image"
	"image/color"
	"math"

	"github.com/willf/bitset"
)

// ChunkView is the read surface the rasterizer draws from. The world
// package implements it on its chunk type; keeping it an interface
// here avoids a dependency cycle and keeps the renderer testable with
// fakes. Coordinates are original (unrotated) chunk-local. VoxelAt
// reports ok=false for empty cells and for anything outside the grid:
// a voxel on the chunk edge treats the unseen neighbor chunk as
// absent, so boundary faces over-draw rather than consult other
// chunks.
type ChunkView interface {
	Size() int
	Height() int
	VoxelAt(x, y, z int) (VoxelInfo, bool)
	LightAt(x, y, z int) uint8
}

// VoxelInfo carries the render-relevant slice of a voxel. Thin
// features never occlude neighbors and are always drawn even when
// enclosed.
type VoxelInfo struct {
	RGB     [3]uint8
	Variant uint8
	Thin    bool
}

// Bitmap is one chunk rasterized under one camera. OffsetX/OffsetY
// place pixel (0,0) in chunk projection space, so callers can
// composite without re-deriving the extent.
type Bitmap struct {
	Img     *image.RGBA
	OffsetX int
	OffsetY int

	// Voxels drawn with at least one visible face, for stats.
	Voxels int
}

// Per-orientation shadow terms.
const (
	shadeTop   = 1.00
	shadeRight = 0.75
	shadeLeft  = 0.55
)

// RenderChunk rasterizes every visible voxel of the view under cam
// into a tight bitmap. Voxels are visited back to front along the
// rotated diagonal so nearer faces paint over farther ones; per voxel
// only the faces whose neighbor is absent get drawn, except thin
// features which are drawn unconditionally.
func RenderChunk(view ChunkView, cam Camera) *Bitmap {
	size := view.Size()
	ceil := cam.Ceiling
	if h := view.Height(); ceil > h {
		ceil = h
	}
	if size <= 0 || ceil <= 0 {
		return &Bitmap{Img: image.NewRGBA(image.Rect(0, 0, 1, 1))}
	}

	hw, hh, zu := cam.halfW(), cam.halfH(), cam.zUnit()

	// Projection-space extent of the whole bounding volume.
	minX := int(math.Floor(-float64(size) * hw))
	maxX := int(math.Ceil(float64(size) * hw))
	minY := int(math.Floor(-float64(ceil-1)*zu - hh))
	maxY := int(math.Ceil(float64(2*(size-1))*hh + hh + zu))

	bm := &Bitmap{
		Img:     image.NewRGBA(image.Rect(0, 0, maxX-minX+1, maxY-minY+1)),
		OffsetX: minX,
		OffsetY: minY,
	}

	at := func(u, v, z int) (VoxelInfo, bool) {
		if u < 0 || u >= size || v < 0 || v >= size || z < 0 || z >= ceil {
			return VoxelInfo{}, false
		}
		x, y := cam.RotateOut(u, v, size)
		return view.VoxelAt(x, y, z)
	}
	// Occupancy mask over rotated cells. A cell blocks a neighbor's
	// face only if it holds a non-thin voxel, so thin cells stay unset.
	occ := bitset.New(uint(size * size * ceil))
	for z := 0; z < ceil; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				info, ok := view.VoxelAt(x, y, z)
				if !ok || info.Thin {
					continue
				}
				u, v := cam.RotateIn(x, y, size)
				occ.Set(uint((z*size+v)*size + u))
			}
		}
	}
	occludes := func(u, v, z int) bool {
		if u < 0 || u >= size || v < 0 || v >= size || z < 0 || z >= ceil {
			return false
		}
		return occ.Test(uint((z*size+v)*size + u))
	}

	for s := 0; s <= 2*(size-1); s++ {
		uLo := 0
		if s > size-1 {
			uLo = s - (size - 1)
		}
		uHi := s
		if uHi > size-1 {
			uHi = size - 1
		}
		for u := uLo; u <= uHi; u++ {
			v := s - u
			for z := 0; z < ceil; z++ {
				info, ok := at(u, v, z)
				if !ok {
					continue
				}
				top := info.Thin || !occludes(u, v, z+1)
				right := info.Thin || !occludes(u+1, v, z)
				left := info.Thin || !occludes(u, v+1, z)
				if !top && !right && !left {
					continue
				}

				x, y := cam.RotateOut(u, v, size)
				light := float64(view.LightAt(x, y, z))
				f := (0.25 + 0.75*light/15.0) * variantShade(info.Variant)

				sx, sy := cam.Project(u, v, z)
				sx -= float64(bm.OffsetX)
				sy -= float64(bm.OffsetY)

				if top {
					fillQuad(bm.Img, [4]point{
						{sx, sy - hh}, {sx + hw, sy}, {sx, sy + hh}, {sx - hw, sy},
					}, shade(info.RGB, f*shadeTop))
				}
				if right {
					fillQuad(bm.Img, [4]point{
						{sx + hw, sy}, {sx, sy + hh}, {sx, sy + hh + zu}, {sx + hw, sy + zu},
					}, shade(info.RGB, f*shadeRight))
				}
				if left {
					fillQuad(bm.Img, [4]point{
						{sx - hw, sy}, {sx, sy + hh}, {sx, sy + hh + zu}, {sx - hw, sy + zu},
					}, shade(info.RGB, f*shadeLeft))
				}
				bm.Voxels++
			}
		}
	}
	return bm
}

// variantShade nudges brightness per visual variant so same-material
// runs don't read as a flat slab.
func variantShade(variant uint8) float64 {
	switch variant % 3 {
	case 1:
		return 0.94
	case 2:
		return 1.06
	default:
		return 1.0
	}
}

func shade(rgb [3]uint8, f float64) color.RGBA {
	clamp := func(c uint8) uint8 {
		v := float64(c) * f
		if v > 255 {
			return 255
		}
		if v < 0 {
			return 0
		}
		return uint8(v)
	}
	return color.RGBA{R: clamp(rgb[0]), G: clamp(rgb[1]), B: clamp(rgb[2]), A: 255}
}

type point struct{ x, y float64 }

// fillQuad scan-fills a convex quad given in clockwise or
// counter-clockwise order.
func fillQuad(img *image.RGBA, q [4]point, col color.RGBA) {
	minY, maxY := q[0].y, q[0].y
	for _, p := range q[1:] {
		if p.y < minY {
			minY = p.y
		}
		if p.y > maxY {
			maxY = p.y
		}
	}
	b := img.Bounds()
	y0 := int(math.Floor(minY))
	y1 := int(math.Ceil(maxY))
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y-1 {
		y1 = b.Max.Y - 1
	}
	for y := y0; y <= y1; y++ {
		cy := float64(y) + 0.5
		xl, xr := math.Inf(1), math.Inf(-1)
		for i := 0; i < 4; i++ {
			a, bp := q[i], q[(i+1)%4]
			if (a.y <= cy) == (bp.y <= cy) {
				continue
			}
			t := (cy - a.y) / (bp.y - a.y)
			x := a.x + t*(bp.x-a.x)
			if x < xl {
				xl = x
			}
			if x > xr {
				xr = x
			}
		}
		if xl > xr {
			continue
		}
		x0 := int(math.Floor(xl))
		x1 := int(math.Ceil(xr)) - 1
		if x0 < b.Min.X {
			x0 = b.Min.X
		}
		if x1 > b.Max.X-1 {
			x1 = b.Max.X - 1
		}
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
