package render

import "fmt"

// Camera is the isometric view transform. It is a plain value: two
// cameras with equal fields produce identical rasters, so Key doubles
// as the render-cache key. Rotation counts quarter turns
// counter-clockwise. Pitch squashes the vertical axis (1 = steep
// overhead, lower = flatter). Zoom is the half-width of one tile in
// pixels. Ceiling hides every voxel at z >= Ceiling.
type Camera struct {
	Rotation int
	Pitch    float64
	Zoom     float64
	Ceiling  int
}

func DefaultCamera(worldHeight int) Camera {
	return Camera{Rotation: 0, Pitch: 0.6, Zoom: 14, Ceiling: worldHeight}
}

// Key identifies the raster this camera produces. Any change to it
// invalidates every cached chunk bitmap.
func (c Camera) Key() string {
	return fmt.Sprintf("r%d|p%.3f|z%.2f|c%d", c.Rotation&3, c.Pitch, c.Zoom, c.Ceiling)
}

func (c Camera) halfW() float64 { return c.Zoom }
func (c Camera) halfH() float64 { return c.Zoom * 0.5 * c.Pitch }
func (c Camera) zUnit() float64 { return c.Zoom * c.Pitch }

// Project returns the screen center of the voxel at rotated column
// (u,v) and height z, in chunk projection space (origin voxel at
// u=v=z=0 projects to (0,0) before its z lift).
func (c Camera) Project(u, v, z int) (sx, sy float64) {
	sx = float64(u-v) * c.halfW()
	sy = float64(u+v)*c.halfH() - float64(z)*c.zUnit()
	return
}

// Unproject inverts Project for a fixed z plane, returning fractional
// rotated coordinates.
func (c Camera) Unproject(sx, sy float64, z int) (u, v float64) {
	diff := sx / c.halfW()
	sum := (sy + float64(z)*c.zUnit()) / c.halfH()
	u = (sum + diff) / 2
	v = (sum - diff) / 2
	return
}

// RotateIn maps original chunk coordinates to rotated screen-space
// coordinates for the current quarter turn.
func (c Camera) RotateIn(x, y, size int) (u, v int) {
	switch c.Rotation & 3 {
	case 1:
		return y, size - 1 - x
	case 2:
		return size - 1 - x, size - 1 - y
	case 3:
		return size - 1 - y, x
	default:
		return x, y
	}
}

// RotateOut inverts RotateIn.
func (c Camera) RotateOut(u, v, size int) (x, y int) {
	switch c.Rotation & 3 {
	case 1:
		return size - 1 - v, u
	case 2:
		return size - 1 - u, size - 1 - v
	case 3:
		return v, size - 1 - u
	default:
		return u, v
	}
}
