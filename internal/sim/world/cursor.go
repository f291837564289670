package world

import "math"

// UpdateCursorPosition records the pointer in frame pixels and, in
// edit mode, resolves the voxel and face under it.
func (e *Engine) UpdateCursorPosition(x, y float64, kind PointerKind) {
	e.pointerX, e.pointerY = x, y
	e.pointerKind = kind
	e.pointerOK = true
	e.refreshCursor()
}

// CursorState reports the currently targeted voxel, if any.
func (e *Engine) CursorState() Cursor { return e.cursor }

func (e *Engine) refreshCursor() {
	if e.mode != ModeEdit || !e.pointerOK {
		e.cursor = Cursor{}
		return
	}
	e.cursor = e.pickVoxel(e.pointerX, e.pointerY)
}

// pickVoxel inverts the isometric projection analytically instead of
// ray-marching: walk z planes from the render ceiling down, unproject
// the pointer onto each plane and test the three face regions a voxel
// exposes there. The first hit is the front-most drawn face because
// the painter draws lower planes first and anything covering the point
// from a higher plane was tested earlier.
func (e *Engine) pickVoxel(x, y float64) Cursor {
	c := e.currentChunk()
	w, h := e.surface.Size()
	ax, ay := e.frameAnchor(c)

	// Mirror the compositor's integer anchor truncation, else picks
	// drift up to a pixel near voxel edges.
	px := x - float64(w/2) + float64(int(ax))
	py := y - float64(h/2) + float64(int(ay))

	size := c.Size
	ceil := e.cam.Ceiling
	if ceil > c.Height {
		ceil = c.Height
	}

	// Rotated-space accessors, matching the rasterizer's view of the
	// grid.
	at := func(u, v, z int) (Voxel, bool) {
		if u < 0 || u >= size || v < 0 || v >= size || z < 0 || z >= ceil {
			return Voxel{}, false
		}
		ox, oy := e.cam.RotateOut(u, v, size)
		vox := c.At(ox, oy, z)
		if vox.Type == e.mats.air {
			return Voxel{}, false
		}
		return vox, true
	}
	occludes := func(u, v, z int) bool {
		vox, ok := at(u, v, z)
		return ok && !e.mats.thin[vox.Type]
	}

	hit := func(u0, v0, z int, normal [3]int) Cursor {
		ox, oy := e.cam.RotateOut(u0, v0, size)
		return Cursor{
			Pos:    [3]int{ox, oy, z},
			Normal: e.rotateNormalOut(normal),
			OK:     true,
		}
	}

	for z := ceil - 1; z >= 0; z-- {
		u, v := e.cam.Unproject(px, py, z)

		// Top diamond of (u0, v0, z).
		u0 := int(math.Floor(u + 0.5))
		v0 := int(math.Floor(v + 0.5))
		if vox, ok := at(u0, v0, z); ok {
			if e.mats.thin[vox.Type] || !occludes(u0, v0, z+1) {
				return hit(u0, v0, z, [3]int{0, 0, 1})
			}
		}

		// Right face, the +u side: the quad parameterizes as
		// u = u0+0.5+t, v = v0+dv+t with t in [0,1), |dv| <= 0.5.
		u0 = int(math.Floor(u - 0.5))
		t := u - float64(u0) - 0.5
		v0 = int(math.Floor(v - t + 0.5))
		if vox, ok := at(u0, v0, z); ok {
			if e.mats.thin[vox.Type] || !occludes(u0+1, v0, z) {
				return hit(u0, v0, z, [3]int{1, 0, 0})
			}
		}

		// Left face, the +v side, symmetric.
		v0 = int(math.Floor(v - 0.5))
		t = v - float64(v0) - 0.5
		u0 = int(math.Floor(u - t + 0.5))
		if vox, ok := at(u0, v0, z); ok {
			if e.mats.thin[vox.Type] || !occludes(u0, v0+1, z) {
				return hit(u0, v0, z, [3]int{0, 1, 0})
			}
		}
	}
	return Cursor{}
}

// rotateNormalOut maps a rotated-space face normal back to original
// chunk coordinates, the delta form of Camera.RotateOut.
func (e *Engine) rotateNormalOut(n [3]int) [3]int {
	du, dv := n[0], n[1]
	switch e.cam.Rotation & 3 {
	case 1:
		return [3]int{-dv, du, n[2]}
	case 2:
		return [3]int{-du, -dv, n[2]}
	case 3:
		return [3]int{dv, -du, n[2]}
	default:
		return n
	}
}
