package world

import "testing"

// clearBox empties a block of cells so hand-built fixtures stand free
// of generated terrain.
func clearBox(c *Chunk, x0, x1, y0, y1, z0, z1 int) {
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				c.Set(x, y, z, Voxel{})
			}
		}
	}
}

// plantTree builds a three-voxel natural trunk with a five-leaf crown,
// the smallest shape that exercises felling and decay.
func plantTree(t *testing.T, e *Engine, x, y, zBase int) (trunk, leaves uint16) {
	t.Helper()
	trunk = materialID(t, e, "OAK_TRUNK")
	leaves = materialID(t, e, "OAK_LEAVES")
	c := e.currentChunk()
	for dz := 0; dz < 3; dz++ {
		c.Set(x, y, zBase+dz, Voxel{Type: trunk, Durability: e.mats.durability[trunk], Natural: true})
	}
	top := zBase + 3
	for _, d := range [][2]int{{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		c.Set(x+d[0], y+d[1], top, Voxel{Type: leaves, Durability: e.mats.durability[leaves], Natural: true})
	}
	return trunk, leaves
}

func stepThrough(e *Engine, tick int64) {
	for e.clock.Tick() <= tick {
		e.Step()
	}
}

func TestFellingDropsTreeBottomToTop(t *testing.T) {
	e, _ := newTestEngine(t, "fell-tree")
	c := e.currentChunk()
	clearBox(c, 2, 10, 2, 8, 38, 45)
	trunk, leaves := plantTree(t, e, 5, 5, 40)

	events := 0
	e.OnInventoryUpdate = func(id uint16, count int) {
		if id != trunk {
			t.Fatalf("inventory event for %d, want the mined trunk %d", id, trunk)
		}
		events++
	}

	start := e.clock.Tick()
	e.destroyVoxel(c, [3]int{5, 5, 40}, start)
	if got := c.At(5, 5, 40).Type; got != e.mats.air {
		t.Fatalf("mined trunk still present: %d", got)
	}

	// FellingDelayTicks is 2: the next segment falls at start+2, the
	// one above at start+4, and decay fires within start+4..start+6.
	stepThrough(e, start+1)
	if got := c.At(5, 5, 41).Type; got != trunk {
		t.Fatalf("second segment fell early: %d", got)
	}
	stepThrough(e, start+2)
	if got := c.At(5, 5, 41).Type; got != e.mats.air {
		t.Fatalf("second segment still standing: %d", got)
	}
	if got := c.At(5, 5, 42).Type; got != trunk {
		t.Fatalf("third segment fell out of order: %d", got)
	}
	if got := c.At(5, 5, 43).Type; got != leaves {
		t.Fatalf("canopy decayed before its delay: %d", got)
	}
	stepThrough(e, start+4)
	if got := c.At(5, 5, 42).Type; got != e.mats.air {
		t.Fatalf("third segment still standing: %d", got)
	}
	stepThrough(e, start+6)
	for _, d := range [][2]int{{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		if got := c.At(5+d[0], 5+d[1], 43).Type; got != e.mats.air {
			t.Fatalf("leaf at offset %v never decayed: %d", d, got)
		}
	}

	if events != 1 {
		t.Fatalf("inventory events = %d, want only the mined voxel", events)
	}
	if e.EditCount() != 8 {
		t.Fatalf("EditCount = %d, want 8 cleared cells", e.EditCount())
	}
}

func TestFellingSparesSharedCanopy(t *testing.T) {
	e, _ := newTestEngine(t, "fell-shared")
	c := e.currentChunk()
	clearBox(c, 2, 10, 2, 8, 38, 45)
	trunk, leaves := plantTree(t, e, 5, 5, 40)
	plantTree(t, e, 7, 5, 40)

	start := e.clock.Tick()
	e.destroyVoxel(c, [3]int{5, 5, 40}, start)
	stepThrough(e, start+8)

	for dz := 1; dz < 3; dz++ {
		if got := c.At(5, 5, 40+dz).Type; got != e.mats.air {
			t.Fatalf("felled trunk segment z=%d survived: %d", 40+dz, got)
		}
		if got := c.At(7, 5, 40+dz).Type; got != trunk {
			t.Fatalf("neighbour tree lost its trunk at z=%d: %d", 40+dz, got)
		}
	}
	// The crowns bridge into one cluster that the standing tree keeps
	// alive.
	for _, x := range []int{4, 5, 6, 7, 8} {
		if got := c.At(x, 5, 43).Type; got != leaves {
			t.Fatalf("supported leaf at x=%d decayed: %d", x, got)
		}
	}
}

func TestFellingSkipsStaleEdits(t *testing.T) {
	e, _ := newTestEngine(t, "fell-stale")
	c := e.currentChunk()
	clearBox(c, 2, 10, 2, 8, 38, 45)
	trunk, _ := plantTree(t, e, 5, 5, 40)
	stone := materialID(t, e, "STONE")

	start := e.clock.Tick()
	e.destroyVoxel(c, [3]int{5, 5, 40}, start)
	if got := c.At(5, 5, 42).Type; got != trunk {
		t.Fatalf("felling removed the third segment immediately: %d", got)
	}

	// The cell changes hands before its removal fires; the stale edit
	// must leave the new occupant alone.
	c.Set(5, 5, 42, Voxel{Type: stone, Durability: 8})
	stepThrough(e, start+8)

	if got := c.At(5, 5, 41).Type; got != e.mats.air {
		t.Fatalf("unchanged segment survived: %d", got)
	}
	if got := c.At(5, 5, 42).Type; got != stone {
		t.Fatalf("stale removal clobbered the replacement: %d", got)
	}
}
