package world

// HandleInput presses or releases the edit button. While held in edit
// mode, the cursor target takes mining damage every tick.
func (e *Engine) HandleInput(down bool) {
	if e.mode != ModeEdit {
		e.miningHeld = false
		return
	}
	e.miningHeld = down
}

// advanceMining applies one tick of damage to whatever the cursor
// rests on. Damage sticks to the voxel: pointing away and back resumes
// where mining left off, and partial damage survives saves.
func (e *Engine) advanceMining(tick int64) {
	if !e.miningHeld || e.mode != ModeEdit {
		return
	}
	e.refreshCursor()
	if !e.cursor.OK {
		return
	}
	c := e.currentChunk()
	pos := e.cursor.Pos
	v := c.At(pos[0], pos[1], pos[2])
	if v.Type == e.mats.air || !e.mats.breakable[v.Type] {
		return
	}
	v.Durability -= int16(e.tun.MiningRate)
	if v.Durability > 0 {
		c.Set(pos[0], pos[1], pos[2], v)
		e.overlay.record(c.Coord, pos, v)
		return
	}
	e.destroyVoxel(c, pos, tick)
}

// destroyVoxel is mining completion: the cell clears, the material is
// tallied, and a felled trunk drags its tree down after it.
func (e *Engine) destroyVoxel(c *Chunk, pos [3]int, tick int64) {
	v := c.At(pos[0], pos[1], pos[2])
	from := v.Type

	e.removeVoxel(c, pos, tick, "MINE")

	e.inventory[from]++
	if e.OnInventoryUpdate != nil {
		e.OnInventoryUpdate(from, e.inventory[from])
	}

	if v.Natural && e.mats.trunk[from] {
		e.fellConnectedTrunks(c, pos, tick)
	}
	e.refreshCursor()
}

// removeVoxel clears one cell with full bookkeeping: overlay record,
// relight, raster invalidation, audit row. It never touches the
// inventory; only voxels mined to zero tally.
func (e *Engine) removeVoxel(c *Chunk, pos [3]int, tick int64, reason string) {
	x, y, z := pos[0], pos[1], pos[2]
	from := c.At(x, y, z).Type
	c.Set(x, y, z, Voxel{Type: e.mats.air})
	e.overlay.recordCleared(c.Coord, pos)
	relight(c, e.mats, e.clock.SkyLight())
	e.dirtyNeighbors(c.Coord)
	e.recordEdit(tick, c.Coord, pos, from, e.mats.air, reason)
}

func (e *Engine) clearVoxel(c *Chunk, pos [3]int, reason string) {
	e.removeVoxel(c, pos, e.clock.Tick(), reason)
}

// PlaceBlock puts the selected material into the empty cell on the
// cursor's face side. No selection, no cursor, out-of-bounds or an
// occupied target are silent no-ops.
func (e *Engine) PlaceBlock() {
	if e.selected == 0 || !e.cursor.OK {
		return
	}
	c := e.currentChunk()
	x := e.cursor.Pos[0] + e.cursor.Normal[0]
	y := e.cursor.Pos[1] + e.cursor.Normal[1]
	z := e.cursor.Pos[2] + e.cursor.Normal[2]
	if !c.In(x, y, z) {
		return
	}
	if c.At(x, y, z).Type != e.mats.air {
		return
	}

	pos := [3]int{x, y, z}
	v := Voxel{
		Type:       e.selected,
		Durability: e.mats.durability[e.selected],
	}
	c.Set(x, y, z, v)
	e.overlay.record(c.Coord, pos, v)
	relight(c, e.mats, e.clock.SkyLight())
	e.dirtyNeighbors(c.Coord)
	e.recordEdit(e.clock.Tick(), c.Coord, pos, e.mats.air, e.selected, "PLACE")
	if e.OnBlockPlaced != nil {
		e.OnBlockPlaced(e.selected, pos)
	}
	e.refreshCursor()
}

// dirtyNeighbors invalidates the rasters of the four orthogonal
// neighbor chunks, if they are resident. peek never generates.
func (e *Engine) dirtyNeighbors(coord ChunkCoord) {
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		if n := e.chunks.peek(ChunkCoord{CX: coord.CX + d[0], CY: coord.CY + d[1]}); n != nil {
			n.MarkDirty()
		}
	}
}
