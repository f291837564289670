package world

import (
	"fmt"
	"sort"

	"github.com/willf/bitset"

	"isovox.app/internal/sim/terrain"
)

// fellConnectedTrunks tears down the tree a mined trunk voxel belonged
// to: every natural trunk cell 26-connected to the removed one is
// scheduled for removal bottom to top with a per-rank delay, and any
// canopy those trunks carried decays shortly after.
func (e *Engine) fellConnectedTrunks(c *Chunk, origin [3]int, tick int64) {
	felled := e.collectTrunkComponent(c, origin)

	sort.Slice(felled, func(i, j int) bool {
		a, b := felled[i], felled[j]
		if a[2] != b[2] {
			return a[2] < b[2]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[0] < b[0]
	})

	delay := int64(e.tun.FellingDelayTicks)
	for rank, pos := range felled {
		v := c.At(pos[0], pos[1], pos[2])
		e.sched.schedule(tick+int64(rank+1)*delay, c.Coord, pos, v.Type, "FELL")
	}

	e.decayUnsupportedCanopy(c, origin, felled, tick)
}

// collectTrunkComponent gathers the natural trunk cells 26-connected
// to the removed origin cell, in deterministic discovery order.
func (e *Engine) collectTrunkComponent(c *Chunk, origin [3]int) [][3]int {
	visited := bitset.New(uint(len(c.Voxels)))
	var queue, out [][3]int

	push := func(x, y, z int) {
		if !c.In(x, y, z) {
			return
		}
		i := uint(c.Index(x, y, z))
		if visited.Test(i) {
			return
		}
		visited.Set(i)
		v := c.At(x, y, z)
		if !v.Natural || !e.mats.trunk[v.Type] {
			return
		}
		pos := [3]int{x, y, z}
		queue = append(queue, pos)
		out = append(out, pos)
	}

	neighbors26(origin, push)
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		neighbors26(pos, push)
	}
	return out
}

// decayUnsupportedCanopy finds natural canopy clusters touching the
// felled trunks and schedules the unsupported ones for removal. A
// cluster counts as supported while any member still has a natural
// trunk in its 26-neighborhood that is not itself being felled.
func (e *Engine) decayUnsupportedCanopy(c *Chunk, origin [3]int, felled [][3]int, tick int64) {
	felledSet := bitset.New(uint(len(c.Voxels)))
	felledSet.Set(uint(c.Index(origin[0], origin[1], origin[2])))
	for _, pos := range felled {
		felledSet.Set(uint(c.Index(pos[0], pos[1], pos[2])))
	}

	visited := bitset.New(uint(len(c.Voxels)))
	var r *terrain.Rand

	checkCluster := func(seed [3]int) {
		cluster := e.collectCanopyCluster(c, seed, visited)
		if len(cluster) == 0 {
			return
		}
		for _, pos := range cluster {
			if e.hasLiveTrunkSupport(c, pos, felledSet) {
				return
			}
		}
		if r == nil {
			r = terrain.NewRand(fmt.Sprintf("%s:decay:%d,%d:%d", e.seed, c.Coord.CX, c.Coord.CY, tick))
		}
		delay := int64(e.tun.LeafDecayDelayTicks)
		for _, pos := range cluster {
			fire := tick + delay
			if e.tun.LeafDecayJitter > 0 {
				fire += int64(r.IntN(e.tun.LeafDecayJitter))
			}
			v := c.At(pos[0], pos[1], pos[2])
			e.sched.schedule(fire, c.Coord, pos, v.Type, "DECAY")
		}
	}

	seedFrom := func(pos [3]int) {
		neighbors6(pos, func(x, y, z int) {
			if !c.In(x, y, z) {
				return
			}
			v := c.At(x, y, z)
			if v.Natural && e.mats.canopy[v.Type] {
				checkCluster([3]int{x, y, z})
			}
		})
	}

	seedFrom(origin)
	for _, pos := range felled {
		seedFrom(pos)
	}
}

// collectCanopyCluster gathers the 6-connected natural canopy
// component containing seed. Cells already claimed by an earlier
// cluster stay claimed, so overlapping seeds coalesce.
func (e *Engine) collectCanopyCluster(c *Chunk, seed [3]int, visited *bitset.BitSet) [][3]int {
	var queue, out [][3]int

	push := func(x, y, z int) {
		if !c.In(x, y, z) {
			return
		}
		i := uint(c.Index(x, y, z))
		if visited.Test(i) {
			return
		}
		v := c.At(x, y, z)
		if !v.Natural || !e.mats.canopy[v.Type] {
			return
		}
		visited.Set(i)
		pos := [3]int{x, y, z}
		queue = append(queue, pos)
		out = append(out, pos)
	}

	push(seed[0], seed[1], seed[2])
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		neighbors6(pos, push)
	}
	return out
}

func (e *Engine) hasLiveTrunkSupport(c *Chunk, pos [3]int, felledSet *bitset.BitSet) bool {
	support := false
	neighbors26(pos, func(x, y, z int) {
		if support || !c.In(x, y, z) {
			return
		}
		if felledSet.Test(uint(c.Index(x, y, z))) {
			return
		}
		v := c.At(x, y, z)
		if v.Natural && e.mats.trunk[v.Type] {
			support = true
		}
	})
	return support
}

func neighbors26(pos [3]int, fn func(x, y, z int)) {
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				fn(pos[0]+dx, pos[1]+dy, pos[2]+dz)
			}
		}
	}
}

func neighbors6(pos [3]int, fn func(x, y, z int)) {
	fn(pos[0]-1, pos[1], pos[2])
	fn(pos[0]+1, pos[1], pos[2])
	fn(pos[0], pos[1]-1, pos[2])
	fn(pos[0], pos[1]+1, pos[2])
	fn(pos[0], pos[1], pos[2]-1)
	fn(pos[0], pos[1], pos[2]+1)
}
