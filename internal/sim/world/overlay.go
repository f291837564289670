package world

import (
	"sort"

	"isovox.app/internal/persistence/snapshot"
)

// voxelState is one persisted edit: a cleared cell, or a replacement
// voxel (which may just be a natural voxel carrying mining damage).
type voxelState struct {
	Cleared    bool
	Type       uint16
	Natural    bool
	Variant    uint8
	Durability int16
}

// overlay holds every player edit keyed by chunk and cell. Generation
// stays pure; edits are replayed onto chunks as they load.
type overlay struct {
	edits map[ChunkCoord]map[[3]int]voxelState
}

func newOverlay() *overlay {
	return &overlay{edits: map[ChunkCoord]map[[3]int]voxelState{}}
}

func (o *overlay) len() int {
	n := 0
	for _, m := range o.edits {
		n += len(m)
	}
	return n
}

func (o *overlay) record(coord ChunkCoord, pos [3]int, v Voxel) {
	m := o.edits[coord]
	if m == nil {
		m = map[[3]int]voxelState{}
		o.edits[coord] = m
	}
	m[pos] = voxelState{
		Type:       v.Type,
		Natural:    v.Natural,
		Variant:    v.Variant,
		Durability: v.Durability,
	}
}

func (o *overlay) recordCleared(coord ChunkCoord, pos [3]int) {
	m := o.edits[coord]
	if m == nil {
		m = map[[3]int]voxelState{}
		o.edits[coord] = m
	}
	m[pos] = voxelState{Cleared: true}
}

func (o *overlay) get(coord ChunkCoord, pos [3]int) (voxelState, bool) {
	s, ok := o.edits[coord][pos]
	return s, ok
}

// applyTo replays a chunk's recorded edits over freshly generated
// voxels. Positions outside the grid are skipped: they can only appear
// when generation parameters changed under an old save.
func (o *overlay) applyTo(c *Chunk, mats *materialTable) {
	for pos, s := range o.edits[c.Coord] {
		x, y, z := pos[0], pos[1], pos[2]
		if !c.In(x, y, z) {
			continue
		}
		if s.Cleared {
			c.Set(x, y, z, Voxel{Type: mats.air})
			continue
		}
		c.Set(x, y, z, Voxel{
			Type:       s.Type,
			Durability: s.Durability,
			Natural:    s.Natural,
			Variant:    s.Variant,
		})
	}
}

// export flattens the overlay into the versioned snapshot form.
// Material types travel as string ids so saves survive palette
// reordering, and iteration is sorted so identical worlds produce
// identical files.
func (o *overlay) export(seed string, tick int64, mats *materialTable) snapshot.OverlayV1 {
	snap := snapshot.OverlayV1{
		Header: snapshot.Header{Version: 1, Seed: seed, Tick: tick},
	}

	coords := make([]ChunkCoord, 0, len(o.edits))
	for coord := range o.edits {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].CX != coords[j].CX {
			return coords[i].CX < coords[j].CX
		}
		return coords[i].CY < coords[j].CY
	})

	for _, coord := range coords {
		m := o.edits[coord]
		positions := make([][3]int, 0, len(m))
		for pos := range m {
			positions = append(positions, pos)
		}
		sort.Slice(positions, func(i, j int) bool {
			a, b := positions[i], positions[j]
			if a[2] != b[2] {
				return a[2] < b[2]
			}
			if a[1] != b[1] {
				return a[1] < b[1]
			}
			return a[0] < b[0]
		})

		ce := snapshot.ChunkEditsV1{Key: coord.Key()}
		for _, pos := range positions {
			s := m[pos]
			e := snapshot.EditV1{Key: vkey(pos[0], pos[1], pos[2])}
			if s.Cleared {
				e.Cleared = true
			} else {
				e.Type = mats.name(s.Type)
				e.Natural = s.Natural
				e.Variant = s.Variant
				e.Durability = s.Durability
			}
			ce.Edits = append(ce.Edits, e)
		}
		snap.Chunks = append(snap.Chunks, ce)
	}
	return snap
}

// importOverlay rebuilds the edit map from a snapshot. Edits naming a
// material the current catalog no longer defines are dropped and
// counted so the caller can log once.
func importOverlay(snap *snapshot.OverlayV1, mats *materialTable) (*overlay, int) {
	o := newOverlay()
	if snap == nil {
		return o, 0
	}
	skipped := 0
	for _, ce := range snap.Chunks {
		coord, err := ParseChunkKey(ce.Key)
		if err != nil {
			skipped += len(ce.Edits)
			continue
		}
		for _, e := range ce.Edits {
			pos, err := parseVoxelKey(e.Key)
			if err != nil {
				skipped++
				continue
			}
			if e.Cleared {
				o.recordCleared(coord, pos)
				continue
			}
			id, ok := mats.index[e.Type]
			if !ok {
				skipped++
				continue
			}
			dur := e.Durability
			if dur == 0 {
				dur = mats.durability[id]
			}
			o.record(coord, pos, Voxel{
				Type:       id,
				Durability: dur,
				Natural:    e.Natural,
				Variant:    e.Variant,
			})
		}
	}
	return o, skipped
}
