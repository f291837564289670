package terrain

// Structure stamping. Candidate positions are drawn from the chunk's
// own PRNG stream, so placement is as deterministic as the terrain
// itself. Every stamp clips at the grid bounds and refuses columns
// whose surface already carries a natural cell, which keeps trees from
// growing into each other.

// placeStructures runs the biome's structure pass over the chunk.
func (g *Generator) placeStructures(d *ChunkData, r *Rand, surface []int) {
	p := ParamsFor(d.Biome)
	area := d.Size * d.Size

	trees := area * p.TreePermille / 1000
	for i := 0; i < trees; i++ {
		x, y := r.IntN(d.Size), r.IntN(d.Size)
		if !g.structureSiteOK(d, x, y, surface) {
			continue
		}
		z := surface[y*d.Size+x] + 1
		switch d.Biome {
		case BiomeJungle:
			g.stampJungleTree(d, r, x, y, z)
		case BiomeSnow:
			g.stampSpruce(d, r, x, y, z)
		case BiomeDesert:
			g.stampCactus(d, r, x, y, z)
		default:
			g.stampOak(d, r, x, y, z)
		}
	}

	spikes := area * p.SpikePermille / 1000
	for i := 0; i < spikes; i++ {
		x, y := r.IntN(d.Size), r.IntN(d.Size)
		if !g.structureSiteOK(d, x, y, surface) {
			continue
		}
		g.stampIceSpike(d, r, x, y, surface[y*d.Size+x]+1)
	}
}

// structureSiteOK rejects columns inside the spawn safe zone of the
// origin chunk and columns already claimed by another structure.
func (g *Generator) structureSiteOK(d *ChunkData, x, y int, surface []int) bool {
	if d.CX == 0 && d.CY == 0 {
		dx, dy := x-d.Size/2, y-d.Size/2
		rad := g.cfg.SpawnSafeRadius
		if dx*dx+dy*dy < rad*rad {
			return false
		}
	}
	s := surface[y*d.Size+x]
	if s+1 >= d.Height || d.At(x, y, s+1).Type != g.pal.Air {
		return false
	}
	return true
}

// stampOak grows a straight trunk topped by a blocky leaf cluster.
func (g *Generator) stampOak(d *ChunkData, r *Rand, x, y, z int) {
	h := r.Between(4, 6)
	for i := 0; i < h; i++ {
		d.setIfIn(x, y, z+i, Cell{Type: g.pal.OakTrunk, Natural: true})
	}
	top := z + h - 1
	nv := g.pal.variantsOf(g.pal.OakLeaves)
	for dz := -1; dz <= 2; dz++ {
		rad := 2
		if dz >= 1 {
			rad = 1
		}
		for dy := -rad; dy <= rad; dy++ {
			for dx := -rad; dx <= rad; dx++ {
				if dx == 0 && dy == 0 && dz <= 0 {
					continue // trunk core
				}
				// Trim the cluster corners.
				if dx*dx+dy*dy+dz*dz > rad*rad+2 {
					continue
				}
				g.stampLeaf(d, x+dx, y+dy, top+dz, g.pal.OakLeaves, uint8(r.IntN(nv)))
			}
		}
	}
}

// stampJungleTree grows a tall trunk with an ellipsoid canopy and
// vines hanging from the canopy underside.
func (g *Generator) stampJungleTree(d *ChunkData, r *Rand, x, y, z int) {
	h := r.Between(7, 10)
	for i := 0; i < h; i++ {
		d.setIfIn(x, y, z+i, Cell{Type: g.pal.JungleTrunk, Natural: true})
	}
	top := z + h - 1
	nv := g.pal.variantsOf(g.pal.JungleLeaves)
	const rx, rz = 3, 2
	for dz := -rz; dz <= rz; dz++ {
		for dy := -rx; dy <= rx; dy++ {
			for dx := -rx; dx <= rx; dx++ {
				if dx == 0 && dy == 0 && dz <= 0 {
					continue
				}
				// Ellipsoid membership test.
				e := float64(dx*dx+dy*dy)/float64(rx*rx) + float64(dz*dz)/float64(rz*rz)
				if e > 1.0 {
					continue
				}
				lx, ly, lz := x+dx, y+dy, top+dz
				if !g.stampLeaf(d, lx, ly, lz, g.pal.JungleLeaves, uint8(r.IntN(nv))) {
					continue
				}
				// Hang a vine strand under canopy cells that face open
				// air. Layers fill bottom-up, so a below-cell that is
				// still air stays air.
				if d.In(lx, ly, lz-1) && d.At(lx, ly, lz-1).Type == g.pal.Air && r.Chance(0.3) {
					n := r.Between(1, 3)
					for k := 1; k <= n; k++ {
						vz := lz - k
						if !d.In(lx, ly, vz) || d.At(lx, ly, vz).Type != g.pal.Air {
							break
						}
						d.Set(lx, ly, vz, Cell{Type: g.pal.Vine, Natural: true})
					}
				}
			}
		}
	}
}

// stampSpruce grows a tapering trunk wrapped in conical canopy rings.
func (g *Generator) stampSpruce(d *ChunkData, r *Rand, x, y, z int) {
	h := r.Between(5, 7)
	for i := 0; i < h; i++ {
		d.setIfIn(x, y, z+i, Cell{Type: g.pal.SpruceTrunk, Natural: true})
	}
	nv := g.pal.variantsOf(g.pal.SpruceLeaves)
	// Rings shrink toward the tip: radius 2 at the base of the canopy,
	// 0 (a cap) above the trunk top.
	for dz := 0; dz <= h; dz++ {
		rad := (h - dz) / 3
		if rad > 2 {
			rad = 2
		}
		lz := z + dz
		if dz < 2 {
			continue // bare trunk near the ground
		}
		for dy := -rad; dy <= rad; dy++ {
			for dx := -rad; dx <= rad; dx++ {
				if dx == 0 && dy == 0 && dz < h {
					continue
				}
				if abs(dx)+abs(dy) > rad+1 {
					continue
				}
				g.stampLeaf(d, x+dx, y+dy, lz, g.pal.SpruceLeaves, uint8(r.IntN(nv)))
			}
		}
	}
}

// stampCactus is a bare trunk column.
func (g *Generator) stampCactus(d *ChunkData, r *Rand, x, y, z int) {
	h := r.Between(2, 4)
	for i := 0; i < h; i++ {
		d.setIfIn(x, y, z+i, Cell{Type: g.pal.Cactus, Natural: true})
	}
}

// stampIceSpike is a free-standing tapering column of ice.
func (g *Generator) stampIceSpike(d *ChunkData, r *Rand, x, y, z int) {
	h := r.Between(3, 5)
	for i := 0; i < h; i++ {
		d.setIfIn(x, y, z+i, Cell{Type: g.pal.Ice, Natural: true})
	}
	// A wider footing for the taller spikes, filling air only.
	if h >= 4 {
		for _, o := range [][2]int{{1, 0}, {0, 1}} {
			fx, fy := x+o[0], y+o[1]
			if d.In(fx, fy, z) && d.At(fx, fy, z).Type == g.pal.Air {
				d.Set(fx, fy, z, Cell{Type: g.pal.Ice, Natural: true})
			}
		}
	}
}

// stampLeaf writes a canopy cell without overwriting trunks or
// terrain, so canopies wrap around whatever they grow against. It
// reports whether the cell was written.
func (g *Generator) stampLeaf(d *ChunkData, x, y, z int, id uint16, variant uint8) bool {
	if !d.In(x, y, z) {
		return false
	}
	if d.At(x, y, z).Type != g.pal.Air {
		return false
	}
	d.Set(x, y, z, Cell{Type: id, Natural: true, Variant: variant})
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
