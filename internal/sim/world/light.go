package world

// relight recomputes the chunk's 0..15 light grid from scratch.
//
// Sky light enters every column from above: descending through air is
// lossless, entering a solid subtracts that material's dampening and
// the cell stores the attenuated value. The stored light then floods
// 6-connected, each step paying the entered cell's dampening (air pays
// 1), with emissive materials acting as extra seeds. Levels only ever
// rise during the flood, so relaxation terminates at the fixed point
// regardless of visit order.
func relight(c *Chunk, mats *materialTable, sky uint8) {
	size, height := c.Size, c.Height
	light := c.Light

	queue := make([]int, 0, size*size)

	// Sky pass, top down per column.
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			level := int(sky)
			for z := height - 1; z >= 0; z-- {
				i := c.Index(x, y, z)
				typ := c.Voxels[i].Type
				if typ != mats.air {
					level -= int(mats.damp[typ])
					if level < 0 {
						level = 0
					}
				}
				light[i] = uint8(level)
				if level > 0 {
					queue = append(queue, i)
				}
			}
		}
	}

	// Emissive seeds.
	for i := range c.Voxels {
		if e := mats.emit[c.Voxels[i].Type]; e > light[i] {
			light[i] = e
			queue = append(queue, i)
		}
	}

	// Flood. deltas index into the flat grid; the paired bounds checks
	// stop wrap-around at chunk faces.
	plane := size * size
	for head := 0; head < len(queue); head++ {
		i := queue[head]
		cur := int(light[i])
		if cur <= 1 {
			continue
		}
		x := i % size
		y := (i / size) % size
		z := i / plane

		spread := func(j int, typ uint16) {
			next := cur - int(mats.damp[typ])
			if next > int(light[j]) {
				light[j] = uint8(next)
				queue = append(queue, j)
			}
		}
		if x > 0 {
			spread(i-1, c.Voxels[i-1].Type)
		}
		if x < size-1 {
			spread(i+1, c.Voxels[i+1].Type)
		}
		if y > 0 {
			spread(i-size, c.Voxels[i-size].Type)
		}
		if y < size-1 {
			spread(i+size, c.Voxels[i+size].Type)
		}
		if z > 0 {
			spread(i-plane, c.Voxels[i-plane].Type)
		}
		if z < height-1 {
			spread(i+plane, c.Voxels[i+plane].Type)
		}
	}
}
