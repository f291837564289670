package world

import (
	"fmt"
	"strings"

	"isovox.app/internal/sim/catalogs"
	"isovox.app/internal/sim/terrain"
)

// materialTable flattens the material catalog into slices indexed by
// palette id so per-voxel paths never hash strings.
type materialTable struct {
	names []string
	index map[string]uint16

	air uint16

	durability []int16
	damp       []uint8
	emit       []uint8
	rgb        [][3]uint8

	solid     []bool
	breakable []bool
	placeable []bool
	thin      []bool
	trunk     []bool
	canopy    []bool
}

func newMaterialTable(mc catalogs.MaterialCatalog) *materialTable {
	n := len(mc.Palette)
	t := &materialTable{
		names:      mc.Palette,
		index:      mc.Index,
		air:        mc.Index["AIR"],
		durability: make([]int16, n),
		damp:       make([]uint8, n),
		emit:       make([]uint8, n),
		rgb:        make([][3]uint8, n),
		solid:      make([]bool, n),
		breakable:  make([]bool, n),
		placeable:  make([]bool, n),
		thin:       make([]bool, n),
		trunk:      make([]bool, n),
		canopy:     make([]bool, n),
	}
	for i, id := range mc.Palette {
		def := mc.Defs[id]
		t.durability[i] = int16(def.Durability)
		t.damp[i] = uint8(def.Dampening)
		t.emit[i] = uint8(def.Emission)
		t.rgb[i] = def.RGB
		t.solid[i] = def.Solid
		t.breakable[i] = def.Breakable
		t.placeable[i] = def.Placeable
		t.thin[i] = def.Thin
		t.trunk[i] = def.Trunk
		t.canopy[i] = def.Canopy
	}
	return t
}

func (t *materialTable) count() int { return len(t.names) }

func (t *materialTable) name(id uint16) string {
	if int(id) < len(t.names) {
		return t.names[id]
	}
	return fmt.Sprintf("UNKNOWN_%d", id)
}

// occludes reports whether a material hides the face behind it. Thin
// materials (vines) never do.
func (t *materialTable) occludes(id uint16) bool {
	return id != t.air && !t.thin[id]
}

// resolvePalette binds the generator's named materials to catalog ids.
// A missing id is a config error, not a runtime fallback.
func resolvePalette(mc catalogs.MaterialCatalog) (terrain.Palette, error) {
	var missing []string
	req := func(id string) uint16 {
		v, ok := mc.Index[id]
		if !ok {
			missing = append(missing, id)
		}
		return v
	}

	p := terrain.Palette{
		Air:     req("AIR"),
		Bedrock: req("BEDROCK"),
		Stone:   req("STONE"),
		Dirt:    req("DIRT"),

		Grass:        req("GRASS"),
		PrairieGrass: req("PRAIRIE_GRASS"),
		Sand:         req("SAND"),
		Sandstone:    req("SANDSTONE"),
		JungleGrass:  req("JUNGLE_GRASS"),
		Snow:         req("SNOW"),
		Ice:          req("ICE"),

		OakTrunk:     req("OAK_TRUNK"),
		OakLeaves:    req("OAK_LEAVES"),
		JungleTrunk:  req("JUNGLE_TRUNK"),
		JungleLeaves: req("JUNGLE_LEAVES"),
		SpruceTrunk:  req("SPRUCE_TRUNK"),
		SpruceLeaves: req("SPRUCE_LEAVES"),
		Cactus:       req("CACTUS"),
		Vine:         req("VINE"),
		Crystal:      req("CRYSTAL"),
	}
	if len(missing) > 0 {
		return terrain.Palette{}, fmt.Errorf("material palette missing: %s", strings.Join(missing, ", "))
	}

	p.Variants = map[uint16]uint8{}
	for id, def := range mc.Defs {
		if def.Variants > 1 {
			p.Variants[mc.Index[id]] = uint8(def.Variants)
		}
	}
	return p, nil
}
