package world

import (
	"fmt"
	"strconv"
	"strings"
)

// Voxel is one cell of a chunk grid. Type is the material palette id
// (0 = AIR = absent). Durability counts the work ticks left before the
// voxel breaks; it decays in place, so damage persists while the chunk
// is loaded. Natural marks structure growth (trunks, canopies, vines)
// as opposed to terrain fill and player placements. Variant selects a
// visual shade, 0 = default.
type Voxel struct {
	Type       uint16
	Durability int16
	Natural    bool
	Variant    uint8
}

// ChunkCoord addresses a chunk on the unbounded 2D grid.
type ChunkCoord struct {
	CX int
	CY int
}

func (c ChunkCoord) Key() string {
	return fmt.Sprintf("%d,%d", c.CX, c.CY)
}

func ParseChunkKey(key string) (ChunkCoord, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return ChunkCoord{}, fmt.Errorf("bad chunk key %q", key)
	}
	cx, err := strconv.Atoi(parts[0])
	if err != nil {
		return ChunkCoord{}, fmt.Errorf("bad chunk key %q: %w", key, err)
	}
	cy, err := strconv.Atoi(parts[1])
	if err != nil {
		return ChunkCoord{}, fmt.Errorf("bad chunk key %q: %w", key, err)
	}
	return ChunkCoord{CX: cx, CY: cy}, nil
}

// Direction is a cardinal navigation step between chunks.
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
	East  Direction = "E"
	West  Direction = "W"
)

// Delta returns the chunk-grid step for the direction. North decreases
// CY, matching the generator's west/east/north/south neighbor order.
func (d Direction) Delta() (dx, dy int, ok bool) {
	switch d {
	case North:
		return 0, -1, true
	case South:
		return 0, 1, true
	case East:
		return 1, 0, true
	case West:
		return -1, 0, true
	default:
		return 0, 0, false
	}
}

// Mode selects how pointer input is interpreted.
type Mode string

const (
	ModeCamera Mode = "camera"
	ModeEdit   Mode = "edit"
)

// PointerKind distinguishes input devices; the engine treats them the
// same today but records the kind for the UI's hover affordances.
type PointerKind string

const (
	PointerMouse PointerKind = "mouse"
	PointerTouch PointerKind = "touch"
)

// Cursor is the hovered voxel plus the face the pointer rests on.
// Pos is chunk-local in original (unrotated) coordinates; Normal is
// the outward unit normal of the hovered face.
type Cursor struct {
	Pos    [3]int
	Normal [3]int
	OK     bool
}

func vkey(x, y, z int) string {
	return fmt.Sprintf("%d,%d,%d", x, y, z)
}

func parseVoxelKey(key string) ([3]int, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 3 {
		return [3]int{}, fmt.Errorf("bad voxel key %q", key)
	}
	var out [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return [3]int{}, fmt.Errorf("bad voxel key %q: %w", key, err)
		}
		out[i] = v
	}
	return out, nil
}
