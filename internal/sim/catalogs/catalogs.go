package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Catalogs bundles the data-driven definitions the engine loads at
// startup. Material ids are strings in config and on the wire; the
// palette maps them to stable uint16 ids for chunk storage.
type Catalogs struct {
	Materials MaterialCatalog
}

type MaterialCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]MaterialDef
	PaletteDigest string
	DefsDigest    string
}

// MaterialDef describes one voxel material. Durability is the number
// of work ticks a miner spends before the voxel breaks. Dampening is
// the light cost of entering the cell (AIR pays 1). Thin materials do
// not occlude neighbor faces when rendering.
type MaterialDef struct {
	ID         string `json:"id"`
	Solid      bool   `json:"solid"`
	Breakable  bool   `json:"breakable"`
	Placeable  bool   `json:"placeable"`
	Durability int    `json:"durability,omitempty"`
	Dampening  int    `json:"dampening"`
	Emission   int    `json:"emission,omitempty"`
	Thin       bool   `json:"thin,omitempty"`
	Trunk      bool   `json:"trunk,omitempty"`
	Canopy     bool   `json:"canopy,omitempty"`
	Variants   int    `json:"variants,omitempty"`
	Color      string `json:"color,omitempty"`

	// Parsed from Color at load time.
	RGB [3]uint8 `json:"-"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadMaterials(filepath.Join(configDir, "materials.json"), &c.Materials); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadMaterials(path string, out *MaterialCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []MaterialDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("materials.json: %w", err)
	}
	out.Defs = map[string]MaterialDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("materials.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("materials.json: duplicate id %q", d.ID)
		}
		if err := validateMaterial(d); err != nil {
			return fmt.Errorf("materials.json: %s: %w", d.ID, err)
		}
		if d.Solid {
			rgb, err := parseHexColor(d.Color)
			if err != nil {
				return fmt.Errorf("materials.json: %s: %w", d.ID, err)
			}
			d.RGB = rgb
		}
		if d.Variants < 1 {
			d.Variants = 1
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0: chunk storage relies on
	// the zero value meaning "empty".
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("materials.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func validateMaterial(d MaterialDef) error {
	if d.Dampening < 1 || d.Dampening > 15 {
		return fmt.Errorf("dampening %d out of [1,15]", d.Dampening)
	}
	if d.Emission < 0 || d.Emission > 15 {
		return fmt.Errorf("emission %d out of [0,15]", d.Emission)
	}
	if d.Breakable && d.Durability < 1 {
		return fmt.Errorf("breakable material needs durability >= 1, got %d", d.Durability)
	}
	if d.Trunk && d.Canopy {
		return fmt.Errorf("material cannot be both trunk and canopy")
	}
	if !d.Solid && d.ID != "AIR" {
		return fmt.Errorf("non-solid materials other than AIR are not supported")
	}
	return nil
}

func parseHexColor(s string) ([3]uint8, error) {
	var rgb [3]uint8
	if len(s) != 7 || s[0] != '#' {
		return rgb, fmt.Errorf("color %q is not #rrggbb", s)
	}
	for i := 0; i < 3; i++ {
		hi, ok1 := hexNibble(s[1+i*2])
		lo, ok2 := hexNibble(s[2+i*2])
		if !ok1 || !ok2 {
			return rgb, fmt.Errorf("color %q is not #rrggbb", s)
		}
		rgb[i] = hi<<4 | lo
	}
	return rgb, nil
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
