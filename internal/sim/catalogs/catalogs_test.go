package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoConfigs(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m := &c.Materials

	if got := m.Index["AIR"]; got != 0 {
		t.Fatalf("AIR palette id = %d, want 0", got)
	}
	if m.Palette[0] != "AIR" {
		t.Fatalf("palette[0] = %q, want AIR", m.Palette[0])
	}
	if len(m.Palette) != len(m.Defs) {
		t.Fatalf("palette/defs size mismatch: %d vs %d", len(m.Palette), len(m.Defs))
	}
	if m.PaletteDigest == "" || m.DefsDigest == "" {
		t.Fatalf("digests not computed")
	}

	for _, id := range []string{"BEDROCK", "STONE", "GRASS", "OAK_TRUNK", "OAK_LEAVES", "CRYSTAL", "VINE"} {
		if _, ok := m.Defs[id]; !ok {
			t.Fatalf("missing material %s", id)
		}
	}
	if d := m.Defs["BEDROCK"]; d.Breakable || d.Placeable {
		t.Fatalf("bedrock must be neither breakable nor placeable: %+v", d)
	}
	if d := m.Defs["CRYSTAL"]; d.Emission != 15 {
		t.Fatalf("crystal emission = %d, want 15", d.Emission)
	}
	if d := m.Defs["VINE"]; !d.Thin {
		t.Fatalf("vine must be thin")
	}
	if d := m.Defs["OAK_TRUNK"]; !d.Trunk || d.Canopy {
		t.Fatalf("oak trunk flags wrong: %+v", d)
	}
	if d := m.Defs["OAK_LEAVES"]; !d.Canopy || d.Trunk {
		t.Fatalf("oak leaves flags wrong: %+v", d)
	}
	if d := m.Defs["STONE"]; d.RGB == [3]uint8{} {
		t.Fatalf("stone color not parsed")
	}
}

func TestLoad_PaletteStableAcrossLoads(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "configs")
	a, err := Load(dir)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	b, err := Load(dir)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if a.Materials.PaletteDigest != b.Materials.PaletteDigest {
		t.Fatalf("palette digest unstable")
	}
	for i, id := range a.Materials.Palette {
		if b.Materials.Palette[i] != id {
			t.Fatalf("palette order unstable at %d: %s vs %s", i, id, b.Materials.Palette[i])
		}
	}
}

func TestLoad_RejectsBadDefs(t *testing.T) {
	write := func(t *testing.T, body string) string {
		t.Helper()
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "materials.json"), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return dir
	}

	cases := []struct {
		name string
		body string
	}{
		{"missing air", `[{"id":"STONE","solid":true,"breakable":true,"durability":1,"dampening":15,"color":"#888888"}]`},
		{"bad dampening", `[{"id":"AIR","solid":false,"dampening":0}]`},
		{"bad emission", `[{"id":"AIR","solid":false,"dampening":1,"emission":16}]`},
		{"breakable without durability", `[{"id":"AIR","solid":false,"dampening":1},{"id":"STONE","solid":true,"breakable":true,"dampening":15,"color":"#888888"}]`},
		{"bad color", `[{"id":"AIR","solid":false,"dampening":1},{"id":"STONE","solid":true,"dampening":15,"color":"gray"}]`},
		{"duplicate id", `[{"id":"AIR","solid":false,"dampening":1},{"id":"AIR","solid":false,"dampening":1}]`},
	}
	for _, tc := range cases {
		if _, err := Load(write(t, tc.body)); err == nil {
			t.Fatalf("%s: load accepted invalid defs", tc.name)
		}
	}
}
