package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("missing file should yield defaults, got %+v", got)
	}
}

func TestLoad_PartialFileOverridesFieldwise(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	body := "world_height: 96\nchunk_size_min: 32\nchunk_size_max: 40\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.WorldHeight != 96 || got.ChunkSizeMin != 32 || got.ChunkSizeMax != 40 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.TickRateHz != Defaults().TickRateHz {
		t.Fatalf("untouched field lost its default: %+v", got)
	}
}

func TestLoad_RejectsInvertedChunkRange(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("chunk_size_min: 50\nchunk_size_max: 30\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("inverted chunk range accepted")
	}
}

func TestLoad_RepoConfig(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load repo tuning.yaml: %v", err)
	}
	if got.ChunkSizeMin < 8 || got.ChunkSizeMax < got.ChunkSizeMin {
		t.Fatalf("repo tuning out of range: %+v", got)
	}
}
