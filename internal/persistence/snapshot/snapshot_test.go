package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleOverlay() OverlayV1 {
	return OverlayV1{
		Header: Header{Version: 1, Seed: "round-trip", Tick: 1234},
		Chunks: []ChunkEditsV1{
			{
				Key: "-2,7",
				Edits: []EditV1{
					{Key: "0,0,1", Cleared: true},
					{Key: "12,9,14", Type: "STONE", Variant: 1, Durability: 80},
				},
			},
			{
				Key: "0,0",
				Edits: []EditV1{
					{Key: "5,5,10", Cleared: true},
					{Key: "5,5,11", Type: "OAK_TRUNK", Natural: true, Durability: 30},
				},
			},
		},
	}
}

func TestOverlayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "round-trip.isovox")
	want := sampleOverlay()
	if err := WriteOverlay(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadOverlay(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("overlay round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlayHeaderLineIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.isovox")
	if err := WriteOverlay(path, sampleOverlay()); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The file must start with a zstd frame; the header line lives
	// inside the compressed stream, checked by ReadOverlay above. Here
	// we only assert the file is non-empty and carries the zstd magic.
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("readfile: %v", err)
	}
	if len(b) < 4 {
		t.Fatalf("file too short: %d bytes", len(b))
	}
	magic := []byte{0x28, 0xb5, 0x2f, 0xfd}
	for i := range magic {
		if b[i] != magic[i] {
			t.Fatalf("byte %d = %#x, want zstd magic", i, b[i])
		}
	}
}

func TestReadOverlayMissingFile(t *testing.T) {
	_, err := ReadOverlay(filepath.Join(t.TempDir(), "absent.isovox"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReadOverlayCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.isovox")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	if _, err := ReadOverlay(path); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}
