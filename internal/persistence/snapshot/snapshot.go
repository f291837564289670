// Package snapshot persists the world's edit overlay: everything the
// player changed on top of regenerable terrain. Files are zstd
// streams holding a JSON header line (greppable) followed by the gob
// body. Terrain itself is never written; seed + overlay reproduce the
// world exactly.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	Seed    string `json:"seed"`
	Tick    int64  `json:"tick"`
}

type OverlayV1 struct {
	Header Header `json:"header"`

	Chunks []ChunkEditsV1 `json:"chunks"`
}

// ChunkEditsV1 is one chunk's recorded edits. Key is "cx,cy".
type ChunkEditsV1 struct {
	Key   string   `json:"key"`
	Edits []EditV1 `json:"edits"`
}

// EditV1 is one voxel-level override. Key is chunk-local "x,y,z".
// Cleared entries mark voxels removed from generated terrain and carry
// no material; they are distinct from entries that were never
// recorded. Material types travel as catalog string ids so saves
// survive palette reordering.
type EditV1 struct {
	Key        string `json:"key"`
	Cleared    bool   `json:"cleared,omitempty"`
	Type       string `json:"type,omitempty"`
	Natural    bool   `json:"natural,omitempty"`
	Variant    uint8  `json:"variant,omitempty"`
	Durability int16  `json:"durability,omitempty"`
}

func WriteOverlay(path string, snap OverlayV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadOverlay(path string) (OverlayV1, error) {
	var snap OverlayV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Read header line (ignore it for now, gob also contains header).
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
