// Package archive keeps one snapshot per in-game day. Regular
// autosaves rotate in place; the autosave that lands on a day boundary
// is copied aside so a world's history stays walkable.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"isovox.app/internal/persistence/snapshot"
)

type DayArchiveMeta struct {
	Day       int    `json:"day"`
	Tick      int64  `json:"tick"`
	Seed      string `json:"seed"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
	DayTicks  int    `json:"day_ticks"`
	Chunks    int    `json:"chunks"`
	Edits     int    `json:"edits"`
}

// ArchiveDaySnapshot copies a day-boundary snapshot into
// `worldDir/archives/day_<NNNN>/`. Snapshots land on day boundaries
// only when the autosave interval divides the day length; anything
// else passes through unarchived.
func ArchiveDaySnapshot(worldDir, snapshotPath string, snap snapshot.OverlayV1, dayTicks int) (day int, archivedPath string, archived bool, err error) {
	if dayTicks <= 0 {
		return 0, "", false, nil
	}
	if snap.Header.Tick <= 0 || snap.Header.Tick%int64(dayTicks) != 0 {
		return 0, "", false, nil
	}
	day = int(snap.Header.Tick / int64(dayTicks))

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("day_%04d", day))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	edits := 0
	for _, c := range snap.Chunks {
		edits += len(c.Edits)
	}
	meta := DayArchiveMeta{
		Day:       day,
		Tick:      snap.Header.Tick,
		Seed:      snap.Header.Seed,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		DayTicks:  dayTicks,
		Chunks:    len(snap.Chunks),
		Edits:     edits,
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return day, dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
