package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"isovox.app/internal/sim/world"
)

func TestEditJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	j := NewEditJournal(dir)

	want := []world.EditEntry{
		{Tick: 3, Chunk: [2]int{0, 0}, Pos: [3]int{1, 2, 20}, From: "STONE", To: "AIR", Reason: "MINE"},
		{Tick: 4, Chunk: [2]int{-1, 2}, Pos: [3]int{0, 0, 5}, From: "AIR", To: "SAND", Reason: "PLACE"},
	}
	for _, e := range want {
		if err := j.WriteEdit(e); err != nil {
			t.Fatalf("WriteEdit: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "edits", "edits-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("journal files = %v (err %v), want exactly one", matches, err)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []world.EditEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e world.EditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %d: %v", len(got), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("entries = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

type recordingLogger struct {
	entries []world.EditEntry
	err     error
}

func (r *recordingLogger) WriteEdit(e world.EditEntry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func TestMultiEditLoggerFansOutAndKeepsFirstError(t *testing.T) {
	a := &recordingLogger{err: errors.New("disk full")}
	b := &recordingLogger{}
	m := MultiEditLogger{a, nil, b}

	e := world.EditEntry{Tick: 9, From: "DIRT", To: "AIR", Reason: "MINE"}
	if err := m.WriteEdit(e); err == nil || err.Error() != "disk full" {
		t.Fatalf("err = %v, want first sink's error", err)
	}
	if len(a.entries) != 1 || len(b.entries) != 1 {
		t.Fatalf("fan-out incomplete: a=%d b=%d", len(a.entries), len(b.entries))
	}
}
