// Package indexdb maintains a queryable sqlite index beside the
// snapshot files: which saves exist, every applied voxel edit, and the
// catalog versions the world ran with. It is a secondary index; the
// snapshot file remains the source of truth for world state.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"isovox.app/internal/persistence/snapshot"
	"isovox.app/internal/sim/catalogs"
	"isovox.app/internal/sim/tuning"
	"isovox.app/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqEdit reqKind = iota + 1
	reqSave
)

type req struct {
	kind reqKind

	edit world.EditEntry
	save SaveRow
}

// SaveRow is one written snapshot file as recorded in the index.
type SaveRow struct {
	Tick      int64
	Path      string
	Seed      string
	Chunks    int
	Edits     int
	WrittenAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Felling cascades and leaf decay burst many edits in one tick;
		// buffer them rather than stall the engine loop.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS edits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_material TEXT NOT NULL,
			to_material TEXT NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_chunk_tick ON edits(cx, cy, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_reason_tick ON edits(reason, tick);`,
		`CREATE TABLE IF NOT EXISTS saves (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			edits INTEGER NOT NULL,
			written_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEdit queues one audit row. It never blocks the engine loop; if
// the indexer falls behind, entries are dropped and the JSONL journal
// remains the authoritative record.
func (s *SQLiteIndex) WriteEdit(entry world.EditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEdit, edit: entry}:
	default:
	}
	return nil
}

// RecordSave indexes a snapshot file that was just written to path.
func (s *SQLiteIndex) RecordSave(path string, snap snapshot.OverlayV1) {
	if s == nil || s.closed.Load() {
		return
	}
	edits := 0
	for _, c := range snap.Chunks {
		edits += len(c.Edits)
	}
	r := SaveRow{
		Tick:      snap.Header.Tick,
		Path:      path,
		Seed:      snap.Header.Seed,
		Chunks:    len(snap.Chunks),
		Edits:     edits,
		WrittenAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
	}
}

// UpsertCatalogs records the digests and contents of the catalogs the
// world booted with. Runs synchronously; call it once at startup.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "materials.json")); err == nil {
			rows = append(rows, kv{name: "material_defs", digest: cats.Materials.DefsDigest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Materials.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "material_palette", digest: cats.Materials.PaletteDigest, json: b})
	}
	{
		// Tuning: store the values we actually apply (canonical JSON).
		b, _ := json.Marshal(tune)
		rows = append(rows, kv{name: "tuning", digest: tune.Digest(), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListSaves returns recorded snapshot writes, newest first.
func (s *SQLiteIndex) ListSaves() ([]SaveRow, error) {
	rows, err := s.db.Query(`SELECT tick, path, seed, chunks, edits, written_at FROM saves ORDER BY tick DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		if err := rows.Scan(&r.Tick, &r.Path, &r.Seed, &r.Chunks, &r.Edits, &r.WrittenAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EditTail returns the most recent limit edits in applied order.
func (s *SQLiteIndex) EditTail(limit int) ([]world.EditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT raw_json FROM edits ORDER BY tick DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []world.EditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e world.EditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertEdit, _ := s.db.Prepare(`INSERT OR REPLACE INTO edits(tick,seq,cx,cy,x,y,z,from_material,to_material,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(tick,path,seed,chunks,edits,written_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertEdit != nil {
			_ = insertEdit.Close()
		}
		if insertSave != nil {
			_ = insertSave.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 512
		commitMaxWait = 2 * time.Second

		lastEditTick int64
		editSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEdit:
			e := r.edit
			if e.Tick != lastEditTick {
				lastEditTick = e.Tick
				editSeq = 0
			}
			seq := editSeq
			editSeq++
			raw, _ := json.Marshal(e)
			if insertEdit != nil {
				if _, err := tx.Stmt(insertEdit).Exec(
					e.Tick,
					seq,
					e.Chunk[0], e.Chunk[1],
					e.Pos[0], e.Pos[1], e.Pos[2],
					e.From,
					e.To,
					e.Reason,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSave:
			sv := r.save
			if insertSave != nil {
				if _, err := tx.Stmt(insertSave).Exec(
					sv.Tick,
					sv.Path,
					sv.Seed,
					sv.Chunks,
					sv.Edits,
					sv.WrittenAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
