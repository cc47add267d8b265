// Package claimdb is the SQLite store behind claim selection. It also keeps a
// queryable index of host ticks and visualization audit entries; the JSONL
// logs remain the source of truth for those.
package claimdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"claimviz.ai/internal/sim/host"
	"claimviz.ai/internal/sim/viz"
)

type Store struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed and the close of ch against concurrent enqueues.
	mu     sync.RWMutex
	closed bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqFlush
)

type req struct {
	kind reqKind

	tick  host.TickLogEntry
	audit viz.AuditEntry
	done  chan struct{}
}

func OpenSQLite(path string) (*Store, error) {
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

	s := &Store{
		db: db,
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
		`CREATE TABLE IF NOT EXISTS claims (
			id TEXT PRIMARY KEY,
			parent_id TEXT REFERENCES claims(id) ON DELETE CASCADE,
			world TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			admin INTEGER NOT NULL DEFAULT 0,
			min_x INTEGER NOT NULL,
			min_y INTEGER NOT NULL,
			min_z INTEGER NOT NULL,
			max_x INTEGER NOT NULL,
			max_y INTEGER NOT NULL,
			max_z INTEGER NOT NULL,
			flags_json TEXT NOT NULL DEFAULT '{}',
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		);`,
		`CREATE INDEX IF NOT EXISTS claims_parent ON claims(parent_id);`,
		`CREATE INDEX IF NOT EXISTS claims_world ON claims(world, min_x, max_x);`,
		`CREATE TABLE IF NOT EXISTS claim_trust (
			claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			viewer TEXT NOT NULL,
			permission TEXT NOT NULL,
			PRIMARY KEY (claim_id, viewer)
		);`,
		`CREATE TABLE IF NOT EXISTS claim_bans (
			claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			viewer TEXT NOT NULL,
			PRIMARY KEY (claim_id, viewer)
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			joins INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			visualize INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			viewer TEXT NOT NULL,
			world TEXT NOT NULL,
			action TEXT NOT NULL,
			provider TEXT NOT NULL,
			boundaries INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			error TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS audits_viewer ON audits(viewer, tick);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema: %w (%s)", err, strings.TrimSpace(strings.SplitN(s, "\n", 2)[0]))
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Store) WriteTick(entry host.TickLogEntry) error {
	s.enqueue(req{kind: reqTick, tick: entry})
	return nil
}

func (s *Store) WriteAudit(entry viz.AuditEntry) error {
	s.enqueue(req{kind: reqAudit, audit: entry})
	return nil
}

// enqueue drops r if the store is closed or the writer has fallen behind;
// the JSONL logs remain the source of truth.
func (s *Store) enqueue(r req) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
	}
}

// Flush waits until everything queued before the call has been written.
func (s *Store) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) loop() {
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,joins,leaves,visualize,raw_json) VALUES(?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,viewer,world,action,provider,boundaries,x,y,z,error,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
	}()

	var (
		auditTick uint64
		auditSeq  int
	)
	for r := range s.ch {
		switch r.kind {
		case reqFlush:
			close(r.done)
		case reqTick:
			if insertTick == nil {
				continue
			}
			e := r.tick
			raw, _ := json.Marshal(e)
			_, _ = insertTick.Exec(int64(e.Tick), e.Digest, len(e.Joins), len(e.Leaves), len(e.Visualize), string(raw))
		case reqAudit:
			if insertAudit == nil {
				continue
			}
			a := r.audit
			if a.Tick != auditTick {
				auditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			_, _ = insertAudit.Exec(int64(a.Tick), seq, a.Viewer, a.World, string(a.Action), a.Provider, a.Boundaries,
				a.Anchor[0], a.Anchor[1], a.Anchor[2], a.Error, string(raw))
		}
	}
}
