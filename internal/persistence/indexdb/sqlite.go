package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"realmcore/internal/sim/catalogs"
	"realmcore/internal/sim/tuning"
	"realmcore/internal/sim/world"
)

// SQLiteIndex is a queryable read model of world records. The zstd journal
// stays the source of truth; the index drops writes when it falls behind.
type SQLiteIndex struct {
	db  *sql.DB
	log *zap.Logger

	ch   chan world.Record
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

type Stats struct {
	Written       uint64 `json:"written"`
	Dropped       uint64 `json:"dropped"`
	Failed        uint64 `json:"failed"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
}

func OpenSQLite(path string, logger *zap.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if logger == nil {
		logger = zap.NewNop()
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
		db:  db,
		log: logger,
		// Combat bursts produce many damage records per tick.
		ch: make(chan world.Record, 65536),
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
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			at TEXT NOT NULL,
			entity_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			class TEXT NOT NULL,
			other_id INTEGER NOT NULL,
			other_name TEXT NOT NULL,
			amount REAL NOT NULL,
			text TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_kind_at ON records(kind, at);`,
		`CREATE INDEX IF NOT EXISTS idx_records_entity ON records(entity_id, seq);`,
		`CREATE TABLE IF NOT EXISTS players (
			entity_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			class TEXT NOT NULL,
			login_at TEXT NOT NULL,
			disconnect_at TEXT,
			despawn_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS kills (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			victim_id INTEGER NOT NULL,
			victim_name TEXT NOT NULL,
			victim_class TEXT NOT NULL,
			killer_id INTEGER NOT NULL,
			killer_name TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_kills_killer ON kills(killer_name);`,
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

// Record queues r without blocking. Implements world.Recorder.
func (s *SQLiteIndex) Record(r world.Record) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		Failed:        s.failed.Load(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
	}
}

// UpsertCatalogs stores the character catalog and the tuning actually applied.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
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
	if b, err := json.Marshal(cats.Characters); err == nil {
		rows = append(rows, kv{name: "characters", digest: digestOr(cats.Digest, b), json: b})
	}
	if b, err := json.Marshal(cats.Weapons); err == nil {
		rows = append(rows, kv{name: "weapons", digest: digestOr(cats.Digest, b), json: b})
	}
	if b, err := json.Marshal(tune); err == nil {
		rows = append(rows, kv{name: "tuning", digest: sha256Hex(b), json: b})
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
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func digestOr(d string, b []byte) string {
	if d != "" {
		return d
	}
	return sha256Hex(b)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRecord, _ := s.db.Prepare(`INSERT INTO records(kind,at,entity_id,name,class,other_id,other_name,amount,text,x,y,z) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertPlayer, _ := s.db.Prepare(`INSERT OR REPLACE INTO players(entity_id,name,class,login_at) VALUES(?,?,?,?)`)
	markDisconnect, _ := s.db.Prepare(`UPDATE players SET disconnect_at=? WHERE entity_id=?`)
	markDespawn, _ := s.db.Prepare(`UPDATE players SET despawn_at=? WHERE entity_id=?`)
	insertKill, _ := s.db.Prepare(`INSERT INTO kills(at,victim_id,victim_name,victim_class,killer_id,killer_name) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRecord, insertPlayer, markDisconnect, markDespawn, insertKill} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.Warn("index begin failed", zap.Error(err))
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
		if err := tx.Commit(); err != nil {
			s.log.Warn("index commit failed", zap.Error(err))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			s.failed.Add(1)
			s.log.Warn("index write failed", zap.Error(err))
			_ = tx.Rollback()
			tx = nil
			return false
		}
		opCount++
		return true
	}

	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	for {
		var r world.Record
		select {
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		case <-tick.C:
			if time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		}

		begin()
		if tx == nil {
			s.failed.Add(1)
			continue
		}
		at := r.Time.UTC().Format(time.RFC3339Nano)
		if !exec(insertRecord, string(r.Kind), at, int64(r.EntityID), r.Name, r.Class,
			int64(r.OtherID), r.OtherName, r.Amount, r.Text, r.Pos[0], r.Pos[1], r.Pos[2]) {
			continue
		}
		ok := true
		switch r.Kind {
		case world.RecordLogin:
			ok = exec(insertPlayer, int64(r.EntityID), r.Name, r.Class, at)
		case world.RecordDisconnect:
			ok = exec(markDisconnect, at, int64(r.EntityID))
		case world.RecordDespawn:
			ok = exec(markDespawn, at, int64(r.EntityID))
		case world.RecordDeath:
			ok = exec(insertKill, at, int64(r.EntityID), r.Name, r.Class, int64(r.OtherID), r.OtherName)
		}
		if ok {
			s.written.Add(1)
		}
		if tx != nil && opCount >= commitEvery {
			commit()
		}
	}
}
