package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"realmcore/internal/persistence/indexdb"
	"realmcore/internal/sim/world"
)

func TestRunQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.sqlite")
	idx, err := indexdb.OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	now := time.Unix(1700000000, 0)
	idx.Record(world.Record{Kind: world.RecordLogin, Time: now, EntityID: 1, Name: "ana", Class: "sorceror"})
	idx.Record(world.Record{Kind: world.RecordDeath, Time: now, EntityID: 2, Name: "zombie", OtherID: 1, OtherName: "ana"})
	if err := idx.Close(); err != nil {
		t.Fatalf("close index: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for _, q := range []string{"players", "online", "kills", "records", "catalogs", "counts"} {
		if err := runQuery(ctx, db, q, "", 10); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	if err := runQuery(ctx, db, "snapshots", "", 10); err == nil {
		t.Fatalf("expected error for unknown query")
	}
}
