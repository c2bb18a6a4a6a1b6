package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"realmcore/internal/sim/catalogs"
	"realmcore/internal/sim/tuning"
	"realmcore/internal/sim/world"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "world.sqlite"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteIndex_RecordsAndKills(t *testing.T) {
	idx := openTestIndex(t)
	now := time.Unix(1700000000, 0)

	idx.Record(world.Record{Kind: world.RecordLogin, Time: now, EntityID: 1, Name: "ana", Class: "paladin"})
	idx.Record(world.Record{Kind: world.RecordSpawn, Time: now, EntityID: 2, Name: "zombie", Class: "zombie"})
	idx.Record(world.Record{Kind: world.RecordDamage, Time: now, EntityID: 2, Name: "zombie", OtherID: 1, OtherName: "ana", Amount: 50})
	idx.Record(world.Record{Kind: world.RecordDeath, Time: now, EntityID: 2, Name: "zombie", Class: "zombie", OtherID: 1, OtherName: "ana"})
	idx.Record(world.Record{Kind: world.RecordChat, Time: now, EntityID: 1, Name: "ana", Text: "hi"})
	idx.Record(world.Record{Kind: world.RecordDespawn, Time: now.Add(time.Minute), EntityID: 1, Name: "ana"})

	// Close drains the queue and commits the open batch.
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if st := idx.Stats(); st.Written != 6 || st.Dropped != 0 || st.Failed != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestSQLiteIndex_Queries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.sqlite")
	idx, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now := time.Unix(1700000000, 0)
	for i := 0; i < 3; i++ {
		idx.Record(world.Record{Kind: world.RecordDeath, Time: now, EntityID: uint64(10 + i), Name: "zombie", OtherID: 1, OtherName: "ana"})
	}
	idx.Record(world.Record{Kind: world.RecordDeath, Time: now, EntityID: 20, Name: "ana", OtherID: 20, OtherName: "warrok"})
	idx.Record(world.Record{Kind: world.RecordLogin, Time: now, EntityID: 1, Name: "ana", Class: "paladin"})
	if err := idx.UpsertCatalogs(catalogs.Defaults(), tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ro, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ro.Close()
	ctx := context.Background()

	top, err := TopKillers(ctx, ro.DB(), 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].Name != "ana" || top[0].Kills != 3 || top[1].Name != "warrok" {
		t.Fatalf("top=%+v", top)
	}

	recs, err := RecentRecords(ctx, ro.DB(), string(world.RecordDeath), 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 2 || recs[0].EntityID != 20 {
		t.Fatalf("recent=%+v", recs)
	}

	online, err := Players(ctx, ro.DB(), true)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(online) != 1 || online[0].Class != "paladin" {
		t.Fatalf("players=%+v", online)
	}

	d, err := CatalogDigest(ctx, ro.DB(), "tuning")
	if err != nil || len(d) != 64 {
		t.Fatalf("digest=%q err=%v", d, err)
	}
	if _, err := CatalogDigest(ctx, ro.DB(), "missing"); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}

func TestSQLiteIndex_RecordAfterCloseIsIgnored(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	idx.Record(world.Record{Kind: world.RecordChat})
	if st := idx.Stats(); st.Written != 0 || st.Dropped != 0 {
		t.Fatalf("stats=%+v", st)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
