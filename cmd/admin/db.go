package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"realmcore/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	realmID := fs.String("realm", "", "realm id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	kind := fs.String("kind", "", "record kind filter (records)")
	_ = fs.Parse(args)

	q := "players"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*realmID) == "" {
			fmt.Fprintln(os.Stderr, "missing -realm or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "realms", *realmID, "index", "world.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runQuery(ctx, db, q, *kind, *limit); err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, db *sql.DB, q, kind string, limit int) error {
	switch q {
	case "players", "online":
		rows, err := indexdb.Players(ctx, db, q == "online")
		if err != nil {
			return err
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "kills":
		rows, err := indexdb.TopKillers(ctx, db, limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "records":
		rows, err := indexdb.RecentRecords(ctx, db, kind, limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "catalogs":
		rows, err := db.QueryContext(ctx, `SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				return err
			}
			printJSON(r)
		}
		return rows.Err()

	case "counts":
		rows, err := db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM records GROUP BY kind ORDER BY kind`)
		if err != nil {
			return err
		}
		defer rows.Close()
		out := map[string]int64{}
		for rows.Next() {
			var k string
			var n int64
			if err := rows.Scan(&k, &n); err != nil {
				return err
			}
			out[k] = n
		}
		if err := rows.Err(); err != nil {
			return err
		}
		printJSON(out)

	default:
		return fmt.Errorf("unknown query (want players|online|kills|records|catalogs|counts)")
	}
	return nil
}
