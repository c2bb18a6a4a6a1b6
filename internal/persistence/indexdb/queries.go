package indexdb

import (
	"context"
	"database/sql"
	"fmt"
)

type KillCount struct {
	Name  string `json:"name"`
	Kills int    `json:"kills"`
}

type RecordRow struct {
	Seq      int64   `json:"seq"`
	Kind     string  `json:"kind"`
	At       string  `json:"at"`
	EntityID uint64  `json:"entity_id"`
	Name     string  `json:"name"`
	Other    string  `json:"other,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Text     string  `json:"text,omitempty"`
}

type PlayerRow struct {
	EntityID     uint64 `json:"entity_id"`
	Name         string `json:"name"`
	Class        string `json:"class"`
	LoginAt      string `json:"login_at"`
	DisconnectAt string `json:"disconnect_at,omitempty"`
	DespawnAt    string `json:"despawn_at,omitempty"`
}

// DB exposes the handle for read-only tooling.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func TopKillers(ctx context.Context, db *sql.DB, limit int) ([]KillCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx,
		`SELECT killer_name, COUNT(*) AS n FROM kills WHERE killer_name != '' GROUP BY killer_name ORDER BY n DESC, killer_name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []KillCount
	for rows.Next() {
		var k KillCount
		if err := rows.Scan(&k.Name, &k.Kills); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// RecentRecords returns the newest records first. An empty kind matches all.
func RecentRecords(ctx context.Context, db *sql.DB, kind string, limit int) ([]RecordRow, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT seq, kind, at, entity_id, name, other_name, amount, text FROM records`
	args := []any{}
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecordRow
	for rows.Next() {
		var r RecordRow
		var id int64
		if err := rows.Scan(&r.Seq, &r.Kind, &r.At, &id, &r.Name, &r.Other, &r.Amount, &r.Text); err != nil {
			return nil, err
		}
		r.EntityID = uint64(id)
		out = append(out, r)
	}
	return out, rows.Err()
}

func Players(ctx context.Context, db *sql.DB, onlineOnly bool) ([]PlayerRow, error) {
	q := `SELECT entity_id, name, class, login_at, COALESCE(disconnect_at,''), COALESCE(despawn_at,'') FROM players`
	if onlineOnly {
		q += ` WHERE despawn_at IS NULL`
	}
	q += ` ORDER BY login_at DESC`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlayerRow
	for rows.Next() {
		var p PlayerRow
		var id int64
		if err := rows.Scan(&id, &p.Name, &p.Class, &p.LoginAt, &p.DisconnectAt, &p.DespawnAt); err != nil {
			return nil, err
		}
		p.EntityID = uint64(id)
		out = append(out, p)
	}
	return out, rows.Err()
}

func CatalogDigest(ctx context.Context, db *sql.DB, name string) (string, error) {
	var d string
	err := db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("catalog %q not indexed", name)
	}
	return d, err
}
