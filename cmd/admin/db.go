package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/claims.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	viewer := fs.String("viewer", "", "viewer filter (audits)")
	world := fs.String("world", "", "world filter (claims)")
	_ = fs.Parse(args)

	q := "claims"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "claims.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fail("open", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fail("open", err)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}
	switch q {
	case "claims":
		err = listClaims(db, os.Stdout, *world, *limit)
	case "ticks":
		err = listTicks(db, os.Stdout, *limit)
	case "audits":
		err = listAudits(db, os.Stdout, *viewer, *limit)
	default:
		err = fmt.Errorf("unknown query %q (want claims, ticks or audits)", q)
	}
	if err != nil {
		fail("query", err)
	}
}

type claimRow struct {
	ID      string `json:"id"`
	Parent  string `json:"parent,omitempty"`
	World   string `json:"world"`
	Owner   string `json:"owner,omitempty"`
	Admin   bool   `json:"admin,omitempty"`
	Min     [3]int `json:"min"`
	Max     [3]int `json:"max"`
	Trusted int    `json:"trusted"`
	Banned  int    `json:"banned"`
	Updated string `json:"updated_at"`
}

func listClaims(db *sql.DB, w io.Writer, world string, limit int) error {
	rows, err := db.Query(`
		SELECT c.id, COALESCE(c.parent_id,''), c.world, c.owner, c.admin,
			c.min_x, c.min_y, c.min_z, c.max_x, c.max_y, c.max_z,
			(SELECT COUNT(*) FROM claim_trust t WHERE t.claim_id=c.id),
			(SELECT COUNT(*) FROM claim_bans b WHERE b.claim_id=c.id),
			c.updated_at
		FROM claims c
		WHERE (?='' OR c.world=?)
		ORDER BY COALESCE(c.parent_id, c.id), c.parent_id IS NOT NULL, c.id
		LIMIT ?`, world, world, limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r claimRow
		var admin int
		if err := rows.Scan(&r.ID, &r.Parent, &r.World, &r.Owner, &admin,
			&r.Min[0], &r.Min[1], &r.Min[2], &r.Max[0], &r.Max[1], &r.Max[2],
			&r.Trusted, &r.Banned, &r.Updated); err != nil {
			return err
		}
		r.Admin = admin != 0
		printJSON(w, r)
	}
	return rows.Err()
}

func listTicks(db *sql.DB, w io.Writer, limit int) error {
	rows, err := db.Query(`SELECT tick,digest,joins,leaves,visualize FROM ticks ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Tick      uint64 `json:"tick"`
			Digest    string `json:"digest"`
			Joins     int    `json:"joins"`
			Leaves    int    `json:"leaves"`
			Visualize int    `json:"visualize"`
		}
		if err := rows.Scan(&r.Tick, &r.Digest, &r.Joins, &r.Leaves, &r.Visualize); err != nil {
			return err
		}
		printJSON(w, r)
	}
	return rows.Err()
}

func listAudits(db *sql.DB, w io.Writer, viewer string, limit int) error {
	rows, err := db.Query(`
		SELECT tick,viewer,world,action,provider,boundaries,x,y,z,error
		FROM audits
		WHERE (?='' OR viewer=?)
		ORDER BY tick DESC, seq DESC
		LIMIT ?`, viewer, viewer, limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Tick       uint64 `json:"tick"`
			Viewer     string `json:"viewer"`
			World      string `json:"world"`
			Action     string `json:"action"`
			Provider   string `json:"provider,omitempty"`
			Boundaries int    `json:"boundaries"`
			Anchor     [3]int `json:"anchor"`
			Error      string `json:"error,omitempty"`
		}
		if err := rows.Scan(&r.Tick, &r.Viewer, &r.World, &r.Action, &r.Provider, &r.Boundaries,
			&r.Anchor[0], &r.Anchor[1], &r.Anchor[2], &r.Error); err != nil {
			return err
		}
		printJSON(w, r)
	}
	return rows.Err()
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
