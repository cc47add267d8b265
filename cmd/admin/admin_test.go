package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"claimviz.ai/internal/persistence/claimdb"
	"claimviz.ai/internal/sim/claims"
	"claimviz.ai/internal/sim/geom"
	"claimviz.ai/internal/sim/host"
	"claimviz.ai/internal/sim/viz"
)

func seededDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claims.sqlite")
	store, err := claimdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	top := &claims.Claim{ID: "home", World: "OVERWORLD", Owner: "alice", Area: geom.NewBox(geom.V(0, -64, 0), geom.V(9, 320, 9))}
	top.Trust("bob", claims.PermissionBuild)
	top.AddChild(&claims.Claim{ID: "home.shed", Area: geom.NewBox(geom.V(1, -64, 1), geom.V(3, 320, 3))})
	other := &claims.Claim{ID: "camp", World: "NETHER", Admin: true, Area: geom.NewBox(geom.V(50, 0, 50), geom.V(60, 128, 60))}
	for _, c := range []*claims.Claim{top, other} {
		if err := store.UpsertClaim(ctx, c); err != nil {
			t.Fatalf("upsert %s: %v", c.ID, err)
		}
	}
	_ = store.WriteTick(host.TickLogEntry{Tick: 5, Joins: []string{"alice"}, Digest: "d5"})
	_ = store.WriteAudit(viz.AuditEntry{Tick: 6, Viewer: "alice", World: "OVERWORLD", Action: viz.AuditApply, Provider: "fake_block", Boundaries: 2})
	_ = store.WriteAudit(viz.AuditEntry{Tick: 7, Viewer: "bob", World: "OVERWORLD", Action: viz.AuditSuppress})
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("decode %q: %v", l, err)
		}
		out = append(out, m)
	}
	return out
}

func TestListClaims(t *testing.T) {
	db := seededDB(t)
	var buf bytes.Buffer
	if err := listClaims(db, &buf, "", 20); err != nil {
		t.Fatalf("list: %v", err)
	}
	rows := lines(t, &buf)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %v", rows)
	}
	// Subdivisions follow their parent.
	if rows[0]["id"] != "camp" || rows[1]["id"] != "home" || rows[2]["id"] != "home.shed" || rows[2]["parent"] != "home" {
		t.Fatalf("order: %v", rows)
	}
	if rows[1]["trusted"] != float64(1) || rows[0]["admin"] != true {
		t.Fatalf("grant counts: %v", rows)
	}

	buf.Reset()
	if err := listClaims(db, &buf, "NETHER", 20); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rows := lines(t, &buf); len(rows) != 1 || rows[0]["id"] != "camp" {
		t.Fatalf("world filter: %v", rows)
	}
}

func TestListTicksAndAudits(t *testing.T) {
	db := seededDB(t)
	var buf bytes.Buffer
	if err := listTicks(db, &buf, 10); err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if rows := lines(t, &buf); len(rows) != 1 || rows[0]["digest"] != "d5" || rows[0]["joins"] != float64(1) {
		t.Fatalf("ticks: %v", rows)
	}

	buf.Reset()
	if err := listAudits(db, &buf, "alice", 10); err != nil {
		t.Fatalf("audits: %v", err)
	}
	if rows := lines(t, &buf); len(rows) != 1 || rows[0]["action"] != "APPLY" || rows[0]["provider"] != "fake_block" {
		t.Fatalf("audits: %v", rows)
	}

	buf.Reset()
	if err := listAudits(db, &buf, "", 10); err != nil {
		t.Fatalf("audits: %v", err)
	}
	if rows := lines(t, &buf); len(rows) != 2 || rows[0]["viewer"] != "bob" {
		t.Fatalf("newest first: %v", rows)
	}
}

func TestDoSendsBody(t *testing.T) {
	var gotMethod, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		b := new(bytes.Buffer)
		_, _ = b.ReadFrom(r.Body)
		gotBody = b.String()
		rw.WriteHeader(http.StatusCreated)
		_, _ = rw.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	status, body, err := do(http.MethodPost, endpoint(srv.URL+"/", "/v1/claims"), []byte(`{"id":"x"}`))
	if err != nil || status != http.StatusCreated || string(body) != `{"ok":true}` {
		t.Fatalf("do: %d %s %v", status, body, err)
	}
	if gotMethod != http.MethodPost || gotType != "application/json" || gotBody != `{"id":"x"}` {
		t.Fatalf("request: %s %s %s", gotMethod, gotType, gotBody)
	}
}
