package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"claimviz.ai/internal/persistence/claimdb"
	"claimviz.ai/internal/sim/catalogs"
	"claimviz.ai/internal/sim/geom"
	"claimviz.ai/internal/sim/host"
	"claimviz.ai/internal/sim/tuning"
	"claimviz.ai/internal/sim/viz"
	"claimviz.ai/internal/transport/ws"
)

type apiFixture struct {
	srv    *httptest.Server
	host   *host.Host
	store  *claimdb.Store
	outbox *ws.Outbox
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	store, err := claimdb.OpenSQLite(filepath.Join(t.TempDir(), "claims.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	outbox := ws.NewOutbox()
	h, err := host.New(host.Config{
		Tuning:    tuning.Defaults(),
		Catalog:   catalogs.DefaultBlocks(),
		Seed:      1,
		Resources: outbox,
		Log:       logger,
		Audit:     store,
	})
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	h.SetTickLogger(multiTickLogger{b: store})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = h.Run(ctx) }()

	a := &api{host: h, store: store, log: logger}
	srv := httptest.NewServer(newRouter(a, http.NotFoundHandler()))
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, host: h, store: store, outbox: outbox}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (f *apiFixture) join(t *testing.T, id string) {
	t.Helper()
	f.outbox.Register(id, make(chan []byte, 4096))
	resp := make(chan host.JoinResponse, 1)
	f.host.Join() <- host.JoinRequest{Viewer: viz.Viewer{ID: id, Pos: geom.V(5, 80, 5)}, Resp: resp}
	if r := <-resp; r.Err != nil {
		t.Fatalf("join: %+v", r.Err)
	}
}

const homeClaim = `{
	"id": "home",
	"world": "OVERWORLD",
	"owner": "alice",
	"min": [-10, -64, -10],
	"max": [10, 320, 10],
	"flags": {"allow_build": false, "allow_break": false, "allow_damage": false},
	"trusted": {"bob": "BUILD"},
	"banned": ["mallory"],
	"subdivisions": [{"id": "shed", "min": [0, -64, 0], "max": [4, 320, 4], "flags": {}}]
}`

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.do(t, "GET", "/healthz", "")
	if resp.StatusCode != http.StatusOK || body["ok"] != true {
		t.Fatalf("healthz: %d %v", resp.StatusCode, body)
	}
}

func TestClaimLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, "POST", "/v1/claims", homeClaim)
	if resp.StatusCode != http.StatusOK || body["id"] != "home" {
		t.Fatalf("put: %d %v", resp.StatusCode, body)
	}
	subs, _ := body["subdivisions"].([]any)
	if len(subs) != 1 {
		t.Fatalf("expected one subdivision, got %v", body["subdivisions"])
	}

	resp, body = f.do(t, "GET", "/v1/claims/shed", "")
	if resp.StatusCode != http.StatusOK || body["parent"] != "home" || body["world"] != "OVERWORLD" {
		t.Fatalf("get subdivision: %d %v", resp.StatusCode, body)
	}

	resp, _ = f.do(t, "DELETE", "/v1/claims/shed", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete subdivision: %d", resp.StatusCode)
	}
	resp, body = f.do(t, "GET", "/v1/claims/home", "")
	if resp.StatusCode != http.StatusOK || body["subdivisions"] != nil {
		t.Fatalf("parent should survive without children: %d %v", resp.StatusCode, body)
	}

	resp, _ = f.do(t, "DELETE", "/v1/claims/home", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	if resp, _ := f.do(t, "GET", "/v1/claims/home", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted claim should 404, got %d", resp.StatusCode)
	}
	if resp, _ := f.do(t, "DELETE", "/v1/claims/home", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete should 404, got %d", resp.StatusCode)
	}
}

func TestPutClaimRejects(t *testing.T) {
	f := newAPIFixture(t)
	cases := map[string]string{
		"not json":      `{`,
		"unknown field": `{"id":"x","world":"OVERWORLD","min":[0,0,0],"max":[1,1,1],"flags":{},"color":"red"}`,
		"no world":      `{"id":"x","min":[0,0,0],"max":[1,1,1],"flags":{}}`,
		"bad grant":     `{"id":"x","world":"OVERWORLD","min":[0,0,0],"max":[1,1,1],"flags":{},"trusted":{"bob":"OWN"}}`,
	}
	for name, body := range cases {
		if resp, _ := f.do(t, "POST", "/v1/claims", body); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.StatusCode)
		}
	}
}

func TestVisualizeTrigger(t *testing.T) {
	f := newAPIFixture(t)
	if resp, _ := f.do(t, "POST", "/v1/claims", homeClaim); resp.StatusCode != http.StatusOK {
		t.Fatalf("put: %d", resp.StatusCode)
	}

	resp, body := f.do(t, "POST", "/v1/viewers/alice/visualize?claim=home", "")
	if resp.StatusCode != http.StatusNotFound || body["outcome"] != string(viz.OutcomeUnknownViewer) {
		t.Fatalf("viewer not connected: %d %v", resp.StatusCode, body)
	}

	f.join(t, "alice")
	resp, body = f.do(t, "POST", "/v1/viewers/alice/visualize?claim=home&provider=fake_block", "")
	if resp.StatusCode != http.StatusOK || body["outcome"] != string(viz.OutcomeScheduled) {
		t.Fatalf("visualize: %d %v", resp.StatusCode, body)
	}
	resp, _ = f.do(t, "POST", "/v1/viewers/alice/visualize?claim=nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing claim: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, "POST", "/v1/viewers/alice/visualize?claim=home&type=LASER", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad type: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, "POST", "/v1/viewers/alice/visualize", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("no selector: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, "POST", "/v1/viewers/alice/visualize?nearby=-3", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad nearby: %d", resp.StatusCode)
	}
	resp, _ = f.do(t, "POST", "/v1/viewers/alice/revert", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("revert: %d", resp.StatusCode)
	}
}

func TestMultiLoggersSkipNil(t *testing.T) {
	var rec []uint64
	l := multiTickLogger{a: tickFunc(func(e host.TickLogEntry) { rec = append(rec, e.Tick) })}
	if err := l.WriteTick(host.TickLogEntry{Tick: 7}); err != nil || len(rec) != 1 || rec[0] != 7 {
		t.Fatalf("fan-out: %v %v", err, rec)
	}
	if err := (multiAuditLogger{}).WriteAudit(viz.AuditEntry{}); err != nil {
		t.Fatalf("empty audit fan-out: %v", err)
	}
}

type tickFunc func(host.TickLogEntry)

func (f tickFunc) WriteTick(e host.TickLogEntry) error { f(e); return nil }
