package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"claimviz.ai/internal/persistence/claimdb"
	"claimviz.ai/internal/protocol"
	"claimviz.ai/internal/sim/claims"
	"claimviz.ai/internal/sim/geom"
	"claimviz.ai/internal/sim/host"
)

const hostTimeout = 5 * time.Second

// claimDoc is the JSON shape of a claim on the admin API.
type claimDoc struct {
	ID           string                       `json:"id"`
	World        string                       `json:"world,omitempty"`
	Owner        string                       `json:"owner,omitempty"`
	Admin        bool                         `json:"admin,omitempty"`
	Min          [3]int                       `json:"min"`
	Max          [3]int                       `json:"max"`
	Flags        claims.ClaimFlags            `json:"flags"`
	Trusted      map[string]claims.Permission `json:"trusted,omitempty"`
	Banned       []string                     `json:"banned,omitempty"`
	Parent       string                       `json:"parent,omitempty"`
	Subdivisions []claimDoc                   `json:"subdivisions,omitempty"`
}

func (d claimDoc) toClaim() *claims.Claim {
	c := &claims.Claim{
		ID:    d.ID,
		World: d.World,
		Owner: d.Owner,
		Admin: d.Admin,
		Area:  geom.NewBox(geom.FromArray(d.Min), geom.FromArray(d.Max)),
		Flags: d.Flags,
	}
	for v, p := range d.Trusted {
		c.Trust(v, p)
	}
	for _, v := range d.Banned {
		c.Ban(v)
	}
	for _, sd := range d.Subdivisions {
		c.AddChild(sd.toClaim())
	}
	return c
}

func docFor(c *claims.Claim) claimDoc {
	d := claimDoc{
		ID:    c.ID,
		World: c.World,
		Owner: c.Owner,
		Admin: c.Admin,
		Min:   c.Area.Min.ToArray(),
		Max:   c.Area.Max.ToArray(),
		Flags: c.Flags,
	}
	if len(c.Trusted) > 0 {
		d.Trusted = c.Trusted
	}
	for v := range c.Banned {
		d.Banned = append(d.Banned, v)
	}
	sort.Strings(d.Banned)
	if c.Parent != nil {
		d.Parent = c.Parent.ID
	}
	for _, ch := range c.Children {
		d.Subdivisions = append(d.Subdivisions, docFor(ch))
	}
	return d
}

type visualizeResult struct {
	Outcome string             `json:"outcome"`
	Error   *protocol.ErrorMsg `json:"error,omitempty"`
}

// api serves claim administration and server-side visualize triggers.
type api struct {
	host  *host.Host
	store *claimdb.Store
	log   logrus.FieldLogger
}

func newRouter(a *api, wsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", a.healthz).Methods("GET")
	r.Handle("/v1/ws", wsHandler)
	r.HandleFunc("/v1/claims", a.putClaim).Methods("POST")
	r.HandleFunc("/v1/claims/{id}", a.getClaim).Methods("GET")
	r.HandleFunc("/v1/claims/{id}", a.deleteClaim).Methods("DELETE")
	r.HandleFunc("/v1/viewers/{viewer}/visualize", a.visualize).Methods("POST")
	r.HandleFunc("/v1/viewers/{viewer}/revert", a.revert).Methods("POST")
	return r
}

func (a *api) healthz(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": a.host.CurrentTick()})
}

func (a *api) putClaim(rw http.ResponseWriter, r *http.Request) {
	var d claimDoc
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		writeError(rw, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	c := d.toClaim()
	if err := a.store.UpsertClaim(r.Context(), c); err != nil {
		if errors.Is(err, claimdb.ErrInvalid) {
			writeError(rw, http.StatusBadRequest, err.Error())
			return
		}
		a.log.WithError(err).WithField("claim", d.ID).Error("store claim")
		writeError(rw, http.StatusInternalServerError, "store failed")
		return
	}
	out := docFor(c)
	if err := a.syncHost(r.Context(), host.ClaimUpsert{Claim: c}); err != nil {
		writeError(rw, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) getClaim(rw http.ResponseWriter, r *http.Request) {
	c, err := a.store.GetClaim(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, claimdb.ErrNotFound) {
		writeError(rw, http.StatusNotFound, "claim not found")
		return
	}
	if err != nil {
		a.log.WithError(err).Error("load claim")
		writeError(rw, http.StatusInternalServerError, "load failed")
		return
	}
	writeJSON(rw, http.StatusOK, docFor(c))
}

// deleteClaim removes a claim. Deleting a subdivision re-publishes its
// parent to the host so the in-memory tree matches the store.
func (a *api) deleteClaim(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := a.store.GetClaim(r.Context(), id)
	if err == nil {
		err = a.store.DeleteClaim(r.Context(), id)
	}
	if errors.Is(err, claimdb.ErrNotFound) {
		writeError(rw, http.StatusNotFound, "claim not found")
		return
	}
	if err != nil {
		a.log.WithError(err).WithField("claim", id).Error("delete claim")
		writeError(rw, http.StatusInternalServerError, "delete failed")
		return
	}

	u := host.ClaimUpsert{RemoveID: id}
	if c.Parent != nil {
		parent, err := a.store.GetClaim(r.Context(), c.Parent.ID)
		if err != nil {
			a.log.WithError(err).WithField("claim", c.Parent.ID).Error("reload parent")
			writeError(rw, http.StatusInternalServerError, "reload failed")
			return
		}
		u = host.ClaimUpsert{Claim: parent}
	}
	if err := a.syncHost(r.Context(), u); err != nil {
		writeError(rw, http.StatusServiceUnavailable, err.Error())
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (a *api) syncHost(ctx context.Context, u host.ClaimUpsert) error {
	ctx, cancel := context.WithTimeout(ctx, hostTimeout)
	defer cancel()
	u.Resp = make(chan struct{}, 1)
	select {
	case a.host.UpsertClaim() <- u:
	case <-ctx.Done():
		return errors.New("host busy")
	}
	select {
	case <-u.Resp:
		return nil
	case <-ctx.Done():
		return errors.New("host did not confirm")
	}
}

// visualize triggers a visualization for a connected viewer, the way a
// command or claim-tool event would in game.
func (a *api) visualize(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msg := protocol.VisualizeMsg{
		Type:            protocol.TypeVisualize,
		ProtocolVersion: protocol.Version,
		Provider:        q.Get("provider"),
		ClaimID:         q.Get("claim"),
		VizType:         q.Get("type"),
	}
	if s := q.Get("nearby"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(rw, http.StatusBadRequest, "nearby must be a positive integer")
			return
		}
		msg.NearbyRadius = n
	}
	if msg.ClaimID == "" && msg.NearbyRadius == 0 {
		writeError(rw, http.StatusBadRequest, "claim or nearby is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hostTimeout)
	defer cancel()
	resp := make(chan host.VisualizeResponse, 1)
	req := host.VisualizeRequest{ViewerID: mux.Vars(r)["viewer"], Msg: msg, Resp: resp}
	select {
	case a.host.Visualize() <- req:
	case <-ctx.Done():
		writeError(rw, http.StatusServiceUnavailable, "host busy")
		return
	}
	select {
	case out := <-resp:
		writeJSON(rw, statusFor(out.Err), visualizeResult{Outcome: string(out.Outcome), Error: out.Err})
	case <-ctx.Done():
		writeError(rw, http.StatusServiceUnavailable, "host did not respond")
	}
}

func (a *api) revert(rw http.ResponseWriter, r *http.Request) {
	select {
	case a.host.Revert() <- mux.Vars(r)["viewer"]:
		rw.WriteHeader(http.StatusAccepted)
	case <-r.Context().Done():
	}
}

func statusFor(e *protocol.ErrorMsg) int {
	if e == nil {
		return http.StatusOK
	}
	switch e.Code {
	case protocol.ErrNotFound, protocol.ErrWorldNotFound:
		return http.StatusNotFound
	case protocol.ErrBadRequest, protocol.ErrProtoBadRequest:
		return http.StatusBadRequest
	case protocol.ErrIneligible:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]string{"error": msg})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
