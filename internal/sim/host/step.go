package host

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"claimviz.ai/internal/protocol"
	"claimviz.ai/internal/sim/geom"
	"claimviz.ai/internal/sim/terrain"
	"claimviz.ai/internal/sim/tuning"
	"claimviz.ai/internal/sim/viz"
)

// step advances one tick. Callbacks due this tick run before new input is
// applied, so a visualization requested now is drawn on the next tick.
func (h *Host) step(b *batch) {
	var entry TickLogEntry
	entry.Callbacks = h.sched.Step()
	entry.Tick = h.sched.Now()
	h.curTick.Store(entry.Tick)

	for _, u := range b.upserts {
		if u.RemoveID != "" {
			h.claims.Remove(u.RemoveID)
			entry.Claims = append(entry.Claims, u.RemoveID)
		} else {
			h.claims.Put(u.Claim)
			entry.Claims = append(entry.Claims, u.Claim.ID)
		}
		if u.Resp != nil {
			u.Resp <- struct{}{}
		}
	}
	// Leaves go first: a reconnect queues its predecessor's leave and its
	// own join into the same tick.
	for _, req := range b.leaves {
		if h.handleLeave(req) {
			entry.Leaves = append(entry.Leaves, req.ViewerID)
		}
	}
	for _, req := range b.joins {
		resp := h.handleJoin(req)
		if resp.Err == nil {
			entry.Joins = append(entry.Joins, req.Viewer.ID)
		}
		if req.Resp != nil {
			req.Resp <- resp
		}
	}
	for _, req := range b.moves {
		if h.handleMove(req) {
			entry.Moves = append(entry.Moves, req.ViewerID)
		}
	}
	for _, id := range b.reverts {
		h.orch.Revert(id)
		entry.Reverts = append(entry.Reverts, id)
	}
	for _, req := range b.visualize {
		resp := h.handleVisualize(req)
		rec := RecordedVisualize{Viewer: req.ViewerID, Outcome: resp.Outcome}
		if resp.Err != nil {
			rec.Code = resp.Err.Code
		}
		entry.Visualize = append(entry.Visualize, rec)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}
	if len(entry.Leaves) > 0 || len(entry.Moves) > 0 {
		h.pruneChunks()
	}

	if h.tickLogger == nil || entry.idle() {
		return
	}
	entry.Digest = h.stateDigest()
	if err := h.tickLogger.WriteTick(entry); err != nil {
		h.log.WithError(err).WithField("tick", entry.Tick).Warn("tick log write failed")
	}
}

func (e TickLogEntry) idle() bool {
	return e.Callbacks == 0 && len(e.Joins) == 0 && len(e.Leaves) == 0 && len(e.Moves) == 0 &&
		len(e.Visualize) == 0 && len(e.Reverts) == 0 && len(e.Claims) == 0
}

func (h *Host) handleJoin(req JoinRequest) JoinResponse {
	v := req.Viewer
	if v.World == "" {
		v.World = h.cfg.DefaultWorldID
	}
	w, ok := h.worlds[v.World]
	if !ok {
		e := protocol.NewError(protocol.ErrWorldNotFound, "unknown world: "+v.World)
		return JoinResponse{Err: &e}
	}
	sid := uuid.NewString()
	h.viewDistance[v.ID] = req.ViewDistance
	h.sessionIDs[v.ID] = sid
	h.orch.Sessions().Join(v)
	w.chunks.LoadAround(v.Pos.X, v.Pos.Z, h.viewRadius(v.ID, w.spec))
	h.log.WithFields(logrus.Fields{"viewer": v.ID, "world": v.World}).Debug("viewer joined")
	return JoinResponse{Welcome: h.welcome(v, sid)}
}

// handleLeave drops the viewer's session unless the request names a session
// that has since been replaced.
func (h *Host) handleLeave(req LeaveRequest) bool {
	cur, ok := h.sessionIDs[req.ViewerID]
	if !ok {
		return false
	}
	if req.SessionID != "" && req.SessionID != cur {
		h.log.WithFields(logrus.Fields{"viewer": req.ViewerID, "session": req.SessionID}).Debug("stale leave ignored")
		return false
	}
	h.orch.Sessions().Leave(req.ViewerID)
	delete(h.viewDistance, req.ViewerID)
	delete(h.sessionIDs, req.ViewerID)
	return true
}

func (h *Host) welcome(v viz.Viewer, sessionID string) protocol.WelcomeMsg {
	manifest := make([]protocol.WorldRef, 0, len(h.cfg.Worlds))
	for _, spec := range h.cfg.Worlds {
		manifest = append(manifest, protocol.WorldRef{
			WorldID:      spec.ID,
			MinHeight:    spec.MinHeight,
			MaxHeight:    spec.MaxHeight,
			ViewDistance: spec.ViewDistance,
		})
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		ViewerID:        v.ID,
		WorldID:         v.World,
		TickRateHz:      h.cfg.TickRateHz,
		DefaultProvider: h.registry.DefaultKey(),
		Providers:       h.registry.Keys(),
		Catalogs: protocol.CatalogDigests{
			BlockPalette: protocol.DigestRef{Digest: h.catalog.PaletteDigest, Count: len(h.catalog.Palette)},
			BlockDefs:    h.catalog.DefsDigest,
		},
		WorldManifest: manifest,
	}
}

// handleMove updates a viewer's position. Changing worlds clears what the
// viewer sees; an unknown target world is ignored.
func (h *Host) handleMove(req MoveRequest) bool {
	sess := h.orch.Sessions().Get(req.ViewerID)
	if sess == nil {
		return false
	}
	target := req.World
	if target == "" {
		target = sess.Viewer().World
	}
	w, ok := h.worlds[target]
	if !ok {
		h.log.WithFields(logrus.Fields{"viewer": req.ViewerID, "world": target}).Warn("move to unknown world ignored")
		return false
	}
	if target != sess.Viewer().World {
		h.orch.Revert(req.ViewerID)
	}
	sess.Move(target, req.Pos)
	w.chunks.LoadAround(req.Pos.X, req.Pos.Z, h.viewRadius(req.ViewerID, w.spec))
	return true
}

// viewRadius is the viewer's requested view distance in chunks, capped by
// the world's.
func (h *Host) viewRadius(id string, spec tuning.WorldSpec) int {
	vd := h.viewDistance[id]
	if vd <= 0 || vd > spec.ViewDistance {
		return spec.ViewDistance
	}
	return vd
}

func (h *Host) handleVisualize(req VisualizeRequest) VisualizeResponse {
	sess := h.orch.Sessions().Get(req.ViewerID)
	if sess == nil {
		return failed(viz.OutcomeUnknownViewer, protocol.ErrNotFound, "unknown viewer: "+req.ViewerID)
	}
	m := req.Msg
	bs, fail := h.boundariesFor(sess.Viewer(), m)
	if fail != nil {
		return *fail
	}
	r := viz.Request{
		Viewer:     req.ViewerID,
		Provider:   m.Provider,
		Height:     m.Height,
		Boundaries: bs,
	}
	if m.Anchor != nil {
		a := geom.V(m.Anchor[0], m.Anchor[1], m.Anchor[2])
		r.Anchor = &a
	}
	switch out := h.orch.Visualize(r); out {
	case viz.OutcomeIneligible:
		return failed(out, protocol.ErrIneligible, "nothing to visualize here")
	case viz.OutcomeUnknownViewer:
		return failed(out, protocol.ErrNotFound, "unknown viewer: "+req.ViewerID)
	default:
		return VisualizeResponse{Outcome: out}
	}
}

func failed(out viz.Outcome, code, msg string) VisualizeResponse {
	e := protocol.NewError(code, msg)
	return VisualizeResponse{Outcome: out, Err: &e}
}

func (h *Host) boundariesFor(v viz.Viewer, m protocol.VisualizeMsg) ([]*viz.Boundary, *VisualizeResponse) {
	var bs []viz.Boundary
	switch {
	case m.ClaimID != "":
		c := h.claims.Get(m.ClaimID)
		if c == nil {
			r := failed(viz.OutcomeIneligible, protocol.ErrNotFound, "claim not found: "+m.ClaimID)
			return nil, &r
		}
		if c.World != v.World {
			r := failed(viz.OutcomeIneligible, protocol.ErrIneligible, "claim is in another world")
			return nil, &r
		}
		t, err := viz.ParseType(m.VizType)
		if err != nil {
			r := failed(viz.OutcomeIneligible, protocol.ErrBadRequest, err.Error())
			return nil, &r
		}
		bs = viz.DefineClaimBoundaries(c, t)
	case m.NearbyRadius > 0:
		bs = viz.NearbyClaimBoundaries(h.claims.Nearby(v.World, v.Pos, m.NearbyRadius))
	case m.Area != nil:
		t, err := viz.ParseType(m.Area.Type)
		if err != nil {
			r := failed(viz.OutcomeIneligible, protocol.ErrBadRequest, err.Error())
			return nil, &r
		}
		area := geom.NewBox(geom.V(m.Area.Min[0], m.Area.Min[1], m.Area.Min[2]),
			geom.V(m.Area.Max[0], m.Area.Max[1], m.Area.Max[2]))
		bs = []viz.Boundary{viz.AreaBoundary(area, t)}
	default:
		r := failed(viz.OutcomeIneligible, protocol.ErrBadRequest, "missing claim_id, nearby_radius or area")
		return nil, &r
	}
	out := make([]*viz.Boundary, len(bs))
	for i := range bs {
		out[i] = &bs[i]
	}
	return out, nil
}

// pruneChunks unloads chunks no connected viewer can see.
func (h *Host) pruneChunks() {
	needed := map[string]map[terrain.ChunkKey]bool{}
	for _, id := range h.orch.Sessions().IDs() {
		v := h.orch.Sessions().Get(id).Viewer()
		keep := needed[v.World]
		if keep == nil {
			keep = map[terrain.ChunkKey]bool{}
			needed[v.World] = keep
		}
		w, ok := h.worlds[v.World]
		if !ok {
			continue
		}
		r := h.viewRadius(id, w.spec)
		cx, cz := geom.FloorDiv(v.Pos.X, 16), geom.FloorDiv(v.Pos.Z, 16)
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				keep[terrain.ChunkKey{CX: cx + dx, CZ: cz + dz}] = true
			}
		}
	}
	for id, w := range h.worlds {
		for _, k := range w.chunks.LoadedChunkKeys() {
			if !needed[id][k] {
				w.chunks.UnloadChunk(k.CX, k.CZ)
			}
		}
	}
}

// stateDigest hashes loaded terrain and session placement.
func (h *Host) stateDigest() string {
	hash := sha256.New()
	var buf [8]byte
	ids := make([]string, 0, len(h.worlds))
	for id := range h.worlds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		hash.Write([]byte(id))
		cs := h.worlds[id].chunks
		for _, k := range cs.LoadedChunkKeys() {
			binary.LittleEndian.PutUint64(buf[:], uint64(int64(k.CX)))
			hash.Write(buf[:])
			binary.LittleEndian.PutUint64(buf[:], uint64(int64(k.CZ)))
			hash.Write(buf[:])
			d := cs.Chunks[k].Digest()
			hash.Write(d[:])
		}
	}
	for _, id := range h.orch.Sessions().IDs() {
		s := h.orch.Sessions().Get(id)
		v := s.Viewer()
		hash.Write([]byte(id))
		hash.Write([]byte(v.World))
		for _, c := range v.Pos.ToArray() {
			binary.LittleEndian.PutUint64(buf[:], uint64(int64(c)))
			hash.Write(buf[:])
		}
		if s.Active() != nil {
			hash.Write([]byte{1})
		} else {
			hash.Write([]byte{0})
		}
	}
	return hex.EncodeToString(hash.Sum(nil))
}
