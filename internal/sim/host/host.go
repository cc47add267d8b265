// Package host runs the single-threaded loop that owns every viewer session,
// the terrain of each world, the claim index and the tick scheduler.
package host

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"claimviz.ai/internal/protocol"
	"claimviz.ai/internal/sim/catalogs"
	"claimviz.ai/internal/sim/claims"
	"claimviz.ai/internal/sim/element"
	"claimviz.ai/internal/sim/geom"
	"claimviz.ai/internal/sim/terrain"
	"claimviz.ai/internal/sim/tick"
	"claimviz.ai/internal/sim/tuning"
	"claimviz.ai/internal/sim/viz"
)

type Config struct {
	Tuning    tuning.Tuning
	Catalog   catalogs.BlockCatalog
	Seed      int64
	Resources element.Resources
	Log       logrus.FieldLogger
	// Audit may be nil.
	Audit viz.AuditSink
	// Registry defaults to the built-in families.
	Registry *viz.Registry
}

type JoinRequest struct {
	Viewer       viz.Viewer
	ViewDistance int
	Resp         chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Err     *protocol.ErrorMsg
}

type MoveRequest struct {
	ViewerID string
	World    string
	Pos      geom.Vec3i
}

type VisualizeRequest struct {
	ViewerID string
	Msg      protocol.VisualizeMsg
	// Resp may be nil.
	Resp chan VisualizeResponse
}

type VisualizeResponse struct {
	Outcome viz.Outcome
	Err     *protocol.ErrorMsg
}

// LeaveRequest ends a viewer's session. SessionID is the id the host handed
// out in WELCOME; a leave carrying an older id is dropped so a reconnect is
// never torn down by its predecessor. An empty SessionID always applies.
type LeaveRequest struct {
	ViewerID  string
	SessionID string
}

// ClaimUpsert replaces a top-level claim in the index. When RemoveID is set
// the claim with that id is dropped instead and Claim is ignored.
type ClaimUpsert struct {
	Claim    *claims.Claim
	RemoveID string
	// Resp may be nil.
	Resp chan struct{}
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// TickLogEntry records the inputs a tick consumed. Idle ticks are not logged.
type TickLogEntry struct {
	Tick      uint64              `json:"tick"`
	Joins     []string            `json:"joins,omitempty"`
	Leaves    []string            `json:"leaves,omitempty"`
	Moves     []string            `json:"moves,omitempty"`
	Visualize []RecordedVisualize `json:"visualize,omitempty"`
	Reverts   []string            `json:"reverts,omitempty"`
	Claims    []string            `json:"claims,omitempty"`
	Callbacks int                 `json:"callbacks,omitempty"`
	Digest    string              `json:"digest"`
}

type RecordedVisualize struct {
	Viewer  string      `json:"viewer"`
	Outcome viz.Outcome `json:"outcome"`
	Code    string      `json:"code,omitempty"`
}

type world struct {
	spec   tuning.WorldSpec
	chunks *terrain.ChunkStore
}

// Host is a single-threaded authoritative loop.
// All state must be accessed only from the loop goroutine.
type Host struct {
	cfg      tuning.Tuning
	catalog  catalogs.BlockCatalog
	log      logrus.FieldLogger
	worlds   map[string]*world
	sched    *tick.Scheduler
	registry *viz.Registry
	orch     *viz.Orchestrator
	claims   *claims.Index

	curTick atomic.Uint64

	viewDistance map[string]int
	sessionIDs   map[string]string

	join      chan JoinRequest
	leave     chan LeaveRequest
	move      chan MoveRequest
	visualize chan VisualizeRequest
	revert    chan string
	upsert    chan ClaimUpsert
	stop      chan struct{}

	tickLogger TickLogger
}

func New(cfg Config) (*Host, error) {
	if cfg.Resources == nil {
		return nil, fmt.Errorf("host: nil resources")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = viz.BuiltinRegistry(cfg.Tuning.Visualization.DefaultProvider)
	}
	h := &Host{
		cfg:          cfg.Tuning,
		catalog:      cfg.Catalog,
		log:          log,
		worlds:       map[string]*world{},
		sched:        tick.NewScheduler(),
		registry:     reg,
		claims:       claims.NewIndex(),
		viewDistance: map[string]int{},
		sessionIDs:   map[string]string{},
		join:         make(chan JoinRequest, 64),
		leave:        make(chan LeaveRequest, 64),
		move:         make(chan MoveRequest, 1024),
		visualize:    make(chan VisualizeRequest, 256),
		revert:       make(chan string, 256),
		upsert:       make(chan ClaimUpsert, 64),
		stop:         make(chan struct{}),
	}
	for _, spec := range cfg.Tuning.Worlds {
		gen := terrain.GenFromCatalog(cfg.Seed+spec.SeedOffset, spec.MinHeight, spec.MaxHeight, cfg.Catalog)
		h.worlds[spec.ID] = &world{spec: spec, chunks: terrain.NewChunkStore(gen, cfg.Catalog)}
	}
	h.orch = viz.NewOrchestrator(viz.OrchestratorConfig{
		Env:      viz.NewEnv(cfg.Resources, cfg.Tuning),
		Registry: reg,
		Sched:    h.sched,
		Sessions: viz.NewSessions(),
		Worlds:   h.lookupWorld,
		Log:      log,
		Audit:    cfg.Audit,
	})
	return h, nil
}

func (h *Host) SetTickLogger(l TickLogger) { h.tickLogger = l }

func (h *Host) Join() chan<- JoinRequest           { return h.join }
func (h *Host) Leave() chan<- LeaveRequest         { return h.leave }
func (h *Host) Move() chan<- MoveRequest           { return h.move }
func (h *Host) Visualize() chan<- VisualizeRequest { return h.visualize }
func (h *Host) Revert() chan<- string              { return h.revert }
func (h *Host) UpsertClaim() chan<- ClaimUpsert    { return h.upsert }

// LoadClaims seeds the claim index. Call before Run.
func (h *Host) LoadClaims(cs []*claims.Claim) {
	for _, c := range cs {
		h.claims.Put(c)
	}
}

func (h *Host) lookupWorld(id string) (viz.World, tuning.WorldSpec, bool) {
	w, ok := h.worlds[id]
	if !ok {
		return nil, tuning.WorldSpec{}, false
	}
	return w.chunks, w.spec, true
}

type batch struct {
	joins     []JoinRequest
	leaves    []LeaveRequest
	moves     []MoveRequest
	visualize []VisualizeRequest
	reverts   []string
	upserts   []ClaimUpsert
}

func (b *batch) reset() {
	b.joins = b.joins[:0]
	b.leaves = b.leaves[:0]
	b.moves = b.moves[:0]
	b.visualize = b.visualize[:0]
	b.reverts = b.reverts[:0]
	b.upserts = b.upserts[:0]
}

func (h *Host) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(h.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending batch
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.stop:
			return nil
		case req := <-h.join:
			pending.joins = append(pending.joins, req)
		case req := <-h.leave:
			pending.leaves = append(pending.leaves, req)
		case req := <-h.move:
			pending.moves = append(pending.moves, req)
		case req := <-h.visualize:
			pending.visualize = append(pending.visualize, req)
		case id := <-h.revert:
			pending.reverts = append(pending.reverts, id)
		case req := <-h.upsert:
			pending.upserts = append(pending.upserts, req)
		case <-ticker.C:
			h.step(&pending)
			pending.reset()
		}
	}
}

func (h *Host) Stop() { close(h.stop) }

func (h *Host) CurrentTick() uint64 { return h.curTick.Load() }
