package viz

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"claimviz.ai/internal/sim/geom"
	"claimviz.ai/internal/sim/tuning"
)

// Scheduler runs callbacks on later host ticks.
type Scheduler interface {
	After(ticks int, fn func())
	Now() uint64
}

// WorldLookup resolves a world id to its terrain and settings.
type WorldLookup func(id string) (World, tuning.WorldSpec, bool)

type Outcome string

const (
	OutcomeScheduled     Outcome = "SCHEDULED"
	OutcomeSuppressed    Outcome = "SUPPRESSED"
	OutcomeIneligible    Outcome = "INELIGIBLE"
	OutcomeUnknownViewer Outcome = "UNKNOWN_VIEWER"
)

// Request asks for a boundary set to be shown to one viewer. Nil Anchor and
// Height default to the viewer's position and the block below their feet.
type Request struct {
	Viewer     string
	Provider   string
	Anchor     *geom.Vec3i
	Height     *int
	Boundaries []*Boundary
}

type Orchestrator struct {
	env      *Env
	registry *Registry
	sched    Scheduler
	sessions *Sessions
	worlds   WorldLookup
	log      logrus.FieldLogger
	audit    AuditSink
}

type OrchestratorConfig struct {
	Env      *Env
	Registry *Registry
	Sched    Scheduler
	Sessions *Sessions
	Worlds   WorldLookup
	Log      logrus.FieldLogger
	// Audit may be nil.
	Audit AuditSink
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		env:      cfg.Env,
		registry: cfg.Registry,
		sched:    cfg.Sched,
		sessions: cfg.Sessions,
		worlds:   cfg.Worlds,
		log:      log,
		audit:    cfg.Audit,
	}
}

func (o *Orchestrator) Sessions() *Sessions { return o.sessions }

// Visualize replaces the viewer's current outline with req's boundaries,
// unless the same set is already shown from a nearby anchor. Drawing happens
// ApplyDelayTicks later.
func (o *Orchestrator) Visualize(req Request) Outcome {
	sess := o.sessions.Get(req.Viewer)
	if sess == nil {
		return OutcomeUnknownViewer
	}
	viewer := sess.Viewer()
	boundaries := compact(req.Boundaries)
	anchor := viewer.Pos
	if req.Anchor != nil {
		anchor = *req.Anchor
	}
	height := viewer.Pos.Y - 1
	if req.Height != nil {
		height = *req.Height
	}

	vt := o.env.Tuning.Visualization
	if cur := sess.Active(); cur != nil &&
		SameBoundaries(cur.Boundaries(), boundaries) &&
		cur.Anchor().DistanceSquared(anchor) < vt.DedupDistanceSq {
		o.record(AuditEntry{Viewer: viewer.ID, World: viewer.World, Action: AuditSuppress, Boundaries: len(boundaries), Anchor: anchor.ToArray()})
		return OutcomeSuppressed
	}

	// Anything shown or queued for this viewer goes away first.
	sess.pending = nil
	sess.SetActive(nil)

	w, spec, ok := o.worlds(viewer.World)
	if !ok || len(boundaries) == 0 {
		return OutcomeIneligible
	}
	key, factory := o.registry.Resolve(req.Provider)
	p := Params{
		Viewer:     viewer,
		Anchor:     anchor,
		Height:     height,
		World:      w,
		WorldSpec:  spec,
		Boundaries: boundaries,
	}
	v, err := build(factory, o.env, p)
	if err != nil {
		defKey, defFactory := o.registry.Resolve("")
		if key == defKey {
			panic(err)
		}
		o.log.WithFields(logrus.Fields{"viewer": viewer.ID, "provider": key, "boundaries": len(boundaries)}).
			WithError(err).Warn("external visualization provider fault")
		o.record(o.entry(AuditFallback, key, p, err))
		key, v = defKey, defFactory(o.env, p)
	}
	sess.pending = v
	o.sched.After(vt.ApplyDelayTicks, func() { o.apply(sess, v, key, p) })
	return OutcomeScheduled
}

// Revert clears whatever the viewer sees or is about to see.
func (o *Orchestrator) Revert(viewerID string) {
	sess := o.sessions.Get(viewerID)
	if sess == nil {
		return
	}
	sess.pending = nil
	if cur := sess.Active(); cur != nil {
		o.record(AuditEntry{Viewer: viewerID, World: cur.Viewer().World, Action: AuditRevert, Boundaries: len(cur.Boundaries()), Anchor: cur.Anchor().ToArray()})
	}
	sess.SetActive(nil)
}

func (o *Orchestrator) apply(sess *Session, v Visualization, key string, p Params) {
	if sess.pending != v || o.sessions.Get(p.Viewer.ID) != sess {
		return
	}
	sess.pending = nil
	if sess.Viewer().World != p.Viewer.World {
		return
	}

	sess.SetActive(v)
	err := guard(v.Apply)
	if err == nil {
		o.record(o.entry(AuditApply, key, p, nil))
		o.scheduleExpiry(sess, v, key, p)
		return
	}

	fields := logrus.Fields{
		"viewer":     p.Viewer.ID,
		"provider":   key,
		"boundaries": len(p.Boundaries),
	}
	defKey, defFactory := o.registry.Resolve("")
	if key == defKey {
		o.log.WithFields(fields).WithError(err).Warn("exception visualizing claim")
		o.record(o.entry(AuditFail, key, p, err))
		o.scheduleExpiry(sess, v, key, p)
		return
	}

	fields["provider_type"] = fmt.Sprintf("%T", v)
	o.log.WithFields(fields).WithError(err).Warn("external visualization provider fault")
	o.record(o.entry(AuditFallback, key, p, err))

	// The faulted instance may fault again on revert; it is dropped either way.
	if err := guard(func() error { v.Revert(); return nil }); err != nil {
		o.log.WithFields(fields).WithError(err).Warn("external visualization provider fault")
	}
	sess.active = nil
	fallback := defFactory(o.env, p)
	sess.SetActive(fallback)
	if err := guard(fallback.Apply); err != nil {
		o.log.WithFields(logrus.Fields{"viewer": p.Viewer.ID, "provider": defKey}).WithError(err).Warn("exception visualizing claim")
		o.record(o.entry(AuditFail, defKey, p, err))
	} else {
		o.record(o.entry(AuditApply, defKey, p, nil))
	}
	o.scheduleExpiry(sess, fallback, defKey, p)
}

// guard runs fn and reports a panic as an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func build(factory Factory, env *Env, p Params) (v Visualization, err error) {
	err = guard(func() error {
		v = factory(env, p)
		return nil
	})
	return v, err
}

func (o *Orchestrator) scheduleExpiry(sess *Session, v Visualization, key string, p Params) {
	o.sched.After(o.env.Tuning.Visualization.AutoExpireTicks, func() {
		if sess.Active() != v {
			return
		}
		sess.SetActive(nil)
		o.record(o.entry(AuditExpire, key, p, nil))
	})
}

func (o *Orchestrator) entry(a AuditAction, key string, p Params, err error) AuditEntry {
	e := AuditEntry{
		Viewer:     p.Viewer.ID,
		World:      p.Viewer.World,
		Action:     a,
		Provider:   key,
		Boundaries: len(p.Boundaries),
		Anchor:     p.Anchor.ToArray(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func (o *Orchestrator) record(e AuditEntry) {
	if o.audit == nil {
		return
	}
	e.Tick = o.sched.Now()
	if err := o.audit.WriteAudit(e); err != nil {
		o.log.WithError(err).WithField("viewer", e.Viewer).Warn("audit write failed")
	}
}
