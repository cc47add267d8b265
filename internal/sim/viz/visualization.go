package viz

import (
	"claimviz.ai/internal/sim/catalogs"
	"claimviz.ai/internal/sim/element"
	"claimviz.ai/internal/sim/floor"
	"claimviz.ai/internal/sim/geom"
	"claimviz.ai/internal/sim/tuning"
)

// World is the view of terrain a visualization needs.
type World interface {
	IsLoadedAt(x, z int) bool
	BlockDefAt(x, y, z int) catalogs.BlockDef
	RayTraceDown(x, y, z, maxDist int) (int, bool)
	HeightRange() (minY, maxY int)
}

type Viewer struct {
	ID    string
	World string
	Pos   geom.Vec3i
}

// Visualization is one outline of a boundary set for one viewer.
type Visualization interface {
	Viewer() Viewer
	Anchor() geom.Vec3i
	Boundaries() []Boundary
	// Apply draws every element. A non-nil error means the family failed
	// part way; elements already drawn stay tracked and Revert releases them.
	Apply() error
	// Revert releases every tracked element. Safe on a never-applied instance.
	Revert()
}

// Env is the process-wide context shared by every visualization.
type Env struct {
	Resources  element.Resources
	Tuning     tuning.Tuning
	Classifier *floor.Classifier
}

func NewEnv(res element.Resources, t tuning.Tuning) *Env {
	return &Env{
		Resources:  res,
		Tuning:     t,
		Classifier: floor.NewClassifier(t.Floor.CacheSize),
	}
}

// Params describes one visualization request after selection.
type Params struct {
	Viewer     Viewer
	Anchor     geom.Vec3i
	Height     int
	World      World
	WorldSpec  tuning.WorldSpec
	Boundaries []Boundary
}

type base struct {
	env *Env
	p   Params
}

func (b *base) Viewer() Viewer         { return b.p.Viewer }
func (b *base) Anchor() geom.Vec3i     { return b.p.Anchor }
func (b *base) Boundaries() []Boundary { return b.p.Boundaries }

func (b *base) resolver(isFloor floor.Predicate) floor.Resolver {
	minY, maxY := b.p.World.HeightRange()
	r := floor.NewResolver(minY, maxY, isFloor)
	if b.env.Tuning.Floor.SearchBelow > 0 {
		r.SearchBelow = b.env.Tuning.Floor.SearchBelow
	}
	if b.env.Tuning.Floor.SearchAbove > 0 {
		r.SearchAbove = b.env.Tuning.Floor.SearchAbove
	}
	return r
}

func (b *base) flat(area geom.Box) bool {
	return isFlat(area, b.env.Tuning.Floor.TwoDHeight)
}
