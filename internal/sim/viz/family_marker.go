package viz

import (
	"claimviz.ai/internal/sim/discretize"
	"claimviz.ai/internal/sim/element"
	"claimviz.ai/internal/sim/floor"
	"claimviz.ai/internal/sim/geom"
)

func isFlat(area geom.Box, twoDHeight int) bool {
	return discretize.IsFlat(area, twoDHeight)
}

// MarkerVisualization places one element per outline coordinate. Elements
// are keyed by coordinate and the first writer wins, so corners and
// subdivisions listed first are never overdrawn.
type MarkerVisualization struct {
	base

	kind    element.Kind
	step    int
	zone    geom.Box
	style   func(t Type, corner bool) element.Style
	isFloor func(w World) floor.Predicate

	elements *element.CoordSet
	built    bool
}

func newMarker(env *Env, p Params, kind element.Kind, step, radius int,
	style func(Type, bool) element.Style, isFloor func(World) floor.Predicate) *MarkerVisualization {
	return &MarkerVisualization{
		base:     base{env: env, p: p},
		kind:     kind,
		step:     step,
		zone:     geom.Around(p.Anchor, radius),
		style:    style,
		isFloor:  isFloor,
		elements: element.NewCoordSet(),
	}
}

func (v *MarkerVisualization) DisplayZone() geom.Box { return v.zone }

func (v *MarkerVisualization) build() {
	if v.built {
		return
	}
	v.built = true
	w := v.p.World
	r := v.resolver(v.isFloor(w))
	for _, b := range v.p.Boundaries {
		add := func(corner bool) func(geom.Vec3i) {
			st := v.style(b.Type, corner)
			return func(pos geom.Vec3i) {
				v.elements.Add(element.New(v.p.Viewer.ID, element.Spec{Kind: v.kind, From: pos, Style: st}))
			}
		}
		discretize.Markers(b.Area, discretize.Params{
			Step:   v.step,
			Zone:   v.zone,
			Loaded: w.IsLoadedAt,
			Floor:  r.Find,
			Height: v.p.Height,
			Flat:   v.flat(b.Area),
		}, add(true), add(false))
	}
}

func (v *MarkerVisualization) Apply() error {
	v.build()
	return element.DrawAll(v.env.Resources, v.elements.Elements())
}

func (v *MarkerVisualization) Revert() {
	element.EraseAll(v.env.Resources, v.p.Viewer.ID, v.elements.Elements())
}

// Elements returns the tracked elements in insertion order.
func (v *MarkerVisualization) Elements() []*element.Element { return v.elements.Elements() }

// ElementByEntityID finds a drawn element by its client entity id.
func (v *MarkerVisualization) ElementByEntityID(id int32) *element.Element {
	return v.elements.ByHandleID(id)
}

// ElementAt finds the element at pos in world, or nil.
func (v *MarkerVisualization) ElementAt(world string, pos geom.Vec3i) *element.Element {
	if world != v.p.Viewer.World {
		return nil
	}
	return v.elements.At(pos)
}

func NewBlockDisplay(env *Env, p Params) Visualization {
	m := env.Tuning.Visualization.Entity
	return newMarker(env, p, element.KindEntity, m.Step, m.DisplayRadius,
		func(t Type, _ bool) element.Style { return displayStyle(t) },
		env.surfaceFloor)
}

func NewShulkerBullet(env *Env, p Params) Visualization {
	m := env.Tuning.Visualization.Entity
	return newMarker(env, p, element.KindEntity, m.Step, m.DisplayRadius,
		func(t Type, _ bool) element.Style { return bulletStyle(t) },
		env.surfaceFloor)
}

func NewFakeBlock(env *Env, p Params) Visualization {
	m := env.Tuning.Visualization.Block
	return newMarker(env, p, element.KindBlock, m.Step, m.DisplayRadius, blockStyle,
		func(w World) floor.Predicate { return floor.SolidTopPredicate(w) })
}

func NewAntiCheatCompat(env *Env, p Params) Visualization {
	m := env.Tuning.Visualization.Block
	return newMarker(env, p, element.KindBlock, m.Step, m.DisplayRadius, blockStyle,
		func(w World) floor.Predicate { return floor.PartialShapePredicate(w) })
}

func (e *Env) surfaceFloor(w World) floor.Predicate {
	return e.Classifier.SurfacePredicate(w)
}
