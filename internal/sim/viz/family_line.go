package viz

import (
	"claimviz.ai/internal/sim/discretize"
	"claimviz.ai/internal/sim/element"
	"claimviz.ai/internal/sim/geom"
)

// rayDepth bounds the downward search for the plane flat lines are drawn on.
const rayDepth = 32

// LineVisualization draws each boundary as stepped line entities. Elements
// are kept per boundary and culled per boundary.
type LineVisualization struct {
	base

	step2D int
	step3D int
	zone   geom.Box

	groups *element.Partition[Boundary]
	built  bool
}

func NewBlockDisplayLine(env *Env, p Params) Visualization {
	l := env.Tuning.Visualization.Line
	return &LineVisualization{
		base:   base{env: env, p: p},
		step2D: l.Step2D,
		step3D: l.Step3D,
		zone:   geom.Around(p.Anchor, env.Tuning.LineRadius(p.WorldSpec)),
		groups: element.NewPartition[Boundary](),
	}
}

func (v *LineVisualization) DisplayZone() geom.Box { return v.zone }

// planeY is the floor under the viewer, or the request height when the viewer
// is more than rayDepth blocks above ground.
func (v *LineVisualization) planeY() int {
	pos := v.p.Viewer.Pos
	if y, ok := v.p.World.RayTraceDown(pos.X, pos.Y, pos.Z, rayDepth); ok {
		return y + 1
	}
	return v.p.Height
}

func (v *LineVisualization) build() {
	if v.built {
		return
	}
	v.built = true
	y := v.planeY()
	viewer := v.p.Viewer.ID
	for _, b := range v.p.Boundaries {
		set := element.NewLineSet()
		st := lineStyle(b, viewer)
		discretize.Lines(b.Area, discretize.LineParams{
			Step2D: v.step2D,
			Step3D: v.step3D,
			Zone:   v.zone,
			Flat:   v.flat(b.Area),
			Y:      y,
		}, func(from, to geom.Vec3i) {
			set.Add(element.New(viewer, element.Spec{Kind: element.KindLine, From: from, To: to, Style: st}))
		})
		v.groups.Put(b, set.Culled())
	}
}

func (v *LineVisualization) Apply() error {
	v.build()
	return element.DrawAll(v.env.Resources, v.groups.All())
}

func (v *LineVisualization) Revert() {
	for _, b := range v.p.Boundaries {
		v.groups.Erase(v.env.Resources, v.p.Viewer.ID, b)
	}
}

// Lines returns the surviving line elements for one boundary.
func (v *LineVisualization) Lines(b Boundary) []*element.Element { return v.groups.Get(b) }
