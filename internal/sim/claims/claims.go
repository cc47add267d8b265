// Package claims models land claims: a box in one world, an owner, optional
// subdivisions, and per-viewer trust or bans.
package claims

import (
	"sort"

	"claimviz.ai/internal/sim/geom"
)

type Permission string

const (
	PermissionBuild     Permission = "BUILD"
	PermissionContainer Permission = "CONTAINER"
	PermissionAccess    Permission = "ACCESS"
	PermissionManage    Permission = "MANAGE"
)

func ValidPermission(p Permission) bool {
	switch p {
	case PermissionBuild, PermissionContainer, PermissionAccess, PermissionManage:
		return true
	}
	return false
}

type ClaimFlags struct {
	AllowBuild  bool `json:"allow_build"`
	AllowBreak  bool `json:"allow_break"`
	AllowDamage bool `json:"allow_damage"`
}

type Claim struct {
	ID    string
	World string
	Owner string // empty for admin claims
	Admin bool
	Area  geom.Box
	Flags ClaimFlags

	// Trusted maps viewer id to the permission granted explicitly.
	Trusted map[string]Permission
	Banned  map[string]bool

	Parent   *Claim
	Children []*Claim
}

func (c *Claim) Contains(pos geom.Vec3i) bool {
	return c.Area.Contains2D(pos)
}

func (c *Claim) IsSubdivision() bool { return c.Parent != nil }

// IsAdmin reports whether the claim, or the claim it subdivides, is an admin claim.
func (c *Claim) IsAdmin() bool {
	if c.Parent != nil {
		return c.Parent.IsAdmin()
	}
	return c.Admin
}

func (c *Claim) IsBanned(viewer string) bool {
	return c.Banned[viewer]
}

// HasAnyExplicitPermission reports an explicit grant to viewer on this claim.
// Ownership is not an explicit grant.
func (c *Claim) HasAnyExplicitPermission(viewer string) bool {
	_, ok := c.Trusted[viewer]
	return ok
}

func (c *Claim) Trust(viewer string, p Permission) {
	if c.Trusted == nil {
		c.Trusted = map[string]Permission{}
	}
	c.Trusted[viewer] = p
}

func (c *Claim) Ban(viewer string) {
	if c.Banned == nil {
		c.Banned = map[string]bool{}
	}
	c.Banned[viewer] = true
}

// AddChild attaches sub as a subdivision of c.
func (c *Claim) AddChild(sub *Claim) {
	sub.Parent = c
	sub.World = c.World
	c.Children = append(c.Children, sub)
}

// Index is an in-memory lookup of top-level claims by id and world.
// Accessed only from the host loop goroutine.
type Index struct {
	byID map[string]*Claim
}

func NewIndex() *Index {
	return &Index{byID: map[string]*Claim{}}
}

// Put adds or replaces a claim and indexes its children.
func (x *Index) Put(c *Claim) {
	if old, ok := x.byID[c.ID]; ok {
		for _, ch := range old.Children {
			delete(x.byID, ch.ID)
		}
	}
	x.byID[c.ID] = c
	for _, ch := range c.Children {
		x.byID[ch.ID] = ch
	}
}

func (x *Index) Get(id string) *Claim { return x.byID[id] }

func (x *Index) Remove(id string) {
	c, ok := x.byID[id]
	if !ok {
		return
	}
	for _, ch := range c.Children {
		delete(x.byID, ch.ID)
	}
	delete(x.byID, id)
}

// Nearby returns the top-level claims in world whose area comes within
// radius blocks of pos horizontally, sorted by id.
func (x *Index) Nearby(world string, pos geom.Vec3i, radius int) []*Claim {
	window := geom.NewBox(pos.Offset(-radius, 0, -radius), pos.Offset(radius, 0, radius))
	var out []*Claim
	for _, c := range x.byID {
		if c.Parent != nil || c.World != world {
			continue
		}
		if c.Area.Min.X > window.Max.X || c.Area.Max.X < window.Min.X ||
			c.Area.Min.Z > window.Max.Z || c.Area.Max.Z < window.Min.Z {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// At returns the innermost claim containing pos, preferring subdivisions.
func (x *Index) At(world string, pos geom.Vec3i) *Claim {
	for _, c := range x.Nearby(world, pos, 0) {
		if !c.Contains(pos) {
			continue
		}
		for _, ch := range c.Children {
			if ch.Contains(pos) {
				return ch
			}
		}
		return c
	}
	return nil
}
