// Package viz builds per-viewer claim outlines from boundaries and manages
// their lifecycle: deferred apply, dedup of repeated requests, expiry, and
// fallback to the default family when a custom one fails.
package viz

import (
	"fmt"
	"strings"

	"claimviz.ai/internal/sim/claims"
	"claimviz.ai/internal/sim/geom"
)

type Type string

const (
	TypeClaim          Type = "CLAIM"
	TypeAdminClaim     Type = "ADMIN_CLAIM"
	TypeSubdivision    Type = "SUBDIVISION"
	TypeConflictZone   Type = "CONFLICT_ZONE"
	TypeInitializeZone Type = "INITIALIZE_ZONE"
)

func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TypeClaim, TypeAdminClaim, TypeSubdivision, TypeConflictZone, TypeInitializeZone:
		return t, nil
	case "":
		return TypeClaim, nil
	}
	return "", fmt.Errorf("unknown visualization type: %q", s)
}

// Boundary is one box to outline. It is comparable: two boundaries are equal
// when their area and type match and they reference the same claim.
type Boundary struct {
	Area  geom.Box
	Type  Type
	Claim *claims.Claim
}

func ClaimBoundary(c *claims.Claim, t Type) Boundary {
	return Boundary{Area: c.Area, Type: t, Claim: c}
}

func AreaBoundary(area geom.Box, t Type) Boundary {
	return Boundary{Area: area, Type: t}
}

// DefineClaimBoundaries outlines a claim with its subdivisions. Subdivisions
// come first so they win coordinate collisions with their parent.
func DefineClaimBoundaries(c *claims.Claim, t Type) []Boundary {
	if c == nil {
		return nil
	}
	if c.Parent != nil {
		if t == TypeConflictZone {
			return []Boundary{ClaimBoundary(c.Parent, claimType(c.Parent)), ClaimBoundary(c, t)}
		}
		c = c.Parent
	}
	if t == TypeClaim && c.IsAdmin() {
		t = TypeAdminClaim
	}
	out := make([]Boundary, 0, 1+len(c.Children))
	for _, ch := range c.Children {
		out = append(out, ClaimBoundary(ch, TypeSubdivision))
	}
	return append(out, ClaimBoundary(c, t))
}

// NearbyClaimBoundaries outlines each claim as a plain or admin claim.
func NearbyClaimBoundaries(cs []*claims.Claim) []Boundary {
	out := make([]Boundary, 0, len(cs))
	for _, c := range cs {
		if c == nil {
			continue
		}
		out = append(out, ClaimBoundary(c, claimType(c)))
	}
	return out
}

func claimType(c *claims.Claim) Type {
	if c.IsAdmin() {
		return TypeAdminClaim
	}
	return TypeClaim
}

// SameBoundaries compares two boundary sets ignoring order.
func SameBoundaries(a, b []Boundary) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Boundary]int, len(a))
	for _, x := range a {
		counts[x]++
	}
	for _, x := range b {
		if counts[x] == 0 {
			return false
		}
		counts[x]--
	}
	return true
}

// compact drops nil boundaries.
func compact(in []*Boundary) []Boundary {
	out := make([]Boundary, 0, len(in))
	for _, b := range in {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}
