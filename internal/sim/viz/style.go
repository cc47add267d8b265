package viz

import "claimviz.ai/internal/sim/element"

const (
	ColorGold   uint32 = 0xFFAA00
	ColorWhite  uint32 = 0xFFFFFF
	ColorAqua   uint32 = 0x55FFFF
	ColorRed    uint32 = 0xFF5555
	ColorYellow uint32 = 0xFFFF55
	ColorOrange uint32 = 0xFFBB55
)

const (
	pointScale      float32 = 0.998
	lineScale       float32 = 0.2
	initializeScale float32 = 0.5
)

// displayStyle is shared by corners and sides of glowing marker entities.
func displayStyle(t Type) element.Style {
	switch t {
	case TypeAdminClaim:
		return element.Style{Material: "ORANGE_STAINED_GLASS", Color: ColorGold, Scale: pointScale}
	case TypeSubdivision:
		return element.Style{Material: "WHITE_STAINED_GLASS", Color: ColorWhite, Scale: pointScale}
	case TypeInitializeZone:
		return element.Style{Material: "LIGHT_BLUE_STAINED_GLASS", Color: ColorAqua, Scale: pointScale}
	case TypeConflictZone:
		return element.Style{Material: "RED_STAINED_GLASS", Color: ColorRed, Scale: pointScale}
	default:
		return element.Style{Material: "YELLOW_STAINED_GLASS", Color: ColorYellow, Scale: pointScale}
	}
}

func bulletStyle(t Type) element.Style {
	switch t {
	case TypeAdminClaim:
		return element.Style{Team: "gold", Color: ColorGold}
	case TypeSubdivision:
		return element.Style{Team: "white", Color: ColorWhite}
	case TypeInitializeZone:
		return element.Style{Team: "aqua", Color: ColorAqua}
	case TypeConflictZone:
		return element.Style{Team: "red", Color: ColorRed}
	default:
		return element.Style{Team: "yellow", Color: ColorYellow}
	}
}

// blockStyle picks the fake block material; corners stand out from sides.
func blockStyle(t Type, corner bool) element.Style {
	pick := func(c, s string) element.Style {
		if corner {
			return element.Style{Material: c}
		}
		return element.Style{Material: s}
	}
	switch t {
	case TypeAdminClaim:
		return pick("GLOWSTONE", "PUMPKIN")
	case TypeSubdivision:
		return pick("IRON_BLOCK", "WHITE_WOOL")
	case TypeInitializeZone:
		return pick("DIAMOND_BLOCK", "DIAMOND_BLOCK")
	case TypeConflictZone:
		return pick("REDSTONE_ORE", "NETHERRACK")
	default:
		return pick("GLOWSTONE", "GOLD_BLOCK")
	}
}

// lineStyle colours plain claims by the viewer's standing in them.
func lineStyle(b Boundary, viewer string) element.Style {
	switch b.Type {
	case TypeAdminClaim:
		return element.Style{Material: "ORANGE_STAINED_GLASS", Color: ColorGold, Scale: lineScale}
	case TypeSubdivision:
		return element.Style{Material: "WHITE_STAINED_GLASS", Color: ColorWhite, Scale: lineScale}
	case TypeInitializeZone:
		return element.Style{Material: "LIGHT_BLUE_STAINED_GLASS", Color: ColorAqua, Scale: initializeScale}
	case TypeConflictZone:
		return element.Style{Material: "RED_STAINED_GLASS", Color: ColorRed, Scale: lineScale}
	}
	if b.Claim != nil {
		if b.Claim.IsBanned(viewer) {
			return element.Style{Material: "RED_STAINED_GLASS", Color: ColorRed, Scale: lineScale}
		}
		if b.Claim.HasAnyExplicitPermission(viewer) {
			return element.Style{Material: "YELLOW_STAINED_GLASS", Color: ColorYellow, Scale: lineScale}
		}
	}
	return element.Style{Material: "ORANGE_STAINED_GLASS", Color: ColorOrange, Scale: lineScale}
}
