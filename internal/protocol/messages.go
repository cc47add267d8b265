package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ViewerID        string            `json:"viewer_id"`
	WorldID         string            `json:"world_id,omitempty"`
	Pos             [3]int            `json:"pos"`
	ViewDistance    int               `json:"view_distance,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	ViewerID        string         `json:"viewer_id"`
	WorldID         string         `json:"world_id"`
	TickRateHz      int            `json:"tick_rate_hz"`
	DefaultProvider string         `json:"default_provider"`
	Providers       []string       `json:"providers"`
	Catalogs        CatalogDigests `json:"catalogs"`
	WorldManifest   []WorldRef     `json:"world_manifest,omitempty"`
}

type WorldRef struct {
	WorldID      string `json:"world_id"`
	MinHeight    int    `json:"min_height"`
	MaxHeight    int    `json:"max_height"`
	ViewDistance int    `json:"view_distance"`
}

type CatalogDigests struct {
	BlockPalette DigestRef `json:"block_palette"`
	BlockDefs    string    `json:"block_defs_digest"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// MOVE (client -> server)
type MoveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	WorldID         string `json:"world_id,omitempty"`
	Pos             [3]int `json:"pos"`
}

// VISUALIZE (client -> server). Exactly one of ClaimID, NearbyRadius or Area
// selects the boundaries.
type VisualizeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Provider        string   `json:"provider,omitempty"`
	Anchor          *[3]int  `json:"anchor,omitempty"`
	Height          *int     `json:"height,omitempty"`
	ClaimID         string   `json:"claim_id,omitempty"`
	VizType         string   `json:"viz_type,omitempty"`
	NearbyRadius    int      `json:"nearby_radius,omitempty"`
	Area            *AreaRef `json:"area,omitempty"`
}

type AreaRef struct {
	Min  [3]int `json:"min"`
	Max  [3]int `json:"max"`
	Type string `json:"type,omitempty"`
}

// REVERT (client -> server)
type RevertMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// ELEMENT_SPAWN (server -> client)
type ElementSpawnMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	EntityID        int32   `json:"entity_id"`
	UID             string  `json:"uid"`
	Kind            string  `json:"kind"`
	From            [3]int  `json:"from"`
	To              [3]int  `json:"to"`
	Material        string  `json:"material,omitempty"`
	Color           uint32  `json:"color,omitempty"`
	Scale           float32 `json:"scale,omitempty"`
	Team            string  `json:"team,omitempty"`
}

// ELEMENT_DESTROY (server -> client)
type ElementDestroyMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	EntityIDs       []int32 `json:"entity_ids"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
