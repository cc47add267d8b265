package viz

type AuditAction string

const (
	AuditApply    AuditAction = "APPLY"
	AuditSuppress AuditAction = "SUPPRESS"
	AuditRevert   AuditAction = "REVERT"
	AuditExpire   AuditAction = "EXPIRE"
	AuditFallback AuditAction = "FALLBACK"
	AuditFail     AuditAction = "FAIL"
)

type AuditEntry struct {
	Tick       uint64      `json:"tick"`
	Viewer     string      `json:"viewer"`
	World      string      `json:"world,omitempty"`
	Action     AuditAction `json:"action"`
	Provider   string      `json:"provider,omitempty"`
	Boundaries int         `json:"boundaries,omitempty"`
	Anchor     [3]int      `json:"anchor"`
	Error      string      `json:"error,omitempty"`
}

type AuditSink interface {
	WriteAudit(AuditEntry) error
}
