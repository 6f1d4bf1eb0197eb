package shared

// Asynq task types owned by the import pipeline.
const (
	TypeAnalyzeImport       = "import:analyze"
	TypeProcessImportBatch  = "import:process_batch"
	TypeCleanupStaleImports = "import:cleanup_stale"
)

// Queue names by priority.
const (
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)

// Context keys set by the auth middleware.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// RoleAdmin may view and mutate any import.
const RoleAdmin = "admin"
