package model

import (
	"time"

	"github.com/google/uuid"
)

// ImportType selects which entity importers run for a file.
type ImportType string

const (
	TypeCustomer ImportType = "customer"
	TypeContact  ImportType = "contact"
	TypeEnergy   ImportType = "energy"
	TypeFull     ImportType = "full" // one row feeds customer, contact and energy importers
)

// EntityKind names the target entity of a match/creation decision.
type EntityKind string

const (
	KindCustomer EntityKind = "customer"
	KindContact  EntityKind = "contact"
	KindEnergy   EntityKind = "energy"
)

// Status is the import lifecycle state machine.
type Status string

const (
	StatusPending              Status = "pending"
	StatusAnalyzing            Status = "analyzing"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusProcessing           Status = "processing"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
	StatusCancelled            Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:              {StatusAnalyzing, StatusFailed, StatusCancelled},
	StatusAnalyzing:            {StatusAwaitingConfirmation, StatusFailed, StatusCancelled},
	StatusAwaitingConfirmation: {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing:           {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Import is the aggregate root for one upload-to-completion lifecycle.
//
// TotalRows is the completion denominator computed by analysis: data rows
// that are not entirely blank. FileRows is the raw data row count from the
// decoder and bounds the batch ranges; blank rows sit inside batches but are
// skipped without touching any counter.
type Import struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	OriginalFilename string     `json:"original_filename" db:"original_filename"`
	StoredPath       string     `json:"stored_path" db:"stored_path"`
	Type             ImportType `json:"type" db:"type"`
	Status           Status     `json:"status" db:"status"`

	FileRows      *int `json:"file_rows,omitempty" db:"file_rows"`
	TotalRows     *int `json:"total_rows,omitempty" db:"total_rows"`
	ProcessedRows int  `json:"processed_rows" db:"processed_rows"`
	SuccessRows   int  `json:"success_rows" db:"success_rows"`
	ErrorRows     int  `json:"error_rows" db:"error_rows"`

	Analysis []byte `json:"analysis,omitempty" db:"analysis"` // JSONB AnalysisImpact summary

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// CanBeAccessedBy implements the owner-or-admin capability check.
func (i *Import) CanBeAccessedBy(userID uuid.UUID, isAdmin bool) bool {
	return isAdmin || i.UserID == userID
}

// ValidTypes lists the accepted import types, for request validation.
func ValidTypes() []interface{} {
	return []interface{}{
		string(TypeCustomer),
		string(TypeContact),
		string(TypeEnergy),
		string(TypeFull),
	}
}

// RowError is one recorded per-row failure, owned by an Import.
type RowError struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ImportID  uuid.UUID  `json:"import_id" db:"import_id"`
	RowIndex  int        `json:"row_index" db:"row_index"` // 1-based data row
	Kind      EntityKind `json:"kind" db:"kind"`
	Message   string     `json:"message" db:"message"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// AnalysisImpact is the computed preview of applying an import. It is never
// merged into a previous result; every analysis run replaces it wholesale.
type AnalysisImpact struct {
	Creations map[EntityKind]int `json:"creations"`
	Updates   map[EntityKind]int `json:"updates"`
	ErrorRows int                `json:"error_rows"`
	TotalRows int                `json:"total_rows"`
	FileRows  int                `json:"file_rows"`
}

// NewAnalysisImpact returns an empty impact with initialized maps.
func NewAnalysisImpact() *AnalysisImpact {
	return &AnalysisImpact{
		Creations: make(map[EntityKind]int),
		Updates:   make(map[EntityKind]int),
	}
}

func (a *AnalysisImpact) AddCreation(kind EntityKind) { a.Creations[kind]++ }
func (a *AnalysisImpact) AddUpdate(kind EntityKind)   { a.Updates[kind]++ }

// TotalCreations sums creation counts across entity kinds.
func (a *AnalysisImpact) TotalCreations() int {
	total := 0
	for _, n := range a.Creations {
		total += n
	}
	return total
}

// MatchResult is the outcome of running the record matcher on one row.
type MatchResult struct {
	ExistingID *uuid.UUID
	IsNew      bool
}

// Task payloads dispatched through the queue.

// AnalyzeImportPayload triggers the read-only analysis phase.
type AnalyzeImportPayload struct {
	ImportID string `json:"import_id"`
}

// ProcessBatchPayload processes data rows [StartRow, EndRow], 1-based
// inclusive, header row excluded.
type ProcessBatchPayload struct {
	ImportID string `json:"import_id"`
	StartRow int    `json:"start_row"`
	EndRow   int    `json:"end_row"`
}
