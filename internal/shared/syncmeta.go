package shared

import "time"

// SyncMetadata is the bookkeeping block embedded into entities that are
// created or updated by the import pipeline.
type SyncMetadata struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Version   int       `json:"version" db:"version"`
}

// InitSync stamps a freshly created entity.
func (m *SyncMetadata) InitSync(now time.Time) {
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Version = 1
}

// TouchSync records an in-place update.
func (m *SyncMetadata) TouchSync(now time.Time) {
	m.UpdatedAt = now
	m.Version++
}
