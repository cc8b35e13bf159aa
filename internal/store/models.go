package store

import "time"

// RunStatus is the outcome recorded for a migration run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"   // Every record copied
	RunPartial     RunStatus = "partial"     // Finished with some record failures
	RunInterrupted RunStatus = "interrupted" // Context cancelled mid-pass
	RunFailed      RunStatus = "failed"      // Could not enumerate the source
)

// Record is one entry of a namespaced object store.
type Record struct {
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MigrationRun tracks one invocation of a named migration.
type MigrationRun struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    RunStatus `json:"status"`
	Total     int       `json:"total"`
	Migrated  int       `json:"migrated"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// RunOutcome is what EndRun records.
type RunOutcome struct {
	Status   RunStatus
	Total    int
	Migrated int
	Failed   int
}
