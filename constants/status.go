package constants

// JobStatus is the canonical status for rows in digitization_jobs.
type JobStatus string

// Stable values (store these exact strings in DB). Transitions are monotonic:
// QUEUED -> PROCESSING -> COMPLETED | FAILED, and the last two are terminal.
const (
	JobStatusQueued     JobStatus = "QUEUED"     // upload accepted, waiting for a worker
	JobStatusProcessing JobStatus = "PROCESSING" // pipeline in progress
	JobStatusCompleted  JobStatus = "COMPLETED"  // structured menu persisted
	JobStatusFailed     JobStatus = "FAILED"     // terminal failure, error_message set
)
