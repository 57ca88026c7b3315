package tasks

// Defines constants and payload types for tasks used in Asynq.

const (
	// TypeIngestJob is the task type for loading a historical email file into
	// the vector index.
	TypeIngestJob = "ingest:load_file"
)

// IngestPayload is the JSON payload carried by a TypeIngestJob task.
type IngestPayload struct {
	Path string `json:"path"`
}
