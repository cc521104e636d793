package models

// JobStatus represents the status of a batch export job.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusError    JobStatus = "error"
)

// ExportJob represents a batch export run over one or more designs.
type ExportJob struct {
	ID          string        `json:"id"`
	Status      JobStatus     `json:"status"`
	Progress    float64       `json:"progress"` // 0-100
	Stage       string        `json:"stage,omitempty"`
	DesignCount int           `json:"designCount"`
	Formats     []string      `json:"formats"`
	Outputs     []FileInfo    `json:"outputs,omitempty"`
	Errors      []ExportError `json:"errors,omitempty"`
	StartTime   int64         `json:"startTime,omitempty"` // Unix ms
	EndTime     int64         `json:"endTime,omitempty"`   // Unix ms
}

// ExportError represents a failure to export one design in one format.
type ExportError struct {
	DesignID string `json:"designId"`
	Format   string `json:"format"`
	Reason   string `json:"reason"`
}

// NewExportJob creates a new ExportJob in pending status.
func NewExportJob(id string, designCount int, formats []string) *ExportJob {
	return &ExportJob{
		ID:          id,
		Status:      JobStatusPending,
		Progress:    0,
		DesignCount: designCount,
		Formats:     formats,
		Outputs:     make([]FileInfo, 0),
		Errors:      make([]ExportError, 0),
	}
}
