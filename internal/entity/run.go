package entity

import "time"

const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type LandmarkRun struct {
	ID              string    `json:"id"`
	RequestID       string    `json:"request_id"`
	Status          string    `json:"status"`
	ConfThres       float64   `json:"conf_thres"`
	ImageBytes      int64     `json:"image_bytes"`
	AnnotationCount int       `json:"annotation_count"`
	BoxCount        int       `json:"box_count"`
	DurationMS      int64     `json:"duration_ms"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	ArchiveURL      string    `json:"archive_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
