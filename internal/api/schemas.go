package api

import (
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	Running     bool                  `json:"running"`
	LastError   string                `json:"last_error,omitempty"`
	Queue       map[string]int        `json:"queue"`
	Stages      []StageHealthResponse `json:"stages"`
	ActiveItem  *ItemResponse         `json:"active_item,omitempty"`
	ScheduledAt []ScheduleResponse    `json:"schedules,omitempty"`
}

type StageHealthResponse struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

type ScheduleResponse struct {
	Name string `json:"name"`
	Cron string `json:"cron"`
	Next string `json:"next_run,omitempty"`
}

type ItemResponse struct {
	ID               int64   `json:"id"`
	RunID            string  `json:"run_id"`
	Schedule         string  `json:"schedule,omitempty"`
	Status           string  `json:"status"`
	SourceDir        string  `json:"source_dir,omitempty"`
	MaxClips         int     `json:"max_clips,omitempty"`
	ClipCount        int     `json:"clip_count,omitempty"`
	OutputPath       string  `json:"output_path,omitempty"`
	FinalPath        string  `json:"final_path,omitempty"`
	PublishedTargets string  `json:"published_targets,omitempty"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	ProgressStage    string  `json:"progress_stage,omitempty"`
	ProgressPercent  float64 `json:"progress_percent"`
	ProgressMessage  string  `json:"progress_message,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type ItemsResponse struct {
	Items []ItemResponse `json:"items"`
}

type EnqueueRequest struct {
	SourceDir  string `json:"source_dir,omitempty"`
	MaxClips   int    `json:"max_clips,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
}

type RetryResponse struct {
	Retried int64 `json:"retried"`
}

type LogsResponse struct {
	Entries []logging.RingEntry `json:"entries"`
}

// ItemToResponse flattens a queue item for transport.
func ItemToResponse(item *queue.Item) ItemResponse {
	return ItemResponse{
		ID:               item.ID,
		RunID:            item.RunID,
		Schedule:         item.Schedule,
		Status:           string(item.Status),
		SourceDir:        item.SourceDir,
		MaxClips:         item.MaxClips,
		ClipCount:        item.ClipCount,
		OutputPath:       item.OutputPath,
		FinalPath:        item.FinalPath,
		PublishedTargets: item.PublishedTargets,
		ErrorMessage:     item.ErrorMessage,
		ProgressStage:    item.ProgressStage,
		ProgressPercent:  item.ProgressPercent,
		ProgressMessage:  item.ProgressMessage,
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
