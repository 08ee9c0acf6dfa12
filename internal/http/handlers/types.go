// Package handlers provides HTTP API handlers for clippa.
package handlers

import (
	"time"

	"github.com/clippa-dev/clippa/internal/models"
)

// ClipJobResponse is the API representation of a clip job.
type ClipJobResponse struct {
	ID          string            `json:"id" doc:"Job ID (ULID)"`
	Status      models.ClipStatus `json:"status" doc:"Job status" enum:"processing,ready,error"`
	URL         string            `json:"url" doc:"Source video URL"`
	StartTime   string            `json:"start_time" doc:"Clip start (HH:MM:SS or HH:MM:SS.mmm)"`
	EndTime     string            `json:"end_time" doc:"Clip end (HH:MM:SS or HH:MM:SS.mmm)"`
	Subtitles   bool              `json:"subtitles" doc:"Whether subtitles were requested"`
	CropRatio   models.CropRatio  `json:"crop_ratio" doc:"Output aspect" enum:"original,vertical,square"`
	FormatID    string            `json:"format_id,omitempty" doc:"Pinned source format, if any"`
	DownloadURL string            `json:"download_url,omitempty" doc:"Artifact download URL once ready"`
	Error       string            `json:"error,omitempty" doc:"Failure reason for errored jobs"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// ClipJobFromModel converts a model to its API representation.
func ClipJobFromModel(job *models.ClipJob) ClipJobResponse {
	resp := ClipJobResponse{
		ID:          job.ID.String(),
		Status:      job.Status,
		URL:         job.URL,
		StartTime:   job.StartTime.String(),
		EndTime:     job.EndTime.String(),
		Subtitles:   job.Subtitles,
		CropRatio:   job.CropRatio,
		FormatID:    job.FormatID,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == models.ClipStatusReady {
		resp.DownloadURL = job.PublicURL
	}
	return resp
}
