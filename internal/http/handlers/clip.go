package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/pipeline"
	"github.com/clippa-dev/clippa/internal/service"
)

// ClipHandler handles clip job API endpoints.
type ClipHandler struct {
	clipService *service.ClipService
	maxInline   int64
}

// NewClipHandler creates a new clip handler.
func NewClipHandler(clipService *service.ClipService) *ClipHandler {
	return &ClipHandler{clipService: clipService}
}

// WithMaxInlineSize sets the largest artifact served with an inline content
// disposition; larger files are forced to download as attachments.
func (h *ClipHandler) WithMaxInlineSize(bytes int64) *ClipHandler {
	h.maxInline = bytes
	return h
}

// Register registers the clip routes with the API.
func (h *ClipHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "createClip",
		Method:        "POST",
		Path:          "/api/clip",
		Summary:       "Create clip",
		Description:   "Queues a clip job for the given video URL and time range",
		Tags:          []string{"Clips"},
		DefaultStatus: http.StatusAccepted,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "getClip",
		Method:      "GET",
		Path:        "/api/clip/{id}",
		Summary:     "Get clip job",
		Description: "Returns a clip job and its processing status",
		Tags:        []string{"Clips"},
	}, h.GetByID)

	huma.Register(api, huma.Operation{
		OperationID: "cleanupClip",
		Method:      "DELETE",
		Path:        "/api/clip/{id}/cleanup",
		Summary:     "Clean up clip",
		Description: "Removes a clip job and its stored artifact",
		Tags:        []string{"Clips"},
	}, h.Cleanup)
}

// RegisterFileRoute registers the artifact download route directly on the
// router; range requests and conditional headers are handled by
// http.ServeContent, which huma's typed responses don't cover.
func (h *ClipHandler) RegisterFileRoute(router chi.Router) {
	router.Get("/api/clip/{id}/file", h.ServeFile)
}

// CreateClipInput is the input for creating a clip.
type CreateClipInput struct {
	Body struct {
		URL       string           `json:"url" doc:"Source video URL"`
		StartTime string           `json:"start_time" doc:"Clip start (HH:MM:SS or HH:MM:SS.mmm)"`
		EndTime   string           `json:"end_time" doc:"Clip end (HH:MM:SS or HH:MM:SS.mmm)"`
		Subtitles bool             `json:"subtitles,omitempty" doc:"Download and burn subtitles"`
		CropRatio models.CropRatio `json:"crop_ratio,omitempty" doc:"Output aspect" enum:"original,vertical,square"`
		FormatID  string           `json:"format_id,omitempty" doc:"Pin a specific source format"`
		UserID    string           `json:"user_id,omitempty" doc:"Opaque caller identifier"`
	}
}

// CreateClipOutput is the output for creating a clip.
type CreateClipOutput struct {
	Body ClipJobResponse
}

// Create queues a new clip job.
func (h *ClipHandler) Create(ctx context.Context, input *CreateClipInput) (*CreateClipOutput, error) {
	job, err := h.clipService.CreateClip(ctx, models.ClipRequest{
		URL:       input.Body.URL,
		StartTime: models.Timecode(input.Body.StartTime),
		EndTime:   models.Timecode(input.Body.EndTime),
		Subtitles: input.Body.Subtitles,
		CropRatio: input.Body.CropRatio,
		FormatID:  input.Body.FormatID,
		UserID:    input.Body.UserID,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			return nil, huma.Error503ServiceUnavailable("server is busy, try again later")
		}
		if isValidationError(err) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error500InternalServerError("failed to create clip", err)
	}

	return &CreateClipOutput{Body: ClipJobFromModel(job)}, nil
}

// GetClipInput is the input for getting a clip job.
type GetClipInput struct {
	ID string `path:"id" doc:"Clip job ID (ULID)"`
}

// GetClipOutput is the output for getting a clip job.
type GetClipOutput struct {
	Body ClipJobResponse
}

// GetByID returns a clip job by ID.
func (h *ClipHandler) GetByID(ctx context.Context, input *GetClipInput) (*GetClipOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}

	job, err := h.clipService.GetJob(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get clip", err)
	}
	if job == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("clip %s not found", input.ID))
	}

	return &GetClipOutput{Body: ClipJobFromModel(job)}, nil
}

// CleanupClipInput is the input for cleaning up a clip.
type CleanupClipInput struct {
	ID string `path:"id" doc:"Clip job ID (ULID)"`
}

// CleanupClipOutput is the output for cleaning up a clip.
type CleanupClipOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Cleanup removes a clip job and its artifact. Cleaning up a job that is
// already gone succeeds.
func (h *ClipHandler) Cleanup(ctx context.Context, input *CleanupClipInput) (*CleanupClipOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}

	if err := h.clipService.Cleanup(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to clean up clip", err)
	}

	resp := &CleanupClipOutput{}
	resp.Body.Success = true
	return resp, nil
}

// ServeFile streams the finished clip with range support.
func (h *ClipHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseULID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ID format", http.StatusBadRequest)
		return
	}

	job, err := h.clipService.GetJob(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to get clip", http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.NotFound(w, r)
		return
	}
	if job.Status != models.ClipStatusReady {
		http.Error(w, fmt.Sprintf("clip is %s", job.Status), http.StatusConflict)
		return
	}

	f, info, err := h.clipService.OpenArtifact(job)
	if err != nil {
		http.Error(w, "clip artifact unavailable", http.StatusNotFound)
		return
	}
	defer f.Close()

	disposition := "attachment"
	if h.maxInline > 0 && info.Size() <= h.maxInline {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, "clip-"+job.ID.String()+".mp4"))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// isValidationError reports whether the error maps to a 400 response.
func isValidationError(err error) bool {
	for _, target := range []error{
		models.ErrURLRequired,
		models.ErrStartTimeRequired,
		models.ErrEndTimeRequired,
		models.ErrInvalidTimecode,
		models.ErrInvalidTimeRange,
		models.ErrInvalidCropRatio,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
