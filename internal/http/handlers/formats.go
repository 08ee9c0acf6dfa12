package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/service"
	"github.com/clippa-dev/clippa/internal/ytdlp"
)

// FormatsHandler handles source format probing endpoints.
type FormatsHandler struct {
	clipService *service.ClipService
}

// NewFormatsHandler creates a new formats handler.
func NewFormatsHandler(clipService *service.ClipService) *FormatsHandler {
	return &FormatsHandler{clipService: clipService}
}

// Register registers the formats routes with the API.
func (h *FormatsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listFormats",
		Method:      "GET",
		Path:        "/api/formats",
		Summary:     "List source formats",
		Description: "Probes the source URL and returns the selectable video qualities",
		Tags:        []string{"Formats"},
	}, h.List)
}

// ListFormatsInput is the input for listing formats.
type ListFormatsInput struct {
	URL string `query:"url" required:"true" doc:"Source video URL"`
}

// ListFormatsOutput is the output for listing formats.
type ListFormatsOutput struct {
	Body struct {
		Formats []ytdlp.Format `json:"formats"`
	}
}

// List probes and returns the available source formats.
func (h *FormatsHandler) List(ctx context.Context, input *ListFormatsInput) (*ListFormatsOutput, error) {
	formats, err := h.clipService.ListFormats(ctx, input.URL)
	if err != nil {
		if errors.Is(err, models.ErrURLRequired) {
			return nil, huma.Error400BadRequest("url is required")
		}
		return nil, huma.Error502BadGateway("failed to probe source formats", err)
	}

	resp := &ListFormatsOutput{}
	resp.Body.Formats = formats
	if resp.Body.Formats == nil {
		resp.Body.Formats = []ytdlp.Format{}
	}
	return resp, nil
}
