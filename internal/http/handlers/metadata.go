package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/clippa-dev/clippa/internal/models"
	"github.com/clippa-dev/clippa/internal/service"
)

// MetadataHandler handles video page metadata endpoints.
type MetadataHandler struct {
	metadataService *service.MetadataService
}

// NewMetadataHandler creates a new metadata handler.
func NewMetadataHandler(metadataService *service.MetadataService) *MetadataHandler {
	return &MetadataHandler{metadataService: metadataService}
}

// Register registers the metadata routes with the API.
func (h *MetadataHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getMetadata",
		Method:      "GET",
		Path:        "/api/metadata",
		Summary:     "Get video metadata",
		Description: "Scrapes the Open Graph title, description, and thumbnail of a video page",
		Tags:        []string{"Metadata"},
	}, h.Get)
}

// GetMetadataInput is the input for the metadata endpoint.
type GetMetadataInput struct {
	URL string `query:"url" required:"true" doc:"Video page URL"`
}

// GetMetadataOutput is the output for the metadata endpoint.
type GetMetadataOutput struct {
	Body service.VideoMetadata
}

// Get scrapes and returns page metadata.
func (h *MetadataHandler) Get(ctx context.Context, input *GetMetadataInput) (*GetMetadataOutput, error) {
	meta, err := h.metadataService.Fetch(ctx, input.URL)
	if err != nil {
		if errors.Is(err, models.ErrURLRequired) || strings.Contains(err.Error(), "invalid URL") {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error502BadGateway("failed to fetch page metadata", err)
	}

	return &GetMetadataOutput{Body: *meta}, nil
}
