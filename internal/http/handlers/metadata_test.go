package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippa-dev/clippa/internal/httpclient"
	"github.com/clippa-dev/clippa/internal/service"
)

func newMetadataHandler() *MetadataHandler {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.RetryAttempts = 0
	return NewMetadataHandler(service.NewMetadataService(httpclient.New(cfg), nil))
}

func TestMetadataHandler_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head>
<meta property="og:title" content="A Clip Worth Keeping" />
<meta property="og:description" content="Ten seconds of glory" />
<meta property="og:image" content="https://cdn.example.com/thumb.jpg" />
</head><body></body></html>`))
	}))
	defer srv.Close()

	handler := newMetadataHandler()

	out, err := handler.Get(context.Background(), &GetMetadataInput{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "A Clip Worth Keeping", out.Body.Title)
	assert.Equal(t, "Ten seconds of glory", out.Body.Description)
	assert.Equal(t, "https://cdn.example.com/thumb.jpg", out.Body.Thumbnail)
}

func TestMetadataHandler_Get_Errors(t *testing.T) {
	handler := newMetadataHandler()

	t.Run("empty url", func(t *testing.T) {
		_, err := handler.Get(context.Background(), &GetMetadataInput{URL: ""})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, humaStatus(t, err))
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := handler.Get(context.Background(), &GetMetadataInput{URL: "ftp://example.com/video"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, humaStatus(t, err))
	})

	t.Run("upstream failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := handler.Get(context.Background(), &GetMetadataInput{URL: srv.URL})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, humaStatus(t, err))
	})
}
