package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipRequest_Validate(t *testing.T) {
	valid := func() ClipRequest {
		return ClipRequest{
			URL:       "https://youtu.be/abc",
			StartTime: "00:00:10",
			EndTime:   "00:00:20",
		}
	}

	t.Run("valid request defaults crop ratio", func(t *testing.T) {
		req := valid()
		require.NoError(t, req.Validate())
		assert.Equal(t, CropOriginal, req.CropRatio)
	})

	tests := []struct {
		name    string
		mutate  func(*ClipRequest)
		wantErr error
	}{
		{"missing url", func(r *ClipRequest) { r.URL = "" }, ErrURLRequired},
		{"missing start", func(r *ClipRequest) { r.StartTime = "" }, ErrStartTimeRequired},
		{"missing end", func(r *ClipRequest) { r.EndTime = "" }, ErrEndTimeRequired},
		{"malformed start", func(r *ClipRequest) { r.StartTime = "10s" }, ErrInvalidTimecode},
		{"malformed end", func(r *ClipRequest) { r.EndTime = "0:0:20" }, ErrInvalidTimecode},
		{"end before start", func(r *ClipRequest) { r.EndTime = "00:00:05" }, ErrInvalidTimeRange},
		{"end equals start", func(r *ClipRequest) { r.EndTime = "00:00:10" }, ErrInvalidTimeRange},
		{"unknown crop ratio", func(r *ClipRequest) { r.CropRatio = "cinemascope" }, ErrInvalidCropRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			assert.ErrorIs(t, req.Validate(), tt.wantErr)
		})
	}
}

func TestCropRatio_Valid(t *testing.T) {
	assert.True(t, CropOriginal.Valid())
	assert.True(t, CropVertical.Valid())
	assert.True(t, CropSquare.Valid())
	assert.False(t, CropRatio("").Valid())
	assert.False(t, CropRatio("wide").Valid())
}

func TestClipJob_Lifecycle(t *testing.T) {
	job := &ClipJob{
		ClipRequest: ClipRequest{
			URL:       "https://youtu.be/abc",
			StartTime: "00:01:00",
			EndTime:   "00:01:45",
		},
		Status: ClipStatusProcessing,
	}

	assert.False(t, job.IsTerminal())

	length, err := job.ClipLength()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, length)

	job.MarkReady("01ABC.mp4", "http://localhost:8080/api/clip/01ABC/file")
	assert.True(t, job.IsTerminal())
	assert.Equal(t, ClipStatusReady, job.Status)
	assert.Equal(t, "01ABC.mp4", job.ResultPath)
	require.NotNil(t, job.CompletedAt)

	failed := &ClipJob{Status: ClipStatusProcessing}
	failed.MarkError("download failed: video unavailable")
	assert.True(t, failed.IsTerminal())
	assert.Equal(t, ClipStatusError, failed.Status)
	assert.Equal(t, "download failed: video unavailable", failed.Error)
	require.NotNil(t, failed.CompletedAt)
}

func TestULID_JSON(t *testing.T) {
	id := NewULID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var parsed ULID
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, id, parsed)

	var zero ULID
	data, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	require.NoError(t, json.Unmarshal([]byte("null"), &parsed))
	assert.True(t, parsed.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"not-a-ulid"`), &parsed))
}

func TestULID_Scan(t *testing.T) {
	id := NewULID()

	var scanned ULID
	require.NoError(t, scanned.Scan(id.String()))
	assert.Equal(t, id, scanned)

	require.NoError(t, scanned.Scan([]byte(id.String())))
	assert.Equal(t, id, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())

	assert.Error(t, scanned.Scan(42))
}
