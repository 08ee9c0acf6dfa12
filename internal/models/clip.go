package models

import (
	"time"

	"gorm.io/gorm"
)

// ClipStatus represents the lifecycle state of a clip job.
type ClipStatus string

const (
	// ClipStatusProcessing indicates the clip pipeline is still running.
	ClipStatusProcessing ClipStatus = "processing"
	// ClipStatusReady indicates the artifact is available for download.
	ClipStatusReady ClipStatus = "ready"
	// ClipStatusError indicates the pipeline failed; Error holds the reason.
	ClipStatusError ClipStatus = "error"
)

// CropRatio selects the output aspect of the clip.
type CropRatio string

const (
	// CropOriginal keeps the source aspect ratio untouched.
	CropOriginal CropRatio = "original"
	// CropVertical crops to 9:16 and scales to 1080x1920.
	CropVertical CropRatio = "vertical"
	// CropSquare crops to 1:1 and scales to 1080x1080.
	CropSquare CropRatio = "square"
)

// Valid reports whether the crop ratio is a known value.
func (c CropRatio) Valid() bool {
	switch c {
	case CropOriginal, CropVertical, CropSquare:
		return true
	}
	return false
}

// ClipRequest describes what the user asked for. It is embedded in the job
// record so the pipeline can be re-driven entirely from stored state.
type ClipRequest struct {
	URL       string    `gorm:"not null;size:2048" json:"url"`
	StartTime Timecode  `gorm:"not null;size:16" json:"start_time"`
	EndTime   Timecode  `gorm:"not null;size:16" json:"end_time"`
	Subtitles bool      `json:"subtitles"`
	CropRatio CropRatio `gorm:"size:16;default:'original'" json:"crop_ratio"`
	FormatID  string    `gorm:"size:64" json:"format_id,omitempty"`
	UserID    string    `gorm:"size:64;index" json:"user_id,omitempty"`
}

// Validate checks the request fields the endpoint layer requires.
func (r *ClipRequest) Validate() error {
	if r.URL == "" {
		return ErrURLRequired
	}
	if r.StartTime == "" {
		return ErrStartTimeRequired
	}
	if r.EndTime == "" {
		return ErrEndTimeRequired
	}

	start, err := r.StartTime.Duration()
	if err != nil {
		return err
	}
	end, err := r.EndTime.Duration()
	if err != nil {
		return err
	}
	if end <= start {
		return ErrInvalidTimeRange
	}

	if r.CropRatio == "" {
		r.CropRatio = CropOriginal
	}
	if !r.CropRatio.Valid() {
		return ErrInvalidCropRatio
	}

	return nil
}

// ClipJob is one user-initiated clip request and its processing lifecycle.
type ClipJob struct {
	BaseModel

	ClipRequest `gorm:"embedded"`

	// Status is the current lifecycle state. Terminal states (ready, error)
	// are write-once; the repository enforces this.
	Status ClipStatus `gorm:"not null;default:'processing';size:16;index" json:"status"`

	// ResultPath is the stored artifact location relative to the output store.
	ResultPath string `gorm:"size:512" json:"result_path,omitempty"`

	// PublicURL is the externally reachable download URL, when issued.
	PublicURL string `gorm:"size:2048" json:"public_url,omitempty"`

	// Error holds the failure reason for jobs in the error state.
	Error string `gorm:"size:4096" json:"error,omitempty"`

	// CompletedAt is when the job reached a terminal state.
	CompletedAt *Time `json:"completed_at,omitempty"`
}

// TableName returns the table name for ClipJob.
func (ClipJob) TableName() string {
	return "clip_jobs"
}

// IsTerminal reports whether the job has reached a final state.
func (j *ClipJob) IsTerminal() bool {
	return j.Status == ClipStatusReady || j.Status == ClipStatusError
}

// MarkReady marks the job as successfully completed.
func (j *ClipJob) MarkReady(resultPath, publicURL string) {
	j.Status = ClipStatusReady
	j.ResultPath = resultPath
	j.PublicURL = publicURL
	j.Error = ""
	now := Now()
	j.CompletedAt = &now
}

// MarkError marks the job as failed with a human-readable reason.
func (j *ClipJob) MarkError(msg string) {
	j.Status = ClipStatusError
	j.Error = msg
	now := Now()
	j.CompletedAt = &now
}

// ClipLength returns the requested clip length.
func (j *ClipJob) ClipLength() (time.Duration, error) {
	s, err := j.StartTime.Duration()
	if err != nil {
		return 0, err
	}
	e, err := j.EndTime.Duration()
	if err != nil {
		return 0, err
	}
	return e - s, nil
}

// BeforeCreate is a GORM hook that validates the job and generates a ULID.
func (j *ClipJob) BeforeCreate(tx *gorm.DB) error {
	if err := j.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if j.Status == "" {
		j.Status = ClipStatusProcessing
	}
	return j.ClipRequest.Validate()
}
