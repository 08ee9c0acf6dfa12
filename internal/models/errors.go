package models

import "errors"

// Common validation errors for models.
var (
	// ErrURLRequired indicates a required URL field is empty.
	ErrURLRequired = errors.New("url is required")

	// ErrStartTimeRequired indicates a required start time field is empty.
	ErrStartTimeRequired = errors.New("start time is required")

	// ErrEndTimeRequired indicates a required end time field is empty.
	ErrEndTimeRequired = errors.New("end time is required")

	// ErrInvalidTimecode indicates a time field is not in HH:MM:SS[.mmm] form.
	ErrInvalidTimecode = errors.New("invalid timecode: expected HH:MM:SS or HH:MM:SS.mmm")

	// ErrInvalidTimeRange indicates end time is not after start time.
	ErrInvalidTimeRange = errors.New("end time must be after start time")

	// ErrInvalidCropRatio indicates an unknown crop ratio value.
	ErrInvalidCropRatio = errors.New("invalid crop ratio: must be 'original', 'vertical' or 'square'")

	// ErrTerminalState indicates an attempt to modify a job that already
	// reached a terminal status. Terminal states are write-once.
	ErrTerminalState = errors.New("job already in terminal state")

	// ErrJobGone indicates an attempt to modify a job whose record no
	// longer exists, typically because it was cleaned up mid-flight.
	ErrJobGone = errors.New("job no longer exists")
)
