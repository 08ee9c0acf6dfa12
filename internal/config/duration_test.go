package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"10m", 10 * time.Minute, false},
		{"720h", 720 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"1w2d12h", 7*24*time.Hour + 2*24*time.Hour + 12*time.Hour, false},
		{"1.5d", 36 * time.Hour, false},
		{" 24h ", 24 * time.Hour, false},
		{"3600000000000", time.Hour, false},
		{"", 0, true},
		{"d", 0, true},
		{"abc", 0, true},
		{"10x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Std())
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2d")))
	assert.Equal(t, 48*time.Hour, d.Std())

	assert.Error(t, d.UnmarshalText([]byte("nope")))
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1w"`)))
	assert.Equal(t, 7*24*time.Hour, d.Std())

	require.NoError(t, d.UnmarshalJSON([]byte("60000000000")))
	assert.Equal(t, time.Minute, d.Std())
}
