package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Timestamp
	}{
		{"full width", "08:03:01:09:45:14", 80301094514},
		{"leading zero fields", "00:00:00:00:00:05", 5},
		{"all zeros", "00:00:00:00:00:00", 0},
		{"no separators", "080301094514", 80301094514},
		{"surrounding spaces", " 01:02:03:04:05:06 ", 10203040506},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		for _, raw := range []string{"", ":::", "08:ab:01", "-1"} {
			_, err := ParseTimestamp(raw)
			assert.ErrorIs(t, err, ErrInvalidTimestamp, raw)
		}
	})
}

func TestTimestamp_StringAndFormat(t *testing.T) {
	ts := MustParseTimestamp("00:03:01:09:45:14")
	assert.Equal(t, "301094514", ts.String())
	assert.Equal(t, "00:03:01:09:45:14", ts.Format())
	assert.Equal(t, "0", Timestamp(0).String())
	assert.Equal(t, "00:00:00:00:00:00", Timestamp(0).Format())
}

func TestTimestamp_Ordering(t *testing.T) {
	early := MustParseTimestamp("08:03:01:09:45:14")
	late := MustParseTimestamp("08:03:02:00:00:00")
	assert.Less(t, early, late)
	assert.Equal(t, uint64(late-early), late.Since(early))
	assert.Zero(t, early.Since(late))
}

func TestTimestamp_DayBounds(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		start, end string
	}{
		{"mid day", "08:03:01:09:45:14", "08:03:01:00:00:00", "08:03:02:00:00:00"},
		{"day carries into month", "08:03:99:23:59:59", "08:03:99:00:00:00", "08:04:00:00:00:00"},
		{"month carries into year", "08:99:99:01:00:00", "08:99:99:00:00:00", "09:00:00:00:00:00"},
		{"year wraps", "99:99:99:12:00:00", "99:99:99:00:00:00", "00:00:00:00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MustParseTimestamp(tt.raw).DayBounds()
			assert.Equal(t, MustParseTimestamp(tt.start), start)
			assert.Equal(t, MustParseTimestamp(tt.end), end)
		})
	}
}

func TestFeeMode_Text(t *testing.T) {
	b, err := FeeSplit.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "s", string(b))

	var m FeeMode
	require.NoError(t, m.UnmarshalText([]byte("o")))
	assert.Equal(t, FeeSenderPays, m)
	assert.Error(t, m.UnmarshalText([]byte("x")))
}
