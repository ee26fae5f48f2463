package cog

import (
	"testing"
	"time"
)

func TestParseTimestampTag(t *testing.T) {
	cases := []struct {
		value string
		want  time.Time
		ok    bool
	}{
		{"2023:11:04 12:30:15", time.Date(2023, 11, 4, 12, 30, 15, 0, time.UTC), true},
		{"2023-11-04T12:30:15Z", time.Date(2023, 11, 4, 12, 30, 15, 0, time.UTC), true},
		{"2023-11-04T12:30:15", time.Date(2023, 11, 4, 12, 30, 15, 0, time.UTC), true},
		{"2023-11-04 12:30:15", time.Date(2023, 11, 4, 12, 30, 15, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := parseTimestampTag(tc.value)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v, got %v", tc.value, tc.ok, ok)
		}
		if ok && !got.Equal(tc.want) {
			t.Fatalf("%q: expected %s, got %s", tc.value, tc.want, got)
		}
	}
}
