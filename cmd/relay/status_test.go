package main

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		expected string
	}{
		{"seconds", 45 * time.Second, "45s"},
		{"minutes", 3 * time.Minute, "3m"},
		{"hours", 2 * time.Hour, "2h"},
		{"hours and minutes", 2*time.Hour + 30*time.Minute, "2h30m"},
		{"days", 50 * time.Hour, "2d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.expected)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 50); got != "short" {
		t.Errorf("truncateText left short string as %q", got)
	}
	long := "this is a rather long task description that keeps going"
	got := truncateText(long, 20)
	if len(got) != 20 {
		t.Errorf("truncateText length = %d, want 20", len(got))
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("truncateText did not add ellipsis: %q", got)
	}
}
