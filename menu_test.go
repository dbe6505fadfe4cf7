package main

import (
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "N/A"},
		{time.Time{}, "N/A"},
		{time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC), "2025-07-01 09:30"},
		{int64(5000), "5000"},
		{"WL", "WL"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
