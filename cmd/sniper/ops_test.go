package main

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-03-14", want: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{in: "2026-03-14T09:30:00Z", want: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseTime(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTime(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTime(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
