package service

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "08:00", want: "0 0 8 * * *"},
		{in: "23:59", want: "0 59 23 * * *"},
		{in: "0:5", want: "0 5 0 * * *"},
		{in: "24:00", wantErr: true},
		{in: "08:60", wantErr: true},
		{in: "0800", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := buildDailySpec(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("buildDailySpec(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildDailySpec(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("buildDailySpec(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScheduleIntervalRejectsNonPositive(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop().Sugar())
	if _, err := s.ScheduleInterval("job", 0, func() {}); err == nil {
		t.Error("zero interval accepted")
	}
	if _, err := s.ScheduleInterval("job", -time.Minute, func() {}); err == nil {
		t.Error("negative interval accepted")
	}
}

func TestJobPanicContained(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop().Sugar())
	wrapped := s.wrap("job", func() { panic("boom") })
	// Must not propagate.
	wrapped()
}
