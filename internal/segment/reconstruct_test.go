// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package segment

import (
	"testing"
	"time"

	"github.com/tomtom215/folio/internal/models"
)

var base = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func obs(sec int64, duration int64, page, total int) models.Observation {
	return models.Observation{
		Timestamp:       base.Add(time.Duration(sec) * time.Second),
		DurationSeconds: duration,
		Page:            page,
		TotalPages:      total,
	}
}

func TestReconstruct_GapSplitsWindows(t *testing.T) {
	input := []models.Observation{
		obs(0, 60, 10, 200),
		obs(100, 60, 11, 200),
		obs(200, 60, 12, 200),
		obs(700, 45, 13, 200), // 500s after the previous one
	}

	got := Reconstruct(input, 300*time.Second)
	if len(got) != 1 {
		t.Fatalf("sessions = %d, want 1 (single-point window dropped): %+v", len(got), got)
	}

	s := got[0]
	if !s.StartTime.Equal(base) || !s.EndTime.Equal(base.Add(200*time.Second)) {
		t.Errorf("window = [%v, %v], want [0s, 200s]", s.StartTime, s.EndTime)
	}
	if s.DurationSeconds != 180 {
		t.Errorf("duration = %d, want 180", s.DurationSeconds)
	}
	if s.StartProgress != 5 || s.EndProgress != 6 {
		t.Errorf("progress = %v -> %v, want 5 -> 6", s.StartProgress, s.EndProgress)
	}
	if s.StartLocation != "10" || s.EndLocation != "12" {
		t.Errorf("location = %s -> %s, want 10 -> 12", s.StartLocation, s.EndLocation)
	}
}

func TestReconstruct_SecondWindowWithProgress(t *testing.T) {
	input := []models.Observation{
		obs(0, 60, 10, 200),
		obs(100, 60, 11, 200),
		obs(200, 60, 12, 200),
		obs(700, 45, 13, 200),
		obs(760, 50, 14, 200),
	}

	got := Reconstruct(input, 300*time.Second)
	if len(got) != 2 {
		t.Fatalf("sessions = %d, want 2", len(got))
	}
	second := got[1]
	if !second.StartTime.Equal(base.Add(700*time.Second)) || !second.EndTime.Equal(base.Add(760*time.Second)) {
		t.Errorf("second window = [%v, %v]", second.StartTime, second.EndTime)
	}
	if second.DurationSeconds != 95 {
		t.Errorf("second duration = %d, want 95", second.DurationSeconds)
	}
}

func TestReconstruct_Edges(t *testing.T) {
	tests := []struct {
		name  string
		input []models.Observation
		want  int
	}{
		{"empty", nil, 0},
		{"single observation", []models.Observation{obs(0, 30, 5, 100)}, 0},
		{"no total pages", []models.Observation{obs(0, 30, 5, 0), obs(60, 30, 6, 0)}, 0},
		{"backwards", []models.Observation{obs(0, 30, 9, 100), obs(60, 30, 8, 100)}, 0},
		{"gap boundary inclusive", []models.Observation{obs(0, 30, 1, 100), obs(300, 30, 2, 100)}, 1},
		{"unsorted input", []models.Observation{obs(120, 30, 3, 100), obs(0, 30, 1, 100), obs(60, 30, 2, 100)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reconstruct(tt.input, DefaultGap); len(got) != tt.want {
				t.Errorf("sessions = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReconstruct_DoesNotMutateInput(t *testing.T) {
	input := []models.Observation{obs(60, 30, 2, 100), obs(0, 30, 1, 100)}
	Reconstruct(input, DefaultGap)
	if input[0].Page != 2 {
		t.Error("input slice was reordered")
	}
}
