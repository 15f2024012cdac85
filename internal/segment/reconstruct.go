// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package segment

import (
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/folio/internal/models"
)

// DefaultGap closes a window when observations are further apart.
const DefaultGap = 300 * time.Second

type window struct {
	start, last   time.Time
	duration      int64
	startProgress float64
	endProgress   float64
	startPage     int
	endPage       int
}

func openWindow(o *models.Observation) *window {
	p := models.PageProgress(o.Page, o.TotalPages)
	return &window{
		start:         o.Timestamp,
		last:          o.Timestamp,
		duration:      o.DurationSeconds,
		startProgress: p,
		endProgress:   p,
		startPage:     o.Page,
		endPage:       o.Page,
	}
}

func (w *window) extend(o *models.Observation) {
	w.last = o.Timestamp
	w.duration += o.DurationSeconds
	w.endPage = o.Page
	w.endProgress = models.PageProgress(o.Page, o.TotalPages)
}

// session returns the window as a session, or false if it made no progress.
func (w *window) session() (models.ReconstructedSession, bool) {
	if w.endProgress-w.startProgress <= 0 {
		return models.ReconstructedSession{}, false
	}
	return models.ReconstructedSession{
		StartTime:       w.start,
		EndTime:         w.last,
		DurationSeconds: w.duration,
		StartProgress:   w.startProgress,
		EndProgress:     w.endProgress,
		StartLocation:   strconv.Itoa(w.startPage),
		EndLocation:     strconv.Itoa(w.endPage),
	}, true
}

// Reconstruct groups one book's observations into sessions. Observations
// closer than gap extend the open window; a larger gap closes it. Windows
// whose end progress does not exceed their start progress are dropped.
func Reconstruct(obs []models.Observation, gap time.Duration) []models.ReconstructedSession {
	if len(obs) == 0 {
		return nil
	}
	if gap <= 0 {
		gap = DefaultGap
	}

	sorted := make([]models.Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var out []models.ReconstructedSession
	w := openWindow(&sorted[0])
	for i := 1; i < len(sorted); i++ {
		o := &sorted[i]
		if o.Timestamp.Sub(w.last) <= gap {
			w.extend(o)
			continue
		}
		if s, ok := w.session(); ok {
			out = append(out, s)
		}
		w = openWindow(o)
	}
	if s, ok := w.session(); ok {
		out = append(out, s)
	}
	return out
}
