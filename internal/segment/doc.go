// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package segment turns reading activity into sessions.
//
// Tracker handles live sessions: Begin captures the starting position of
// an opened document, End validates the finished session and writes it to
// the pending queue.
//
// Reconstruct rebuilds sessions from the host's per-page statistics by
// grouping observations separated by no more than a gap (5 minutes by
// default) and keeping windows that advanced through the document.
package segment
