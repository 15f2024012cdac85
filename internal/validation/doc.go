// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package validation wraps go-playground/validator v10 with a thread-safe
// singleton and human-readable messages. It checks bridge request payloads
// (document events, match confirmations) and the loaded configuration.
package validation
