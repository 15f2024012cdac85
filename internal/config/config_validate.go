// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"fmt"

	"github.com/tomtom215/folio/internal/validation"
)

// Validate checks field constraints (struct tags) and cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	return c.validateTracking()
}

// RemoteConfigured reports whether enough is set to talk to the server.
func (c *Config) RemoteConfigured() bool {
	return c.Remote.URL != "" && c.Remote.Username != ""
}

func (c *Config) validateRemote() error {
	if c.Remote.URL == "" {
		return nil // remote is optional: sessions queue until it is configured
	}
	if err := validateHTTPURL(c.Remote.URL, "FOLIO_REMOTE_URL"); err != nil {
		return err
	}
	if c.Remote.Username == "" {
		return fmt.Errorf("FOLIO_REMOTE_USERNAME is required when FOLIO_REMOTE_URL is set")
	}
	if c.Remote.TokenRefreshMargin >= c.Remote.TokenTTL {
		return fmt.Errorf("remote.token_refresh_margin (%v) must be shorter than remote.token_ttl (%v)",
			c.Remote.TokenRefreshMargin, c.Remote.TokenTTL)
	}
	return nil
}

func (c *Config) validateTracking() error {
	if c.Tracking.ValidationMode == ValidationModeDuration && c.Tracking.MinDuration <= 0 {
		return fmt.Errorf("tracking.min_duration must be positive in duration mode")
	}
	return nil
}
