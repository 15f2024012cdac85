// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package config loads and validates Folio configuration.

Sources are layered with Koanf v2, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. YAML file: --config flag, CONFIG_PATH, or ./folio.yaml
 3. Environment variables (see envMappings)

Example folio.yaml:

	remote:
	  url: https://books.example.org/api
	  username: reader
	  password: secret
	tracking:
	  validation_mode: pages
	  min_pages: 5
	extract:
	  stats_db_path: /mnt/onboard/.adds/koreader/settings/statistics.sqlite3

Field constraints are struct tags checked by go-playground/validator;
cross-field rules live in config_validate.go.
*/
package config
