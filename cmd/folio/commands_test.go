// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/engine"
	"github.com/tomtom215/folio/internal/identity"
)

// run executes the root command with args against a temp database.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("FOLIO_DB_PATH", filepath.Join(t.TempDir(), "folio.db"))
	t.Setenv("FOLIO_REMOTE_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	queueClearYes = false
	configPath = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestFingerprintCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	if err := os.WriteFile(path, bytes.Repeat([]byte("folio"), 4096), 0o600); err != nil {
		t.Fatal(err)
	}
	want, err := identity.Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "fingerprint", path)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if strings.TrimSpace(out) != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestFingerprintCommand_RequiresFile(t *testing.T) {
	if _, err := run(t, "fingerprint"); err == nil {
		t.Error("expected an argument error")
	}
}

func TestStatusCommand(t *testing.T) {
	out, err := run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st engine.Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if st.State != "idle" || st.Remote || st.Pending != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestQueueClearCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    string
	}{
		{"refuses without confirmation", []string{"queue", "clear"}, true, ""},
		{"clears with --yes", []string{"queue", "clear", "--yes"}, false, "removed 0 pending sessions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestSyncCommand_WithoutRemote(t *testing.T) {
	if _, err := run(t, "sync"); err == nil {
		t.Error("sync without a remote should fail")
	}
}
