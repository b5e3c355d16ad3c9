package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// setConfigFile sets the global configFile variable and registers a cleanup to restore it.
func setConfigFile(t *testing.T, cfgPath string) {
	t.Helper()
	oldConfigFile := configFile
	configFile = cfgPath
	t.Cleanup(func() { configFile = oldConfigFile })
}

// setupBrokenConfigFile creates a config file with invalid YAML that causes Load() to fail.
func setupBrokenConfigFile(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("{{invalid yaml content"), 0644))
	return cfgPath
}

// execute runs cmd with stdin and returns what it printed.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var gotrueUser = map[string]any{
	"id":            "user-1",
	"email":         "ada@example.com",
	"user_metadata": map[string]any{"display_name": "Ada"},
}

// newGoTrueServer fakes the identity provider endpoints the CLI calls.
func newGoTrueServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newGoTrueServerWithLogout(t, http.StatusNoContent)
}

// newGoTrueServerWithLogout is newGoTrueServer answering /logout with logoutStatus.
func newGoTrueServerWithLogout(t *testing.T, logoutStatus int) *httptest.Server {
	t.Helper()
	writeJSON := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid_grant", "error_description": "Invalid login credentials",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access-1", "refresh_token": "refresh-1", "expires_in": 3600, "user": gotrueUser,
		})
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, gotrueUser)
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		if logoutStatus >= http.StatusBadRequest {
			writeJSON(w, logoutStatus, map[string]string{"msg": "logout unavailable"})
			return
		}
		w.WriteHeader(logoutStatus)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}
