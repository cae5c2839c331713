package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newBundleServer(t *testing.T) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("nvcparser", "testdata", "bundle.json"))
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/Bundle/NVC" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json+fhir")
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func setupEnv(t *testing.T, apiURL string) string {
	t.Helper()
	outputDir := t.TempDir()
	t.Setenv("ENV", "test")
	t.Setenv("API_URL", apiURL)
	t.Setenv("OUTPUT_DIR", outputDir)
	t.Setenv("LOG_DIR", "")
	return outputDir
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestRunWritesTableAndVersion(t *testing.T) {
	server := newBundleServer(t)
	outputDir := setupEnv(t, server.URL)

	if err := execute(t, "run"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range []string{"vaccine-table/nvc-bundle.json", "vaccine-table/disease.json", "vaccine-table/mah.json"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(outputDir, "nvc-version.json"))
	if err != nil {
		t.Fatalf("Failed to read version marker: %v", err)
	}
	var marker struct {
		VersionID string `json:"versionId"`
	}
	if err := json.Unmarshal(raw, &marker); err != nil {
		t.Fatalf("Invalid version marker: %v", err)
	}
	if marker.VersionID != "42" {
		t.Errorf("Expected versionId 42, got %q", marker.VersionID)
	}
}

func TestRootCommandDefaultsToRun(t *testing.T) {
	server := newBundleServer(t)
	outputDir := setupEnv(t, server.URL)

	if err := execute(t); err != nil {
		t.Fatalf("root command failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "vaccine-table", "nvc-bundle.json")); err != nil {
		t.Errorf("Expected table to be written: %v", err)
	}
}

func TestRunGatedSkipsUnchangedVersion(t *testing.T) {
	server := newBundleServer(t)
	outputDir := setupEnv(t, server.URL)
	t.Setenv("GATE_ON_VERSION", "true")
	table := filepath.Join(outputDir, "vaccine-table", "nvc-bundle.json")

	if err := execute(t, "run"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := os.Remove(table); err != nil {
		t.Fatalf("Failed to remove table: %v", err)
	}

	if err := execute(t, "run"); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if _, err := os.Stat(table); !os.IsNotExist(err) {
		t.Error("Unchanged version should not rewrite the table")
	}

	if err := execute(t, "run", "--force"); err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if _, err := os.Stat(table); err != nil {
		t.Errorf("--force should rewrite the table: %v", err)
	}
}

func TestRunFailsOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	outputDir := setupEnv(t, server.URL)

	if err := execute(t, "run"); err == nil {
		t.Fatal("Expected run to fail on a 502")
	}
	if _, err := os.Stat(filepath.Join(outputDir, "nvc-version.json")); !os.IsNotExist(err) {
		t.Error("A failed run must not write the version marker")
	}
}

func TestRunFailsOnInvalidConfig(t *testing.T) {
	setupEnv(t, "ftp://example.org")

	if err := execute(t, "run"); err == nil {
		t.Fatal("Expected invalid API_URL to fail")
	}
}
