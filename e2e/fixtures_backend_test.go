//go:build e2e && unix

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// fakeBackendScript stands in for the uvicorn launch: it prints the startup
// lines and stays alive until killed
const fakeBackendScript = `#!/bin/sh
echo "INFO:     Started server process [$$]"
echo "INFO:     Waiting for application startup." >&2
echo "INFO:     Application startup complete." >&2
exec sleep 300
`

// Permit mirrors the API record
type Permit struct {
	Applicant string `json:"applicant"`
	Address   string `json:"address"`
	Status    string `json:"status"`
}

// FakeAPI serves the permit endpoints and records the queries it got
type FakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	permits  []Permit
	failNext int
	queries  []string
}

// FailNext makes the next n requests answer 500
func (a *FakeAPI) FailNext(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext = n
}

// Queries returns every request path with its query string
func (a *FakeAPI) Queries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.queries...)
}

func (a *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.queries = append(a.queries, r.URL.RequestURI())
	fail := a.failNext > 0
	if fail {
		a.failNext--
	}
	permits := a.permits
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"database unavailable"}`))
		return
	}

	applicant := r.URL.Query().Get("applicant")
	status := r.URL.Query().Get("status")
	out := []Permit{}
	for _, p := range permits {
		if applicant != "" && !containsFold(p.Applicant, applicant) {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	_ = json.NewEncoder(w).Encode(out)
}

// CreateTestWorkspace creates a temporary directory to run the app in
func (tf *TUITestFramework) CreateTestWorkspace() (string, error) {
	tmpDir := tf.t.TempDir()
	tf.workspace = tmpDir
	return tmpDir, nil
}

// CreateFakeBackend writes a backend directory whose interpreter is a shell
// script that prints the readiness marker
func (tf *TUITestFramework) CreateFakeBackend() (string, error) {
	if tf.workspace == "" {
		return "", fmt.Errorf("workspace not created")
	}
	dir := filepath.Join(tf.workspace, "backend")
	bin := filepath.Join(dir, ".venv", "bin")
	if err := os.MkdirAll(bin, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(bin, "python"), []byte(fakeBackendScript), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte("app = None\n"), 0644); err != nil {
		return "", err
	}
	tf.backend = dir
	return dir, nil
}

// StartFakeAPI serves permits and points the workspace config at it
func (tf *TUITestFramework) StartFakeAPI(permits ...Permit) (*FakeAPI, error) {
	if tf.workspace == "" {
		return nil, fmt.Errorf("workspace not created")
	}
	api := &FakeAPI{permits: permits}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	tf.t.Cleanup(api.Close)

	config := fmt.Sprintf("[api]\norigin = %q\n\n[log]\nfile = %q\nlevel = \"debug\"\n",
		api.URL, filepath.Join(tf.workspace, "permitdesk.log"))
	path := filepath.Join(tf.workspace, "permitdesk.toml")
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		return nil, err
	}
	tf.config = path
	return api, nil
}

// SamplePermits is the fixture most tests search through
var SamplePermits = []Permit{
	{Applicant: "Joe's Tacos", Address: "1 Market St", Status: "APPROVED"},
	{Applicant: "Curry Up Now", Address: "2 Mission St", Status: "EXPIRED"},
	{Applicant: "Tacos El Primo", Address: "3 Valencia St", Status: "APPROVED"},
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
