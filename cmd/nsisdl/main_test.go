package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func newFileServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/file.bin":
			w.Write(payload)
		case "/broken":
			http.Error(w, "broken", http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, ExitInvalidArgs},
		{"unknown command", []string{"upload"}, ExitInvalidArgs},
		{"help", []string{"help"}, ExitSuccess},
		{"download help", []string{"download", "-h"}, ExitSuccess},
		{"download without url", []string{"download"}, ExitInvalidArgs},
		{"download without path", []string{"download", "http://127.0.0.1/file.bin"}, ExitInvalidArgs},
		{"too many arguments", []string{"download", "http://127.0.0.1/a", "a", "b"}, ExitInvalidArgs},
		{"unknown flag", []string{"download", "-bogus"}, ExitInvalidArgs},
		{"bad chunk size", []string{"download", "-chunk-size", "lots", "http://127.0.0.1/a", "a"}, ExitInvalidArgs},
		{"bad log level", []string{"download", "-log-level", "loud", "http://127.0.0.1/a", "a"}, ExitInvalidArgs},
		{"missing config", []string{"download", "-config", "/nonexistent/nsisdl.yaml", "http://127.0.0.1/a", "a"}, ExitInvalidArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureStdout(t)
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
			if out.Len() != 0 {
				t.Errorf("no status expected on stdout, got %q", out.String())
			}
		})
	}
}

func TestRunDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("nsisdl"), 10000)
	srv := newFileServer(t, payload)
	dest := filepath.Join(t.TempDir(), "nested", "file.bin")

	out := captureStdout(t)
	code := run([]string{"download", "-chunk-size", "4KiB", "-progress", srv.URL + "/file.bin", dest})
	if code != ExitSuccess {
		t.Fatalf("expected exit %d, got %d", ExitSuccess, code)
	}
	if strings.TrimSpace(out.String()) != "0" {
		t.Errorf("expected status 0 on stdout, got %q", out.String())
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("data mismatch: got %d bytes, want %d", len(data), len(payload))
	}
}

func TestRunDownloadFlagsOverPositional(t *testing.T) {
	srv := newFileServer(t, []byte("flags"))
	dest := filepath.Join(t.TempDir(), "file.bin")

	out := captureStdout(t)
	code := run([]string{"download", "-url", srv.URL + "/file.bin", "-output", dest})
	if code != ExitSuccess {
		t.Fatalf("expected exit %d, got %d", ExitSuccess, code)
	}
	if strings.TrimSpace(out.String()) != "0" {
		t.Errorf("expected status 0 on stdout, got %q", out.String())
	}
}

func TestRunDownloadStatusCodes(t *testing.T) {
	srv := newFileServer(t, nil)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"not found", srv.URL + "/missing.bin", "404"},
		{"unavailable", srv.URL + "/broken", "503"},
		{"malformed url", "http://[::1", "499"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "file.bin")
			out := captureStdout(t)

			if code := run([]string{"download", tt.url, dest}); code != ExitFailure {
				t.Errorf("expected exit %d, got %d", ExitFailure, code)
			}
			if got := strings.TrimSpace(out.String()); got != tt.want {
				t.Errorf("expected status %s, got %q", tt.want, got)
			}
			if _, err := os.Stat(dest); !os.IsNotExist(err) {
				t.Errorf("destination must not be created, stat err = %v", err)
			}
		})
	}
}

func TestRunDownloadConfigFile(t *testing.T) {
	srv := newFileServer(t, []byte("from config"))
	dir := t.TempDir()
	dest := filepath.Join(dir, "file.bin")

	configPath := filepath.Join(dir, "nsisdl.yaml")
	yaml := "url: " + srv.URL + "/file.bin\noutput: " + dest + "\nchunk_size: 2KiB\nhttp:\n  inactivity_timeout: 5s\n"
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	captureStdout(t)
	if code := run([]string{"download", "-config", configPath}); code != ExitSuccess {
		t.Fatalf("expected exit %d, got %d", ExitSuccess, code)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "from config" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestRunDownloadMemBucket(t *testing.T) {
	srv := newFileServer(t, []byte("into memory"))

	out := captureStdout(t)
	if code := run([]string{"download", srv.URL + "/file.bin", "mem://downloads/file.bin"}); code != ExitSuccess {
		t.Fatalf("expected exit %d, got %d", ExitSuccess, code)
	}
	if strings.TrimSpace(out.String()) != "0" {
		t.Errorf("expected status 0, got %q", out.String())
	}
}
