package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func fixtureXML(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "users.xml"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return data
}

func TestFetch_WritesAndRevalidates(t *testing.T) {
	t.Parallel()
	body := fixtureXML(t)
	var conditional atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data", "users.xml")
	f := NewFetcher(5 * time.Second)

	res, err := f.Fetch(context.Background(), srv.URL+"/users.xml?token=secret", dest)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.NotModified || res.Users != 3 || res.Size != len(body) {
		t.Errorf("first Fetch() = %+v", res)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(body) {
		t.Error("written file differs from served body")
	}

	res, err = f.Fetch(context.Background(), srv.URL+"/users.xml?token=secret", dest)
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if !res.NotModified {
		t.Errorf("second Fetch() = %+v, want NotModified", res)
	}
	if conditional.Load() != 1 {
		t.Errorf("conditional requests = %d, want 1", conditional.Load())
	}
}

func TestFetch_InvalidBodyKeepsExistingFile(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "users.xml")
	original := fixtureXML(t)
	if err := os.WriteFile(dest, original, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error for non-directory body")
	}
	got, _ := os.ReadFile(dest)
	if string(got) != string(original) {
		t.Error("existing directory was overwritten by a broken download")
	}
}

func TestFetch_HTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "users.xml")
	if _, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error for 403")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("no file should be written on HTTP error")
	}
}

func TestFetch_EmptyArguments(t *testing.T) {
	t.Parallel()
	f := NewFetcher(0)
	if _, err := f.Fetch(context.Background(), "", "x.xml"); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := f.Fetch(context.Background(), "http://example.invalid", ""); err == nil {
		t.Error("expected error for empty destination")
	}
}

func TestRedactURL(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"https://intranet.example.com/api/users.xml?key=abc": "https://intranet.example.com/...(redacted)",
		"http://host:8080?token=1":                           "http://host:8080/...(redacted)",
		"not a url":                                          "...(redacted)",
	}
	for in, want := range tests {
		if got := redactURL(in); got != want {
			t.Errorf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
