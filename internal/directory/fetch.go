package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	appLog "presenceanalyzer/internal/log"
)

// FetchResult describes the outcome of one directory download.
type FetchResult struct {
	// Path is the local XML file that was written or kept.
	Path string
	// Size is the byte size of the XML now at Path.
	Size int
	// Users is the number of entries in the downloaded directory.
	Users int
	// NotModified is true when the server answered 304 and Path was kept.
	NotModified bool
}

// fetchMeta holds HTTP cache validators for the last successful download.
type fetchMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads the XML user directory with conditional requests
// (ETag / Last-Modified) and replaces the local copy atomically.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads url into dest. The body must parse as a directory before
// it replaces dest, so a broken download never clobbers a working file.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (FetchResult, error) {
	if url == "" {
		return FetchResult{}, errors.New("directory: source URL is empty")
	}
	if dest == "" {
		return FetchResult{}, errors.New("directory: destination path is empty")
	}

	metaPath := dest + ".meta.json"
	meta, _ := loadMeta(metaPath)
	if meta.URL != url {
		meta = fetchMeta{}
	}
	if _, err := os.Stat(dest); err != nil {
		// Validators are useless without the body they describe.
		meta = fetchMeta{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("directory fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("directory: download: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, fmt.Errorf("directory: read body: %w", err)
		}
		dir, err := Parse(bytes.NewReader(body))
		if err != nil {
			return FetchResult{}, err
		}
		if err := writeAtomic(dest, body); err != nil {
			return FetchResult{}, fmt.Errorf("directory: write %s: %w", dest, err)
		}

		newMeta := fetchMeta{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveMeta(metaPath, newMeta); err != nil {
			// The XML itself is in place; only the next request loses its validators.
			appLog.Error("directory meta save failed", err, "path", metaPath)
		}

		appLog.Info("directory fetch success",
			"url", redactURL(url),
			"size", humanize.Bytes(uint64(len(body))),
			"users", dir.Len(),
		)
		return FetchResult{Path: dest, Size: len(body), Users: dir.Len()}, nil

	case http.StatusNotModified:
		info, err := os.Stat(dest)
		if err != nil {
			return FetchResult{}, errors.New("directory: received 304 Not Modified but no local copy exists")
		}
		appLog.Info("directory not modified; keeping local copy", "url", redactURL(url), "path", dest)
		return FetchResult{Path: dest, Size: int(info.Size()), NotModified: true}, nil

	default:
		return FetchResult{}, fmt.Errorf("directory: download: unexpected status %s", resp.Status)
	}
}

func loadMeta(path string) (fetchMeta, error) {
	var meta fetchMeta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fetchMeta{}, err
	}
	return meta, nil
}

func saveMeta(path string, meta fetchMeta) error {
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data to a temp file next to path and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".presence-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// redactURL keeps only scheme and host of u for logging, since directory
// export URLs usually carry an access token.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "...(redacted)"
	}
	j := i + 3
	for j < len(u) && u[j] != '/' && u[j] != '?' {
		j++
	}
	return u[:j] + redactedSuffix
}
