package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/spf13/afero"

	appLog "gigsite/internal/log"
)

const (
	defaultCacheDir = "./cache/feed"
	fetchTimeout    = 15 * time.Second

	copyFile       = "body.json"
	validatorsFile = "meta.json"
)

// FetchResult is the feed body plus where it came from.
type FetchResult struct {
	Body []byte
	// FromCache is set for 304 responses and for fallbacks after a failure.
	FromCache bool
}

// validators are the HTTP cache validators of the last good response.
type validators struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// lastGood is the locally kept copy of one feed URL.
type lastGood struct {
	dir  string
	val  validators
	body []byte
}

func (g lastGood) usable() bool { return len(g.body) > 0 }

// Fetcher downloads a remote feed with conditional requests and keeps the
// last good body on disk so an unreachable origin still yields events.
type Fetcher struct {
	client *http.Client
	store  afero.Fs
}

// NewFetcher creates a Fetcher caching under cacheDir (one directory per
// URL). A nil client gets a 15s timeout.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = defaultCacheDir
	}
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{
		client: client,
		store:  afero.NewBasePathFs(afero.NewOsFs(), cacheDir),
	}
}

// Fetch gets rawURL. A 304 answers from the local copy; network errors and
// other statuses fall back to it when present.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (FetchResult, error) {
	if rawURL == "" {
		return FetchResult{}, errors.New("feed: URL is empty")
	}
	safe := redactURL(rawURL)
	prev := f.recall(rawURL)

	resp, err := f.conditionalGet(ctx, rawURL, prev.val)
	if err != nil {
		return f.fallback(prev, safe, fmt.Errorf("feed: get %s: %w", safe, err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if !prev.usable() {
			return FetchResult{}, fmt.Errorf("feed: %s answered 304 but nothing is cached", safe)
		}
		appLog.Debug("feed unchanged", "url", safe)
		return FetchResult{Body: prev.body, FromCache: true}, nil

	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return f.fallback(prev, safe, fmt.Errorf("feed: read %s: %w", safe, err))
		}
		next := validators{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.remember(prev.dir, next, body); err != nil {
			appLog.Error("feed cache write failed", err, "url", safe)
		}
		appLog.Debug("feed downloaded", "url", safe, "bytes", len(body))
		return FetchResult{Body: body}, nil

	default:
		return f.fallback(prev, safe, fmt.Errorf("feed: get %s: %s", safe, resp.Status))
	}
}

func (f *Fetcher) conditionalGet(ctx context.Context, rawURL string, v validators) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if v.ETag != "" {
		req.Header.Set("If-None-Match", v.ETag)
	}
	if v.LastModified != "" {
		req.Header.Set("If-Modified-Since", v.LastModified)
	}
	return f.client.Do(req)
}

func (f *Fetcher) fallback(prev lastGood, safe string, cause error) (FetchResult, error) {
	if !prev.usable() {
		return FetchResult{}, cause
	}
	appLog.Warn("feed unavailable, serving cached copy", "url", safe, "cause", cause.Error())
	return FetchResult{Body: prev.body, FromCache: true}, nil
}

// recall reads whatever is cached for rawURL. Missing or corrupt files just
// mean there is nothing to revalidate against.
func (f *Fetcher) recall(rawURL string) lastGood {
	sum := sha256.Sum256([]byte(rawURL))
	g := lastGood{dir: hex.EncodeToString(sum[:8])}

	if data, err := afero.ReadFile(f.store, path.Join(g.dir, validatorsFile)); err == nil {
		if json.Unmarshal(data, &g.val) != nil {
			g.val = validators{}
		}
	}
	if body, err := afero.ReadFile(f.store, path.Join(g.dir, copyFile)); err == nil {
		g.body = body
	}
	return g
}

// remember stores body before its validators so the validators never
// describe a body that is not on disk.
func (f *Fetcher) remember(dir string, v validators, body []byte) error {
	if err := f.store.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := afero.WriteFile(f.store, path.Join(dir, copyFile), body, 0o600); err != nil {
		return err
	}
	v.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(f.store, path.Join(dir, validatorsFile), data, 0o600)
}

// redactURL keeps scheme and host only, so tokens in paths or queries never
// reach the logs.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "feed://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
