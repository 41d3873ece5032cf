package feed

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/afero"

	appLog "gigsite/internal/log"
	"gigsite/internal/model"
)

// Loader reads the events feed from an http(s) URL or a file path.
type Loader struct {
	location string
	fetcher  *Fetcher
	fs       afero.Fs
}

// NewLoader builds a Loader. Local paths are resolved against fsys; a nil
// fsys means the OS filesystem.
func NewLoader(location string, fetcher *Fetcher, fsys afero.Fs) *Loader {
	if fetcher == nil {
		fetcher = NewFetcher("", nil)
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{
		location: location,
		fetcher:  fetcher,
		fs:       fsys,
	}
}

// Location returns the configured feed URL or path.
func (l *Loader) Location() string {
	return l.location
}

// Load fetches and decodes the feed. It never fails: any fetch or decode
// problem is logged and yields an empty, non-nil slice.
func (l *Loader) Load(ctx context.Context) []model.Event {
	body, err := l.read(ctx)
	if err != nil {
		appLog.Error("failed to load events", err, "feed", l.display())
		return []model.Event{}
	}

	events, err := Decode(body)
	if err != nil {
		appLog.Error("failed to decode events", err, "feed", l.display())
		return events
	}

	appLog.Info("events loaded", "feed", l.display(), "count", len(events))
	return events
}

func (l *Loader) read(ctx context.Context) ([]byte, error) {
	if isRemote(l.location) {
		res, err := l.fetcher.Fetch(ctx, l.location)
		if err != nil {
			return nil, err
		}
		return res.Body, nil
	}
	return afero.ReadFile(l.fs, l.location)
}

func (l *Loader) display() string {
	if isRemote(l.location) {
		return redactURL(l.location)
	}
	return l.location
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// EventSource is anything that yields the event list for one page view.
type EventSource interface {
	Load(ctx context.Context) []model.Event
}

// Cache is a page-scoped, load-once view over an EventSource. Create one per
// page view (one build run, one HTTP request); it is never invalidated.
type Cache struct {
	src    EventSource
	once   sync.Once
	events []model.Event
}

// NewCache wraps src with a load-once contract.
func NewCache(src EventSource) *Cache {
	return &Cache{src: src}
}

// Events loads on first call and returns the same slice afterwards. Callers
// must treat the result as read-only.
func (c *Cache) Events(ctx context.Context) []model.Event {
	c.once.Do(func() {
		c.events = c.src.Load(ctx)
		if c.events == nil {
			c.events = []model.Event{}
		}
	})
	return c.events
}
