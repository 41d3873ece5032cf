package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigsite/internal/model"
)

const sampleFeed = `{
  "events": [
    {"slug": "a", "title": "Opening", "date": "2024-01-10", "year": 2024,
     "city": "Berlin", "venue": "Club", "remindEnabled": false,
     "video": {"embedUrl": "https://www.youtube.com/embed/xyz"},
     "audio": {"embedUrl": "about:blank"},
     "body": ["one", 2, {"x": 1}, "three"],
     "photos": [{"src": "1.jpg", "alt": "first"}, {"src": "2.jpg"}, "bogus"]},
    {"slug": "b", "status": "upcoming", "year": "2023", "remindEnabled": "no", "body": "not-a-list"},
    {"title": "no slug"},
    42
  ]
}`

func TestDecodeTolerant(t *testing.T) {
	events, err := Decode([]byte(sampleFeed))
	require.NoError(t, err)
	require.Len(t, events, 2)

	a := events[0]
	assert.Equal(t, "a", a.Slug)
	require.NotNil(t, a.Year)
	assert.Equal(t, 2024, *a.Year)
	require.NotNil(t, a.RemindEnabled)
	assert.False(t, *a.RemindEnabled)
	assert.True(t, a.Video.Valid())
	assert.False(t, a.Audio.Valid())
	assert.Equal(t, []string{"one", "2", "three"}, a.Body)
	assert.Equal(t, []model.Photo{{Src: "1.jpg", Alt: "first"}, {Src: "2.jpg"}}, a.Photos)

	b := events[1]
	assert.Equal(t, model.StatusUpcoming, b.Status)
	assert.Nil(t, b.Year, "string year is ignored")
	assert.Nil(t, b.RemindEnabled, "non-boolean remindEnabled is ignored")
	assert.Empty(t, b.Body)
}

func TestDecodeShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"empty object", `{}`, ErrNoEvents},
		{"events not array", `{"events": {"slug": "a"}}`, ErrNoEvents},
		{"top-level array", `[{"slug": "a"}]`, ErrNoEvents},
		{"html", `<html>oops</html>`, ErrInvalidJSON},
		{"empty", ``, ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := Decode([]byte(tt.body))
			assert.ErrorIs(t, err, tt.err)
			assert.NotNil(t, events)
			assert.Empty(t, events)
		})
	}
}

func TestLoaderFromFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "data/events.json", []byte(sampleFeed), 0o644))

	events := NewLoader("data/events.json", nil, fsys).Load(context.Background())
	assert.Len(t, events, 2)
}

func TestLoaderMissingFileYieldsEmpty(t *testing.T) {
	events := NewLoader("missing.json", nil, afero.NewMemMapFs()).Load(context.Background())
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestLoaderHTTPWithConditionalCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		switch n {
		case 1:
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte(sampleFeed))
		case 2:
			assert.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
			w.WriteHeader(http.StatusNotModified)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL+"/data/events.json?token=secret", NewFetcher(t.TempDir(), srv.Client()), nil)

	for i := 0; i < 3; i++ {
		events := loader.Load(context.Background())
		assert.Len(t, events, 2, "attempt %d", i+1)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestLoaderHTTPFailureWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	events := NewLoader(srv.URL, NewFetcher(t.TempDir(), srv.Client()), nil).Load(context.Background())
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

type countingSource struct {
	calls  int
	events []model.Event
}

func (s *countingSource) Load(context.Context) []model.Event {
	s.calls++
	return s.events
}

func TestCacheLoadsOnce(t *testing.T) {
	src := &countingSource{events: []model.Event{{Slug: "a"}}}
	cache := NewCache(src)

	first := cache.Events(context.Background())
	second := cache.Events(context.Background())

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
}

func TestCacheNeverReturnsNil(t *testing.T) {
	cache := NewCache(&countingSource{})
	assert.NotNil(t, cache.Events(context.Background()))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/events.json?token=abc"))
	assert.Equal(t, "feed://...(redacted)", redactURL("::bad"))
}
