package build

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigsite/internal/config"
	"gigsite/internal/feed"
	"gigsite/internal/model"
)

type staticSource []model.Event

func (s staticSource) Load(context.Context) []model.Event { return s }

func fixedOptions() Options {
	return Options{
		Location:       time.UTC,
		Host:           "fish.example",
		ReminderMode:   config.ReminderDeepLink,
		IndexSimilar:   config.SimilarConfig{Policy: config.SimilarRandom, Limit: 2, Seed: 99},
		ProjectSimilar: config.SimilarConfig{Policy: config.SimilarRandom, Limit: 2, Seed: 99},
		Now:            func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func sampleEvents() staticSource {
	return staticSource{
		{Slug: "a", Title: "A", Date: "2024-02-01", City: "Oslo", Venue: "Hall", ICSFile: "ics/a.ics"},
		{Slug: "b", Title: "B", Status: model.StatusPast, ICSFile: "ics/b.ics"},
		{Slug: "c", Title: "C", Date: "2024-05-01"},
		{Slug: "a", Title: "duplicate"},
		{Slug: "../evil", Title: "Evil"},
	}
}

func TestBuildWritesSite(t *testing.T) {
	out := afero.NewMemMapFs()
	b, err := New(sampleEvents(), out, fixedOptions())
	require.NoError(t, err)

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Events)
	assert.Equal(t, 4, res.Pages)
	assert.Equal(t, 1, res.Attachments, "past event gets no attachment")
	assert.Equal(t, []string{"../evil"}, res.Skipped)

	for _, name := range []string{"index.html", "project-a.html", "project-b.html", "project-c.html", "ics/a.ics", "data/events.json"} {
		ok, err := afero.Exists(out, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	ok, _ := afero.Exists(out, "ics/b.ics")
	assert.False(t, ok)

	page, err := afero.ReadFile(out, "project-a.html")
	require.NoError(t, err)
	assert.Contains(t, string(page), `<h1 class="project-title">A</h1>`)

	ics, err := afero.ReadFile(out, "ics/a.ics")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ics), "BEGIN:VCALENDAR"))
}

func TestBuildIsReproducible(t *testing.T) {
	first, second := afero.NewMemMapFs(), afero.NewMemMapFs()
	for _, out := range []afero.Fs{first, second} {
		b, err := New(sampleEvents(), out, fixedOptions())
		require.NoError(t, err)
		_, err = b.Build(context.Background())
		require.NoError(t, err)
	}

	for _, name := range []string{"index.html", "project-a.html", "project-c.html", "ics/a.ics", "data/events.json"} {
		x, err := afero.ReadFile(first, name)
		require.NoError(t, err)
		y, err := afero.ReadFile(second, name)
		require.NoError(t, err)
		assert.Equal(t, string(x), string(y), name)
	}
}

func TestBuildEmptyFeed(t *testing.T) {
	out := afero.NewMemMapFs()
	loader := feed.NewLoader("missing.json", nil, afero.NewMemMapFs())
	b, err := New(loader, out, fixedOptions())
	require.NoError(t, err)

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Events)
	assert.Equal(t, 1, res.Pages)

	index, err := afero.ReadFile(out, "index.html")
	require.NoError(t, err)
	assert.NotContains(t, string(index), "event-card")
}

func TestBuildCanceled(t *testing.T) {
	b, err := New(sampleEvents(), afero.NewMemMapFs(), fixedOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, afero.NewMemMapFs(), Options{})
	assert.Error(t, err)
	_, err = New(staticSource{}, nil, Options{})
	assert.Error(t, err)
}

func TestSafeSlug(t *testing.T) {
	assert.True(t, safeSlug("river-tour_2024"))
	for _, s := range []string{"", ".", "..", "a/b", `a\b`, "x..y"} {
		assert.False(t, safeSlug(s), s)
	}
}
