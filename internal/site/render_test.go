package site

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigsite/internal/config"
	"gigsite/internal/model"
)

func renderIndex(t *testing.T, r *Renderer, events []model.Event, seed int64) string {
	t.Helper()
	sel := &Selector{Policy: config.SimilarRandom, Limit: 2, Rand: rand.New(rand.NewSource(seed))}
	var buf bytes.Buffer
	require.NoError(t, r.RenderIndex(&buf, BuildIndex(events, testEnv(), sel)))
	return buf.String()
}

func TestRenderIndex(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	events := []model.Event{
		{
			Slug: "b", Title: "Second <Show>", Date: "2024-01-10", City: "Oslo", Venue: "Hall",
			Video: &model.Embed{EmbedURL: "https://www.youtube.com/embed/vid1"},
			Audio: &model.Embed{EmbedURL: "https://bandcamp.com/EmbeddedPlayer/track=9"},
		},
		{Slug: "a", Title: "First", Date: "2023-12-01", Status: model.StatusPast, City: "Bergen"},
	}

	html := renderIndex(t, r, events, 1)

	assert.Contains(t, html, `data-ready="true"`)
	assert.Contains(t, html, "Second &lt;Show&gt;")
	i2023 := strings.Index(html, "— 2023")
	i2024 := strings.Index(html, "— 2024")
	require.True(t, i2023 >= 0 && i2024 >= 0)
	assert.Less(t, i2023, i2024)
	assert.Less(t, strings.Index(html, `id="event-a"`), strings.Index(html, `id="event-b"`))

	assert.Contains(t, html, "https://i.ytimg.com/vi/vid1/hqdefault.jpg")
	assert.NotContains(t, html, "event-bandcamp")
	assert.Contains(t, html, `href="project-b.html"`)
	assert.Contains(t, html, "Bergen, 01.12.2023")

	// Past event gets no reminder; the upcoming one does.
	list := html[strings.Index(html, `id="events-container"`):strings.Index(html, "</section>")]
	assert.Equal(t, 1, strings.Count(list, `class="event-button"`))
	assert.Contains(t, html, `aria-label="Add Second &lt;Show&gt; to calendar"`)
}

func TestRenderIndexEmptyFeed(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	html := renderIndex(t, r, []model.Event{}, 1)
	assert.NotContains(t, html, "event-card")
	assert.NotContains(t, html, "year-divider")
	assert.NotContains(t, html, "similar-projects")
}

func TestRenderIndexIdempotent(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	events := catalog()
	assert.Equal(t, renderIndex(t, r, events, 42), renderIndex(t, r, events, 42))
}

func TestRenderProjectWebcalSurvivesEscaping(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	events := []model.Event{
		{
			Slug: "x", Title: "X", Date: "2030-01-01", City: "Rome", Venue: "Arena", ICSFile: "ics/x.ics",
			Body:   []string{"p1", "p2"},
			Photos: []model.Photo{{Src: "img/1.jpg"}},
		},
		{Slug: "y", Title: "Y"},
	}
	env := testEnv()
	env.Platform = "MacIntel"

	var buf bytes.Buffer
	page := BuildProject("x", events, env, &Selector{Policy: config.SimilarOrdered, Limit: 2})
	require.True(t, page.Found)
	require.NoError(t, r.RenderProject(&buf, page))
	html := buf.String()

	assert.Contains(t, html, `data-project-slug="x"`)
	assert.Contains(t, html, `href="webcal://fish.example/ics/x.ics"`)
	assert.Equal(t, 2, strings.Count(html, `class="project-description"`))
	assert.Contains(t, html, `<img src="img/1.jpg" alt=""`)
	assert.Contains(t, html, `href="project-y.html"`)
	assert.NotContains(t, html, `href="project-x.html"`)
	assert.NotContains(t, html, "project-media")
}

func TestRenderProjectUnknownSlugKeepsDefaults(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	page := BuildProject("ghost", catalog(), testEnv(), &Selector{Policy: config.SimilarOrdered})
	assert.False(t, page.Found)
	assert.Empty(t, page.Similar)

	var buf bytes.Buffer
	require.NoError(t, r.RenderProject(&buf, page))
	assert.Contains(t, buf.String(), `<h1 class="project-title">Project</h1>`)
}
