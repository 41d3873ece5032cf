package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"gigsite/internal/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// IndexPage is the view model of index.html.
type IndexPage struct {
	Title   string
	Entries []IndexEntry
	Similar []SimilarCard
}

// ProjectPage is the view model of one project-<slug>.html.
type ProjectPage struct {
	PageTitle string
	Slug      string
	Found     bool
	Detail    ProjectDetail
	Similar   []SimilarCard
}

// BuildIndex runs the index pipeline: filter/sort, group by year, cards.
// sel may be nil to omit the similar-projects block.
func BuildIndex(events []model.Event, env Env, sel *Selector) IndexPage {
	page := IndexPage{
		Title:   "Events",
		Entries: GroupByYear(VisibleSorted(events, env), env),
	}
	if sel != nil {
		page.Similar = sel.Select(nil, events, env)
	}
	return page
}

// BuildProject hydrates the detail page for slug. When slug is unknown the
// page keeps its defaults and Found is false.
func BuildProject(slug string, events []model.Event, env Env, sel *Selector) ProjectPage {
	page := ProjectPage{PageTitle: "Project", Slug: slug}

	detail, ok := Hydrate(slug, events, env)
	if !ok {
		return page
	}
	page.Found = true
	page.Detail = detail
	if detail.Title != "" {
		page.PageTitle = detail.Title
	}
	if sel != nil {
		current, _ := FindBySlug(slug, events)
		page.Similar = sel.Select(&current, events, env)
	}
	return page
}

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("site").Funcs(template.FuncMap{
		// Reminder links are built here, never taken from the feed, and may
		// use the webcal scheme that html/template would otherwise reject.
		"trustedURL": func(s string) template.URL { return template.URL(s) },
	}).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("site: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderIndex writes index.html for page.
func (r *Renderer) RenderIndex(w io.Writer, page IndexPage) error {
	return r.execute(w, "index", page)
}

// RenderProject writes a project page.
func (r *Renderer) RenderProject(w io.Writer, page ProjectPage) error {
	return r.execute(w, "project", page)
}

// execute renders into a buffer first so a failing template never leaves a
// half-written page behind.
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("site: render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
