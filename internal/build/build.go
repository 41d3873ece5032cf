package build

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"gigsite/internal/config"
	"gigsite/internal/feed"
	"gigsite/internal/ics"
	appLog "gigsite/internal/log"
	"gigsite/internal/model"
	"gigsite/internal/site"
)

const (
	indexFile = "index.html"
	feedCopy  = "data/events.json"

	defaultWorkers = 4
)

// Options configures a Builder.
type Options struct {
	Location       *time.Location
	Host           string
	Platform       string
	ReminderMode   string
	IndexSimilar   config.SimilarConfig
	ProjectSimilar config.SimilarConfig
	// Workers bounds concurrent page writes. Zero means 4.
	Workers int
	// Now overrides the build clock, mainly for tests.
	Now func() time.Time
}

// OptionsFromConfig maps the application config onto build options.
func OptionsFromConfig(cfg *config.Config, loc *time.Location) Options {
	return Options{
		Location:       loc,
		Host:           cfg.Host,
		Platform:       cfg.Platform,
		ReminderMode:   cfg.ReminderMode,
		IndexSimilar:   cfg.IndexSimilar,
		ProjectSimilar: cfg.ProjectSimilar,
	}
}

// Result summarizes one build run.
type Result struct {
	Events      int
	Pages       int
	Attachments int
	Skipped     []string
}

// Builder renders the whole static site into an output filesystem.
type Builder struct {
	src      feed.EventSource
	out      afero.Fs
	renderer *site.Renderer
	opts     Options
}

// New creates a Builder writing into out (typically a BasePathFs rooted at
// the output directory).
func New(src feed.EventSource, out afero.Fs, opts Options) (*Builder, error) {
	if src == nil {
		return nil, errors.New("build: event source is nil")
	}
	if out == nil {
		return nil, errors.New("build: output filesystem is nil")
	}
	r, err := site.NewRenderer()
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{src: src, out: out, renderer: r, opts: opts}, nil
}

type pageJob struct {
	name string
	page site.ProjectPage
}

// Build loads the feed once and writes index.html, every project page,
// the calendar attachments and a copy of the decoded feed.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	started := b.opts.Now()
	events := feed.NewCache(b.src).Events(ctx)

	env := site.Env{
		Location:     b.opts.Location,
		Now:          started,
		Platform:     b.opts.Platform,
		Host:         b.opts.Host,
		ReminderMode: b.opts.ReminderMode,
	}
	res := Result{Events: len(events)}

	var index bytes.Buffer
	indexSel := site.NewSelector(b.opts.IndexSimilar)
	if err := b.renderer.RenderIndex(&index, site.BuildIndex(events, env, indexSel)); err != nil {
		return res, err
	}
	if err := afero.WriteFile(b.out, indexFile, index.Bytes(), 0o644); err != nil {
		return res, fmt.Errorf("build: write %s: %w", indexFile, err)
	}
	res.Pages++

	// View models are built sequentially so the shuffle source is never
	// shared between goroutines; only rendering and writing fan out.
	projectSel := site.NewSelector(b.opts.ProjectSimilar)
	jobs := make([]pageJob, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, ev := range events {
		if seen[ev.Slug] {
			continue
		}
		seen[ev.Slug] = true
		if !safeSlug(ev.Slug) {
			appLog.Warn("skipping project page with unsafe slug", "slug", ev.Slug)
			res.Skipped = append(res.Skipped, ev.Slug)
			continue
		}
		jobs = append(jobs, pageJob{
			name: model.ProjectURL(ev.Slug),
			page: site.BuildProject(ev.Slug, events, env, projectSel),
		})
	}

	p := pool.New().WithMaxGoroutines(b.opts.Workers).WithErrors().WithContext(ctx)
	for _, job := range jobs {
		job := job
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := b.renderer.RenderProject(&buf, job.page); err != nil {
				return err
			}
			if err := afero.WriteFile(b.out, job.name, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("build: write %s: %w", job.name, err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return res, err
	}
	res.Pages += len(jobs)

	n, err := b.writeAttachments(events)
	res.Attachments = n
	if err != nil {
		return res, err
	}

	if err := b.writeFeedCopy(events); err != nil {
		return res, err
	}

	appLog.Info("site built",
		"events", res.Events,
		"pages", res.Pages,
		"attachments", res.Attachments,
		"skipped", len(res.Skipped),
		"took", time.Since(started).String(),
	)
	return res, nil
}

func (b *Builder) writeAttachments(events []model.Event) (int, error) {
	written := make(map[string]bool)
	for _, ev := range events {
		name, ok := ics.AttachmentPath(ev.ICSFile)
		if !ok || written[name] {
			continue
		}
		body, err := ics.Attachment(ev, b.opts.Location)
		if err != nil {
			if errors.Is(err, ics.ErrNotEligible) {
				continue
			}
			return len(written), err
		}
		if dir := path.Dir(name); dir != "." {
			if err := b.out.MkdirAll(dir, 0o755); err != nil {
				return len(written), err
			}
		}
		if err := afero.WriteFile(b.out, name, body, 0o644); err != nil {
			return len(written), fmt.Errorf("build: write %s: %w", name, err)
		}
		written[name] = true
	}
	return len(written), nil
}

func (b *Builder) writeFeedCopy(events []model.Event) error {
	data, err := json.MarshalIndent(struct {
		Events []model.Event `json:"events"`
	}{events}, "", "  ")
	if err != nil {
		return err
	}
	if err := b.out.MkdirAll(path.Dir(feedCopy), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(b.out, feedCopy, data, 0o644)
}

// safeSlug rejects slugs that would escape the output directory or create
// nested paths.
func safeSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsAny(slug, `/\`) && !strings.Contains(slug, "..")
}
