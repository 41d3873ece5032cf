package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gigsite/internal/config"
	"gigsite/internal/dates"
	"gigsite/internal/feed"
	"gigsite/internal/ics"
	appLog "gigsite/internal/log"
	"gigsite/internal/model"
	"gigsite/internal/site"
)

// Server renders pages per request from the feed and falls back to the
// static build output for everything else.
type Server struct {
	cfg      *config.Config
	loc      *time.Location
	source   feed.EventSource
	renderer *site.Renderer
	router   *mux.Router
	now      func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, loc *time.Location, source feed.EventSource) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("web: config is nil")
	}
	if source == nil {
		return nil, errors.New("web: event source is nil")
	}
	r, err := site.NewRenderer()
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:      cfg,
		loc:      loc,
		source:   source,
		renderer: r,
		router:   mux.NewRouter(),
		now:      time.Now,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/project-{slug}.html", s.handleProject).Methods(http.MethodGet)
	s.router.HandleFunc("/{file:.+\\.ics}", s.handleAttachment).Methods(http.MethodGet)

	// Everything else (styles, images, the feed copy) comes from the last build.
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.OutDir)))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gigsite", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// pageView is the per-request state: one feed load at most, plus the
// request's platform and host.
type pageView struct {
	cache *feed.Cache
	env   site.Env
}

func (s *Server) newPageView(r *http.Request) pageView {
	host := s.cfg.Host
	if host == "" {
		host = r.Host
	}
	return pageView{
		cache: feed.NewCache(s.source),
		env: site.Env{
			Location:     s.loc,
			Now:          s.now(),
			Platform:     r.UserAgent(),
			Host:         host,
			ReminderMode: s.cfg.ReminderMode,
		},
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	pv := s.newPageView(r)
	events := pv.cache.Events(r.Context())

	page := site.BuildIndex(events, pv.env, site.NewSelector(s.cfg.IndexSimilar))
	var buf bytes.Buffer
	if err := s.renderer.RenderIndex(&buf, page); err != nil {
		appLog.Error("render index failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	pv := s.newPageView(r)
	events := pv.cache.Events(r.Context())

	page := site.BuildProject(slug, events, pv.env, site.NewSelector(s.cfg.ProjectSimilar))
	var buf bytes.Buffer
	if err := s.renderer.RenderProject(&buf, page); err != nil {
		appLog.Error("render project failed", err, "slug", slug)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	// Unknown slugs still get the default page body.
	status := http.StatusOK
	if !page.Found {
		status = http.StatusNotFound
	}
	writeHTML(w, status, buf.Bytes())
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	name, ok := ics.AttachmentPath(mux.Vars(r)["file"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	events := s.newPageView(r).cache.Events(r.Context())
	for _, ev := range events {
		file, ok := ics.AttachmentPath(ev.ICSFile)
		if !ok || file != name {
			continue
		}
		body, err := ics.Attachment(ev, s.loc)
		if err != nil {
			continue
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+ev.Slug+`.ics"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}
	http.NotFound(w, r)
}

// eventDTO is the JSON view of one visible event.
type eventDTO struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Date          string `json:"date,omitempty"`
	FormattedDate string `json:"formatted_date,omitempty"`
	Year          *int   `json:"year,omitempty"`
	City          string `json:"city,omitempty"`
	Venue         string `json:"venue,omitempty"`
	Status        string `json:"status,omitempty"`
	URL           string `json:"url"`
	ReminderURL   string `json:"reminder_url,omitempty"`
}

type eventsResponse struct {
	Events      []eventDTO `json:"events"`
	GeneratedAt time.Time  `json:"generated_at"`
	TimeZone    string     `json:"timezone"`
}

// handleEvents returns the visible, date-ordered events as JSON.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	pv := s.newPageView(r)
	visible := site.VisibleSorted(pv.cache.Events(r.Context()), pv.env)

	dtos := make([]eventDTO, 0, len(visible))
	for _, ev := range visible {
		dto := eventDTO{
			Slug:   ev.Slug,
			Title:  ev.Title,
			Date:   ev.Date,
			City:   ev.City,
			Venue:  ev.Venue,
			Status: ev.Status,
			URL:    model.ProjectURL(ev.Slug),
		}
		if y, ok := site.EffectiveYear(ev, s.loc); ok {
			dto.Year = &y
		}
		if ev.Date != "" {
			dto.FormattedDate = dates.Format(ev.Date, s.loc)
		}
		if rem := site.BuildReminder(ev, pv.env); rem != nil {
			dto.ReminderURL = rem.Href
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:      dtos,
		GeneratedAt: pv.env.Now,
		TimeZone:    s.loc.String(),
	})
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
