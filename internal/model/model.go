package model

import "strings"

// Status values carried by the feed. Anything else (including "") means
// visibility is derived from the event date.
const (
	StatusPast     = "past"
	StatusUpcoming = "upcoming"
)

// Embed names a third-party player URL (YouTube for video, Bandcamp for audio).
type Embed struct {
	EmbedURL string `json:"embedUrl"`
}

// Valid reports whether the embed should be shown. Empty, whitespace-only and
// about:blank URLs count as absent.
func (e *Embed) Valid() bool {
	if e == nil {
		return false
	}
	u := strings.TrimSpace(e.EmbedURL)
	return u != "" && u != "about:blank"
}

// Photo is one gallery image on a project page.
type Photo struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Event is one record from the events feed. Only Slug is required; every
// other field may be zero and consumers must degrade gracefully.
type Event struct {
	Slug             string `json:"slug"`
	Title            string `json:"title,omitempty"`
	Subtitle         string `json:"subtitle,omitempty"`
	Description      string `json:"description,omitempty"`
	ShortDescription string `json:"shortDescription,omitempty"`

	// Date is kept as the raw feed string; it may be empty or unparsable.
	Date string `json:"date,omitempty"`
	// Year overrides the year derived from Date for grouping.
	Year *int `json:"year,omitempty"`

	City  string `json:"city,omitempty"`
	Venue string `json:"venue,omitempty"`

	Status string `json:"status,omitempty"`
	// RemindEnabled defaults to true when nil.
	RemindEnabled *bool  `json:"remindEnabled,omitempty"`
	ICSFile       string `json:"icsFile,omitempty"`

	Video *Embed `json:"video,omitempty"`
	Audio *Embed `json:"audio,omitempty"`

	Body    []string `json:"body,omitempty"`
	Caption string   `json:"caption,omitempty"`
	Photos  []Photo  `json:"photos,omitempty"`
}

// IsPast reports an explicit "past" status.
func (e Event) IsPast() bool {
	return e.Status == StatusPast
}

// RemindAllowed is the reminder affordance eligibility rule: not past, not
// explicitly disabled, and date, venue and city all present.
func (e Event) RemindAllowed() bool {
	if e.IsPast() {
		return false
	}
	if e.RemindEnabled != nil && !*e.RemindEnabled {
		return false
	}
	return e.Date != "" && e.Venue != "" && e.City != ""
}

// Summary is the card description: shortDescription, else description.
func (e Event) Summary() string {
	if e.ShortDescription != "" {
		return e.ShortDescription
	}
	return e.Description
}

// Teaser is the reduced-card text: shortDescription, subtitle, description.
func (e Event) Teaser() string {
	switch {
	case e.ShortDescription != "":
		return e.ShortDescription
	case e.Subtitle != "":
		return e.Subtitle
	default:
		return e.Description
	}
}

// ProjectURL is the relative detail page link, "project-<slug>.html".
func (e Event) ProjectURL() string {
	return ProjectURL(e.Slug)
}

// ProjectURL builds the detail page file name for a slug.
func ProjectURL(slug string) string {
	return "project-" + slug + ".html"
}
