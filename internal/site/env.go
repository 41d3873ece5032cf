// Package site turns the immutable event list into page view models and
// renders them to HTML. Everything here is a pure function of its inputs
// except the shuffle, whose randomness is injected.
package site

import (
	"time"

	"gigsite/internal/config"
)

// Env carries the per-page-view context the builders depend on.
type Env struct {
	// Location is the display zone for dates and the "today" cut-off.
	Location *time.Location
	// Now is the page view time.
	Now time.Time
	// Platform is the client's platform string (User-Agent when serving).
	Platform string
	// Host is used for webcal:// links; empty disables them.
	Host string
	// ReminderMode is config.ReminderDeepLink or config.ReminderDownload.
	ReminderMode string
}

func (e Env) loc() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

func (e Env) now() time.Time {
	if e.Now.IsZero() {
		return time.Now().In(e.loc())
	}
	return e.Now.In(e.loc())
}

func (e Env) mode() string {
	if e.ReminderMode == config.ReminderDownload {
		return config.ReminderDownload
	}
	return config.ReminderDeepLink
}
