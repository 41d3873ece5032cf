package site

import (
	"net/url"
	"regexp"
	"strings"

	"gigsite/internal/config"
	"gigsite/internal/dates"
	"gigsite/internal/ics"
	"gigsite/internal/model"
)

const googleCalendarBase = "https://calendar.google.com/calendar/render"

// applePlatform matches Mac and iOS family platform strings and User-Agents.
var applePlatform = regexp.MustCompile(`Mac|iPhone|iPad`)

// Reminder is the "Remind me" affordance.
type Reminder struct {
	Label     string
	AriaLabel string
	Href      string
	// DownloadHref is set in download mode when the event ships an icsFile.
	DownloadHref string
}

// GoogleCalendarURL builds the calendar-service deep link for an evening
// slot on date. When date does not parse the dates parameter is left out
// and the service opens its editor on the current day.
func GoogleCalendarURL(title, date, details, venue, city string, env Env) string {
	var b strings.Builder
	b.WriteString(googleCalendarBase)
	b.WriteString("?action=TEMPLATE")
	b.WriteString("&text=" + encodeComponent(title))
	if start, end, ok := dates.ReminderWindow(date, env.loc()); ok {
		b.WriteString("&dates=" + start.Format("20060102T150405Z") + "/" + end.Format("20060102T150405Z"))
	}
	b.WriteString("&details=" + encodeComponent(details))
	b.WriteString("&location=" + encodeComponent(venue+", "+city))
	b.WriteString("&sf=true&output=xml")
	return b.String()
}

// BuildReminder returns the reminder affordance for ev, or nil when ev is not
// eligible.
func BuildReminder(ev model.Event, env Env) *Reminder {
	if !ev.RemindAllowed() {
		return nil
	}

	r := &Reminder{
		Label:     "Remind me",
		AriaLabel: "Add " + ev.Title + " to calendar",
		Href:      GoogleCalendarURL(ev.Title, ev.Date, ev.Summary(), ev.Venue, ev.City, env),
	}

	file, ok := ics.AttachmentPath(ev.ICSFile)
	if !ok {
		return r
	}

	switch env.mode() {
	case config.ReminderDownload:
		r.DownloadHref = file
	default:
		if env.Host != "" && applePlatform.MatchString(env.Platform) {
			r.Href = "webcal://" + env.Host + "/" + file
		}
	}
	return r
}

// encodeComponent percent-encodes a URI component: %20 for spaces, with
// !'()* left as is.
func encodeComponent(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	for _, c := range []string{"!", "'", "(", ")", "*"} {
		e = strings.ReplaceAll(e, url.QueryEscape(c), c)
	}
	return e
}
