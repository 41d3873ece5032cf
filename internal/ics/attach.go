package ics

import (
	"errors"
	"path"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"gigsite/internal/dates"
	"gigsite/internal/model"
)

const productID = "-//gigsite//events//EN"

// ErrNotEligible is returned for events that must not get an attachment.
var ErrNotEligible = errors.New("ics: event has no reminder attachment")

// UID derives a stable iCalendar UID from the event slug, so re-generated
// files update the same calendar entry instead of duplicating it.
func UID(slug string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("gigsite:event:"+slug)).String() + "@gigsite"
}

// AttachmentPath cleans an icsFile value into a relative, slash-separated
// path inside the site root. Leading slashes and ".." segments are re-rooted
// rather than rejected, so "../x.ics" becomes "x.ics". The second return
// value is false only when nothing names a file.
func AttachmentPath(icsFile string) (string, bool) {
	name := strings.TrimSpace(icsFile)
	if name == "" {
		return "", false
	}
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", false
	}
	return clean, true
}

// Attachment renders the downloadable calendar file for ev. Only events that
// pass the reminder rule and name an icsFile are eligible.
func Attachment(ev model.Event, loc *time.Location) ([]byte, error) {
	if !ev.RemindAllowed() || ev.ICSFile == "" {
		return nil, ErrNotEligible
	}
	start, end, ok := dates.ReminderWindow(ev.Date, loc)
	if !ok {
		return nil, ErrNotEligible
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	vev := cal.AddEvent(UID(ev.Slug))
	// DTSTAMP follows the event itself so repeated builds stay byte-identical.
	vev.SetDtStampTime(start)
	vev.SetStartAt(start)
	vev.SetEndAt(end)
	vev.SetSummary(ev.Title)
	if d := ev.Summary(); d != "" {
		vev.SetDescription(d)
	}
	vev.SetLocation(ev.Venue + ", " + ev.City)

	return []byte(cal.Serialize()), nil
}
