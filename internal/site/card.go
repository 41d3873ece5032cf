package site

import (
	"gigsite/internal/dates"
	"gigsite/internal/model"
)

// Card is the view model of one event on the index page. Title and Meta are
// always rendered; every other part is optional.
type Card struct {
	Slug        string
	Title       string
	URL         string
	Subtitle    string
	Description string
	Media       *MediaPreview
	Reminder    *Reminder
	OpenURL     string
	Meta        string
}

// BuildCard maps one event onto its card.
func BuildCard(ev model.Event, env Env) Card {
	url := ev.ProjectURL()
	return Card{
		Slug:        ev.Slug,
		Title:       ev.Title,
		URL:         url,
		Subtitle:    ev.Subtitle,
		Description: ev.Summary(),
		Media:       BuildMediaPreview(ev),
		Reminder:    BuildReminder(ev, env),
		OpenURL:     url,
		Meta:        ev.City + ", " + dates.Format(ev.Date, env.loc()),
	}
}

// JoinedMeta is "<city>, <date>" with either part left out when absent.
func JoinedMeta(ev model.Event, env Env) string {
	switch {
	case ev.City != "" && ev.Date != "":
		return ev.City + ", " + dates.Format(ev.Date, env.loc())
	case ev.City != "":
		return ev.City
	case ev.Date != "":
		return dates.Format(ev.Date, env.loc())
	default:
		return ""
	}
}
