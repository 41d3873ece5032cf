package site

import (
	appLog "gigsite/internal/log"
	"gigsite/internal/model"
)

// Photo is one gallery figure.
type Photo struct {
	Src string
	Alt string
}

// ProjectDetail holds the values written into the fixed slots of a project
// page. Empty strings and nil slices leave the template defaults in place.
type ProjectDetail struct {
	Slug       string
	Title      string
	Meta       string
	Subtitle   string
	Paragraphs []string
	Caption    string
	VideoSrc   string
	AudioSrc   string
	Photos     []Photo
	Reminder   *Reminder
}

// FindBySlug returns the first event with the given slug.
func FindBySlug(slug string, events []model.Event) (model.Event, bool) {
	for _, ev := range events {
		if ev.Slug == slug {
			return ev, true
		}
	}
	return model.Event{}, false
}

// Hydrate locates the event for a detail page and fills its slots. An empty
// slug means the page is not a detail page. An unknown slug is logged and
// reported as not found so the page keeps its default content.
func Hydrate(slug string, events []model.Event, env Env) (ProjectDetail, bool) {
	if slug == "" {
		return ProjectDetail{}, false
	}
	ev, ok := FindBySlug(slug, events)
	if !ok {
		appLog.Warn("no event found for slug", "slug", slug)
		return ProjectDetail{}, false
	}

	d := ProjectDetail{
		Slug:       ev.Slug,
		Title:      ev.Title,
		Meta:       JoinedMeta(ev, env),
		Subtitle:   ev.Subtitle,
		Paragraphs: append([]string(nil), ev.Body...),
		Caption:    ev.Caption,
		Reminder:   BuildReminder(ev, env),
	}
	if ev.Video.Valid() {
		d.VideoSrc = ev.Video.EmbedURL
	}
	if ev.Audio.Valid() {
		d.AudioSrc = ev.Audio.EmbedURL
	}
	for _, p := range ev.Photos {
		d.Photos = append(d.Photos, Photo{Src: p.Src, Alt: p.Alt})
	}
	return d, true
}
