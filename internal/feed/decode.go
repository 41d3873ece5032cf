package feed

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	appLog "gigsite/internal/log"
	"gigsite/internal/model"
)

var (
	// ErrInvalidJSON is returned when the feed body is not valid JSON.
	ErrInvalidJSON = errors.New("feed: body is not valid JSON")
	// ErrNoEvents is returned when the top-level "events" field is missing
	// or is not an array.
	ErrNoEvents = errors.New(`feed: top-level "events" is not an array`)
)

// Decode extracts the event list from a feed document. Fields with an
// unexpected JSON type are treated as absent; array elements that are not
// objects or lack a slug are skipped. The returned slice is never nil.
func Decode(body []byte) ([]model.Event, error) {
	events := make([]model.Event, 0)

	if !gjson.ValidBytes(body) {
		return events, ErrInvalidJSON
	}
	list := gjson.GetBytes(body, "events")
	if !list.IsArray() {
		return events, ErrNoEvents
	}

	skipped := 0
	list.ForEach(func(_, item gjson.Result) bool {
		ev, ok := decodeEvent(item)
		if !ok {
			skipped++
			return true
		}
		events = append(events, ev)
		return true
	})

	if skipped > 0 {
		appLog.Debug("feed decode skipped records", "skipped", skipped, "kept", len(events))
	}
	return events, nil
}

func decodeEvent(r gjson.Result) (model.Event, bool) {
	if !r.IsObject() {
		return model.Event{}, false
	}
	slug := str(r.Get("slug"))
	if slug == "" {
		return model.Event{}, false
	}

	ev := model.Event{
		Slug:             slug,
		Title:            str(r.Get("title")),
		Subtitle:         str(r.Get("subtitle")),
		Description:      str(r.Get("description")),
		ShortDescription: str(r.Get("shortDescription")),
		Date:             str(r.Get("date")),
		City:             str(r.Get("city")),
		Venue:            str(r.Get("venue")),
		Status:           str(r.Get("status")),
		ICSFile:          str(r.Get("icsFile")),
		Caption:          str(r.Get("caption")),
		Video:            embed(r.Get("video")),
		Audio:            embed(r.Get("audio")),
	}

	if y := r.Get("year"); y.Type == gjson.Number {
		year := int(y.Int())
		ev.Year = &year
	}
	if re := r.Get("remindEnabled"); re.Type == gjson.True || re.Type == gjson.False {
		enabled := re.Bool()
		ev.RemindEnabled = &enabled
	}

	if body := r.Get("body"); body.IsArray() {
		for _, p := range body.Array() {
			if p.Type == gjson.String || p.Type == gjson.Number {
				ev.Body = append(ev.Body, p.String())
			}
		}
	}

	if photos := r.Get("photos"); photos.IsArray() {
		for _, p := range photos.Array() {
			if !p.IsObject() {
				continue
			}
			ev.Photos = append(ev.Photos, model.Photo{
				Src: str(p.Get("src")),
				Alt: str(p.Get("alt")),
			})
		}
	}

	return ev, true
}

func embed(r gjson.Result) *model.Embed {
	if !r.IsObject() {
		return nil
	}
	u := strings.TrimSpace(str(r.Get("embedUrl")))
	if u == "" {
		return nil
	}
	return &model.Embed{EmbedURL: u}
}

// str returns string and number values as text; anything else is absent.
func str(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}
