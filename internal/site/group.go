package site

import (
	"strconv"
	"time"

	"gigsite/internal/dates"
	"gigsite/internal/model"
)

// IndexEntry is one item of the index list: either a year divider or a card.
type IndexEntry struct {
	Divider *YearDivider
	Card    *Card
}

// YearDivider starts a run of cards from the same year. Known is false for
// the bucket of events with neither a year nor a parsable date.
type YearDivider struct {
	Year  int
	Known bool
	Label string
}

// EffectiveYear is the explicit year field, else the year of the date. The
// second return value is false when neither is available.
func EffectiveYear(ev model.Event, loc *time.Location) (int, bool) {
	if ev.Year != nil {
		return *ev.Year, true
	}
	if t, ok := dates.Parse(ev.Date, loc); ok {
		return t.Year(), true
	}
	return 0, false
}

type yearKey struct {
	year  int
	known bool
}

// GroupByYear emits a divider before every maximal run of same-year events
// and one card per event, preserving the input order.
func GroupByYear(sorted []model.Event, env Env) []IndexEntry {
	entries := make([]IndexEntry, 0, len(sorted)*2)

	var current *yearKey
	for _, ev := range sorted {
		year, known := EffectiveYear(ev, env.loc())
		key := yearKey{year: year, known: known}
		if current == nil || key != *current {
			entries = append(entries, IndexEntry{Divider: &YearDivider{
				Year:  year,
				Known: known,
				Label: yearLabel(year, known),
			}})
			current = &key
		}
		card := BuildCard(ev, env)
		entries = append(entries, IndexEntry{Card: &card})
	}
	return entries
}

func yearLabel(year int, known bool) string {
	if !known {
		return "—"
	}
	return "— " + strconv.Itoa(year)
}
