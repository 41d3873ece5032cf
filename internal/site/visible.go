package site

import (
	"sort"
	"time"

	"gigsite/internal/dates"
	"gigsite/internal/model"
)

// Visible applies the index visibility rule to a single event.
func Visible(ev model.Event, today time.Time) bool {
	switch ev.Status {
	case model.StatusPast, model.StatusUpcoming:
		return true
	}
	if ev.Date == "" {
		return true
	}
	d, ok := dates.Parse(ev.Date, today.Location())
	if !ok {
		return true
	}
	return !dates.StartOfDay(d).Before(dates.StartOfDay(today))
}

// VisibleSorted returns the visible events ordered by date ascending. The
// sort is stable; events without a parsable date go last in feed order.
func VisibleSorted(events []model.Event, env Env) []model.Event {
	today := env.now()
	loc := env.loc()

	type keyed struct {
		ev    model.Event
		at    time.Time
		dated bool
	}

	out := make([]keyed, 0, len(events))
	for _, ev := range events {
		if !Visible(ev, today) {
			continue
		}
		at, ok := dates.Parse(ev.Date, loc)
		out = append(out, keyed{ev: ev, at: at, dated: ok})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.dated != b.dated {
			return a.dated
		}
		if !a.dated {
			return false
		}
		return a.at.Before(b.at)
	})

	sorted := make([]model.Event, len(out))
	for i, k := range out {
		sorted[i] = k.ev
	}
	return sorted
}
