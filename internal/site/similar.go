package site

import (
	"math/rand"
	"time"

	"gigsite/internal/config"
	"gigsite/internal/model"
)

// DefaultSimilarLimit is used when a Selector has no positive Limit.
const DefaultSimilarLimit = 2

// SimilarCard is the reduced card used to cross-promote other projects.
type SimilarCard struct {
	Slug     string
	Title    string
	Meta     string
	Teaser   string
	Reminder *Reminder
	OpenURL  string
}

// Selector picks the "similar projects" shown on a page.
type Selector struct {
	// Policy is config.SimilarOrdered or config.SimilarRandom.
	Policy string
	Limit  int
	// Rand drives the shuffle. Tests inject a seeded source.
	Rand *rand.Rand
}

// NewSelector builds a Selector from config. A zero seed means time-seeded.
func NewSelector(cfg config.SimilarConfig) *Selector {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Selector{
		Policy: cfg.Policy,
		Limit:  cfg.Limit,
		Rand:   rand.New(rand.NewSource(seed)),
	}
}

// Pick returns up to Limit events, excluding current (by slug) when it is
// non-nil. events is never modified.
func (s *Selector) Pick(current *model.Event, events []model.Event) []model.Event {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}

	pool := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if current != nil && ev.Slug == current.Slug {
			continue
		}
		pool = append(pool, ev)
	}

	if s.Policy == config.SimilarRandom {
		r := s.Rand
		if r == nil {
			r = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		// Fisher-Yates.
		for i := len(pool) - 1; i > 0; i-- {
			j := r.Intn(i + 1)
			pool[i], pool[j] = pool[j], pool[i]
		}
	}

	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool
}

// Select picks events and maps them onto reduced cards.
func (s *Selector) Select(current *model.Event, events []model.Event, env Env) []SimilarCard {
	picked := s.Pick(current, events)
	cards := make([]SimilarCard, 0, len(picked))
	for _, ev := range picked {
		cards = append(cards, SimilarCard{
			Slug:     ev.Slug,
			Title:    ev.Title,
			Meta:     JoinedMeta(ev, env),
			Teaser:   ev.Teaser(),
			Reminder: BuildReminder(ev, env),
			OpenURL:  ev.ProjectURL(),
		})
	}
	return cards
}
