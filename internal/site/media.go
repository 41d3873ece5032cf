package site

import (
	"regexp"
	"strings"

	"gigsite/internal/model"
)

// MediaKind distinguishes the two preview types.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// Player parameters that keep the activated embed quiet: autoplay muted, no
// controls overlay, minimal branding, no unrelated recommendations, inline
// playback on phones.
const quietPlayerParams = "autoplay=1&mute=1&controls=0&modestbranding=1&rel=0&playsinline=1"

var youTubeEmbedID = regexp.MustCompile(`/embed/([^?&#/]+)`)

// MediaPreview is the optional media block of a card. Video previews start
// as an activation surface; audio embeds render immediately.
type MediaPreview struct {
	Kind  MediaKind
	Label string

	// Video: ThumbnailURL is empty and Placeholder set when the video id
	// cannot be extracted. ActivateURL is loaded only on click.
	ThumbnailURL string
	Placeholder  bool
	ActivateURL  string

	// Audio: EmbedURL is the static iframe source.
	EmbedURL string
}

// BuildMediaPreview picks at most one preview for ev; video wins over audio.
// Returns nil when neither embed is usable.
func BuildMediaPreview(ev model.Event) *MediaPreview {
	switch {
	case ev.Video.Valid():
		u := strings.TrimSpace(ev.Video.EmbedURL)
		p := &MediaPreview{
			Kind:        MediaVideo,
			Label:       "Watch",
			ActivateURL: WithPlayerParams(u),
		}
		if id := YouTubeID(u); id != "" {
			p.ThumbnailURL = "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
		} else {
			p.Placeholder = true
		}
		return p
	case ev.Audio.Valid():
		return &MediaPreview{
			Kind:     MediaAudio,
			Label:    "Listen on Bandcamp",
			EmbedURL: strings.TrimSpace(ev.Audio.EmbedURL),
		}
	default:
		return nil
	}
}

// YouTubeID extracts the video id from .../embed/<id> URLs, or "".
func YouTubeID(embedURL string) string {
	m := youTubeEmbedID.FindStringSubmatch(embedURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// WithPlayerParams appends the quiet player parameters to an embed URL.
func WithPlayerParams(embedURL string) string {
	if strings.Contains(embedURL, "?") {
		return embedURL + "&" + quietPlayerParams
	}
	return embedURL + "?" + quietPlayerParams
}
