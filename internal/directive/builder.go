// Package directive turns a play session and a target position into the
// speech and audio-player directives sent back to the device.
package directive

import (
	"fmt"
	"strings"

	"github.com/maauso/audiobook-skill/internal/playback"
	"github.com/maauso/audiobook-skill/internal/voice"
)

// DefaultBackgroundURL is the image shown behind the cover art.
const DefaultBackgroundURL = "https://images.steelcase.com/image/upload/c_fill,q_auto,f_auto,h_900,w_1600/v1567243086/6130_1000.jpg"

// Builder renders directives for one media server.
type Builder struct {
	serverURL     string
	apiKey        string
	backgroundURL string
}

// NewBuilder creates a Builder. An empty backgroundURL selects DefaultBackgroundURL.
func NewBuilder(serverURL, apiKey, backgroundURL string) *Builder {
	if backgroundURL == "" {
		backgroundURL = DefaultBackgroundURL
	}
	return &Builder{
		serverURL:     strings.TrimRight(serverURL, "/"),
		apiKey:        apiKey,
		backgroundURL: backgroundURL,
	}
}

// StreamURL returns the authenticated stream URL of a track.
func (b *Builder) StreamURL(t playback.Track) string {
	return b.serverURL + t.ContentURL + "?token=" + b.apiKey
}

// CoverURL returns the cover image URL of an item.
func (b *Builder) CoverURL(itemID string) string {
	return fmt.Sprintf("%s/api/items/%s/cover", b.serverURL, itemID)
}

// Metadata returns the display metadata for a chapter of s.
func (b *Builder) Metadata(chapterTitle string, s *playback.Session) *voice.Metadata {
	return &voice.Metadata{
		Title:      chapterTitle,
		Subtitle:   s.DisplayTitle,
		Art:        &voice.Image{URL: b.CoverURL(s.ItemID), Width: 512, Height: 512},
		Background: &voice.Image{URL: b.backgroundURL, Width: 1600, Height: 900},
	}
}

// Play replaces the device queue with s at book time t. When speak is set
// the response announces the book.
func (b *Builder) Play(s *playback.Session, t float64, speak bool) voice.Response {
	track, offset := s.TrackAt(t)
	chapter := s.ChapterAt(t)

	resp := voice.Response{
		Directives: []voice.Directive{voice.PlayDirective(voice.ReplaceAll, voice.AudioItem{
			URL:          b.StreamURL(track),
			Token:        track.Token(),
			OffsetMillis: playback.Millis(offset),
			Metadata:     b.Metadata(chapter.Title, s),
		})},
	}
	if speak {
		resp.Speech = Announcement(s, t)
	}
	return resp
}

// Enqueue queues next behind the track identified by previousToken.
func (b *Builder) Enqueue(s *playback.Session, next playback.Track, previousToken string) voice.Response {
	chapter := s.ChapterAt(next.StartOffset)
	return voice.Response{
		Directives: []voice.Directive{voice.PlayDirective(voice.Enqueue, voice.AudioItem{
			URL:                   b.StreamURL(next),
			Token:                 next.Token(),
			ExpectedPreviousToken: previousToken,
			OffsetMillis:          0,
			Metadata:              b.Metadata(chapter.Title, s),
		})},
	}
}

// Stop stops the device player.
func (b *Builder) Stop() voice.Response {
	return voice.Response{Directives: []voice.Directive{voice.StopDirective()}}
}

// Announcement is the spoken line for starting s at book time t.
func Announcement(s *playback.Session, t float64) string {
	verb := "Playing"
	if t > 0 {
		verb = "Resuming"
	}
	if s.DisplayAuthor == "" {
		return fmt.Sprintf("%s %s", verb, s.DisplayTitle)
	}
	return fmt.Sprintf("%s %s by %s", verb, s.DisplayTitle, s.DisplayAuthor)
}
