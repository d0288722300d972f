// Package playback holds the play-session model shared by the skill and the
// pure time-mapping functions that convert between book time and the
// (track, offset) pairs a device player reports.
//
// All times are seconds as float64 unless a name says otherwise. Nothing in
// this package performs I/O.
package playback

import (
	"strconv"
	"strings"
)

// Track is one contiguous audio file of a book.
type Track struct {
	// Index is the 1-based position of the track. Its decimal form is the
	// token handed to the device player.
	Index int `json:"index"`
	// StartOffset is the book time at which the track begins.
	StartOffset float64 `json:"startOffset"`
	// Duration is the track length.
	Duration float64 `json:"duration"`
	// ContentURL is the server-relative path of the audio stream.
	ContentURL string `json:"contentUrl"`
	MimeType   string `json:"mimeType,omitempty"`
	Title      string `json:"title,omitempty"`
}

// End returns the book time at which the track stops.
func (t Track) End() float64 {
	return t.StartOffset + t.Duration
}

// Token returns the player token that identifies the track.
func (t Track) Token() string {
	return strconv.Itoa(t.Index)
}

// Chapter is a titled span of book time.
type Chapter struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title"`
}

// Session is the locally persisted mirror of a play session opened on the
// media server.
type Session struct {
	// ID is the server session id. An empty ID means there is no session.
	ID        string `json:"id"`
	ItemID    string `json:"libraryItemId"`
	LibraryID string `json:"libraryId,omitempty"`
	// EpisodeID is reserved for podcast items and unused for books.
	EpisodeID     string    `json:"episodeId,omitempty"`
	DisplayTitle  string    `json:"displayTitle"`
	DisplayAuthor string    `json:"displayAuthor"`
	Tracks        []Track   `json:"audioTracks"`
	Chapters      []Chapter `json:"chapters"`
	// CurrentTime is the last known book position.
	CurrentTime float64 `json:"currentTime"`
	// Duration is the total book length.
	Duration float64 `json:"duration"`
	// LastSyncedAt is the epoch milliseconds of the last successful sync.
	LastSyncedAt int64 `json:"updatedAt"`
}

// Active reports whether s refers to an open server session.
func (s *Session) Active() bool {
	return s != nil && s.ID != ""
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Tracks = append([]Track(nil), s.Tracks...)
	c.Chapters = append([]Chapter(nil), s.Chapters...)
	return &c
}

// Normalize fills in derived fields: Duration from the track list when the
// server did not report it, and a single whole-book chapter when the server
// reported none.
func (s *Session) Normalize() {
	if s.Duration <= 0 && len(s.Tracks) > 0 {
		last := s.Tracks[len(s.Tracks)-1]
		s.Duration = last.End()
	}
	if len(s.Chapters) == 0 {
		s.Chapters = []Chapter{{ID: 0, Start: 0, End: s.Duration, Title: s.DisplayTitle}}
	}
}

// ParseToken converts a player token to a track index.
func ParseToken(token string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, false
	}
	return n, true
}
