// Package abs provides an HTTP client for the Audiobookshelf server API.
package abs

import (
	"github.com/maauso/audiobook-skill/internal/playback"
)

// Media types reported by libraries and items.
const (
	MediaTypeBook    = "book"
	MediaTypePodcast = "podcast"
)

// ItemOptions are the optional query flags of the item endpoint.
type ItemOptions struct {
	Include  []string // e.g. "progress"
	Expanded bool
	Episode  string
}

// Progress is the body of the sync and close endpoints.
type Progress struct {
	// CurrentTime is the book position in seconds.
	CurrentTime float64 `json:"currentTime"`
	// TimeListened is the wall-clock listening time since the last sync.
	TimeListened float64 `json:"timeListened"`
}

// MediaProgress is a user's stored progress on an item.
type MediaProgress struct {
	ID            string  `json:"id"`
	LibraryItemID string  `json:"libraryItemId"`
	EpisodeID     string  `json:"episodeId,omitempty"`
	Duration      float64 `json:"duration"`
	Progress      float64 `json:"progress"`
	CurrentTime   float64 `json:"currentTime"`
	IsFinished    bool    `json:"isFinished"`
	LastUpdate    int64   `json:"lastUpdate"`
}

// AuthorRef is the minified author shape.
type AuthorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BookMetadata holds the descriptive fields of a book.
type BookMetadata struct {
	Title      string      `json:"title"`
	Subtitle   string      `json:"subtitle,omitempty"`
	AuthorName string      `json:"authorName,omitempty"`
	Authors    []AuthorRef `json:"authors,omitempty"`
}

// Author returns the display author, preferring the flattened name.
func (m BookMetadata) Author() string {
	if m.AuthorName != "" {
		return m.AuthorName
	}
	if len(m.Authors) > 0 {
		return m.Authors[0].Name
	}
	return ""
}

// Media is the book payload of a library item.
type Media struct {
	Metadata  BookMetadata       `json:"metadata"`
	Duration  float64            `json:"duration"`
	CoverPath string             `json:"coverPath,omitempty"`
	Chapters  []playback.Chapter `json:"chapters,omitempty"`
}

// LibraryItem is a book or podcast in a library.
type LibraryItem struct {
	ID                string         `json:"id"`
	LibraryID         string         `json:"libraryId"`
	MediaType         string         `json:"mediaType"`
	Media             Media          `json:"media"`
	UserMediaProgress *MediaProgress `json:"userMediaProgress,omitempty"`
}

// Title returns the book title.
func (i LibraryItem) Title() string {
	return i.Media.Metadata.Title
}

// PlaybackSession is the server's answer to starting playback.
type PlaybackSession struct {
	ID            string             `json:"id"`
	LibraryID     string             `json:"libraryId"`
	LibraryItemID string             `json:"libraryItemId"`
	EpisodeID     string             `json:"episodeId,omitempty"`
	DisplayTitle  string             `json:"displayTitle"`
	DisplayAuthor string             `json:"displayAuthor"`
	CoverPath     string             `json:"coverPath,omitempty"`
	Duration      float64            `json:"duration"`
	CurrentTime   float64            `json:"currentTime"`
	UpdatedAt     int64              `json:"updatedAt"`
	MediaMetadata BookMetadata       `json:"mediaMetadata"`
	Chapters      []playback.Chapter `json:"chapters"`
	AudioTracks   []playback.Track   `json:"audioTracks"`
}

// Session converts the server session to the local playback model.
func (p *PlaybackSession) Session() *playback.Session {
	title := p.DisplayTitle
	if title == "" {
		title = p.MediaMetadata.Title
	}
	s := &playback.Session{
		ID:            p.ID,
		ItemID:        p.LibraryItemID,
		LibraryID:     p.LibraryID,
		EpisodeID:     p.EpisodeID,
		DisplayTitle:  title,
		DisplayAuthor: p.DisplayAuthor,
		Tracks:        append([]playback.Track(nil), p.AudioTracks...),
		Chapters:      append([]playback.Chapter(nil), p.Chapters...),
		CurrentTime:   p.CurrentTime,
		Duration:      p.Duration,
		LastSyncedAt:  p.UpdatedAt,
	}
	s.Normalize()
	return s
}

// LibrarySettings holds the library flags the skill cares about.
type LibrarySettings struct {
	AudiobooksOnly bool `json:"audiobooksOnly"`
}

// Library is a server library.
type Library struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	MediaType string          `json:"mediaType"`
	Settings  LibrarySettings `json:"settings"`
}

// FilterData lists the filterable values of a library.
type FilterData struct {
	Authors []AuthorRef `json:"authors"`
	Genres  []string    `json:"genres,omitempty"`
}

// AuthorWithItems is an author together with their library items.
type AuthorWithItems struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	LibraryItems []LibraryItem `json:"libraryItems"`
}

// SearchHit is one book result of a library search.
type SearchHit struct {
	LibraryItem LibraryItem `json:"libraryItem"`
	MatchKey    string      `json:"matchKey,omitempty"`
	MatchText   string      `json:"matchText,omitempty"`
}

// SearchResults is the response of the library search endpoint.
type SearchResults struct {
	Book []SearchHit `json:"book"`
}

// deviceInfo describes the playing device to the server.
type deviceInfo struct {
	DeviceID      string `json:"deviceId,omitempty"`
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	Manufacturer  string `json:"manufacturer"`
	Model         string `json:"model"`
	SDKVersion    int    `json:"sdkVersion"`
}

// playRequest is the body of the start-playback endpoint.
type playRequest struct {
	DeviceInfo         deviceInfo `json:"deviceInfo"`
	ForceDirectPlay    bool       `json:"forceDirectPlay"`
	ForceTranscode     bool       `json:"forceTranscode"`
	SupportedMimeTypes []string   `json:"supportedMimeTypes"`
	MediaPlayer        string     `json:"mediaPlayer"`
}

// supportedMimeTypes are the formats the device player can stream directly.
var supportedMimeTypes = []string{
	"audio/flac",
	"audio/mpeg",
	"audio/mp4",
	"audio/aac",
	"audio/x-aiff",
}

type itemsInProgressResponse struct {
	LibraryItems []LibraryItem `json:"libraryItems"`
}

type librariesResponse struct {
	Libraries []Library `json:"libraries"`
}
