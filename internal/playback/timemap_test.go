package playback

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTrackSession() *Session {
	return &Session{
		ID:     "sess-1",
		ItemID: "li_1",
		Tracks: []Track{
			{Index: 1, StartOffset: 0, Duration: 100, ContentURL: "/s/1.mp3"},
			{Index: 2, StartOffset: 100, Duration: 50, ContentURL: "/s/2.mp3"},
		},
		Chapters: []Chapter{
			{ID: 0, Start: 0, End: 60, Title: "One"},
			{ID: 1, Start: 60, End: 120, Title: "Two"},
			{ID: 2, Start: 120, End: 150, Title: "Three"},
		},
		Duration: 150,
	}
}

func TestBookTimeAt(t *testing.T) {
	s := twoTrackSession()

	tests := []struct {
		name   string
		token  string
		offset int64
		want   float64
	}{
		{"second track", "2", 5000, 105.0},
		{"first track start", "1", 0, 0},
		{"padded token", " 1 ", 1500, 1.5},
		{"unknown index", "9", 5000, 0},
		{"non numeric token", "track-2", 5000, 0},
		{"empty token", "", 5000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.BookTimeAt(tt.token, tt.offset), 1e-9)
		})
	}
}

func TestTrackAt(t *testing.T) {
	s := twoTrackSession()

	tr, off := s.TrackAt(42.5)
	assert.Equal(t, 1, tr.Index)
	assert.InDelta(t, 42.5, off, 1e-9)

	// A boundary belongs to the following track.
	tr, off = s.TrackAt(100)
	assert.Equal(t, 2, tr.Index)
	assert.InDelta(t, 0, off, 1e-9)

	// Past the end falls back to the first track.
	tr, off = s.TrackAt(150)
	assert.Equal(t, 1, tr.Index)
	assert.Zero(t, off)

	tr, off = s.TrackAt(-3)
	assert.Equal(t, 1, tr.Index)
	assert.Zero(t, off)
}

func TestTrackAt_RoundTrip(t *testing.T) {
	s := twoTrackSession()

	for bt := 0.0; bt < s.Duration; bt += 0.25 {
		tr, off := s.TrackAt(bt)
		require.GreaterOrEqual(t, off, 0.0)
		require.Less(t, off, tr.Duration)
		got := s.BookTimeAt(tr.Token(), Millis(off))
		require.InDelta(t, bt, got, 1e-3, "book time %v", bt)
	}
}

func TestChapterAt(t *testing.T) {
	s := twoTrackSession()

	assert.Equal(t, "One", s.ChapterAt(0).Title)
	assert.Equal(t, "Two", s.ChapterAt(61).Title)
	// Shared boundary resolves to the earlier chapter.
	assert.Equal(t, "One", s.ChapterAt(60).Title)
	assert.Equal(t, "Three", s.ChapterAt(150).Title)
	// Out of range falls back to the first chapter.
	assert.Equal(t, "One", s.ChapterAt(500).Title)

	for bt := 0.0; bt <= s.Duration; bt += 0.5 {
		assert.NotEmpty(t, s.ChapterAt(bt).Title)
	}
}

func TestNextChapterStart(t *testing.T) {
	s := twoTrackSession()

	start, ok := s.NextChapterStart(10)
	require.True(t, ok)
	assert.InDelta(t, 60, start, 1e-9)

	_, ok = s.NextChapterStart(130)
	assert.False(t, ok)
}

func TestPreviousChapterStart(t *testing.T) {
	s := twoTrackSession()

	tests := []struct {
		name string
		at   float64
		want float64
	}{
		{"past threshold restarts chapter", 65.001, 60},
		{"within threshold goes back", 64.999, 0},
		{"first chapter restarts itself", 3, 0},
		{"deep into last chapter", 140, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.PreviousChapterStart(tt.at), 1e-9)
		})
	}
}

func TestNextTrack(t *testing.T) {
	s := twoTrackSession()

	next, ok := s.NextTrack("1")
	require.True(t, ok)
	assert.Equal(t, 2, next.Index)

	_, ok = s.NextTrack("2")
	assert.False(t, ok)

	_, ok = s.NextTrack("bogus")
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-20, 150))
	assert.Equal(t, 145.0, Clamp(150, 150))
	assert.Equal(t, 145.0, Clamp(900, 150))
	assert.Equal(t, 0.0, Clamp(10, 3))
	assert.Equal(t, 75.0, Clamp(75, 150))
}

func TestListenedSince(t *testing.T) {
	s := &Session{LastSyncedAt: 1_000_000}

	assert.InDelta(t, 12.5, s.ListenedSince(1_012_500), 1e-9)
	assert.Zero(t, s.ListenedSince(999_000))
	assert.Zero(t, (&Session{}).ListenedSince(5_000))
}

func TestNormalize(t *testing.T) {
	s := &Session{
		DisplayTitle: "Dune",
		Tracks: []Track{
			{Index: 1, StartOffset: 0, Duration: 30},
			{Index: 2, StartOffset: 30, Duration: 20},
		},
	}
	s.Normalize()

	assert.InDelta(t, 50, s.Duration, 1e-9)
	require.Len(t, s.Chapters, 1)
	assert.Equal(t, "Dune", s.Chapters[0].Title)
	assert.InDelta(t, 50, s.Chapters[0].End, 1e-9)
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := twoTrackSession()
	c := s.Clone()
	c.Tracks[0].ContentURL = "changed"
	c.Chapters[0].Title = "changed"

	assert.Equal(t, "/s/1.mp3", s.Tracks[0].ContentURL)
	assert.Equal(t, "One", s.Chapters[0].Title)
	assert.Nil(t, (*Session)(nil).Clone())
}

func TestSession_JSONShape(t *testing.T) {
	raw := `{"id":"s","libraryItemId":"li","displayTitle":"T","displayAuthor":"A",
		"audioTracks":[{"index":1,"startOffset":0,"duration":10,"contentUrl":"/a"}],
		"chapters":[{"id":0,"start":0,"end":10,"title":"C"}],
		"currentTime":4,"duration":10,"updatedAt":1700000000000}`

	var s Session
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.True(t, s.Active())
	assert.Equal(t, "li", s.ItemID)
	assert.Equal(t, int64(1700000000000), s.LastSyncedAt)
	assert.Equal(t, "/a", s.Tracks[0].ContentURL)
}
