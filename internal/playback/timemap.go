package playback

import "math"

// PreviousChapterThreshold is how far into a chapter a "previous" request
// restarts the chapter instead of moving to the one before it.
const PreviousChapterThreshold = 5.0

// seekTailMargin keeps a clamped forward seek slightly before the end so the
// player still has something to play.
const seekTailMargin = 5.0

// TrackByToken returns the track whose index matches token.
func (s *Session) TrackByToken(token string) (Track, bool) {
	idx, ok := ParseToken(token)
	if !ok {
		return Track{}, false
	}
	for _, t := range s.Tracks {
		if t.Index == idx {
			return t, true
		}
	}
	return Track{}, false
}

// BookTimeAt maps a device position to book time. An unknown token maps to 0.
func (s *Session) BookTimeAt(token string, offsetMillis int64) float64 {
	t, ok := s.TrackByToken(token)
	if !ok {
		return 0
	}
	return t.StartOffset + float64(offsetMillis)/1000
}

// TrackAt returns the track containing book time t and the offset into it.
// Intervals are half-open, so a boundary belongs to the following track.
// When no track contains t the first track and a zero offset are returned.
func (s *Session) TrackAt(t float64) (Track, float64) {
	for _, tr := range s.Tracks {
		if t >= tr.StartOffset && t < tr.End() {
			return tr, t - tr.StartOffset
		}
	}
	if len(s.Tracks) == 0 {
		return Track{}, 0
	}
	return s.Tracks[0], 0
}

// ChapterIndex returns the index of the chapter containing book time t.
// Chapter bounds are inclusive on both ends and the first match wins, so a
// shared boundary belongs to the earlier chapter. Falls back to 0.
func (s *Session) ChapterIndex(t float64) int {
	for i, c := range s.Chapters {
		if t >= c.Start && t <= c.End {
			return i
		}
	}
	return 0
}

// ChapterAt returns the chapter containing book time t, or the first chapter.
func (s *Session) ChapterAt(t float64) Chapter {
	if len(s.Chapters) == 0 {
		return Chapter{}
	}
	return s.Chapters[s.ChapterIndex(t)]
}

// NextChapterStart returns the start of the chapter after the one containing
// t. ok is false when t is in the last chapter.
func (s *Session) NextChapterStart(t float64) (start float64, ok bool) {
	i := s.ChapterIndex(t)
	if i+1 >= len(s.Chapters) {
		return 0, false
	}
	return s.Chapters[i+1].Start, true
}

// PreviousChapterStart returns where a "previous" request should land: the
// start of the current chapter when more than PreviousChapterThreshold
// seconds into it, otherwise the start of the chapter before it. The first
// chapter restarts itself.
func (s *Session) PreviousChapterStart(t float64) float64 {
	if len(s.Chapters) == 0 {
		return 0
	}
	i := s.ChapterIndex(t)
	cur := s.Chapters[i]
	if t-cur.Start > PreviousChapterThreshold {
		return cur.Start
	}
	if i == 0 {
		return cur.Start
	}
	return s.Chapters[i-1].Start
}

// NextTrack returns the track following the one identified by token.
func (s *Session) NextTrack(token string) (Track, bool) {
	idx, ok := ParseToken(token)
	if !ok {
		return Track{}, false
	}
	for _, t := range s.Tracks {
		if t.Index == idx+1 {
			return t, true
		}
	}
	return Track{}, false
}

// ListenedSince returns the wall-clock seconds elapsed between the last sync
// and nowMillis. It never goes negative.
func (s *Session) ListenedSince(nowMillis int64) float64 {
	if s.LastSyncedAt <= 0 || nowMillis <= s.LastSyncedAt {
		return 0
	}
	return float64(nowMillis-s.LastSyncedAt) / 1000
}

// Clamp bounds a seek target to the book: negative targets go to 0 and
// targets at or past total go to total-5, never below 0.
func Clamp(t, total float64) float64 {
	if t < 0 {
		return 0
	}
	if t >= total {
		return math.Max(0, total-seekTailMargin)
	}
	return t
}

// Millis converts seconds to whole milliseconds for the device player.
func Millis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
