package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/maauso/audiobook-skill/internal/abs"
	"github.com/maauso/audiobook-skill/internal/directive"
	"github.com/maauso/audiobook-skill/internal/playback"
	"github.com/maauso/audiobook-skill/internal/voice"
)

// Phrases spoken by the controller.
const (
	PhraseNotPlaying        = "I'm not playing anything at the moment"
	PhraseNotPlayingNow     = "I'm not playing anything right now."
	PhraseSomethingWrong    = "Something went wrong"
	PhraseLastChapter       = "This is the last chapter."
	PhraseWhatToPlay        = "What would you like to play?"
	PhraseNoPlayableAudio   = "Sorry, I couldn't find any playable audio for that book."
	PhraseSessionExpired    = "Sorry, your listening session has ended on the server. Say play audiobook to start again."
	PhraseServerUnavailable = "Sorry, I'm having trouble reaching your audiobook server. Please try again."
	PhraseGoodbye           = "Goodbye!"
)

// Invocation is what the controller needs to know about the current request.
type Invocation struct {
	// DeviceID identifies the device for new server sessions.
	DeviceID string
	// Event names the request for logging.
	Event string
	// Player is the device player position, nil when not reported.
	Player *voice.PlayerState
	// Announce makes play responses say what is playing.
	Announce bool
	// Quiet suppresses all speech. Audio-player and playback-controller
	// requests must not carry speech.
	Quiet bool
}

// Result is the outcome of a controller operation.
type Result struct {
	Attributes Attributes
	Response   voice.Response
}

// Controller drives the playback session lifecycle. Operations never return
// errors: every failure becomes a degraded but valid response.
type Controller struct {
	client  abs.Client
	builder *directive.Builder
	logger  *slog.Logger
	now     func() time.Time
}

// Option is a function that configures a Controller.
type Option func(*Controller)

// WithClock sets the wall clock used for listening time.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates a Controller.
func NewController(client abs.Client, builder *directive.Builder, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		builder: builder,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// say speaks text unless the invocation is quiet.
func say(inv Invocation, text string) voice.Response {
	if inv.Quiet {
		return voice.Response{}
	}
	return voice.Speak(text)
}

func (c *Controller) progress(s *playback.Session, t float64) abs.Progress {
	return abs.Progress{CurrentTime: t, TimeListened: s.ListenedSince(c.now().UnixMilli())}
}

// sync reports position t and, on success, records it as the last known
// position.
func (c *Controller) sync(ctx context.Context, inv Invocation, s *playback.Session, t float64) error {
	now := c.now().UnixMilli()
	p := abs.Progress{CurrentTime: t, TimeListened: s.ListenedSince(now)}
	if err := c.client.SyncSession(ctx, s.ID, p); err != nil {
		c.logger.Error("sync session failed",
			slog.String("event", inv.Event),
			slog.String("session_id", s.ID),
			slog.String("book", s.DisplayTitle),
			slog.Int("status", abs.StatusCode(err)),
			slog.String("class", abs.ErrorClass(err)),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.CurrentTime = t
	s.LastSyncedAt = now
	return nil
}

// syncFailed turns a failed sync into a response. A session the server no
// longer knows is dropped; any other failure keeps local state.
func (c *Controller) syncFailed(attrs Attributes, inv Invocation, err error, resp voice.Response) Result {
	text := PhraseServerUnavailable
	if abs.IsNotFound(err) {
		attrs.Clear()
		text = PhraseSessionExpired
	}
	if !inv.Quiet {
		resp.Speech = text
	}
	return Result{Attributes: attrs, Response: resp}
}

// close closes s best-effort at book time t.
func (c *Controller) close(ctx context.Context, inv Invocation, s *playback.Session, t float64) bool {
	ok := c.client.CloseSession(ctx, s.ID, c.progress(s, t))
	if ok {
		c.logger.Info("play session closed",
			slog.String("event", inv.Event),
			slog.String("session_id", s.ID),
			slog.String("book", s.DisplayTitle),
			slog.Float64("position", t),
		)
	}
	return ok
}

// position is the device-reported book time. ok is false when the device
// did not report a token and offset, or when the token names no track of s
// (a stale token from another book, or garbage).
func position(s *playback.Session, inv Invocation) (float64, bool) {
	if !inv.Player.Valid() {
		return 0, false
	}
	if _, ok := s.TrackByToken(inv.Player.Token); !ok {
		return 0, false
	}
	return s.BookTimeAt(inv.Player.Token, inv.Player.OffsetMillis), true
}

// playAt syncs target and replaces the device queue with it.
func (c *Controller) playAt(ctx context.Context, attrs Attributes, inv Invocation, target float64) Result {
	s := attrs.PlaySession
	if err := c.sync(ctx, inv, s, target); err != nil {
		return c.syncFailed(attrs, inv, err, voice.Response{})
	}
	return c.replace(attrs, inv, s, target)
}
