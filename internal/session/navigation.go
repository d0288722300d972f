package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/maauso/audiobook-skill/internal/playback"
	"github.com/maauso/audiobook-skill/internal/voice"
)

// navigate resolves the device position and moves playback to the target
// computed from it. A nil target response from pick means "move"; a non-nil
// response is returned as is without touching the server.
func (c *Controller) navigate(ctx context.Context, attrs Attributes, inv Invocation,
	pick func(s *playback.Session, now float64) (float64, *voice.Response)) Result {
	cur := attrs.Clone()
	s := cur.PlaySession
	if !s.Active() || inv.Player == nil {
		return Result{Attributes: cur, Response: say(inv, PhraseNotPlaying)}
	}
	now, ok := position(s, inv)
	if !ok {
		c.logger.Warn("device position missing",
			slog.String("event", inv.Event),
			slog.String("session_id", s.ID),
		)
		return Result{Attributes: cur, Response: say(inv, PhraseSomethingWrong)}
	}

	target, early := pick(s, now)
	if early != nil {
		return Result{Attributes: cur, Response: *early}
	}
	return c.playAt(ctx, cur, inv, target)
}

// Next jumps to the start of the following chapter. In the last chapter it
// says so and leaves everything unchanged.
func (c *Controller) Next(ctx context.Context, attrs Attributes, inv Invocation) Result {
	return c.navigate(ctx, attrs, inv, func(s *playback.Session, now float64) (float64, *voice.Response) {
		start, ok := s.NextChapterStart(now)
		if !ok {
			resp := say(inv, PhraseLastChapter)
			return 0, &resp
		}
		return start, nil
	})
}

// Previous restarts the current chapter, or moves to the previous one when
// playback is near the chapter start.
func (c *Controller) Previous(ctx context.Context, attrs Attributes, inv Invocation) Result {
	return c.navigate(ctx, attrs, inv, func(s *playback.Session, now float64) (float64, *voice.Response) {
		return s.PreviousChapterStart(now), nil
	})
}

// Seek moves playback by delta, clamped to the book.
func (c *Controller) Seek(ctx context.Context, attrs Attributes, inv Invocation, delta time.Duration) Result {
	return c.navigate(ctx, attrs, inv, func(s *playback.Session, now float64) (float64, *voice.Response) {
		return playback.Clamp(now+delta.Seconds(), s.Duration), nil
	})
}

// Pause records the device position and stops the player. The session stays
// open. Without a usable device position the player is stopped and the
// server is left untouched.
func (c *Controller) Pause(ctx context.Context, attrs Attributes, inv Invocation) Result {
	cur := attrs.Clone()
	if inv.Player == nil {
		return Result{Attributes: cur, Response: say(inv, PhraseNotPlayingNow)}
	}

	stop := c.builder.Stop()
	s := cur.PlaySession
	if !s.Active() {
		return Result{Attributes: cur, Response: stop}
	}
	t, ok := position(s, inv)
	if !ok {
		c.logger.Info("pause without device position; progress not synced",
			slog.String("event", inv.Event),
			slog.String("session_id", s.ID),
		)
		return Result{Attributes: cur, Response: stop}
	}
	if err := c.sync(ctx, inv, s, t); err != nil {
		return c.syncFailed(cur, inv, err, stop)
	}
	return Result{Attributes: cur, Response: stop}
}

// Stop closes the session and ends the conversation. Local state is dropped
// only when the server confirmed the close.
func (c *Controller) Stop(ctx context.Context, attrs Attributes, inv Invocation) Result {
	cur := attrs.Clone()
	resp := c.builder.Stop()
	resp.EndSession = voice.Bool(true)
	if !inv.Quiet {
		resp.Speech = PhraseGoodbye
	}

	s := cur.PlaySession
	if !s.Active() {
		return Result{Attributes: cur, Response: resp}
	}
	t, ok := position(s, inv)
	if !ok {
		c.logger.Info("stop without device position; session left open",
			slog.String("event", inv.Event),
			slog.String("session_id", s.ID),
		)
		return Result{Attributes: cur, Response: resp}
	}
	if c.close(ctx, inv, s, t) {
		cur.Clear()
	}
	return Result{Attributes: cur, Response: resp}
}

// SessionEnded closes the session best-effort and always drops local state.
func (c *Controller) SessionEnded(ctx context.Context, attrs Attributes, inv Invocation) Result {
	cur := attrs.Clone()
	if s := cur.PlaySession; s.Active() {
		if t, ok := position(s, inv); ok {
			c.close(ctx, inv, s, t)
		}
	}
	cur.Clear()
	return Result{Attributes: cur}
}
