package session

import (
	"context"
	"log/slog"

	"github.com/maauso/audiobook-skill/internal/voice"
)

// AudioPlayerEvent handles a device player lifecycle signal. Responses to
// these signals never carry speech.
func (c *Controller) AudioPlayerEvent(ctx context.Context, attrs Attributes, inv Invocation, sig voice.Signal, failure *voice.RequestError) Result {
	inv.Quiet = true
	inv.Announce = false

	switch sig {
	case voice.SignalStarted, voice.SignalStopped:
		return c.trackProgress(ctx, attrs, inv)
	case voice.SignalNearlyFinished:
		return c.nearlyFinished(ctx, attrs, inv)
	case voice.SignalFinished:
		return c.finished(ctx, attrs, inv)
	case voice.SignalFailed:
		return c.failed(ctx, attrs, inv, failure)
	default:
		c.logger.Debug("ignored audio player signal", slog.String("signal", string(sig)))
		return Result{Attributes: attrs.Clone()}
	}
}

// trackProgress syncs the reported position.
func (c *Controller) trackProgress(ctx context.Context, attrs Attributes, inv Invocation) Result {
	cur := attrs.Clone()
	s := cur.PlaySession
	if !s.Active() {
		return Result{Attributes: cur}
	}
	t, ok := position(s, inv)
	if !ok {
		return Result{Attributes: cur}
	}
	if err := c.sync(ctx, inv, s, t); err != nil {
		return c.syncFailed(cur, inv, err, voice.Response{})
	}
	return Result{Attributes: cur}
}

// nearlyFinished syncs and, when the book has a following track, enqueues it
// behind the current one.
func (c *Controller) nearlyFinished(ctx context.Context, attrs Attributes, inv Invocation) Result {
	cur := attrs.Clone()
	s := cur.PlaySession
	if !s.Active() {
		return Result{Attributes: cur}
	}
	t, ok := position(s, inv)
	if !ok {
		return Result{Attributes: cur}
	}
	if err := c.sync(ctx, inv, s, t); err != nil {
		return c.syncFailed(cur, inv, err, voice.Response{})
	}

	next, ok := s.NextTrack(inv.Player.Token)
	if !ok {
		if err := cur.SetPrefetched(false); err != nil {
			c.logger.Error("unexpected transition", slog.String("error", err.Error()))
		}
		return Result{Attributes: cur}
	}
	if err := cur.SetPrefetched(true); err != nil {
		c.logger.Error("unexpected transition", slog.String("error", err.Error()))
	}
	return Result{Attributes: cur, Response: c.builder.Enqueue(s, next, inv.Player.Token)}
}

// finished handles the end of a track. With the next track enqueued this is
// a plain track change; otherwise the book is over and the session closes.
func (c *Controller) finished(ctx context.Context, attrs Attributes, inv Invocation) Result {
	cur := attrs.Clone()
	s := cur.PlaySession
	if !s.Active() {
		cur.Clear()
		return Result{Attributes: cur}
	}
	t, hasPosition := position(s, inv)

	if cur.NextTrackPrefetched {
		if hasPosition {
			if err := c.sync(ctx, inv, s, t); err != nil {
				return c.syncFailed(cur, inv, err, voice.Response{})
			}
		}
		if err := cur.SetPrefetched(false); err != nil {
			c.logger.Error("unexpected transition", slog.String("error", err.Error()))
		}
		return Result{Attributes: cur}
	}

	if hasPosition {
		c.close(ctx, inv, s, t)
	}
	c.logger.Info("book finished",
		slog.String("session_id", s.ID),
		slog.String("book", s.DisplayTitle),
	)
	cur.Clear()
	return Result{Attributes: cur}
}

// failed closes the session best-effort; a failed stream cannot be resumed
// from the device timeline.
func (c *Controller) failed(ctx context.Context, attrs Attributes, inv Invocation, failure *voice.RequestError) Result {
	cur := attrs.Clone()
	s := cur.PlaySession
	attrsLog := []any{slog.String("event", inv.Event)}
	if failure != nil {
		attrsLog = append(attrsLog, slog.String("error_type", failure.Type), slog.String("error", failure.Message))
	}
	c.logger.Warn("playback failed", attrsLog...)

	if s.Active() {
		t, ok := position(s, inv)
		if !ok {
			t = s.CurrentTime
		}
		c.close(ctx, inv, s, t)
	}
	cur.Clear()
	return Result{Attributes: cur}
}
