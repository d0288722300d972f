package session

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/audiobook-skill/internal/abs"
	"github.com/maauso/audiobook-skill/internal/playback"
	"github.com/maauso/audiobook-skill/internal/voice"
)

// Play starts or resumes playback. An open session resumes from its last
// known position unless itemID names a different item, in which case the
// open session is closed first. Without an open session, itemID or else the
// user's most recent in-progress item is started.
func (c *Controller) Play(ctx context.Context, attrs Attributes, inv Invocation, itemID string) Result {
	cur := attrs.Clone()

	if s := cur.PlaySession; s.Active() && itemID != "" && itemID != s.ItemID {
		c.close(ctx, inv, s, s.CurrentTime)
		cur.Clear()
	}

	if s := cur.PlaySession; s.Active() {
		err := c.sync(ctx, inv, s, s.CurrentTime)
		if err == nil {
			return c.replace(cur, inv, s, s.CurrentTime)
		}
		if !abs.IsNotFound(err) {
			return c.syncFailed(cur, inv, err, voice.Response{})
		}
		// The server forgot the session; open a fresh one for the same book.
		itemID = s.ItemID
		cur.Clear()
	}

	return c.start(ctx, cur, inv, itemID)
}

// start opens a new remote session for itemID, or the last in-progress item
// when itemID is empty.
func (c *Controller) start(ctx context.Context, cur Attributes, inv Invocation, itemID string) Result {
	if itemID == "" {
		last, err := c.client.LastInProgressItem(ctx)
		if err != nil {
			c.logger.Error("fetch last in-progress item failed",
				slog.String("event", inv.Event),
				slog.String("error", err.Error()),
			)
			return Result{Attributes: cur, Response: say(inv, PhraseServerUnavailable)}
		}
		if last == nil {
			if inv.Quiet {
				return Result{Attributes: cur}
			}
			return Result{Attributes: cur, Response: voice.Ask(PhraseWhatToPlay, PhraseWhatToPlay)}
		}
		itemID = last.ID
	}

	var (
		item     *abs.LibraryItem
		started  *abs.PlaybackSession
		startErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		item, err = c.client.Item(gctx, itemID, abs.ItemOptions{Include: []string{"progress"}, Expanded: true})
		return err
	})
	g.Go(func() error {
		started, startErr = c.client.StartSession(gctx, itemID, inv.DeviceID)
		return startErr
	})
	if err := g.Wait(); err != nil {
		c.logger.Error("start playback failed",
			slog.String("event", inv.Event),
			slog.String("item_id", itemID),
			slog.Int("status", abs.StatusCode(err)),
			slog.String("class", abs.ErrorClass(err)),
			slog.String("error", err.Error()),
		)
		if startErr == nil && started != nil {
			// The server opened a session nobody will use.
			orphan := started.Session()
			c.close(ctx, inv, orphan, seedPosition(nil, orphan))
		}
		if abs.IsNotFound(startErr) {
			return Result{Attributes: cur, Response: say(inv, PhraseNoPlayableAudio)}
		}
		return Result{Attributes: cur, Response: say(inv, PhraseServerUnavailable)}
	}

	s := started.Session()
	t := seedPosition(item, s)

	if err := c.sync(ctx, inv, s, t); err != nil {
		c.close(ctx, inv, s, t)
		return Result{Attributes: cur, Response: say(inv, PhraseServerUnavailable)}
	}

	c.logger.Info("play session started",
		slog.String("event", inv.Event),
		slog.String("session_id", s.ID),
		slog.String("book", s.DisplayTitle),
		slog.Float64("position", t),
	)
	return c.replace(cur, inv, s, t)
}

// replace activates s and answers with a REPLACE_ALL directive at t.
func (c *Controller) replace(cur Attributes, inv Invocation, s *playback.Session, t float64) Result {
	if err := cur.Start(s); err != nil {
		c.logger.Error("unexpected transition", slog.String("error", err.Error()))
	}
	return Result{Attributes: cur, Response: c.builder.Play(s, t, inv.Announce && !inv.Quiet)}
}

// seedPosition picks the start position of a fresh session: the user's
// stored progress when it lies within the book, otherwise the position the
// server reported for the session.
func seedPosition(item *abs.LibraryItem, s *playback.Session) float64 {
	if item != nil && item.UserMediaProgress != nil {
		t := item.UserMediaProgress.CurrentTime
		if t < 0 || t > s.Duration {
			return 0
		}
		return t
	}
	if s.CurrentTime < 0 || s.CurrentTime > s.Duration {
		return 0
	}
	return s.CurrentTime
}
