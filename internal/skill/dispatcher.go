// Package skill routes classified platform events to the session controller
// and persists the device attributes around every invocation.
package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sosodev/duration"

	"github.com/maauso/audiobook-skill/internal/catalog"
	"github.com/maauso/audiobook-skill/internal/session"
	"github.com/maauso/audiobook-skill/internal/storage"
	"github.com/maauso/audiobook-skill/internal/voice"
)

// Slot names read by the dispatcher.
const (
	SlotTitle  = "object.name"
	SlotAuthor = "object.author.name"
	SlotTime   = "time"
)

// ErrDeviceIDRequired is returned when an event carries no device id.
var ErrDeviceIDRequired = errors.New("skill: device ID is required")

// BookResolver finds the library item for a spoken title.
type BookResolver interface {
	Resolve(ctx context.Context, q catalog.Query) (string, error)
}

// Dispatcher handles one event per call: it loads the device attributes,
// routes the event, and saves the resulting attributes.
type Dispatcher struct {
	store      storage.AttributeStore
	controller *session.Controller
	books      BookResolver
	logger     *slog.Logger
}

// Option is a function that configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store storage.AttributeStore, controller *session.Controller, books BookResolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		controller: controller,
		books:      books,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle answers ev. The attributes are saved when Handle returns, also
// when routing panicked, in which case the loaded attributes are saved
// unchanged and an apology is returned.
func (d *Dispatcher) Handle(ctx context.Context, ev voice.Event) (resp voice.Response, err error) {
	if ev.DeviceID == "" {
		return voice.Response{}, ErrDeviceIDRequired
	}

	attrs, err := d.store.Load(ctx, ev.DeviceID)
	if err != nil {
		d.logger.Error("load attributes failed",
			slog.String("device_id", ev.DeviceID),
			slog.String("error", err.Error()),
		)
		return apology(ev), nil
	}

	final := attrs
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling event",
				slog.String("event", eventName(ev)),
				slog.Any("panic", r),
			)
			resp = apology(ev)
			err = nil
		}
		if saveErr := d.store.Save(context.WithoutCancel(ctx), ev.DeviceID, final); saveErr != nil {
			d.logger.Error("save attributes failed",
				slog.String("device_id", ev.DeviceID),
				slog.String("error", saveErr.Error()),
			)
		}
	}()

	res := d.route(ctx, attrs, ev)
	final = res.Attributes
	return res.Response, nil
}

func (d *Dispatcher) route(ctx context.Context, attrs session.Attributes, ev voice.Event) session.Result {
	inv := session.Invocation{
		DeviceID: ev.DeviceID,
		Event:    eventName(ev),
		Player:   ev.Player,
	}
	unchanged := func(resp voice.Response) session.Result {
		return session.Result{Attributes: attrs, Response: resp}
	}

	switch ev.Kind {
	case voice.KindLaunch:
		return unchanged(voice.Ask(PhraseWelcome, PhraseWelcome))

	case voice.KindIntent:
		return d.intent(ctx, attrs, inv, ev)

	case voice.KindAudioPlayer:
		return d.controller.AudioPlayerEvent(ctx, attrs, inv, ev.Signal, ev.Err)

	case voice.KindPlaybackController:
		inv.Quiet = true
		switch ev.Signal {
		case voice.SignalPlayCommand:
			return d.controller.Play(ctx, attrs, inv, "")
		case voice.SignalPauseCommand:
			return d.controller.Pause(ctx, attrs, inv)
		case voice.SignalNextCommand:
			return d.controller.Next(ctx, attrs, inv)
		case voice.SignalPreviousCommand:
			return d.controller.Previous(ctx, attrs, inv)
		}
		d.logger.Debug("ignored playback controller signal", slog.String("signal", string(ev.Signal)))
		return unchanged(voice.Response{})

	case voice.KindSystemException:
		logAttrs := []any{slog.String("request_id", ev.RequestID)}
		if ev.Err != nil {
			logAttrs = append(logAttrs, slog.String("error_type", ev.Err.Type), slog.String("error", ev.Err.Message))
		}
		d.logger.Warn("system exception encountered", logAttrs...)
		return unchanged(voice.Response{})

	case voice.KindSessionEnded:
		d.logger.Info("session ended", slog.String("reason", ev.Reason))
		return d.controller.SessionEnded(ctx, attrs, inv)
	}

	d.logger.Warn("unhandled request type", slog.String("type", ev.RequestType))
	return unchanged(voice.Response{})
}

func (d *Dispatcher) intent(ctx context.Context, attrs session.Attributes, inv session.Invocation, ev voice.Event) session.Result {
	switch ev.Intent {
	case voice.IntentPlay:
		inv.Announce = true
		return d.controller.Play(ctx, attrs, inv, "")
	case voice.IntentPlayBook:
		return d.playBook(ctx, attrs, inv, ev)
	case voice.IntentPause:
		return d.controller.Pause(ctx, attrs, inv)
	case voice.IntentNext:
		return d.controller.Next(ctx, attrs, inv)
	case voice.IntentPrevious:
		inv.Announce = true
		return d.controller.Previous(ctx, attrs, inv)
	case voice.IntentForward, voice.IntentBack:
		delta, err := seekDelta(ev)
		if err != nil {
			d.logger.Warn("invalid seek duration",
				slog.String("slot", ev.Slot(SlotTime, false)),
				slog.String("error", err.Error()),
			)
			return session.Result{Attributes: attrs, Response: voice.Speak(PhraseSeekNotHeard)}
		}
		inv.Announce = true
		return d.controller.Seek(ctx, attrs, inv, delta)
	case voice.IntentHelp:
		return session.Result{Attributes: attrs, Response: voice.Ask(PhraseHelp, PhraseHelp)}
	case voice.IntentCancel:
		return d.controller.Stop(ctx, attrs, inv)
	case voice.IntentUnsupported:
		return session.Result{Attributes: attrs, Response: voice.Speak(PhraseUnsupported)}
	}
	return session.Result{Attributes: attrs, Response: voice.Ask(PhraseFallback, PhraseFallbackReprompt)}
}

func (d *Dispatcher) playBook(ctx context.Context, attrs session.Attributes, inv session.Invocation, ev voice.Event) session.Result {
	q := catalog.Query{
		Title:  ev.Slot(SlotTitle, false),
		Author: ev.Slot(SlotAuthor, false),
	}
	if s, ok := ev.Slots[SlotTitle]; ok {
		q.ResolvedTitle = s.Resolved()
	}
	if s, ok := ev.Slots[SlotAuthor]; ok {
		q.ResolvedAuthor = s.Resolved()
	}
	if q.Title == "" {
		return session.Result{Attributes: attrs, Response: voice.Ask(PhraseBookNotHeard, PhraseBookNotHeard)}
	}

	itemID, err := d.books.Resolve(ctx, q)
	switch {
	case errors.Is(err, catalog.ErrNoMatch):
		d.logger.Info("no book matched", slog.String("title", q.Title), slog.String("author", q.Author))
		text := bookNotFound(q.Title)
		return session.Result{Attributes: attrs, Response: voice.Ask(text, text)}
	case err != nil:
		d.logger.Error("book lookup failed",
			slog.String("title", q.Title),
			slog.String("error", err.Error()),
		)
		return session.Result{Attributes: attrs, Response: voice.Speak(session.PhraseServerUnavailable)}
	}

	inv.Announce = true
	return d.controller.Play(ctx, attrs, inv, itemID)
}

// seekDelta reads the ISO-8601 duration slot; backward intents negate it.
func seekDelta(ev voice.Event) (time.Duration, error) {
	raw := ev.Slot(SlotTime, false)
	if raw == "" {
		return 0, fmt.Errorf("missing %s slot", SlotTime)
	}
	d, err := duration.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	delta := d.ToTimeDuration()
	if delta < 0 {
		delta = -delta
	}
	if ev.Intent == voice.IntentBack {
		delta = -delta
	}
	return delta, nil
}

// apology is the response for an invocation that could not be handled.
// Player events must not carry speech.
func apology(ev voice.Event) voice.Response {
	if ev.Kind == voice.KindAudioPlayer || ev.Kind == voice.KindPlaybackController {
		return voice.Response{}
	}
	return voice.Speak(PhraseTrouble)
}

func eventName(ev voice.Event) string {
	if ev.IntentName != "" {
		return ev.RequestType + ":" + ev.IntentName
	}
	return ev.RequestType
}
