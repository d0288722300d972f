package voice

import "strings"

// Kind is the broad class of a platform request.
type Kind string

// Request kinds.
const (
	KindUnknown            Kind = "unknown"
	KindLaunch             Kind = "launch"
	KindIntent             Kind = "intent"
	KindAudioPlayer        Kind = "audio_player"
	KindPlaybackController Kind = "playback_controller"
	KindSystemException    Kind = "system_exception"
	KindSessionEnded       Kind = "session_ended"
)

// IntentKind is a user intent normalised across platform intent names.
type IntentKind string

// Normalised intents.
const (
	IntentNone        IntentKind = ""
	IntentPlay        IntentKind = "play"
	IntentPlayBook    IntentKind = "play_book"
	IntentPause       IntentKind = "pause"
	IntentNext        IntentKind = "next"
	IntentPrevious    IntentKind = "previous"
	IntentForward     IntentKind = "forward"
	IntentBack        IntentKind = "back"
	IntentHelp        IntentKind = "help"
	IntentCancel      IntentKind = "cancel"
	IntentFallback    IntentKind = "fallback"
	IntentUnsupported IntentKind = "unsupported"
)

var intentNames = map[string]IntentKind{
	"PlayAudioIntent":         IntentPlay,
	"PlayLastIntent":          IntentPlay,
	"AMAZON.ResumeIntent":     IntentPlay,
	"PlayBookIntent":          IntentPlayBook,
	"AMAZON.PauseIntent":      IntentPause,
	"AMAZON.NextIntent":       IntentNext,
	"AMAZON.PreviousIntent":   IntentPrevious,
	"GoForwardXTimeIntent":    IntentForward,
	"GoBackXTimeIntent":       IntentBack,
	"AMAZON.HelpIntent":       IntentHelp,
	"AMAZON.CancelIntent":     IntentCancel,
	"AMAZON.StopIntent":       IntentCancel,
	"AMAZON.FallbackIntent":   IntentFallback,
	"AMAZON.LoopOnIntent":     IntentUnsupported,
	"AMAZON.LoopOffIntent":    IntentUnsupported,
	"AMAZON.ShuffleOnIntent":  IntentUnsupported,
	"AMAZON.ShuffleOffIntent": IntentUnsupported,
	"AMAZON.RepeatIntent":     IntentUnsupported,
	"AMAZON.StartOverIntent":  IntentUnsupported,
}

// Signal is an audio-player lifecycle event or a playback-controller button.
type Signal string

// Audio-player and controller signals.
const (
	SignalNone           Signal = ""
	SignalStarted        Signal = "PlaybackStarted"
	SignalStopped        Signal = "PlaybackStopped"
	SignalFinished       Signal = "PlaybackFinished"
	SignalNearlyFinished Signal = "PlaybackNearlyFinished"
	SignalFailed         Signal = "PlaybackFailed"

	SignalPlayCommand     Signal = "PlayCommandIssued"
	SignalPauseCommand    Signal = "PauseCommandIssued"
	SignalNextCommand     Signal = "NextCommandIssued"
	SignalPreviousCommand Signal = "PreviousCommandIssued"
)

// PlayerState is the device player position.
type PlayerState struct {
	Token        string
	OffsetMillis int64
	HasOffset    bool
	Activity     string
}

// Valid reports whether both the token and the offset were reported.
func (p *PlayerState) Valid() bool {
	return p != nil && p.Token != "" && p.HasOffset
}

// Event is a request classified once at the boundary.
type Event struct {
	Kind          Kind
	RequestType   string
	RequestID     string
	IntentName    string
	Intent        IntentKind
	Signal        Signal
	Slots         map[string]Slot
	DeviceID      string
	ApplicationID string
	Locale        string
	// Player is the device player snapshot, nil when none was sent. For
	// audio-player events the request's own token and offset take precedence.
	Player *PlayerState
	Reason string
	Err    *RequestError
}

// Slot returns the value of a slot, preferring its entity resolution when
// resolved is true.
func (e Event) Slot(name string, resolved bool) string {
	s, ok := e.Slots[name]
	if !ok {
		return ""
	}
	if resolved {
		if v := s.Resolved(); v != "" {
			return v
		}
	}
	return s.Value
}

// ParseEvent classifies a request envelope.
func ParseEvent(env *RequestEnvelope) Event {
	req := env.Request
	ev := Event{
		Kind:          KindUnknown,
		RequestType:   req.Type,
		RequestID:     req.RequestID,
		DeviceID:      env.Context.System.Device.DeviceID,
		ApplicationID: env.Context.System.Application.ApplicationID,
		Locale:        req.Locale,
		Reason:        req.Reason,
		Err:           req.Error,
	}
	if ev.ApplicationID == "" && env.Session != nil {
		ev.ApplicationID = env.Session.Application.ApplicationID
	}

	if ap := env.Context.AudioPlayer; ap != nil {
		ev.Player = &PlayerState{Token: ap.Token, Activity: ap.PlayerActivity}
		if ap.OffsetInMilliseconds != nil {
			ev.Player.OffsetMillis = *ap.OffsetInMilliseconds
			ev.Player.HasOffset = true
		}
	}

	switch {
	case req.Type == "LaunchRequest":
		ev.Kind = KindLaunch
	case req.Type == "IntentRequest":
		ev.Kind = KindIntent
		if req.Intent != nil {
			ev.IntentName = req.Intent.Name
			ev.Slots = req.Intent.Slots
			ev.Intent = intentNames[req.Intent.Name]
			if ev.Intent == IntentNone {
				ev.Intent = IntentFallback
			}
		}
	case req.Type == "SessionEndedRequest":
		ev.Kind = KindSessionEnded
	case req.Type == "System.ExceptionEncountered":
		ev.Kind = KindSystemException
	case strings.HasPrefix(req.Type, "AudioPlayer."):
		ev.Kind = KindAudioPlayer
		ev.Signal = Signal(strings.TrimPrefix(req.Type, "AudioPlayer."))
		ev.Player = requestPlayer(req, ev.Player)
	case strings.HasPrefix(req.Type, "PlaybackController."):
		ev.Kind = KindPlaybackController
		ev.Signal = Signal(strings.TrimPrefix(req.Type, "PlaybackController."))
	}

	return ev
}

// requestPlayer overlays the token and offset carried by an audio-player
// request onto the context snapshot.
func requestPlayer(req Request, snapshot *PlayerState) *PlayerState {
	if req.Token == "" && req.OffsetInMilliseconds == nil {
		return snapshot
	}
	p := &PlayerState{}
	if snapshot != nil {
		*p = *snapshot
	}
	if req.Token != "" {
		p.Token = req.Token
	}
	if req.OffsetInMilliseconds != nil {
		p.OffsetMillis = *req.OffsetInMilliseconds
		p.HasOffset = true
	}
	return p
}
