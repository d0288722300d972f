// Package voice models the voice-platform wire protocol: the inbound request
// envelope, its classification into an Event, and the outbound response
// envelope with speech and audio-player directives.
package voice

// RequestEnvelope is the JSON document the platform posts for every event.
type RequestEnvelope struct {
	Version string   `json:"version" validate:"required"`
	Session *Session `json:"session,omitempty"`
	Context Context  `json:"context"`
	Request Request  `json:"request"`
}

// Session is the conversational session, absent for audio-player events.
type Session struct {
	New         bool        `json:"new"`
	SessionID   string      `json:"sessionId"`
	Application Application `json:"application"`
}

// Context carries the device snapshot sent with each request.
type Context struct {
	System      System              `json:"System"`
	AudioPlayer *AudioPlayerContext `json:"AudioPlayer,omitempty"`
}

// System identifies the skill and the calling device.
type System struct {
	Application Application `json:"application"`
	Device      Device      `json:"device"`
	User        User        `json:"user"`
}

// Application identifies the skill the request is addressed to.
type Application struct {
	ApplicationID string `json:"applicationId"`
}

// Device identifies the calling device.
type Device struct {
	DeviceID string `json:"deviceId" validate:"required"`
}

// User identifies the account.
type User struct {
	UserID string `json:"userId"`
}

// AudioPlayerContext is the last state the device player reported.
type AudioPlayerContext struct {
	Token                string `json:"token,omitempty"`
	OffsetInMilliseconds *int64 `json:"offsetInMilliseconds,omitempty"`
	PlayerActivity       string `json:"playerActivity,omitempty"`
}

// Request is the discriminated request body. Only the fields relevant to
// Type are populated.
type Request struct {
	Type      string `json:"type" validate:"required"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp,omitempty"`
	Locale    string `json:"locale,omitempty"`

	Intent *Intent `json:"intent,omitempty"`

	// AudioPlayer events.
	Token                string `json:"token,omitempty"`
	OffsetInMilliseconds *int64 `json:"offsetInMilliseconds,omitempty"`

	// SessionEndedRequest and System.ExceptionEncountered.
	Reason string        `json:"reason,omitempty"`
	Error  *RequestError `json:"error,omitempty"`
	Cause  *Cause        `json:"cause,omitempty"`
}

// Intent is a named intent with its slots.
type Intent struct {
	Name  string          `json:"name"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

// Slot is a filled intent slot.
type Slot struct {
	Name        string       `json:"name"`
	Value       string       `json:"value,omitempty"`
	Resolutions *Resolutions `json:"resolutions,omitempty"`
}

// Resolutions holds entity-resolution matches for a slot.
type Resolutions struct {
	ResolutionsPerAuthority []Authority `json:"resolutionsPerAuthority"`
}

// Authority is one entity-resolution source.
type Authority struct {
	Authority string          `json:"authority"`
	Values    []ResolvedValue `json:"values,omitempty"`
}

// ResolvedValue wraps a resolved slot value.
type ResolvedValue struct {
	Value struct {
		Name string `json:"name"`
		ID   string `json:"id,omitempty"`
	} `json:"value"`
}

// Resolved returns the first entity-resolved name of the slot, if any.
func (s Slot) Resolved() string {
	if s.Resolutions == nil {
		return ""
	}
	for _, a := range s.Resolutions.ResolutionsPerAuthority {
		if len(a.Values) > 0 {
			return a.Values[0].Value.Name
		}
	}
	return ""
}

// RequestError is the error object of failure and exception requests.
type RequestError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Cause names the request that triggered a system exception.
type Cause struct {
	RequestID string `json:"requestId"`
}
