// Package session implements the per-device playback session lifecycle:
// starting and resuming remote play sessions, keeping the server's progress
// in step with the device player, pre-enqueueing the next track and tearing
// sessions down.
package session

import (
	"errors"
	"fmt"

	"github.com/maauso/audiobook-skill/internal/playback"
)

// State is the lifecycle state of a device, derived from its attributes.
type State string

const (
	// StateIdle means no remote session is open.
	StateIdle State = "IDLE"
	// StateActive means a remote session is open.
	StateActive State = "ACTIVE"
	// StateAwaitingPrefetch means a remote session is open and the next
	// track has already been enqueued on the device.
	StateAwaitingPrefetch State = "AWAITING_PREFETCH"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("session: invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[State][]State{
	StateIdle:             {StateIdle, StateActive},
	StateActive:           {StateActive, StateAwaitingPrefetch, StateIdle},
	StateAwaitingPrefetch: {StateAwaitingPrefetch, StateActive, StateIdle},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Attributes is the state persisted per device between invocations.
type Attributes struct {
	// PlaySession is the open session, nil when idle.
	PlaySession *playback.Session `json:"currentPlaySession,omitempty"`
	// NextTrackPrefetched records that the device was told to enqueue the
	// track after the current one.
	NextTrackPrefetched bool `json:"nextTrackPrefetched"`
}

// State derives the lifecycle state.
func (a Attributes) State() State {
	switch {
	case !a.PlaySession.Active():
		return StateIdle
	case a.NextTrackPrefetched:
		return StateAwaitingPrefetch
	default:
		return StateActive
	}
}

// Clone returns a deep copy of the attributes.
func (a Attributes) Clone() Attributes {
	return Attributes{
		PlaySession:         a.PlaySession.Clone(),
		NextTrackPrefetched: a.NextTrackPrefetched,
	}
}

// Start makes s the active session with nothing enqueued.
func (a *Attributes) Start(s *playback.Session) error {
	if !s.Active() {
		return fmt.Errorf("%w: session has no id", ErrInvalidTransition)
	}
	if err := a.check(StateActive); err != nil {
		return err
	}
	a.PlaySession = s
	a.NextTrackPrefetched = false
	return nil
}

// SetPrefetched records whether the next track is enqueued on the device.
func (a *Attributes) SetPrefetched(prefetched bool) error {
	to := StateActive
	if prefetched {
		to = StateAwaitingPrefetch
	}
	if a.State() == StateIdle {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, StateIdle, to)
	}
	if err := a.check(to); err != nil {
		return err
	}
	a.NextTrackPrefetched = prefetched
	return nil
}

// Clear drops the session. It is allowed from every state.
func (a *Attributes) Clear() {
	a.PlaySession = nil
	a.NextTrackPrefetched = false
}

func (a *Attributes) check(to State) error {
	from := a.State()
	if !canTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
