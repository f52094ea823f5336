// Package registry coordinates the paired Audio and Cognition sockets
// of one logical user session. The Audio side forwards recognized
// speech here; the Cognition side pushes grounding text back.
package registry

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Role string

const (
	RoleAudio     Role = "audio"
	RoleCognition Role = "cognition"
)

func (r Role) Counterpart() Role {
	if r == RoleAudio {
		return RoleCognition
	}
	return RoleAudio
}

// TranscriptEvent is one recognized-speech fragment forwarded across roles.
type TranscriptEvent struct {
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

// Session is the per-connection state registered for a role. Sessions
// that can consume forwarded transcripts also implement Intake; the
// Audio session additionally implements Grounder.
type Session interface {
	Username() string
}

// Intake is the counterpart event-intake path invoked by Forward.
type Intake interface {
	ConsumeTranscript(ev TranscriptEvent) bool
}

// Grounder receives out-of-band grounding text for the voice endpoint.
// InjectContext reports false when the endpoint is not ready.
type Grounder interface {
	InjectContext(text string) bool
}

// Conn is the transport handle kept per role for direct frames.
type Conn interface {
	WriteJSON(v any) error
}

type sessionPair struct {
	username string

	audioSession     Session
	audioConn        Conn
	cognitionSession Session
	cognitionConn    Conn
}

// Registry owns the username -> pair map. A pair exists iff at least
// one side is connected; it is deleted the instant both are gone.
type Registry struct {
	mu    sync.RWMutex
	pairs map[string]*sessionPair
	log   *logrus.Logger
}

func New(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		pairs: make(map[string]*sessionPair),
		log:   log,
	}
}

// Register inserts or updates the pair for username. Idempotent per
// role: a reconnect simply replaces the session/transport references.
func (r *Registry) Register(role Role, username string, sess Session, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair, ok := r.pairs[username]
	if !ok {
		pair = &sessionPair{username: username}
		r.pairs[username] = pair
	}

	switch role {
	case RoleAudio:
		pair.audioSession = sess
		pair.audioConn = conn
	case RoleCognition:
		pair.cognitionSession = sess
		pair.cognitionConn = conn
	}

	r.log.WithFields(logrus.Fields{"role": role, "username": username}).Info("registry: socket registered")
}

// Unregister clears one role's references. A no-op when the pair or
// role reference is already gone; removes the pair once both sides are.
func (r *Registry) Unregister(role Role, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair, ok := r.pairs[username]
	if !ok {
		return
	}

	switch role {
	case RoleAudio:
		pair.audioSession = nil
		pair.audioConn = nil
	case RoleCognition:
		pair.cognitionSession = nil
		pair.cognitionConn = nil
	}

	if pair.audioSession == nil && pair.cognitionSession == nil {
		delete(r.pairs, username)
		r.log.WithField("username", username).Info("registry: session pair removed")
	}
}

// Forward hands ev to the counterpart of fromRole. Returns false when
// there is no counterpart (the event is dropped, not an error) or when
// the counterpart did not consume it. The intake call happens outside
// the registry lock.
func (r *Registry) Forward(fromRole Role, username string, ev TranscriptEvent) bool {
	r.mu.RLock()
	pair, ok := r.pairs[username]
	var target Session
	if ok {
		switch fromRole.Counterpart() {
		case RoleAudio:
			target = pair.audioSession
		case RoleCognition:
			target = pair.cognitionSession
		}
	}
	r.mu.RUnlock()

	if target == nil {
		r.log.WithField("username", username).Debug("registry: no counterpart, event dropped")
		return false
	}

	intake, ok := target.(Intake)
	if !ok {
		return false
	}
	return intake.ConsumeTranscript(ev)
}

// InjectContext sends text to the Audio session's voice endpoint as an
// out-of-band grounding message. Returns false ("not ready") when no
// Audio session is registered or its endpoint is not ready.
func (r *Registry) InjectContext(username, text string) bool {
	r.mu.RLock()
	var target Session
	if pair, ok := r.pairs[username]; ok {
		target = pair.audioSession
	}
	r.mu.RUnlock()

	if target == nil {
		return false
	}
	grounder, ok := target.(Grounder)
	if !ok {
		return false
	}
	return grounder.InjectContext(text)
}

// SendToAudio writes a frame directly to the Audio transport.
func (r *Registry) SendToAudio(username string, v any) bool {
	r.mu.RLock()
	var conn Conn
	if pair, ok := r.pairs[username]; ok {
		conn = pair.audioConn
	}
	r.mu.RUnlock()

	if conn == nil {
		return false
	}
	if err := conn.WriteJSON(v); err != nil {
		r.log.WithError(err).WithField("username", username).Warn("registry: audio write failed")
		return false
	}
	return true
}

// Lookup reports which roles are currently connected for username.
func (r *Registry) Lookup(username string) (audio, cognition bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pair, ok := r.pairs[username]
	if !ok {
		return false, false
	}
	return pair.audioSession != nil, pair.cognitionSession != nil
}
