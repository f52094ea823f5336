package sessions

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoobuddy/internal/models"
	"github.com/yoockh/yoobuddy/internal/pipeline"
	"github.com/yoockh/yoobuddy/internal/providers/voice"
	"github.com/yoockh/yoobuddy/internal/registry"
	"github.com/yoockh/yoobuddy/internal/services"
	"github.com/yoockh/yoobuddy/internal/vision"
)

const (
	replyPollInterval      = 10 * time.Millisecond
	transcriptPollInterval = 50 * time.Millisecond
	groundingInterval      = 3 * time.Second

	// free-text frames are suppressed while speech is active
	textSuppressWindow = 10 * time.Second
)

// AudioSession owns one audio socket connection: the duplex link between
// the client's microphone/speaker and the hosted voice endpoint, plus
// the relays that feed the Cognition side and ground the voice model.
type AudioSession struct {
	username string
	profile  models.Profile

	conn     Transport
	endpoint voice.Endpoint
	reg      *registry.Registry
	driver   *pipeline.Driver
	analyzer *vision.Analyzer
	logSvc   services.SessionLogService
	record   *models.SocketSessionRecord

	history *History
	log     *logrus.Entry

	lastAudioAt atomic.Int64 // unix nanos of last audio frame

	groundMu     sync.Mutex
	lastGrounded string
}

type AudioConfig struct {
	Username string
	Profile  models.Profile
	Conn     Transport
	Endpoint voice.Endpoint
	Registry *registry.Registry
	Driver   *pipeline.Driver
	Analyzer *vision.Analyzer
	Log      *logrus.Logger
	LogSvc   services.SessionLogService
	Record   *models.SocketSessionRecord
}

func NewAudioSession(cfg AudioConfig) *AudioSession {
	log := cfg.Log
	if log == nil {
		log = logrus.New()
	}
	return &AudioSession{
		username: cfg.Username,
		profile:  cfg.Profile,
		conn:     cfg.Conn,
		endpoint: cfg.Endpoint,
		reg:      cfg.Registry,
		driver:   cfg.Driver,
		analyzer: cfg.Analyzer,
		logSvc:   cfg.LogSvc,
		record:   cfg.Record,
		history:  NewHistory(defaultHistoryLimit),
		log:      log.WithFields(logrus.Fields{"role": "audio", "username": cfg.Username}),
	}
}

func (s *AudioSession) Username() string { return s.username }

// InjectContext implements registry.Grounder: out-of-band grounding
// text for the voice endpoint. False means "not ready", not failure.
func (s *AudioSession) InjectContext(text string) bool {
	if s.endpoint == nil || !s.endpoint.Ready() {
		return false
	}
	if err := s.endpoint.SendText(text); err != nil {
		s.log.WithError(err).Warn("grounding send failed")
		return false
	}
	return true
}

// Run registers the session, runs all duties until the transport
// closes, then tears down. Each duty fails independently: one duty's
// error never takes down its siblings.
func (s *AudioSession) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.reg.Register(registry.RoleAudio, s.username, s, s.conn)

	if s.analyzer != nil {
		go s.analyzer.Run(ctx)
	}
	go s.outboundRelay(ctx)
	go s.transcriptionRelay(ctx)
	go s.groundingLoop(ctx)

	s.inboundDispatch(ctx)

	// teardown, each step best-effort so one failure never skips the next
	cancel() // stops analyzer and relay loops
	s.reg.Unregister(registry.RoleAudio, s.username)
	if s.endpoint != nil {
		if err := s.endpoint.Stop(); err != nil {
			s.log.WithError(err).Warn("voice endpoint close failed")
		}
	}
	if err := s.conn.Close(); err != nil {
		s.log.WithError(err).Debug("transport close failed")
	}
	if s.record != nil && s.logSvc != nil {
		if err := s.logSvc.Disconnected(context.Background(), s.record); err != nil {
			s.log.WithError(err).Warn("disconnect record failed")
		}
	}
	s.log.Info("audio session closed")
}

type audioClientMsg struct {
	Type string `json:"type"`
	Data string `json:"data"`
	Text string `json:"text"`
}

// inboundDispatch reads frames and routes by the type discriminator.
// Unknown types are ignored, not fatal.
func (s *AudioSession) inboundDispatch(ctx context.Context) {
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.WithError(err).Info("audio transport closed")
			return
		}

		var msg audioClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.WithError(err).Warn("malformed audio frame, skipping")
			continue
		}

		switch msg.Type {
		case "audio":
			pcm, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				s.log.WithError(err).Warn("invalid audio payload")
				continue
			}
			s.lastAudioAt.Store(time.Now().UnixNano())
			if err := s.endpoint.SendAudio(pcm); err != nil {
				s.log.WithError(err).Warn("audio forward failed")
			}

		case "video":
			frame, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				s.log.WithError(err).Warn("invalid video payload")
				continue
			}
			if s.analyzer != nil {
				s.analyzer.UpdateFrame(frame)
			}
			if err := s.endpoint.SendImage("image/jpeg", frame); err != nil {
				s.log.WithError(err).Debug("video forward failed")
			}

		case "camera_on":
			if s.analyzer != nil {
				s.analyzer.SetCamera(true)
			}

		case "camera_off":
			if s.analyzer != nil {
				s.analyzer.SetCamera(false)
			}

		case "text":
			// suppressed while speech is active: the voice channel wins
			if time.Since(time.Unix(0, s.lastAudioAt.Load())) < textSuppressWindow {
				s.log.Debug("text frame suppressed by recent audio activity")
				continue
			}
			if msg.Text == "" {
				continue
			}
			s.history.Add("user", msg.Text)
			s.reg.Forward(registry.RoleAudio, s.username, registry.TranscriptEvent{
				Text:      msg.Text,
				Timestamp: float64(time.Now().Unix()),
			})

		case "text_only":
			s.handleTextOnly(ctx, msg.Text)

		case "close":
			return

		default:
			s.log.WithField("type", msg.Type).Debug("unknown audio frame type ignored")
		}
	}
}

// handleTextOnly owes the user a full text reply: the pipeline runs
// with generation enabled instead of deferring to the voice endpoint.
func (s *AudioSession) handleTextOnly(ctx context.Context, text string) {
	if text == "" || s.driver == nil {
		return
	}

	s.history.Add("user", text)

	st := pipeline.State{
		InputText:   text,
		Username:    s.username,
		ChatHistory: s.history.Lines(),
		Profile:     s.profile,
		AudioMode:   false,
	}
	if s.analyzer != nil {
		if desc := s.analyzer.Description(); desc != vision.CameraOffDescription {
			st.SceneContext = desc
		}
	}

	s.driver.Run(ctx, &st)
	s.history.Add("assistant", st.FinalResponse)

	if err := s.conn.WriteJSON(map[string]any{
		"type":     "text_response",
		"response": st.FinalResponse,
		"context":  st.ReasoningContext,
	}); err != nil {
		s.log.WithError(err).Warn("text response write failed")
	}
}

// outboundRelay polls the voice endpoint's reply queue and forwards
// synthesized audio to the client. Nothing ready is not an error.
func (s *AudioSession) outboundRelay(ctx context.Context) {
	ticker := time.NewTicker(replyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reply, ok := s.endpoint.AudioReply()
			if !ok {
				continue
			}
			if err := s.conn.WriteJSON(map[string]any{
				"type":        "audio_reply",
				"data":        base64.StdEncoding.EncodeToString(reply.Data),
				"sample_rate": reply.SampleRate,
			}); err != nil {
				s.log.WithError(err).Warn("audio reply write failed, relay stopped")
				return
			}
		}
	}
}

// transcriptionRelay forwards recognized speech fragments to the paired
// Cognition session via the registry. A missing counterpart just drops
// the fragment.
func (s *AudioSession) transcriptionRelay(ctx context.Context) {
	ticker := time.NewTicker(transcriptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				text, ok := s.endpoint.Transcription()
				if !ok {
					break
				}
				s.history.Add("user", text)
				s.reg.Forward(registry.RoleAudio, s.username, registry.TranscriptEvent{
					Text:      text,
					Timestamp: float64(time.Now().Unix()),
				})
			}
		}
	}
}

// groundingLoop re-grounds the voice endpoint with the latest scene
// description, but only when it changed since the previous tick.
func (s *AudioSession) groundingLoop(ctx context.Context) {
	if s.analyzer == nil {
		return
	}

	ticker := time.NewTicker(groundingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			desc := s.analyzer.Description()

			s.groundMu.Lock()
			changed := desc != s.lastGrounded
			if changed {
				s.lastGrounded = desc
			}
			s.groundMu.Unlock()

			if !changed || !s.endpoint.Ready() {
				continue
			}
			if err := s.endpoint.SendText("[Visual context] " + desc); err != nil {
				s.log.WithError(err).Debug("scene grounding failed")
			}
		}
	}
}
