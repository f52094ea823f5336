package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoobuddy/internal/models"
	"github.com/yoockh/yoobuddy/internal/pipeline"
	"github.com/yoockh/yoobuddy/internal/registry"
	"github.com/yoockh/yoobuddy/internal/services"
)

// processingWindow suppresses re-entrant end-of-utterance processing
// that arrives faster than reasoning can complete. Independent of the
// fragment flush delay.
const processingWindow = 2 * time.Second

// CognitionSession owns one cognition socket connection: it debounces
// forwarded speech fragments into utterances, runs them through the
// reasoning pipeline, and grounds the paired Audio session.
type CognitionSession struct {
	username string
	profile  models.Profile

	conn     Transport
	reg      *registry.Registry
	driver   *pipeline.Driver
	injector *pipeline.Injector
	logSvc   services.SessionLogService
	record   *models.SocketSessionRecord

	history   *History
	debouncer *Debouncer
	log       *logrus.Entry

	ctx context.Context // session lifetime, set by Run

	// serializes reasoning per session so overlapping flushes never
	// interleave two pipeline runs against the same history
	processingMu  sync.Mutex
	lastProcessed time.Time

	emotionMu sync.Mutex
	emotion   string
}

type CognitionConfig struct {
	Username   string
	Profile    models.Profile
	Conn       Transport
	Registry   *registry.Registry
	Driver     *pipeline.Driver
	Injector   *pipeline.Injector
	Log        *logrus.Logger
	LogSvc     services.SessionLogService
	Record     *models.SocketSessionRecord
	FlushDelay time.Duration
}

func NewCognitionSession(cfg CognitionConfig) *CognitionSession {
	log := cfg.Log
	if log == nil {
		log = logrus.New()
	}

	s := &CognitionSession{
		username: cfg.Username,
		profile:  cfg.Profile,
		conn:     cfg.Conn,
		reg:      cfg.Registry,
		driver:   cfg.Driver,
		injector: cfg.Injector,
		logSvc:   cfg.LogSvc,
		record:   cfg.Record,
		history:  NewHistory(defaultHistoryLimit),
		log:      log.WithFields(logrus.Fields{"role": "cognition", "username": cfg.Username}),
		ctx:      context.Background(),
	}
	s.debouncer = NewDebouncer(cfg.FlushDelay, s.flushUtterance)
	return s
}

func (s *CognitionSession) Username() string { return s.username }

// ConsumeTranscript implements registry.Intake: fragments forwarded
// from the Audio side accumulate in the debouncer.
func (s *CognitionSession) ConsumeTranscript(ev registry.TranscriptEvent) bool {
	if ev.Text == "" {
		return false
	}
	s.debouncer.Append(ev.Text)
	return true
}

// Run registers the session and handles inbound events until the
// transport closes, then tears down best-effort.
func (s *CognitionSession) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx

	s.reg.Register(registry.RoleCognition, s.username, s, s.conn)

	s.inboundDispatch()

	s.debouncer.Stop()
	cancel()
	s.reg.Unregister(registry.RoleCognition, s.username)
	if err := s.conn.Close(); err != nil {
		s.log.WithError(err).Debug("transport close failed")
	}
	if s.record != nil && s.logSvc != nil {
		if err := s.logSvc.Disconnected(context.Background(), s.record); err != nil {
			s.log.WithError(err).Warn("disconnect record failed")
		}
	}
	s.log.Info("cognition session closed")
}

type cognitionClientMsg struct {
	Event         string  `json:"event"`
	Transcription string  `json:"transcription"`
	Text          string  `json:"text"`
	Timestamp     float64 `json:"timestamp"`
	Emotion       string  `json:"emotion"`
	Confidence    float64 `json:"confidence"`
	Action        string  `json:"action"`
}

func (s *CognitionSession) inboundDispatch() {
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.WithError(err).Info("cognition transport closed")
			return
		}

		var msg cognitionClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.WithError(err).Warn("malformed cognition frame, skipping")
			continue
		}

		switch msg.Event {
		case "end_of_utterance":
			s.handleEndOfUtterance(msg)

		case "transcription":
			// normal streaming path: same intake as registry forwards
			if msg.Text != "" {
				s.debouncer.Append(msg.Text)
			}

		case "emotion_data":
			s.handleEmotion(msg)

		case "user_action":
			s.handleUserAction(msg)

		case "close":
			return

		default:
			s.log.WithField("event", msg.Event).Debug("unknown cognition event ignored")
		}
	}
}

// handleEndOfUtterance processes a complete utterance pushed by the
// client, guarded by the re-entrancy window.
func (s *CognitionSession) handleEndOfUtterance(msg cognitionClientMsg) {
	s.processingMu.Lock()
	defer s.processingMu.Unlock()

	if time.Since(s.lastProcessed) < processingWindow {
		s.log.Debug("utterance skipped by processing debounce")
		return
	}
	if msg.Transcription == "" {
		s.log.Warn("end_of_utterance without transcription")
		return
	}
	s.lastProcessed = time.Now()

	ts := msg.Timestamp
	if ts == 0 {
		ts = float64(time.Now().Unix())
	}
	s.process(msg.Transcription, ts)
}

// flushUtterance is the debouncer callback: one silence-triggered
// utterance assembled from streamed fragments.
func (s *CognitionSession) flushUtterance(utterance string) {
	s.processingMu.Lock()
	defer s.processingMu.Unlock()

	s.lastProcessed = time.Now()
	s.process(utterance, float64(time.Now().Unix()))
}

// process runs one utterance through the pipeline. AudioMode is always
// true here: the voice endpoint owns spoken replies, this side owns
// memory side effects only.
func (s *CognitionSession) process(utterance string, timestamp float64) {
	s.history.Add("user", utterance)

	st := pipeline.State{
		InputText:      utterance,
		Username:       s.username,
		ChatHistory:    s.history.Lines(),
		Profile:        s.profile,
		EmotionContext: s.currentEmotion(),
		AudioMode:      true,
	}
	s.driver.Run(s.ctx, &st)

	if err := s.conn.WriteJSON(map[string]any{
		"event":     "reasoning_complete",
		"context":   st.ReasoningContext,
		"timestamp": timestamp,
	}); err != nil {
		s.log.WithError(err).Warn("reasoning_complete write failed")
	}

	if s.logSvc != nil {
		if err := s.logSvc.ArchiveUtterance(s.ctx, s.username, utterance, string(st.Category), st.ReasoningContext); err != nil {
			s.log.WithError(err).Warn("utterance archive failed")
		}
	}

	if s.injector != nil {
		s.injector.Inject(s.ctx, s.username, utterance, st.ReasoningContext)
	}
}

func (s *CognitionSession) handleEmotion(msg cognitionClientMsg) {
	if msg.Emotion == "" {
		return
	}
	s.log.WithFields(logrus.Fields{
		"emotion":    msg.Emotion,
		"confidence": msg.Confidence,
	}).Info("emotion sample")

	s.emotionMu.Lock()
	s.emotion = fmt.Sprintf("%s (%.2f)", msg.Emotion, msg.Confidence)
	s.emotionMu.Unlock()
}

func (s *CognitionSession) currentEmotion() string {
	s.emotionMu.Lock()
	defer s.emotionMu.Unlock()
	return s.emotion
}

func (s *CognitionSession) handleUserAction(msg cognitionClientMsg) {
	s.log.WithField("action", msg.Action).Info("user action")

	if msg.Action == "clear_history" {
		s.history.Clear()
	}
}
