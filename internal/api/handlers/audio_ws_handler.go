package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoobuddy/internal/pipeline"
	"github.com/yoockh/yoobuddy/internal/providers/reasoning"
	"github.com/yoockh/yoobuddy/internal/providers/voice"
	"github.com/yoockh/yoobuddy/internal/registry"
	"github.com/yoockh/yoobuddy/internal/services"
	"github.com/yoockh/yoobuddy/internal/sessions"
	"github.com/yoockh/yoobuddy/internal/storage"
	"github.com/yoockh/yoobuddy/internal/vision"
)

// AudioWSHandler accepts the Audio Socket: real-time speech I/O against
// the hosted voice endpoint plus the relays feeding the Cognition side.
type AudioWSHandler struct {
	registry *registry.Registry
	voices   voice.Factory
	llm      reasoning.Provider
	driver   *pipeline.Driver
	profiles services.ProfileService
	logSvc   services.SessionLogService
	uploader storage.Uploader // optional frame archive
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewAudioWSHandler(
	reg *registry.Registry,
	voices voice.Factory,
	llm reasoning.Provider,
	driver *pipeline.Driver,
	profiles services.ProfileService,
	logSvc services.SessionLogService,
	uploader storage.Uploader,
	log *logrus.Logger,
) *AudioWSHandler {
	return &AudioWSHandler{
		registry: reg,
		voices:   voices,
		llm:      llm,
		driver:   driver,
		profiles: profiles,
		logSvc:   logSvc,
		uploader: uploader,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

func (h *AudioWSHandler) Stream(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	conn := sessions.NewConn(raw)

	username, err := readHandshake(conn)
	if err != nil {
		h.log.WithError(err).Warn("audio handshake rejected")
		rejectHandshake(conn, map[string]any{"error": "Username required"})
		return
	}

	ctx := c.Request.Context()
	profile := h.profiles.Snapshot(ctx, username)

	endpoint, err := h.voices.New(ctx, username)
	if err != nil {
		h.log.WithError(err).WithField("username", username).Error("voice endpoint create failed")
		rejectHandshake(conn, map[string]any{"error": "voice endpoint unavailable"})
		return
	}
	if err := endpoint.Start(ctx); err != nil {
		h.log.WithError(err).WithField("username", username).Error("voice endpoint start failed")
		rejectHandshake(conn, map[string]any{"error": "voice endpoint unavailable"})
		return
	}

	record, err := h.logSvc.Connected(ctx, string(registry.RoleAudio), username)
	if err != nil {
		h.log.WithError(err).Warn("connection record failed")
	}

	sess := sessions.NewAudioSession(sessions.AudioConfig{
		Username: username,
		Profile:  profile,
		Conn:     conn,
		Endpoint: endpoint,
		Registry: h.registry,
		Driver:   h.driver,
		Analyzer: vision.NewAnalyzer(h.llm, h.uploader, username, h.log),
		Log:      h.log,
		LogSvc:   h.logSvc,
		Record:   record,
	})

	if err := conn.WriteJSON(map[string]any{"status": "connected", "user": profile}); err != nil {
		h.log.WithError(err).Warn("audio welcome frame failed")
	}

	sess.Run(ctx)
}
