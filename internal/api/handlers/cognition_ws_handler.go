package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoobuddy/internal/pipeline"
	"github.com/yoockh/yoobuddy/internal/registry"
	"github.com/yoockh/yoobuddy/internal/services"
	"github.com/yoockh/yoobuddy/internal/sessions"
)

// CognitionWSHandler accepts the Cognition Socket: event-based
// reasoning and memory side effects over the same conversation.
type CognitionWSHandler struct {
	registry *registry.Registry
	driver   *pipeline.Driver
	injector *pipeline.Injector
	profiles services.ProfileService
	logSvc   services.SessionLogService
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewCognitionWSHandler(
	reg *registry.Registry,
	driver *pipeline.Driver,
	injector *pipeline.Injector,
	profiles services.ProfileService,
	logSvc services.SessionLogService,
	log *logrus.Logger,
) *CognitionWSHandler {
	return &CognitionWSHandler{
		registry: reg,
		driver:   driver,
		injector: injector,
		profiles: profiles,
		logSvc:   logSvc,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

func (h *CognitionWSHandler) Stream(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := sessions.NewConn(raw)

	username, err := readHandshake(conn)
	if err != nil {
		h.log.WithError(err).Warn("cognition handshake rejected")
		rejectHandshake(conn, map[string]any{"event": "error", "error": "Username required"})
		return
	}

	ctx := c.Request.Context()
	profile := h.profiles.Snapshot(ctx, username)

	record, err := h.logSvc.Connected(ctx, string(registry.RoleCognition), username)
	if err != nil {
		h.log.WithError(err).Warn("connection record failed")
	}

	sess := sessions.NewCognitionSession(sessions.CognitionConfig{
		Username: username,
		Profile:  profile,
		Conn:     conn,
		Registry: h.registry,
		Driver:   h.driver,
		Injector: h.injector,
		Log:      h.log,
		LogSvc:   h.logSvc,
		Record:   record,
	})

	if err := conn.WriteJSON(map[string]any{"status": "connected", "user": profile}); err != nil {
		h.log.WithError(err).Warn("cognition welcome frame failed")
	}

	sess.Run(ctx)
}
