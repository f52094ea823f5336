package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoobuddy/internal/registry"
	"github.com/yoockh/yoobuddy/internal/services"
)

// Injector pushes retrieved memory plus the latest reasoning summary
// into the paired Audio session after each flush. Grounding is an
// enhancement: every failure here is logged and swallowed.
type Injector struct {
	memory services.MemoryService
	reg    *registry.Registry
	log    *logrus.Logger

	topK int
}

func NewInjector(memory services.MemoryService, reg *registry.Registry, log *logrus.Logger) *Injector {
	if log == nil {
		log = logrus.New()
	}
	return &Injector{memory: memory, reg: reg, log: log, topK: 5}
}

// Inject is fire-and-forget with respect to the caller.
func (i *Injector) Inject(ctx context.Context, username, query, summary string) {
	var parts []string

	facts, err := i.memory.RetrieveKnowledge(ctx, username, query, i.topK)
	if err != nil {
		i.log.WithError(err).WithField("username", username).Warn("injector: knowledge retrieval failed")
	}
	for _, f := range facts {
		parts = append(parts, "Known fact: "+f.Fact)
	}

	events, err := i.memory.UpcomingEvents(ctx, username, i.topK)
	if err != nil {
		i.log.WithError(err).WithField("username", username).Warn("injector: event retrieval failed")
	}
	for _, e := range events {
		parts = append(parts, fmt.Sprintf("Upcoming: %s at %s", e.Description, e.EventTime.Format(time.RFC1123)))
	}

	if summary != "" {
		parts = append(parts, summary)
	}
	if len(parts) == 0 {
		return
	}

	text := strings.Join(parts, "\n")
	if !i.reg.InjectContext(username, text) {
		i.log.WithField("username", username).Debug("injector: audio side not ready, grounding skipped")
	}
}
