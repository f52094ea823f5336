// Package pipeline runs the two-node classify->generate flow over one
// flushed utterance. Classification always completes before generation
// is considered; in audio mode generation is skipped entirely because
// the voice endpoint owns spoken replies.
package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoobuddy/internal/models"
	"github.com/yoockh/yoobuddy/internal/providers/reasoning"
	"github.com/yoockh/yoobuddy/internal/services"
)

type Category string

const (
	CategoryChat  Category = "CHAT"
	CategoryFact  Category = "FACT"
	CategoryEvent Category = "EVENT"
)

// State is the shared record both nodes read and write. Inputs are set
// by the caller; Category, ReasoningContext, and FinalResponse are
// filled by the nodes.
type State struct {
	InputText   string
	Username    string
	ChatHistory []string
	Profile     models.Profile

	SceneContext   string
	EmotionContext string

	// AudioMode true means the voice endpoint owns the spoken reply and
	// the generation node must be skipped.
	AudioMode bool

	Category         Category
	ReasoningContext string
	FinalResponse    string
}

type Driver struct {
	llm    reasoning.Provider
	memory services.MemoryService
	log    *logrus.Logger

	// now is injectable for deterministic event-time tests
	now func() time.Time
}

func NewDriver(llm reasoning.Provider, memory services.MemoryService, log *logrus.Logger) *Driver {
	if log == nil {
		log = logrus.New()
	}
	return &Driver{
		llm:    llm,
		memory: memory,
		log:    log,
		now:    time.Now,
	}
}

// Run executes classification, then generation unless AudioMode is set.
// It never returns an upstream failure: both nodes degrade internally.
func (d *Driver) Run(ctx context.Context, st *State) {
	d.classify(ctx, st)

	if st.AudioMode {
		st.FinalResponse = ""
		return
	}
	d.generate(ctx, st)
}
