// Package vision produces periodic scene descriptions from camera
// frames so voice replies can be grounded in what the camera sees.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoobuddy/internal/providers/reasoning"
	"github.com/yoockh/yoobuddy/internal/storage"
)

const (
	// CameraOffDescription is the sentinel used while no frames arrive.
	CameraOffDescription = "Camera is off. No visual data available."

	analysisInterval = 3 * time.Second

	describePrompt = `Describe what you see in this image in 1-2 concise sentences.
Focus on: the person (appearance, expression, activity), their environment, and any notable objects.
Be factual and brief. Do not speculate beyond what is visible.`
)

// Analyzer holds the camera flag and latest frame for one audio session
// and refreshes a scene description every few seconds while the camera
// is on. Frames are optionally archived to object storage.
type Analyzer struct {
	llm      reasoning.Provider
	uploader storage.Uploader // optional
	username string
	log      *logrus.Entry

	mu          sync.Mutex
	cameraOn    bool
	frame       []byte
	description string
}

func NewAnalyzer(llm reasoning.Provider, uploader storage.Uploader, username string, log *logrus.Logger) *Analyzer {
	if log == nil {
		log = logrus.New()
	}
	return &Analyzer{
		llm:         llm,
		uploader:    uploader,
		username:    username,
		log:         log.WithField("component", "vision"),
		description: CameraOffDescription,
	}
}

// SetCamera updates the camera flag. Turning it off clears the frame
// and resets the description to the sentinel.
func (a *Analyzer) SetCamera(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cameraOn = on
	if !on {
		a.frame = nil
		a.description = CameraOffDescription
	}
}

// UpdateFrame stores the latest jpeg frame; ignored while camera is off.
func (a *Analyzer) UpdateFrame(jpeg []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cameraOn {
		a.frame = jpeg
	}
}

func (a *Analyzer) Description() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.description
}

// Run analyzes the latest frame on a fixed interval until ctx ends.
func (a *Analyzer) Run(ctx context.Context) {
	ticker := time.NewTicker(analysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.analyze(ctx)
		}
	}
}

func (a *Analyzer) analyze(ctx context.Context) {
	a.mu.Lock()
	on := a.cameraOn
	frame := a.frame
	a.mu.Unlock()

	if !on || len(frame) == 0 {
		return
	}

	desc, err := a.llm.Describe(ctx, describePrompt, "image/jpeg", frame)
	if err != nil {
		a.log.WithError(err).Warn("scene analysis failed")
		return
	}
	if desc == "" {
		return
	}

	a.mu.Lock()
	a.description = desc
	a.mu.Unlock()

	if a.uploader != nil {
		name := fmt.Sprintf("frames/%s/%d.jpg", a.username, time.Now().UTC().UnixMilli())
		if _, err := a.uploader.Upload(ctx, name, "image/jpeg", bytes.NewReader(frame)); err != nil {
			a.log.WithError(err).Debug("frame archive failed")
		}
	}
}
