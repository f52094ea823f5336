package vision

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDescriber struct {
	mu    sync.Mutex
	desc  string
	err   error
	calls int
}

func (f *fakeDescriber) Complete(context.Context, string) (string, error) { return "", nil }

func (f *fakeDescriber) Describe(context.Context, string, string, []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.desc, f.err
}

func (f *fakeDescriber) Close() error { return nil }

type recordingUploader struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingUploader) Upload(_ context.Context, name, _ string, _ io.Reader) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return "gs://test/" + name, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAnalyzerStartsWithSentinel(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer(&fakeDescriber{}, nil, "ivy", quietLogger())
	assert.Equal(t, CameraOffDescription, a.Description())
}

func TestAnalyzerDescribesLatestFrame(t *testing.T) {
	t.Parallel()

	llm := &fakeDescriber{desc: "A person reading at a desk."}
	uploader := &recordingUploader{}
	a := NewAnalyzer(llm, uploader, "ivy", quietLogger())

	a.SetCamera(true)
	a.UpdateFrame([]byte("jpeg-bytes"))
	a.analyze(context.Background())

	assert.Equal(t, "A person reading at a desk.", a.Description())
	require.Len(t, uploader.names, 1)
	assert.Contains(t, uploader.names[0], "frames/ivy/")
}

func TestAnalyzerIgnoresFramesWhileCameraOff(t *testing.T) {
	t.Parallel()

	llm := &fakeDescriber{desc: "should never appear"}
	a := NewAnalyzer(llm, nil, "ivy", quietLogger())

	a.UpdateFrame([]byte("jpeg-bytes"))
	a.analyze(context.Background())

	assert.Equal(t, CameraOffDescription, a.Description())
	assert.Zero(t, llm.calls)
}

func TestAnalyzerResetsOnCameraOff(t *testing.T) {
	t.Parallel()

	llm := &fakeDescriber{desc: "A sunny kitchen."}
	a := NewAnalyzer(llm, nil, "ivy", quietLogger())

	a.SetCamera(true)
	a.UpdateFrame([]byte("jpeg-bytes"))
	a.analyze(context.Background())
	require.Equal(t, "A sunny kitchen.", a.Description())

	a.SetCamera(false)
	assert.Equal(t, CameraOffDescription, a.Description())

	// stale frame must be gone: turning the camera back on does not
	// resurrect the previous description
	a.SetCamera(true)
	a.analyze(context.Background())
	assert.Equal(t, CameraOffDescription, a.Description())
}

func TestAnalyzerKeepsLastDescriptionOnFailure(t *testing.T) {
	t.Parallel()

	llm := &fakeDescriber{desc: "First look."}
	a := NewAnalyzer(llm, nil, "ivy", quietLogger())

	a.SetCamera(true)
	a.UpdateFrame([]byte("jpeg-bytes"))
	a.analyze(context.Background())
	require.Equal(t, "First look.", a.Description())

	llm.mu.Lock()
	llm.err = errors.New("model unavailable")
	llm.mu.Unlock()
	a.analyze(context.Background())

	assert.Equal(t, "First look.", a.Description())
}
