package sessions

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/yoobuddy/internal/models"
	"github.com/yoockh/yoobuddy/internal/pipeline"
	"github.com/yoockh/yoobuddy/internal/providers/voice"
	"github.com/yoockh/yoobuddy/internal/registry"
)

type fakeEndpoint struct {
	mu          sync.Mutex
	ready       bool
	audio       [][]byte
	texts       []string
	replies     []voice.AudioReply
	transcripts []string
	stopped     bool
}

func (f *fakeEndpoint) Start(context.Context) error { return nil }

func (f *fakeEndpoint) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeEndpoint) SendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, pcm)
	return nil
}

func (f *fakeEndpoint) SendImage(string, []byte) error { return nil }

func (f *fakeEndpoint) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeEndpoint) AudioReply() (voice.AudioReply, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return voice.AudioReply{}, false
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, true
}

func (f *fakeEndpoint) Transcription() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transcripts) == 0 {
		return "", false
	}
	tr := f.transcripts[0]
	f.transcripts = f.transcripts[1:]
	return tr, true
}

func (f *fakeEndpoint) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeEndpoint) sentAudio() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.audio))
	copy(out, f.audio)
	return out
}

func (f *fakeEndpoint) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeEndpoint) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func newTestAudio(t *testing.T) (*AudioSession, *fakeTransport, *fakeEndpoint, *registry.Registry) {
	t.Helper()

	log := discardLogger()
	transport := newFakeTransport()
	endpoint := &fakeEndpoint{ready: true}
	reg := registry.New(log)
	driver := pipeline.NewDriver(&stubProvider{resp: `{"category": "CHAT"}`}, &countingMemory{}, log)

	sess := NewAudioSession(AudioConfig{
		Username: "ivy",
		Profile:  models.Profile{Username: "ivy", Name: "Ivy"},
		Conn:     transport,
		Endpoint: endpoint,
		Registry: reg,
		Driver:   driver,
		Log:      log,
		LogSvc:   &fakeLogSvc{},
		Record:   &models.SocketSessionRecord{Username: "ivy", Role: "audio"},
	})
	return sess, transport, endpoint, reg
}

func TestAudioForwardsDecodedAudioToEndpoint(t *testing.T) {
	t.Parallel()

	sess, transport, endpoint, _ := newTestAudio(t)

	pcm := []byte{1, 2, 3, 4}
	transport.push(t, map[string]any{"type": "audio", "data": base64.StdEncoding.EncodeToString(pcm)})
	transport.push(t, map[string]any{"type": "close"})

	sess.Run(context.Background())

	require.Equal(t, [][]byte{pcm}, endpoint.sentAudio())
	assert.True(t, endpoint.isStopped())
	assert.True(t, transport.isClosed())
}

func TestAudioRelaysRepliesToClient(t *testing.T) {
	t.Parallel()

	sess, transport, endpoint, _ := newTestAudio(t)
	endpoint.replies = []voice.AudioReply{{Data: []byte("pcm-out"), SampleRate: 24000}}

	go func() {
		assert.Eventually(t, func() bool {
			return len(transport.writtenByType("audio_reply")) == 1
		}, 2*time.Second, 10*time.Millisecond)
		transport.push(t, map[string]any{"type": "close"})
	}()

	sess.Run(context.Background())

	replies := transport.writtenByType("audio_reply")
	require.Len(t, replies, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pcm-out")), replies[0]["data"])
	assert.Equal(t, float64(24000), replies[0]["sample_rate"])
}

func TestAudioRelaysTranscriptsToCognition(t *testing.T) {
	t.Parallel()

	sess, transport, endpoint, reg := newTestAudio(t)
	endpoint.transcripts = []string{"hello", "world"}

	cog := &recordingIntake{}
	reg.Register(registry.RoleCognition, "ivy", cog, nil)

	go func() {
		assert.Eventually(t, func() bool { return cog.count() == 2 }, 2*time.Second, 10*time.Millisecond)
		transport.push(t, map[string]any{"type": "close"})
	}()

	sess.Run(context.Background())

	got := cog.texts()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"hello", "world"}, got)
}

func TestAudioTextSuppressedByRecentSpeech(t *testing.T) {
	t.Parallel()

	sess, transport, _, reg := newTestAudio(t)
	cog := &recordingIntake{}
	reg.Register(registry.RoleCognition, "ivy", cog, nil)

	transport.push(t, map[string]any{"type": "audio", "data": base64.StdEncoding.EncodeToString([]byte{0})})
	transport.push(t, map[string]any{"type": "text", "text": "typed while talking"})
	transport.push(t, map[string]any{"type": "close"})

	sess.Run(context.Background())

	assert.Zero(t, cog.count(), "text inside the suppress window must be dropped")
}

func TestAudioTextForwardedWhenQuiet(t *testing.T) {
	t.Parallel()

	sess, transport, _, reg := newTestAudio(t)
	cog := &recordingIntake{}
	reg.Register(registry.RoleCognition, "ivy", cog, nil)

	transport.push(t, map[string]any{"type": "text", "text": "hello from keyboard"})
	transport.push(t, map[string]any{"type": "close"})

	sess.Run(context.Background())

	require.Equal(t, 1, cog.count())
	assert.Equal(t, []string{"hello from keyboard"}, cog.texts())
}

func TestAudioTextOnlyGetsFullReply(t *testing.T) {
	t.Parallel()

	log := discardLogger()
	transport := newFakeTransport()
	reg := registry.New(log)
	driver := pipeline.NewDriver(&scriptedProvider{responses: []string{
		`{"category": "CHAT"}`,
		"Nice to meet you!",
	}}, &countingMemory{}, log)

	sess := NewAudioSession(AudioConfig{
		Username: "ivy",
		Profile:  models.Profile{Username: "ivy", Name: "Ivy"},
		Conn:     transport,
		Endpoint: &fakeEndpoint{ready: true},
		Registry: reg,
		Driver:   driver,
		Log:      log,
	})

	transport.push(t, map[string]any{"type": "text_only", "text": "hi, I'm Ivy"})
	transport.push(t, map[string]any{"type": "close"})

	sess.Run(context.Background())

	responses := transport.writtenByType("text_response")
	require.Len(t, responses, 1)
	assert.Equal(t, "Nice to meet you!", responses[0]["response"])
}

func TestAudioInjectContext(t *testing.T) {
	t.Parallel()

	sess, _, endpoint, _ := newTestAudio(t)

	assert.True(t, sess.InjectContext("Known fact: likes pizza"))
	assert.Equal(t, []string{"Known fact: likes pizza"}, endpoint.sentTexts())

	endpoint.mu.Lock()
	endpoint.ready = false
	endpoint.mu.Unlock()
	assert.False(t, sess.InjectContext("more context"))
}

type recordingIntake struct {
	mu  sync.Mutex
	got []registry.TranscriptEvent
}

func (r *recordingIntake) Username() string { return "ivy" }

func (r *recordingIntake) ConsumeTranscript(ev registry.TranscriptEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return true
}

func (r *recordingIntake) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func (r *recordingIntake) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, ev := range r.got {
		out = append(out, ev.Text)
	}
	return out
}

type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (s *scriptedProvider) Complete(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := ""
	if s.calls < len(s.responses) {
		resp = s.responses[s.calls]
	}
	s.calls++
	return resp, nil
}

func (s *scriptedProvider) Describe(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

func (s *scriptedProvider) Close() error { return nil }
