package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/yoobuddy/internal/models"
	"github.com/yoockh/yoobuddy/internal/registry"
)

type fakeGrounder struct {
	mu       sync.Mutex
	username string
	ready    bool
	injected []string
}

func (f *fakeGrounder) Username() string { return f.username }

func (f *fakeGrounder) InjectContext(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return false
	}
	f.injected = append(f.injected, text)
	return true
}

func TestInjectorGroundsAudioSession(t *testing.T) {
	t.Parallel()

	mem := &fakeMemory{
		knowledge: []models.UserKnowledge{{Fact: "User likes pizza"}},
		upcoming:  []models.Event{{Description: "dentist", EventTime: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)}},
	}
	reg := registry.New(quietLogger())
	audio := &fakeGrounder{username: "ivy", ready: true}
	reg.Register(registry.RoleAudio, "ivy", audio, nil)

	inj := NewInjector(mem, reg, quietLogger())
	inj.Inject(context.Background(), "ivy", "pizza", "Intent detected: CHAT")

	require.Len(t, audio.injected, 1)
	assert.Contains(t, audio.injected[0], "Known fact: User likes pizza")
	assert.Contains(t, audio.injected[0], "Upcoming: dentist")
	assert.Contains(t, audio.injected[0], "Intent detected: CHAT")
}

func TestInjectorSkipsWhenAudioNotReady(t *testing.T) {
	t.Parallel()

	mem := &fakeMemory{knowledge: []models.UserKnowledge{{Fact: "x"}}}
	reg := registry.New(quietLogger())
	audio := &fakeGrounder{username: "ivy", ready: false}
	reg.Register(registry.RoleAudio, "ivy", audio, nil)

	inj := NewInjector(mem, reg, quietLogger())
	// not ready is not an error; nothing is delivered and nothing panics
	inj.Inject(context.Background(), "ivy", "q", "summary")

	assert.Empty(t, audio.injected)
}

func TestInjectorNothingToSay(t *testing.T) {
	t.Parallel()

	mem := &fakeMemory{}
	reg := registry.New(quietLogger())
	audio := &fakeGrounder{username: "ivy", ready: true}
	reg.Register(registry.RoleAudio, "ivy", audio, nil)

	inj := NewInjector(mem, reg, quietLogger())
	inj.Inject(context.Background(), "ivy", "q", "")

	assert.Empty(t, audio.injected)
}
