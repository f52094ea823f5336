package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/yoobuddy/internal/models"
)

type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func (f *fakeProvider) Describe(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type storedFact struct {
	username string
	fact     string
	category models.KnowledgeCategory
}

type storedEvent struct {
	username    string
	description string
	at          time.Time
}

type fakeMemory struct {
	mu        sync.Mutex
	facts     []storedFact
	events    []storedEvent
	knowledge []models.UserKnowledge
	upcoming  []models.Event
	factErr   error
	eventErr  error
}

func (f *fakeMemory) StoreFact(_ context.Context, username, fact string, category models.KnowledgeCategory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.factErr != nil {
		return f.factErr
	}
	f.facts = append(f.facts, storedFact{username, fact, category})
	return nil
}

func (f *fakeMemory) StoreEvent(_ context.Context, username, description string, eventTime time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, storedEvent{username, description, eventTime})
	return nil
}

func (f *fakeMemory) RetrieveKnowledge(context.Context, string, string, int) ([]models.UserKnowledge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.knowledge, nil
}

func (f *fakeMemory) UpcomingEvents(context.Context, string, int) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upcoming, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestDriver(llm *fakeProvider, mem *fakeMemory, now time.Time) *Driver {
	d := NewDriver(llm, mem, quietLogger())
	if !now.IsZero() {
		d.now = func() time.Time { return now }
	}
	return d
}

func TestRunStoresFactExactlyOnce(t *testing.T) {
	t.Parallel()

	llm := &fakeProvider{responses: []string{
		`{"category": "FACT", "fact": "User likes pizza", "fact_category": "preference"}`,
	}}
	mem := &fakeMemory{}
	d := newTestDriver(llm, mem, time.Time{})

	st := State{InputText: "I really like pizza", Username: "ivy", AudioMode: true}
	d.Run(context.Background(), &st)

	require.Len(t, mem.facts, 1)
	assert.Equal(t, "ivy", mem.facts[0].username)
	assert.Equal(t, "User likes pizza", mem.facts[0].fact)
	assert.Equal(t, models.KnowledgePreference, mem.facts[0].category)
	assert.Equal(t, CategoryFact, st.Category)
	assert.Contains(t, st.ReasoningContext, "Stored fact: User likes pizza")
}

func TestRunSchedulesEventAtOffset(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	llm := &fakeProvider{responses: []string{
		`{"category": "EVENT", "event": {"description": "call mom", "time_offset_minutes": 60}}`,
	}}
	mem := &fakeMemory{}
	d := newTestDriver(llm, mem, now)

	st := State{InputText: "Remind me to call mom in an hour", Username: "ivy", AudioMode: true}
	d.Run(context.Background(), &st)

	require.Len(t, mem.events, 1)
	assert.Equal(t, "call mom", mem.events[0].description)
	assert.Equal(t, now.Add(time.Hour), mem.events[0].at)
	assert.Contains(t, st.ReasoningContext, "Scheduled: call mom")
}

func TestRunClampsEventOffset(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset string
		want   time.Time
	}{
		{name: "negative clamps to now", offset: "-30", want: now},
		{name: "beyond a year clamps to a year", offset: "99999999", want: now.Add(maxEventOffsetMinutes * time.Minute)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			llm := &fakeProvider{responses: []string{
				`{"category": "EVENT", "event": {"description": "dentist", "time_offset_minutes": ` + tc.offset + `}}`,
			}}
			mem := &fakeMemory{}
			d := newTestDriver(llm, mem, now)

			st := State{InputText: "dentist", Username: "ivy", AudioMode: true}
			d.Run(context.Background(), &st)

			require.Len(t, mem.events, 1)
			assert.Equal(t, tc.want, mem.events[0].at)
		})
	}
}

func TestRunMalformedResponseDegradesToChat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp string
	}{
		{name: "no json at all", resp: "sorry, I cannot classify that"},
		{name: "broken json", resp: `{"category": "FACT", "fact": `},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			llm := &fakeProvider{responses: []string{tc.resp}}
			mem := &fakeMemory{}
			d := newTestDriver(llm, mem, time.Time{})

			st := State{InputText: "hello", Username: "ivy", AudioMode: true}
			d.Run(context.Background(), &st)

			assert.Equal(t, CategoryChat, st.Category)
			assert.Empty(t, mem.facts)
			assert.Empty(t, mem.events)
		})
	}
}

func TestRunEventWithoutDescriptionDegradesToChat(t *testing.T) {
	t.Parallel()

	llm := &fakeProvider{responses: []string{`{"category": "EVENT"}`}}
	mem := &fakeMemory{}
	d := newTestDriver(llm, mem, time.Time{})

	st := State{InputText: "remind me", Username: "ivy", AudioMode: true}
	d.Run(context.Background(), &st)

	assert.Equal(t, CategoryChat, st.Category)
	assert.Contains(t, st.ReasoningContext, "Failed to extract event details")
	assert.Empty(t, mem.events)
}

func TestRunClassificationErrorDegradesToChat(t *testing.T) {
	t.Parallel()

	llm := &fakeProvider{errs: []error{errors.New("upstream timeout")}}
	mem := &fakeMemory{}
	d := newTestDriver(llm, mem, time.Time{})

	st := State{InputText: "hello", Username: "ivy", AudioMode: true}
	d.Run(context.Background(), &st)

	assert.Equal(t, CategoryChat, st.Category)
	assert.Contains(t, st.ReasoningContext, "Classification unavailable")
}

func TestRunAudioModeSkipsGeneration(t *testing.T) {
	t.Parallel()

	llm := &fakeProvider{responses: []string{`{"category": "CHAT"}`}}
	mem := &fakeMemory{}
	d := newTestDriver(llm, mem, time.Time{})

	st := State{InputText: "hello", Username: "ivy", AudioMode: true}
	d.Run(context.Background(), &st)

	assert.Empty(t, st.FinalResponse)
	assert.Equal(t, 1, llm.callCount())
}

func TestRunGeneratesReplyInTextMode(t *testing.T) {
	t.Parallel()

	llm := &fakeProvider{responses: []string{
		`{"category": "CHAT"}`,
		"Hey there, how can I help?",
	}}
	mem := &fakeMemory{
		knowledge: []models.UserKnowledge{{Fact: "User likes pizza"}},
		upcoming:  []models.Event{{Description: "dentist", EventTime: time.Now().Add(time.Hour)}},
	}
	d := newTestDriver(llm, mem, time.Time{})

	st := State{InputText: "hello", Username: "ivy", Profile: models.Profile{Name: "Ivy"}}
	d.Run(context.Background(), &st)

	assert.Equal(t, "Hey there, how can I help?", st.FinalResponse)
	require.Equal(t, 2, llm.callCount())
	assert.Contains(t, llm.prompts[1], "User likes pizza")
	assert.Contains(t, llm.prompts[1], "dentist")
	assert.Contains(t, llm.prompts[1], "talking to Ivy")
}

func TestRunGenerationFailureYieldsFallback(t *testing.T) {
	t.Parallel()

	llm := &fakeProvider{
		responses: []string{`{"category": "CHAT"}`, ""},
		errs:      []error{nil, errors.New("model unavailable")},
	}
	mem := &fakeMemory{}
	d := newTestDriver(llm, mem, time.Time{})

	st := State{InputText: "hello", Username: "ivy"}
	d.Run(context.Background(), &st)

	assert.Equal(t, generationFallback, st.FinalResponse)
}

func TestParseCategoryTolerance(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryFact, parseCategory(" fact "))
	assert.Equal(t, CategoryEvent, parseCategory("Category: EVENT"))
	assert.Equal(t, CategoryChat, parseCategory("banter"))
	assert.Equal(t, CategoryChat, parseCategory(""))
}
