package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yoockh/yoobuddy/internal/models"
)

// Event offsets are model-controlled input; clamp to [0, one year].
const maxEventOffsetMinutes = 525600

const classifyPrompt = `Analyze the following user input.
Classify into ONE category: FACT, EVENT, CHAT.

- FACT: the user states a preference, habit, or memory (e.g. "I like pizza", "My birthday is in June").
- EVENT: the user mentions a task, meeting, or reminder (e.g. "Remind me to buy milk", "Meeting tomorrow at 9").
- CHAT: general conversation.

Return ONLY a JSON object:
{"category": "CHAT|FACT|EVENT",
 "fact": "the extracted fact statement (FACT only)",
 "fact_category": "preference|memory|other (FACT only)",
 "event": {"description": "...", "time_offset_minutes": 60} (EVENT only)}

Input: %s
Output:`

type extraction struct {
	Category     string `json:"category"`
	Fact         string `json:"fact"`
	FactCategory string `json:"fact_category"`
	Event        *struct {
		Description       string  `json:"description"`
		TimeOffsetMinutes float64 `json:"time_offset_minutes"`
	} `json:"event"`
}

// classify calls the external reasoning function exactly once and
// applies the category's side effect. Every failure path degrades to
// CHAT with a note; nothing propagates out.
func (d *Driver) classify(ctx context.Context, st *State) {
	resp, err := d.llm.Complete(ctx, fmt.Sprintf(classifyPrompt, st.InputText))
	if err != nil {
		d.log.WithError(err).WithField("username", st.Username).Warn("pipeline: classification call failed")
		st.Category = CategoryChat
		st.ReasoningContext = "Intent detected: CHAT. Classification unavailable."
		return
	}

	ext, err := parseExtraction(resp)
	if err != nil {
		d.log.WithError(err).WithField("username", st.Username).Warn("pipeline: malformed classification response")
		st.Category = CategoryChat
		st.ReasoningContext = "Intent detected: CHAT. Failed to parse classification: " + err.Error()
		return
	}

	category := parseCategory(ext.Category)
	st.Category = category
	st.ReasoningContext = "Intent detected: " + string(category)

	switch category {
	case CategoryFact:
		fact := strings.TrimSpace(ext.Fact)
		if fact == "" {
			st.ReasoningContext += ". No fact to store."
			return
		}
		if err := d.memory.StoreFact(ctx, st.Username, fact, factCategory(ext.FactCategory)); err != nil {
			d.log.WithError(err).WithField("username", st.Username).Error("pipeline: fact store failed")
			st.ReasoningContext += ". Failed to store fact."
			return
		}
		st.ReasoningContext += ". Stored fact: " + fact

	case CategoryEvent:
		if ext.Event == nil || strings.TrimSpace(ext.Event.Description) == "" {
			st.Category = CategoryChat
			st.ReasoningContext = "Intent detected: CHAT. Failed to extract event details."
			return
		}
		desc := strings.TrimSpace(ext.Event.Description)
		eventTime := d.now().Add(clampOffset(ext.Event.TimeOffsetMinutes))
		if err := d.memory.StoreEvent(ctx, st.Username, desc, eventTime, "task"); err != nil {
			d.log.WithError(err).WithField("username", st.Username).Error("pipeline: event store failed")
			st.ReasoningContext += ". Failed to store event."
			return
		}
		st.ReasoningContext += fmt.Sprintf(". Scheduled: %s at %s", desc, eventTime.Format(time.RFC3339))
	}
}

// parseExtraction tolerates prose around the JSON object: it slices
// from the first "{" to the last "}" before unmarshalling.
func parseExtraction(resp string) (*extraction, error) {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var ext extraction
	if err := json.Unmarshal([]byte(resp[start:end+1]), &ext); err != nil {
		return nil, err
	}
	return &ext, nil
}

func parseCategory(s string) Category {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "FACT"):
		return CategoryFact
	case strings.Contains(s, "EVENT"):
		return CategoryEvent
	default:
		return CategoryChat
	}
}

func factCategory(s string) models.KnowledgeCategory {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "preference":
		return models.KnowledgePreference
	case "memory":
		return models.KnowledgeMemory
	default:
		return models.KnowledgeOther
	}
}

func clampOffset(minutes float64) time.Duration {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > maxEventOffsetMinutes {
		minutes = maxEventOffsetMinutes
	}
	return time.Duration(minutes * float64(time.Minute))
}
