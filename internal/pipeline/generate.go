package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const generationFallback = "I'm having trouble generating a response right now."

// generate composes a reply from freshly retrievable memory plus the
// classification summary. Any failure yields the fixed fallback string.
func (d *Driver) generate(ctx context.Context, st *State) {
	knowledge, err := d.memory.RetrieveKnowledge(ctx, st.Username, st.InputText, 5)
	if err != nil {
		d.log.WithError(err).WithField("username", st.Username).Warn("pipeline: knowledge retrieval failed")
	}
	events, err := d.memory.UpcomingEvents(ctx, st.Username, 5)
	if err != nil {
		d.log.WithError(err).WithField("username", st.Username).Warn("pipeline: event retrieval failed")
	}

	knowledgeStr := "None"
	if len(knowledge) > 0 {
		var lines []string
		for _, k := range knowledge {
			lines = append(lines, "- "+k.Fact)
		}
		knowledgeStr = strings.Join(lines, "\n")
	}

	eventsStr := "None"
	if len(events) > 0 {
		var lines []string
		for _, e := range events {
			lines = append(lines, fmt.Sprintf("- %s at %s", e.Description, e.EventTime.Format(time.RFC1123)))
		}
		eventsStr = strings.Join(lines, "\n")
	}

	name := st.Profile.Name
	if name == "" {
		name = "User"
	}

	historyStr := "No previous messages"
	if len(st.ChatHistory) > 0 {
		hist := st.ChatHistory
		if len(hist) > 5 {
			hist = hist[len(hist)-5:]
		}
		historyStr = strings.Join(hist, "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI companion. You are talking to %s.\n\n", name)
	fmt.Fprintf(&b, "Relevant Memories:\n%s\n\n", knowledgeStr)
	fmt.Fprintf(&b, "Upcoming Events:\n%s\n\n", eventsStr)
	fmt.Fprintf(&b, "Chat History:\n%s\n", historyStr)
	if st.ReasoningContext != "" {
		fmt.Fprintf(&b, "\nRecent Context (from reasoning):\n%s\n", st.ReasoningContext)
	}
	if st.SceneContext != "" {
		fmt.Fprintf(&b, "\nVisual Context (what the camera currently sees):\n%s\n", st.SceneContext)
	}
	if st.EmotionContext != "" {
		fmt.Fprintf(&b, "\nDetected Emotion:\n%s\n", st.EmotionContext)
	}
	b.WriteString("\nRespond naturally, empathetically, and concisely to the user.\n" +
		"If the recent context shows a fact was just stored or an event was scheduled, acknowledge it warmly.")
	fmt.Fprintf(&b, "\n\nUser: %s", st.InputText)

	reply, err := d.llm.Complete(ctx, b.String())
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			d.log.WithError(err).WithField("username", st.Username).Error("pipeline: generation failed")
		}
		st.FinalResponse = generationFallback
		return
	}
	st.FinalResponse = strings.TrimSpace(reply)
}
