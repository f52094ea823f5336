package sessions

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryAddAndLines(t *testing.T) {
	t.Parallel()

	h := NewHistory(10)
	h.Add("user", "hello")
	h.Add("assistant", "hi there")

	assert.Equal(t, []string{"user: hello", "assistant: hi there"}, h.Lines())
	assert.Equal(t, 2, h.Len())
}

func TestHistoryEvictsOldestBeyondLimit(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Add("user", fmt.Sprintf("m%d", i))
	}

	assert.Equal(t, []string{"user: m3", "user: m4", "user: m5"}, h.Lines())
}

func TestHistoryLinesReturnsCopy(t *testing.T) {
	t.Parallel()

	h := NewHistory(5)
	h.Add("user", "hello")

	lines := h.Lines()
	lines[0] = "mutated"
	assert.Equal(t, []string{"user: hello"}, h.Lines())
}

func TestHistoryClear(t *testing.T) {
	t.Parallel()

	h := NewHistory(5)
	h.Add("user", "hello")
	h.Clear()

	assert.Zero(t, h.Len())
	assert.Empty(t, h.Lines())
}

func TestHistoryDefaultLimit(t *testing.T) {
	t.Parallel()

	h := NewHistory(0)
	for i := 0; i < defaultHistoryLimit+5; i++ {
		h.Add("user", "x")
	}
	assert.Equal(t, defaultHistoryLimit, h.Len())
}
