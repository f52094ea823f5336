package sessions

import (
	"strings"
	"sync"
	"time"
)

// DefaultFlushDelay absorbs the gap between partial speech-recognition
// fragments that belong to one spoken sentence.
const DefaultFlushDelay = 1500 * time.Millisecond

// Debouncer accumulates streamed text fragments and flushes the joined
// utterance after delay of silence since the last append. At most one
// timer is outstanding; each append deterministically invalidates the
// previous one via a generation counter.
type Debouncer struct {
	mu        sync.Mutex
	delay     time.Duration
	fragments []string
	timer     *time.Timer
	gen       uint64
	flush     func(utterance string)
}

func NewDebouncer(delay time.Duration, flush func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Debouncer{delay: delay, flush: flush}
}

// Append adds a fragment and (re)starts the flush timer from zero.
func (d *Debouncer) Append(fragment string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fragments = append(d.fragments, fragment)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		// superseded by a newer append
		d.mu.Unlock()
		return
	}

	joined := strings.TrimSpace(strings.Join(d.fragments, " "))
	d.fragments = nil
	d.timer = nil
	d.mu.Unlock()

	if joined != "" && d.flush != nil {
		d.flush(joined)
	}
}

// Pending reports whether fragments are accumulating.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fragments) > 0
}

// Stop cancels any outstanding timer and drops buffered fragments.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.fragments = nil
}
