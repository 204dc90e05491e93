package recorder

import (
	"sync"
	"time"
)

// ClipboardWatcher polls the clipboard at a fixed interval and invokes its
// callback whenever the text snapshot changes. Polling naturally coalesces
// rapid changes; there is no queue.
type ClipboardWatcher struct {
	read     func() string
	onText   func(string)
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	running bool
	last    string
}

// NewClipboardWatcher builds a watcher over the given clipboard source.
func NewClipboardWatcher(read func() string, onText func(string), interval time.Duration) *ClipboardWatcher {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &ClipboardWatcher{
		read:     read,
		onText:   onText,
		interval: interval,
	}
}

// Start launches the poll goroutine. Starting a running watcher is a no-op.
func (w *ClipboardWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stop = make(chan struct{})
	go w.loop(w.stop)
}

// Stop halts polling. Safe to call on a stopped watcher.
func (w *ClipboardWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stop)
}

func (w *ClipboardWatcher) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.poll()
		case <-stop:
			return
		}
	}
}

func (w *ClipboardWatcher) poll() {
	text := w.read()
	if text == "" {
		return
	}

	w.mu.Lock()
	changed := text != w.last
	if changed {
		w.last = text
	}
	w.mu.Unlock()

	if changed {
		w.onText(text)
	}
}
