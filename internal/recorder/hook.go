package recorder

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// libuiohook wheel directions.
const (
	wheelVertical   = 3
	wheelHorizontal = 4
)

// Hook pumps global input events from gohook into a recorder. It owns the
// hook goroutine; the recorder itself stays source-agnostic so tests can
// drive it directly.
type Hook struct {
	rec *Recorder

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// NewHook attaches a global input hook to the recorder.
func NewHook(rec *Recorder) *Hook {
	return &Hook{rec: rec}
}

// Start installs the hook and begins forwarding events.
func (h *Hook) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	h.stop = make(chan struct{})
	go h.loop(h.stop)
}

// Stop uninstalls the hook.
func (h *Hook) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.stop)
}

func (h *Hook) loop(stop <-chan struct{}) {
	evChan := hook.Start()
	defer hook.End()

	for {
		select {
		case ev := <-evChan:
			h.dispatch(ev)
		case <-stop:
			return
		}
	}
}

func (h *Hook) dispatch(ev hook.Event) {
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		h.rec.KeyDown(keyFromEvent(ev))
	case hook.KeyUp:
		h.rec.KeyUp(keyFromEvent(ev))
	case hook.MouseDown:
		h.rec.MouseDown(int(ev.X), int(ev.Y), buttonName(ev.Button))
	case hook.MouseWheel:
		dx, dy := wheelDelta(ev)
		h.rec.Wheel(int(ev.X), int(ev.Y), dx, dy)
	}
}

// canonicalKeyNames folds the per-platform raw key names gohook reports
// into the recorder's named-key vocabulary.
var canonicalKeyNames = map[string]string{
	"ctrl": "ctrl", "lctrl": "ctrl", "rctrl": "ctrl", "control": "ctrl",
	"shift": "shift", "lshift": "shift", "rshift": "shift",
	"alt": "alt", "lalt": "alt", "ralt": "alt",
	"cmd": "cmd", "lcmd": "cmd", "rcmd": "cmd", "command": "cmd",
	"enter": "enter", "return": "enter",
	"tab":       "tab",
	"backspace": "backspace",
	"space":     "space",
	"esc":       "esc", "escape": "esc",
}

func keyFromEvent(ev hook.Event) Key {
	name := hook.RawcodetoKeychar(ev.Rawcode)
	if canonical, ok := canonicalKeyNames[name]; ok {
		return Key{Name: canonical}
	}
	return Key{Char: ev.Keychar}
}

func buttonName(button uint16) string {
	switch button {
	case 2:
		return "right"
	case 3:
		return "center"
	default:
		return "left"
	}
}

func wheelDelta(ev hook.Event) (dx, dy int) {
	if ev.Direction == wheelHorizontal {
		return int(ev.Rotation), 0
	}
	return 0, int(ev.Rotation)
}
