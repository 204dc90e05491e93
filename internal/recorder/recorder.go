// Package recorder turns raw keyboard, mouse and clipboard activity into an
// ordered stream of steps. Typed characters are aggregated in a buffer and
// flushed either on idle or when a committing action (click, scroll, hotkey,
// Enter, Tab, stop) forces the buffered text out first.
package recorder

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/stepwright/stepwright/internal/model"
	"github.com/stepwright/stepwright/internal/winctl"
)

const (
	// flushTick is how often the background ticker attempts a non-forced
	// flush of the type buffer.
	flushTick = 100 * time.Millisecond

	// addressBarWindow is how long address-bar mode stays armed after
	// Ctrl+L (or after a flush that refreshed it).
	addressBarWindow = 5 * time.Second
)

// Config tunes the recorder's aggregation behavior.
type Config struct {
	Channel model.Channel

	// TypeFlushDelay is the idle gap after which buffered typing is
	// committed.
	TypeFlushDelay time.Duration

	// IgnoreShortClipboard drops clipboard changes shorter than this many
	// characters. Zero records everything.
	IgnoreShortClipboard int

	// ClipboardPoll is the clipboard snapshot interval.
	ClipboardPoll time.Duration

	// ReadClipboard overrides the clipboard source. Defaults to the system
	// clipboard.
	ReadClipboard func() string
}

func (c Config) withDefaults() Config {
	if c.Channel == "" {
		c.Channel = model.ChannelWin
	}
	if c.TypeFlushDelay <= 0 {
		c.TypeFlushDelay = 700 * time.Millisecond
	}
	if c.ClipboardPoll <= 0 {
		c.ClipboardPoll = 200 * time.Millisecond
	}
	if c.ReadClipboard == nil {
		c.ReadClipboard = winctl.ReadClipboard
	}
	return c
}

// EmitFunc receives each completed step, in order. It is called from the
// recorder's event and ticker goroutines and is assumed single-consumer.
type EmitFunc func(model.Step)

// Key is one raw keyboard event as seen by the hook adapter. Named keys
// (modifiers, enter, tab, backspace, space, esc) carry Name; plain
// character keys carry Char.
type Key struct {
	Name string
	Char rune
}

func (k Key) id() string {
	if k.Name != "" {
		return k.Name
	}
	return string(k.Char)
}

// Recorder aggregates raw events into steps. All state shared between the
// raw-event context, the flush ticker and the clipboard poller lives behind
// one mutex.
type Recorder struct {
	cfg     Config
	emit    EmitFunc
	windows winctl.Windows
	log     *slog.Logger

	mu       sync.Mutex
	running  bool
	paused   bool
	pressed  map[string]bool
	buf      []rune
	lastType time.Time

	addrArmed   bool
	addrArmedAt time.Time

	stopFlush chan struct{}
	clip      *ClipboardWatcher

	now func() time.Time
}

// New creates a recorder that reports steps through emit using the given
// window collaborator.
func New(emit EmitFunc, windows winctl.Windows, cfg Config, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{
		cfg:     cfg.withDefaults(),
		emit:    emit,
		windows: windows,
		log:     log,
		pressed: make(map[string]bool),
		now:     time.Now,
	}
	r.clip = NewClipboardWatcher(r.cfg.ReadClipboard, r.onClipboardText, r.cfg.ClipboardPoll)
	return r
}

// IsRunning reports whether the recorder is started.
func (r *Recorder) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// IsPaused reports whether emission is currently suppressed.
func (r *Recorder) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Start begins recording: the idle-flush ticker and the clipboard watcher
// come up and a focus bookmark is emitted. Raw events are fed in by the
// caller (see Hook).
func (r *Recorder) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.paused = false
	r.stopFlush = make(chan struct{})
	stop := r.stopFlush
	r.mu.Unlock()

	go r.flushLoop(stop)
	r.clip.Start()

	r.emitFocus("Recording started")
	r.log.Info("recording started")
}

// Pause suppresses emission. Modifier tracking keeps running so a key held
// across pause/resume is not lost.
func (r *Recorder) Pause() {
	r.mu.Lock()
	if !r.running || r.paused {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.emitFocus("Paused recording")

	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
	r.log.Info("recording paused")
}

// Resume re-enables emission after Pause.
func (r *Recorder) Resume() {
	r.mu.Lock()
	if !r.running || !r.paused {
		r.mu.Unlock()
		return
	}
	r.paused = false
	r.mu.Unlock()

	r.emitFocus("Resumed recording")
	r.log.Info("recording resumed")
}

// Stop force-flushes buffered typing, detaches the ticker and clipboard
// watcher, and emits a final focus bookmark.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.flush(true)

	r.mu.Lock()
	r.running = false
	r.paused = false
	close(r.stopFlush)
	r.stopFlush = nil
	r.mu.Unlock()

	r.clip.Stop()

	// One last bookmark; running is already false so emitFocus is called
	// directly rather than through the gated helpers.
	r.emitStep(r.focusStep("Recording stopped"))
	r.log.Info("recording stopped")
}

// KeyDown handles one raw key-down. The pressed set is maintained even
// while paused so pause can never desynchronize modifier state.
func (r *Recorder) KeyDown(k Key) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.pressed[k.id()] = true
	if r.paused {
		r.mu.Unlock()
		return
	}
	ctrlDown := r.pressed["ctrl"]
	now := r.now()

	// Plain typing and the backspace sentinel only touch the buffer.
	switch {
	case ctrlDown && k.Char != 0:
		r.mu.Unlock()
		r.handleCtrlCombo(k)
		return
	case k.Name == "" && k.Char != 0:
		r.buf = append(r.buf, k.Char)
		r.lastType = now
		r.mu.Unlock()
		return
	case k.Name == "space":
		r.buf = append(r.buf, ' ')
		r.lastType = now
		r.mu.Unlock()
		return
	case k.Name == "backspace":
		r.buf = append(r.buf, '\b')
		r.lastType = now
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	switch k.Name {
	case "enter":
		r.flush(true)
		r.emitHotkey("ENTER")
		r.disarmAddressBar(true)
	case "tab":
		r.flush(true)
		r.emitHotkey("TAB")
		r.disarmAddressBar(false)
	}
}

// KeyUp removes the key from the pressed set regardless of pause state.
func (r *Recorder) KeyUp(k Key) {
	r.mu.Lock()
	delete(r.pressed, k.id())
	r.mu.Unlock()
}

// handleCtrlCombo normalizes a ctrl+letter chord. The hook may deliver the
// combination either as the literal letter with ctrl held or as a single
// control-code character (0x01..0x1A); both normalize to CTRL+<LETTER>.
func (r *Recorder) handleCtrlCombo(k Key) {
	ch := k.Char

	letter, ok := ctrlCharToLetter(ch)
	if !ok {
		letter = string(unicode.ToUpper(ch))
	}
	hk := "CTRL+" + letter

	r.flush(true)
	r.emitHotkey(hk)

	// Ctrl+L arms address-bar mode: the next TYPE flush inside the
	// staleness window is tagged as address-bar input.
	if letter == "L" {
		r.mu.Lock()
		r.addrArmed = true
		r.addrArmedAt = r.now()
		r.mu.Unlock()
	}
}

// ctrlCharToLetter maps a control-code rune back to its letter:
// 0x01 => A .. 0x1A => Z.
func ctrlCharToLetter(ch rune) (string, bool) {
	if ch >= 1 && ch <= 26 {
		return string(rune('A' + ch - 1)), true
	}
	return "", false
}

// MouseDown handles a button press (button-down only). The buffered typing
// is flushed first so a TYPE step always precedes the click that ended it.
func (r *Recorder) MouseDown(x, y int, button string) {
	if !r.active() {
		return
	}
	r.flush(true)

	wi := r.windows.Foreground()
	step := r.newStep(model.ActionClick, wi)

	if rect, ok := r.clientRect(wi.Handle); ok {
		nx, ny, _ := winctl.Normalize(rect, x, y)
		step.LocatorType = model.LocatorCoordsRel
		step.Locator = fmt.Sprintf("nx=%.6f,ny=%.6f,button=%s", nx, ny, button)
		// Raw point kept as fallback metadata: normalized coords survive a
		// window move, absolutes do not.
		step.Screen = &model.Point{X: x, Y: y}
	} else {
		step.LocatorType = model.LocatorCoords
		step.Locator = fmt.Sprintf("x=%d,y=%d,button=%s", x, y, button)
	}

	r.emitStep(step)
}

// Wheel handles a scroll event with the same point-capture strategy as a
// click, plus the wheel delta.
func (r *Recorder) Wheel(x, y, dx, dy int) {
	if !r.active() {
		return
	}
	r.flush(true)

	wi := r.windows.Foreground()
	step := r.newStep(model.ActionScroll, wi)
	step.Notes = "Mouse wheel scroll"
	step.Scroll = &model.ScrollDelta{DX: dx, DY: dy}

	if rect, ok := r.clientRect(wi.Handle); ok {
		nx, ny, _ := winctl.Normalize(rect, x, y)
		step.LocatorType = model.LocatorScrollRel
		step.Locator = fmt.Sprintf("nx=%.6f,ny=%.6f", nx, ny)
		step.Screen = &model.Point{X: x, Y: y}
	} else {
		step.LocatorType = model.LocatorScroll
		step.Locator = fmt.Sprintf("x=%d,y=%d", x, y)
	}

	r.emitStep(step)
}

func (r *Recorder) clientRect(handle int64) (winctl.Rect, bool) {
	if handle == 0 || !r.windows.IsValid(handle) {
		return winctl.Rect{}, false
	}
	rect, ok := r.windows.ClientRect(handle)
	if !ok || rect.Zero() {
		return winctl.Rect{}, false
	}
	return rect, true
}

// onClipboardText is the clipboard watcher callback. Clipboard steps are
// emitted immediately and are deliberately not ordered against typing that
// has not flushed yet.
func (r *Recorder) onClipboardText(text string) {
	if !r.active() {
		return
	}
	if r.cfg.IgnoreShortClipboard > 0 && len(text) < r.cfg.IgnoreShortClipboard {
		return
	}

	wi := r.windows.Foreground()
	step := r.newStep(model.ActionReadClipboard, wi)
	step.Value = text
	step.LocatorType = model.LocatorClipboard
	step.Locator = "CF_UNICODETEXT"
	r.emitStep(step)
}

func (r *Recorder) flushLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(flushTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.flush(false)
		case <-stop:
			return
		}
	}
}

// flush commits the type buffer as one TYPE step. A non-forced flush only
// commits once the idle gap exceeds the configured delay.
func (r *Recorder) flush(force bool) {
	r.mu.Lock()
	if !r.running || r.paused || len(r.buf) == 0 {
		r.mu.Unlock()
		return
	}
	now := r.now()
	if !force && now.Sub(r.lastType) < r.cfg.TypeFlushDelay {
		r.mu.Unlock()
		return
	}

	raw := string(r.buf)
	r.buf = r.buf[:0]

	locatorType := model.LocatorTypeText
	notes := ""
	if r.addrArmed && now.Sub(r.addrArmedAt) <= addressBarWindow {
		locatorType = model.LocatorAddressBar
		notes = "Address bar input (Ctrl+L)"
		// Stay armed until Enter; each tagged flush extends the window.
		r.addrArmedAt = now
	}
	r.mu.Unlock()

	text := applyBackspaces(raw)
	text = strings.NewReplacer("\r", "", "\n", "").Replace(text)
	if text == "" {
		return
	}

	wi := r.windows.Foreground()
	step := r.newStep(model.ActionType, wi)
	step.Value = text
	step.LocatorType = locatorType
	step.Notes = notes
	r.emitStep(step)
}

// applyBackspaces resolves the backspace sentinels left-to-right: each one
// deletes the immediately preceding buffered character. Sentinels never
// reach across a flush boundary because the buffer is cleared at flush.
func applyBackspaces(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, ch := range raw {
		if ch == '\b' {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, ch)
	}
	return string(out)
}

func (r *Recorder) disarmAddressBar(force bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.addrArmed {
		return
	}
	if force || r.now().Sub(r.addrArmedAt) > addressBarWindow {
		r.addrArmed = false
	}
}

func (r *Recorder) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && !r.paused
}

func (r *Recorder) emitHotkey(hotkey string) {
	if !r.active() {
		return
	}
	wi := r.windows.Foreground()
	step := r.newStep(model.ActionHotkey, wi)
	step.Value = hotkey
	step.LocatorType = model.LocatorHotkey
	step.Locator = hotkey
	r.emitStep(step)
}

func (r *Recorder) emitFocus(note string) {
	if !r.active() {
		return
	}
	r.emitStep(r.focusStep(note))
}

func (r *Recorder) focusStep(note string) model.Step {
	wi := r.windows.Foreground()
	step := r.newStep(model.ActionFocus, wi)
	step.Notes = note
	step.LocatorType = model.LocatorWindow
	step.Locator = fmt.Sprintf("hwnd=%d", wi.Handle)
	return step
}

func (r *Recorder) newStep(action model.Action, wi winctl.WindowInfo) model.Step {
	step := model.NewStep(action)
	step.Channel = r.cfg.Channel
	step.WindowTitle = wi.Title
	step.ProcessName = wi.ProcessName
	step.PID = wi.PID
	step.Handle = wi.Handle
	return step
}

func (r *Recorder) emitStep(step model.Step) {
	if r.emit != nil {
		r.emit(step)
	}
}
