package winctl

import (
	"log/slog"
	"strings"

	"github.com/go-vgo/robotgo"
)

// Input is the synthetic-input capability the runner drives.
type Input interface {
	MoveMouse(x, y int)
	Click(button string)
	Scroll(dx, dy int)
	TypeText(text string)
	TapKey(key string, mods ...string)
}

// RobotInput implements Input on robotgo.
type RobotInput struct {
	Log *slog.Logger
}

func (in *RobotInput) logger() *slog.Logger {
	if in.Log != nil {
		return in.Log
	}
	return slog.Default()
}

func (in *RobotInput) MoveMouse(x, y int) {
	robotgo.Move(x, y)
}

// Click dispatches one press of the named button. Unrecognized names fall
// back to a left click.
func (in *RobotInput) Click(button string) {
	switch strings.ToLower(button) {
	case "right":
		robotgo.Click("right", false)
	case "center", "middle":
		robotgo.Click("center", false)
	default:
		robotgo.Click("left", false)
	}
}

func (in *RobotInput) Scroll(dx, dy int) {
	robotgo.Scroll(dx, dy)
}

func (in *RobotInput) TypeText(text string) {
	if text == "" {
		return
	}
	robotgo.TypeStr(text)
}

// Named keys robotgo understands directly; anything else single-char goes
// through KeyTap as-is and multi-char falls back to literal typing.
var namedKeys = map[string]bool{
	"enter": true, "tab": true, "space": true, "backspace": true, "delete": true,
	"escape": true, "up": true, "down": true, "left": true, "right": true,
	"home": true, "end": true, "page_up": true, "page_down": true,
	"f1": true, "f2": true, "f3": true, "f4": true, "f5": true,
	"f6": true, "f7": true, "f8": true, "f9": true, "f10": true,
	"f11": true, "f12": true,
}

// TapKey presses one key with the given modifiers held.
func (in *RobotInput) TapKey(key string, mods ...string) {
	defer func() {
		if r := recover(); r != nil {
			in.logger().Warn("keyboard operation failed", "key", key, "error", r)
		}
	}()

	args := make([]interface{}, len(mods))
	for i, mod := range mods {
		args[i] = canonicalModifier(mod)
	}

	switch {
	case len(key) == 1:
		if err := robotgo.KeyTap(key, args...); err != nil {
			in.logger().Warn("key tap failed", "key", key, "error", err)
		}
	case namedKeys[key]:
		if err := robotgo.KeyTap(key, args...); err != nil {
			in.logger().Warn("key tap failed", "key", key, "error", err)
		}
	default:
		robotgo.TypeStr(key)
	}
}

func canonicalModifier(mod string) string {
	switch strings.ToLower(mod) {
	case "command", "cmd", "super":
		return "command"
	case "control", "ctrl":
		return "control"
	case "alt", "option":
		return "alt"
	case "shift":
		return "shift"
	default:
		return mod
	}
}

// ReadClipboard returns the current clipboard text, or "" when the
// clipboard is unreadable or holds no text.
func ReadClipboard() string {
	text, err := robotgo.ReadAll()
	if err != nil {
		return ""
	}
	return text
}

// ProcessNames returns the names of all running processes, lowercased.
// Best-effort: an enumeration failure yields an empty list.
func ProcessNames() []string {
	procs, err := robotgo.Process()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		names = append(names, strings.ToLower(p.Name))
	}
	return names
}
