package runner

import (
	"regexp"
	"strings"

	"github.com/stepwright/stepwright/internal/winctl"
)

// hotkeyKeys maps recorded hotkey tokens to synthetic key names.
var hotkeyKeys = map[string]string{
	"ENTER":     "enter",
	"TAB":       "tab",
	"BACKSPACE": "backspace",
	"ESC":       "escape",
	"SPACE":     "space",
	"UP":        "up",
	"DOWN":      "down",
	"LEFT":      "left",
	"RIGHT":     "right",
	"HOME":      "home",
	"END":       "end",
	"PGUP":      "page_up",
	"PGDN":      "page_down",
	"DELETE":    "delete",
}

var ctrlComboRe = regexp.MustCompile(`^CTRL\+([A-Z0-9])$`)

// sendHotkey replays a recorded hotkey token: CTRL+<letter> synthesizes one
// keystroke with ctrl held, known tokens press their key, and anything else
// is typed literally as an escape hatch.
func sendHotkey(in winctl.Input, token string) {
	hk := strings.ToUpper(strings.TrimSpace(token))
	if hk == "" {
		return
	}

	if m := ctrlComboRe.FindStringSubmatch(hk); m != nil {
		in.TapKey(strings.ToLower(m[1]), "ctrl")
		return
	}

	if key, ok := hotkeyKeys[hk]; ok {
		in.TapKey(key)
		return
	}

	in.TypeText(hk)
}
