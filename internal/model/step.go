package model

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies what a recorded step does when replayed.
type Action string

const (
	ActionClick         Action = "click"
	ActionType          Action = "type"
	ActionHotkey        Action = "hotkey"
	ActionWait          Action = "wait"
	ActionWaitUntil     Action = "wait_until"
	ActionFocus         Action = "focus"
	ActionReadClipboard Action = "read_clipboard"
	ActionScroll        Action = "scroll"
	ActionUnknown       Action = "unknown"
)

// ParseAction maps a persisted tag to a known action, falling back to
// ActionUnknown so old or hand-edited project files still load.
func ParseAction(s string) Action {
	switch Action(s) {
	case ActionClick, ActionType, ActionHotkey, ActionWait, ActionWaitUntil,
		ActionFocus, ActionReadClipboard, ActionScroll:
		return Action(s)
	}
	return ActionUnknown
}

// Channel is a logical grouping tag for steps.
type Channel string

const (
	ChannelWeb Channel = "web"
	ChannelSAP Channel = "sap"
	ChannelWin Channel = "win"
)

// Locator type tags. The locator string's grammar is implied by the tag:
// coords/scroll use "x=<int>,y=<int>[,button=<name>]", the _rel variants use
// client-normalized "nx=<float>,ny=<float>[,button=<name>]".
const (
	LocatorWindow     = "window"
	LocatorCoords     = "coords"
	LocatorCoordsRel  = "coords_rel"
	LocatorScroll     = "scroll"
	LocatorScrollRel  = "scroll_rel"
	LocatorTypeText   = "type"
	LocatorAddressBar = "address_bar"
	LocatorHotkey     = "hotkey"
	LocatorClipboard  = "clipboard"
)

// ScrollDelta is the wheel movement attached to a scroll step.
type ScrollDelta struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Point is a raw screen coordinate kept as fallback metadata next to a
// normalized locator.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step is one recorded, replayable action.
type Step struct {
	ID      string  `json:"id"`
	TS      float64 `json:"ts"`
	Channel Channel `json:"channel"`
	Action  Action  `json:"action"`

	// window/app context at capture time
	WindowTitle string `json:"window_title"`
	ProcessName string `json:"process_name"`
	PID         int    `json:"pid,omitempty"`
	Handle      int64  `json:"hwnd,omitempty"`

	// targeting
	LocatorType string `json:"locator_type"`
	Locator     string `json:"locator"`

	// payload / IO mapping
	Value     string `json:"value"`
	InputRef  string `json:"input_ref"`
	OutputRef string `json:"output_ref"`

	// execution controls
	WaitMS int    `json:"wait_ms"`
	Notes  string `json:"notes"`

	Scroll *ScrollDelta   `json:"scroll,omitempty"`
	Screen *Point         `json:"screen,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// NewStep creates a step with a fresh id and the current timestamp.
func NewStep(action Action) Step {
	return Step{
		ID:      uuid.NewString(),
		TS:      nowUnix(),
		Channel: ChannelWin,
		Action:  action,
	}
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
