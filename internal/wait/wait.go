// Package wait implements the bounded polling primitives behind WAIT_UNTIL
// steps: elapsed time, window-title substring, process existence and
// clipboard substring.
package wait

import (
	"errors"
	"strings"
	"time"
)

// ErrTimeout reports a condition that was not met before its deadline.
// A WAIT_UNTIL timeout is the one per-step failure that aborts a run.
var ErrTimeout = errors.New("wait condition timed out")

// Kind selects which condition a spec polls for.
type Kind string

const (
	KindSeconds             Kind = "seconds"
	KindWindowTitleContains Kind = "window_title_contains"
	KindProcessExists       Kind = "process_exists"
	KindClipboardContains   Kind = "clipboard_contains"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultPoll    = 200 * time.Millisecond

	// minPoll floors every per-iteration sleep so a tiny requested poll
	// interval cannot busy-spin.
	minPoll = 20 * time.Millisecond
)

// Spec is a decoded wait condition.
type Spec struct {
	Kind    Kind
	Seconds float64 // KindSeconds
	Text    string  // title/clipboard substring
	Process string  // exact process name
	Timeout time.Duration
	Poll    time.Duration
}

// SpecFromMeta decodes a wait condition from a step's auxiliary map. The
// payload is genuinely dynamic (per-kind fields), which is why it rides in
// the open map rather than a fixed struct.
func SpecFromMeta(meta map[string]any) Spec {
	s := Spec{
		Kind:    Kind(strings.ToLower(strings.TrimSpace(metaString(meta, "kind")))),
		Seconds: metaFloat(meta, "seconds"),
		Text:    metaString(meta, "text"),
		Process: metaString(meta, "process"),
		Timeout: DefaultTimeout,
		Poll:    DefaultPoll,
	}
	if ms := metaInt(meta, "timeout_ms"); ms > 0 {
		s.Timeout = time.Duration(ms) * time.Millisecond
	}
	if ms := metaInt(meta, "poll_ms"); ms > 0 {
		s.Poll = time.Duration(ms) * time.Millisecond
	}
	return s
}

// Probes are the read-only queries the poll loops run against. All are
// best-effort: a nil probe or an empty result just means "not satisfied
// yet".
type Probes struct {
	WindowTitle func(handle int64) string
	Processes   func() []string
	Clipboard   func() string
}

// Seconds blocks for the given duration. Always satisfied.
func Seconds(seconds float64) bool {
	if seconds > 0 {
		time.Sleep(time.Duration(seconds * float64(time.Second)))
	}
	return true
}

// ForWindowTitle polls until the window's title contains text
// (case-insensitive). Returns false on timeout.
func ForWindowTitle(p Probes, handle int64, text string, timeout, poll time.Duration) bool {
	needle := strings.ToLower(text)
	return pollUntil(timeout, poll, func() bool {
		if p.WindowTitle == nil {
			return false
		}
		return strings.Contains(strings.ToLower(p.WindowTitle(handle)), needle)
	})
}

// ForProcess polls until a process with the exact name exists
// (case-insensitive). Returns false on timeout.
func ForProcess(p Probes, name string, timeout, poll time.Duration) bool {
	target := strings.ToLower(name)
	return pollUntil(timeout, poll, func() bool {
		if p.Processes == nil {
			return false
		}
		for _, n := range p.Processes() {
			if strings.ToLower(n) == target {
				return true
			}
		}
		return false
	})
}

// ForClipboard polls until the clipboard text contains the substring.
// Returns false on timeout.
func ForClipboard(p Probes, text string, timeout, poll time.Duration) bool {
	return pollUntil(timeout, poll, func() bool {
		if p.Clipboard == nil {
			return false
		}
		return strings.Contains(p.Clipboard(), text)
	})
}

func pollUntil(timeout, poll time.Duration, cond func() bool) bool {
	if poll < minPoll {
		poll = minPoll
	}
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(poll)
	}
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func metaFloat(meta map[string]any, key string) float64 {
	switch v := meta[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
