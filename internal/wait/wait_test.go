package wait

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecFromMeta(t *testing.T) {
	// JSON numbers arrive as float64.
	s := SpecFromMeta(map[string]any{
		"kind":       "Window_Title_Contains",
		"text":       "Login",
		"timeout_ms": float64(15000),
		"poll_ms":    float64(250),
	})

	assert.Equal(t, KindWindowTitleContains, s.Kind)
	assert.Equal(t, "Login", s.Text)
	assert.Equal(t, 15*time.Second, s.Timeout)
	assert.Equal(t, 250*time.Millisecond, s.Poll)
}

func TestSpecFromMetaDefaults(t *testing.T) {
	s := SpecFromMeta(map[string]any{"kind": "process_exists", "process": "saplogon.exe"})

	assert.Equal(t, KindProcessExists, s.Kind)
	assert.Equal(t, "saplogon.exe", s.Process)
	assert.Equal(t, DefaultTimeout, s.Timeout)
	assert.Equal(t, DefaultPoll, s.Poll)
}

func TestSeconds(t *testing.T) {
	start := time.Now()
	require.True(t, Seconds(0.05))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// Non-positive durations return immediately.
	require.True(t, Seconds(0))
	require.True(t, Seconds(-1))
}

func TestForWindowTitleSatisfied(t *testing.T) {
	var calls atomic.Int32
	p := Probes{
		WindowTitle: func(handle int64) string {
			if calls.Add(1) >= 3 {
				return "SAP Login - Production"
			}
			return "Loading"
		},
	}

	ok := ForWindowTitle(p, 42, "login", time.Second, 20*time.Millisecond)
	assert.True(t, ok)
}

func TestForProcessCaseInsensitive(t *testing.T) {
	p := Probes{
		Processes: func() []string { return []string{"Explorer.EXE", "saplogon.exe"} },
	}

	assert.True(t, ForProcess(p, "SAPLOGON.EXE", 200*time.Millisecond, 20*time.Millisecond))
	assert.False(t, ForProcess(p, "missing.exe", 60*time.Millisecond, 20*time.Millisecond))
}

func TestForClipboardContains(t *testing.T) {
	p := Probes{Clipboard: func() string { return "operation: Success (id=9)" }}

	assert.True(t, ForClipboard(p, "Success", 200*time.Millisecond, 20*time.Millisecond))
	assert.False(t, ForClipboard(p, "Failure", 60*time.Millisecond, 20*time.Millisecond))
}

func TestTimeoutBounds(t *testing.T) {
	p := Probes{Clipboard: func() string { return "" }}

	timeout := 100 * time.Millisecond
	poll := 30 * time.Millisecond

	start := time.Now()
	ok := ForClipboard(p, "never", timeout, poll)
	elapsed := time.Since(start)

	require.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, timeout)
	// No later than timeout plus one poll interval (plus scheduling slack).
	assert.Less(t, elapsed, timeout+poll+50*time.Millisecond)
}

func TestPollFloor(t *testing.T) {
	var calls atomic.Int32
	p := Probes{Clipboard: func() string { calls.Add(1); return "" }}

	// A 1ms requested interval must be floored to ~20ms, so a 100ms wait
	// can probe only a handful of times instead of ~100.
	ForClipboard(p, "never", 100*time.Millisecond, time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), int32(8))
}

func TestNilProbeTimesOut(t *testing.T) {
	start := time.Now()
	ok := ForWindowTitle(Probes{}, 1, "x", 50*time.Millisecond, 20*time.Millisecond)
	require.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
