package runner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwright/stepwright/internal/model"
	"github.com/stepwright/stepwright/internal/wait"
	"github.com/stepwright/stepwright/internal/winctl"
)

type fakeWindows struct {
	valid  map[int64]bool
	rects  map[int64]winctl.Rect
	raised []int64
}

func (f *fakeWindows) Foreground() winctl.WindowInfo        { return winctl.WindowInfo{} }
func (f *fakeWindows) FromPoint(x, y int) winctl.WindowInfo { return winctl.WindowInfo{} }
func (f *fakeWindows) ClientRect(handle int64) (winctl.Rect, bool) {
	r, ok := f.rects[handle]
	return r, ok
}
func (f *fakeWindows) IsValid(handle int64) bool { return f.valid[handle] }
func (f *fakeWindows) Raise(handle int64) error {
	f.raised = append(f.raised, handle)
	return nil
}

type fakeInput struct {
	ops []string
}

func (f *fakeInput) MoveMouse(x, y int)  { f.ops = append(f.ops, fmt.Sprintf("move %d,%d", x, y)) }
func (f *fakeInput) Click(button string) { f.ops = append(f.ops, "click "+button) }
func (f *fakeInput) Scroll(dx, dy int)   { f.ops = append(f.ops, fmt.Sprintf("scroll %d,%d", dx, dy)) }
func (f *fakeInput) TypeText(text string) { f.ops = append(f.ops, "type "+text) }
func (f *fakeInput) TapKey(key string, mods ...string) {
	op := "tap " + key
	for _, m := range mods {
		op += "+" + m
	}
	f.ops = append(f.ops, op)
}

func newTestRunner(project *model.Project, windows *fakeWindows, opts Options) (*Runner, *fakeInput) {
	input := &fakeInput{}
	r := New(project, windows, input, wait.Probes{}, opts)
	r.sleep = func(time.Duration) {}
	return r, input
}

func clickStep(handle int64, locatorType, locator string) model.Step {
	s := model.NewStep(model.ActionClick)
	s.Handle = handle
	s.LocatorType = locatorType
	s.Locator = locator
	return s
}

func TestClickRenormalizesAgainstCurrentRect(t *testing.T) {
	// Recorded against a rect at (400,200); the window has since moved to
	// (100,100). The same fractions must resolve to screen (200,200).
	windows := &fakeWindows{
		valid: map[int64]bool{7: true},
		rects: map[int64]winctl.Rect{7: {Left: 100, Top: 100, Width: 800, Height: 600}},
	}
	p := model.NewProject("t")
	p.AppendStep(clickStep(7, model.LocatorCoordsRel, "nx=0.125000,ny=0.166667,button=left"))

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))

	assert.Equal(t, []string{"move 200,200", "click left"}, input.ops)
	assert.Equal(t, []int64{7}, windows.raised)
}

func TestClickAbsoluteCoords(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}, rects: map[int64]winctl.Rect{}}
	p := model.NewProject("t")
	p.AppendStep(clickStep(0, model.LocatorCoords, "x=50,y=60,button=right"))

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))

	assert.Equal(t, []string{"move 50,60", "click right"}, input.ops)
}

func TestUnparseableLocatorIsSkipped(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{7: true}, rects: map[int64]winctl.Rect{}}
	p := model.NewProject("t")
	p.AppendStep(clickStep(7, model.LocatorCoordsRel, "garbage"))

	typeStep := model.NewStep(model.ActionType)
	typeStep.Value = "still here"
	p.AppendStep(typeStep)

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))

	// The bad click contributes nothing; the run continues.
	assert.Equal(t, []string{"type still here"}, input.ops)
}

func TestClickWithoutRectIsSkipped(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{7: true}, rects: map[int64]winctl.Rect{}}
	p := model.NewProject("t")
	p.AppendStep(clickStep(7, model.LocatorCoordsRel, "nx=0.500000,ny=0.500000,button=left"))

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))
	assert.Empty(t, input.ops)
}

func TestEffectiveTargetFallback(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{99: true}}
	p := model.NewProject("t")

	r, _ := newTestRunner(p, windows, Options{DefaultTarget: 99})

	// Recorded handle is dead, the default substitutes.
	step := model.Step{Handle: 7}
	assert.Equal(t, int64(99), r.effectiveTarget(step))

	// Both dead: no target.
	windows.valid = map[int64]bool{}
	assert.Equal(t, int64(0), r.effectiveTarget(step))
}

func TestEffectiveTargetSelfGuard(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{5: true, 99: true}}
	p := model.NewProject("t")

	r, _ := newTestRunner(p, windows, Options{DefaultTarget: 99, SelfTarget: 5})

	// A step that recorded the tool's own window falls through to the
	// default target.
	assert.Equal(t, int64(99), r.effectiveTarget(model.Step{Handle: 5}))
	// Other valid handles win over the default.
	windows.valid[7] = true
	assert.Equal(t, int64(7), r.effectiveTarget(model.Step{Handle: 7}))
}

func TestScrollReplaysDelta(t *testing.T) {
	windows := &fakeWindows{
		valid: map[int64]bool{7: true},
		rects: map[int64]winctl.Rect{7: {Left: 0, Top: 0, Width: 100, Height: 100}},
	}
	p := model.NewProject("t")
	s := model.NewStep(model.ActionScroll)
	s.Handle = 7
	s.LocatorType = model.LocatorScrollRel
	s.Locator = "nx=0.500000,ny=0.500000"
	s.Scroll = &model.ScrollDelta{DX: 0, DY: -3}
	p.AppendStep(s)

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))

	assert.Equal(t, []string{"move 50,50", "scroll 0,-3"}, input.ops)
}

func TestTypeResolvesInputRef(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}}
	p := model.NewProject("t")
	p.Data = []model.DataItem{{Key: "user", Value: "alice"}}

	refStep := model.NewStep(model.ActionType)
	refStep.InputRef = "{{input:user}}"
	refStep.Value = "ignored literal"
	p.AppendStep(refStep)

	litStep := model.NewStep(model.ActionType)
	litStep.Value = "verbatim"
	p.AppendStep(litStep)

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))

	assert.Equal(t, []string{"type alice", "type verbatim"}, input.ops)
}

func TestHotkeyDispatch(t *testing.T) {
	input := &fakeInput{}

	sendHotkey(input, "ENTER")
	sendHotkey(input, "PGDN")
	sendHotkey(input, "CTRL+C")
	sendHotkey(input, "ctrl+s") // tokens are case-folded
	sendHotkey(input, "F9")     // unknown token types literally

	assert.Equal(t, []string{
		"tap enter",
		"tap page_down",
		"tap c+ctrl",
		"tap s+ctrl",
		"type F9",
	}, input.ops)
}

func TestWaitUntilTimeoutAbortsRun(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}}
	p := model.NewProject("t")

	w := model.NewStep(model.ActionWaitUntil)
	w.Meta = map[string]any{
		"kind":       "clipboard_contains",
		"text":       "Success",
		"timeout_ms": float64(50),
		"poll_ms":    float64(20),
	}
	p.AppendStep(w)

	after := model.NewStep(model.ActionType)
	after.Value = "never typed"
	p.AppendStep(after)

	input := &fakeInput{}
	r := New(p, windows, input, wait.Probes{
		Clipboard: func() string { return "nothing useful" },
	}, Options{})
	r.sleep = func(time.Duration) {}

	err := r.Run(nil, nil)
	require.ErrorIs(t, err, wait.ErrTimeout)
	assert.Empty(t, input.ops)
}

func TestWaitUntilSatisfied(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}}
	p := model.NewProject("t")

	w := model.NewStep(model.ActionWaitUntil)
	w.Meta = map[string]any{
		"kind":       "process_exists",
		"process":    "saplogon.exe",
		"timeout_ms": float64(200),
	}
	p.AppendStep(w)

	input := &fakeInput{}
	r := New(p, windows, input, wait.Probes{
		Processes: func() []string { return []string{"saplogon.exe"} },
	}, Options{})
	r.sleep = func(time.Duration) {}

	require.NoError(t, r.Run(nil, nil))
}

func TestUnknownWaitKindIsNoop(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}}
	p := model.NewProject("t")

	w := model.NewStep(model.ActionWaitUntil)
	w.Meta = map[string]any{"kind": "pixel_matches", "timeout_ms": float64(10)}
	p.AppendStep(w)

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))
	assert.Empty(t, input.ops)
}

func TestWaitUntilTitleWithoutTargetIsNoop(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}}
	p := model.NewProject("t")

	w := model.NewStep(model.ActionWaitUntil)
	w.Meta = map[string]any{"kind": "window_title_contains", "text": "Login"}
	p.AppendStep(w)

	r, _ := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))
}

func TestReadClipboardNeverReplayed(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}}
	p := model.NewProject("t")
	s := model.NewStep(model.ActionReadClipboard)
	s.Value = "captured text"
	p.AppendStep(s)

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))
	assert.Empty(t, input.ops)
}

func TestRunIsIdempotent(t *testing.T) {
	windows := &fakeWindows{
		valid: map[int64]bool{7: true},
		rects: map[int64]winctl.Rect{7: {Left: 0, Top: 0, Width: 200, Height: 100}},
	}
	p := model.NewProject("t")
	p.AppendStep(clickStep(7, model.LocatorCoordsRel, "nx=0.250000,ny=0.500000,button=left"))
	ts := model.NewStep(model.ActionType)
	ts.Value = "same"
	p.AppendStep(ts)
	hk := model.NewStep(model.ActionHotkey)
	hk.Value = "ENTER"
	p.AppendStep(hk)

	r, input := newTestRunner(p, windows, Options{})
	require.NoError(t, r.Run(nil, nil))
	first := append([]string(nil), input.ops...)

	input.ops = nil
	require.NoError(t, r.Run(nil, nil))

	assert.Equal(t, first, input.ops)
}

func TestCancelCheckedBetweenSteps(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}}
	p := model.NewProject("t")
	for i := 0; i < 3; i++ {
		s := model.NewStep(model.ActionType)
		s.Value = "x"
		p.AppendStep(s)
	}

	r, input := newTestRunner(p, windows, Options{})

	ran := 0
	err := r.Run(func() bool { return ran >= 1 }, func(i, n int, step model.Step) { ran++ })
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	assert.Len(t, input.ops, 1)
}

func TestProgressReportedAfterEachStep(t *testing.T) {
	windows := &fakeWindows{valid: map[int64]bool{}}
	p := model.NewProject("t")
	for i := 0; i < 2; i++ {
		s := model.NewStep(model.ActionType)
		s.Value = "x"
		p.AppendStep(s)
	}

	r, _ := newTestRunner(p, windows, Options{})

	var seen []int
	require.NoError(t, r.Run(nil, func(i, n int, step model.Step) {
		seen = append(seen, i)
		assert.Equal(t, 2, n)
	}))
	assert.Equal(t, []int{1, 2}, seen)
}

func TestParseRef(t *testing.T) {
	kind, name, ok := parseRef("{{input:user_name}}")
	require.True(t, ok)
	assert.Equal(t, "input", kind)
	assert.Equal(t, "user_name", name)

	kind, name, ok = parseRef("{{output:invoice-id}}")
	require.True(t, ok)
	assert.Equal(t, "output", kind)
	assert.Equal(t, "invoice-id", name)

	// Must match the full string.
	_, _, ok = parseRef("prefix {{input:user}}")
	assert.False(t, ok)
	_, _, ok = parseRef("{{input:bad name}}")
	assert.False(t, ok)
	_, _, ok = parseRef("")
	assert.False(t, ok)
}

func TestParseLocators(t *testing.T) {
	x, y, btn, ok := parseCoords("x=123,y=456,button=left")
	require.True(t, ok)
	assert.Equal(t, 123, x)
	assert.Equal(t, 456, y)
	assert.Equal(t, "left", btn)

	nx, ny, btn, ok := parseRelCoords("nx=0.125000,ny=0.166667,button=Right")
	require.True(t, ok)
	assert.InDelta(t, 0.125, nx, 1e-9)
	assert.InDelta(t, 0.166667, ny, 1e-9)
	assert.Equal(t, "right", btn)

	_, _, _, ok = parseRelCoords("x=1,y=2,button=left")
	assert.False(t, ok)

	px, py, ok := parsePoint("x=10,y=-20")
	require.True(t, ok)
	assert.Equal(t, 10, px)
	assert.Equal(t, -20, py)

	rnx, rny, ok := parseRelPoint("nx=0.5,ny=0.25")
	require.True(t, ok)
	assert.InDelta(t, 0.5, rnx, 1e-9)
	assert.InDelta(t, 0.25, rny, 1e-9)
}
