// Package runner replays a recorded step sequence against a target window.
// Normalized locators are re-resolved against the window's current client
// rect at replay time, which is what makes replay tolerant of the window
// having moved or resized since capture.
package runner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/stepwright/stepwright/internal/model"
	"github.com/stepwright/stepwright/internal/wait"
	"github.com/stepwright/stepwright/internal/winctl"
)

// Settle delays applied after raising a window, before acting on it.
const (
	settleFocus   = 150 * time.Millisecond
	settleClick   = 80 * time.Millisecond
	settleKeys    = 50 * time.Millisecond
	settlePointer = 20 * time.Millisecond
)

// Options configures a run.
type Options struct {
	// DefaultTarget substitutes for a step whose recorded handle is no
	// longer valid.
	DefaultTarget int64

	// SelfTarget is the automation tool's own window; it is never used as
	// an effective target.
	SelfTarget int64

	// StepDelay is the fixed pause after every step. Defaults to 80ms.
	StepDelay time.Duration

	Logger *slog.Logger
}

// ProgressFunc is called after each completed step.
type ProgressFunc func(index, total int, step model.Step)

// CancelFunc is polled between steps; returning true stops the run.
// Cancellation is cooperative: an in-flight wait still runs to its timeout.
type CancelFunc func() bool

// Runner replays a project's steps through a synthetic-input driver.
type Runner struct {
	project *model.Project
	windows winctl.Windows
	input   winctl.Input
	probes  wait.Probes
	data    map[string]string
	opts    Options
	log     *slog.Logger

	sleep func(time.Duration)
}

// New builds a runner for the project. The wait probes back the WAIT_UNTIL
// condition kinds.
func New(project *model.Project, windows winctl.Windows, input winctl.Input, probes wait.Probes, opts Options) *Runner {
	if opts.StepDelay <= 0 {
		opts.StepDelay = 80 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		project: project,
		windows: windows,
		input:   input,
		probes:  probes,
		data:    project.DataMap(),
		opts:    opts,
		log:     log,
		sleep:   time.Sleep,
	}
}

// Run replays every step in order. Cancellation is checked before each
// step, progress is reported after each, and a fixed delay follows every
// step. The only fatal per-step failure is a WAIT_UNTIL timeout; everything
// else is a silent skip because capture artifacts are expected and must not
// halt an otherwise useful automation.
func (r *Runner) Run(cancel CancelFunc, progress ProgressFunc) error {
	steps := r.project.Steps
	for i, step := range steps {
		if cancel != nil && cancel() {
			r.log.Info("run cancelled", "at_step", i+1, "total", len(steps))
			return nil
		}

		if err := r.RunStep(step); err != nil {
			return fmt.Errorf("step %d/%d (%s): %w", i+1, len(steps), step.Action, err)
		}

		if progress != nil {
			progress(i+1, len(steps), step)
		}

		r.sleep(r.opts.StepDelay)
	}
	r.log.Info("run completed", "steps", len(steps))
	return nil
}

// RunStep executes a single step. A non-nil error is always a WAIT_UNTIL
// timeout.
func (r *Runner) RunStep(step model.Step) (err error) {
	// A panicking input driver must not kill the whole run.
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("step panicked, skipped", "action", step.Action, "error", rec)
		}
	}()

	if step.WaitMS > 0 {
		r.sleep(time.Duration(step.WaitMS) * time.Millisecond)
	}

	switch model.ParseAction(string(step.Action)) {
	case model.ActionWaitUntil:
		return r.runWaitUntil(step)

	case model.ActionScroll:
		r.runScroll(step)

	case model.ActionFocus:
		r.raiseTarget(step, settleFocus)

	case model.ActionClick:
		r.runClick(step)

	case model.ActionType:
		r.raiseTarget(step, settleKeys)
		if text := r.resolveValue(step); text != "" {
			r.input.TypeText(text)
		}

	case model.ActionHotkey:
		r.raiseTarget(step, settleKeys)
		sendHotkey(r.input, step.Value)

	case model.ActionWait:
		// Pure delay; already satisfied by the universal wait_ms handling.

	case model.ActionReadClipboard:
		// Capture-side artifact, never replayed.

	default:
		r.log.Debug("unknown action skipped", "action", step.Action)
	}
	return nil
}

func (r *Runner) runWaitUntil(step model.Step) error {
	cond := wait.SpecFromMeta(step.Meta)

	switch cond.Kind {
	case wait.KindSeconds:
		wait.Seconds(cond.Seconds)
		return nil

	case wait.KindWindowTitleContains:
		target := r.effectiveTarget(step)
		if target == 0 {
			// Nothing to wait on.
			return nil
		}
		if !wait.ForWindowTitle(r.probes, target, cond.Text, cond.Timeout, cond.Poll) {
			return fmt.Errorf("%w: window_title_contains %q", wait.ErrTimeout, cond.Text)
		}
		return nil

	case wait.KindProcessExists:
		if !wait.ForProcess(r.probes, cond.Process, cond.Timeout, cond.Poll) {
			return fmt.Errorf("%w: process_exists %q", wait.ErrTimeout, cond.Process)
		}
		return nil

	case wait.KindClipboardContains:
		if !wait.ForClipboard(r.probes, cond.Text, cond.Timeout, cond.Poll) {
			return fmt.Errorf("%w: clipboard_contains %q", wait.ErrTimeout, cond.Text)
		}
		return nil
	}

	// Unknown condition kinds are a documented no-op.
	r.log.Debug("unknown wait_until kind skipped", "kind", cond.Kind)
	return nil
}

func (r *Runner) runClick(step model.Step) {
	target := r.raiseTarget(step, settleClick)

	var x, y int
	var button string

	if step.LocatorType == model.LocatorCoordsRel {
		nx, ny, btn, ok := parseRelCoords(step.Locator)
		if !ok {
			r.log.Debug("unparseable click locator skipped", "locator", step.Locator)
			return
		}
		rect, ok := r.targetRect(target)
		if !ok {
			r.log.Debug("click skipped, no client rect", "handle", target)
			return
		}
		x, y = winctl.Denormalize(rect, nx, ny)
		button = btn
	} else {
		var ok bool
		x, y, button, ok = parseCoords(step.Locator)
		if !ok {
			r.log.Debug("unparseable click locator skipped", "locator", step.Locator)
			return
		}
	}

	r.input.MoveMouse(x, y)
	r.sleep(settlePointer)
	r.input.Click(button)
}

func (r *Runner) runScroll(step model.Step) {
	target := r.raiseTarget(step, settleKeys)

	// Move the pointer to the recorded scroll point first; many apps route
	// wheel input to the window under the cursor.
	if step.LocatorType == model.LocatorScrollRel {
		if nx, ny, ok := parseRelPoint(step.Locator); ok {
			if rect, ok := r.targetRect(target); ok {
				x, y := winctl.Denormalize(rect, nx, ny)
				r.input.MoveMouse(x, y)
				r.sleep(settlePointer)
			}
		}
	} else if x, y, ok := parsePoint(step.Locator); ok {
		r.input.MoveMouse(x, y)
		r.sleep(settlePointer)
	}

	if step.Scroll != nil {
		r.input.Scroll(step.Scroll.DX, step.Scroll.DY)
	}
}

// raiseTarget resolves the step's effective target and brings it to the
// front. Returns the resolved handle, 0 when there is none.
func (r *Runner) raiseTarget(step model.Step, settle time.Duration) int64 {
	target := r.effectiveTarget(step)
	if target == 0 {
		return 0
	}
	if err := r.windows.Raise(target); err != nil {
		r.log.Debug("raise failed", "handle", target, "error", err)
	}
	r.sleep(settle)
	return target
}

// effectiveTarget prefers the step's recorded handle when it is still valid
// and is not the tool's own window, falls back to the configured default
// target, and otherwise yields no target.
func (r *Runner) effectiveTarget(step model.Step) int64 {
	if step.Handle != 0 && r.windows.IsValid(step.Handle) {
		if r.opts.SelfTarget == 0 || step.Handle != r.opts.SelfTarget {
			return step.Handle
		}
	}
	if r.opts.DefaultTarget != 0 && r.windows.IsValid(r.opts.DefaultTarget) {
		return r.opts.DefaultTarget
	}
	return 0
}

func (r *Runner) targetRect(target int64) (winctl.Rect, bool) {
	if target == 0 {
		return winctl.Rect{}, false
	}
	rect, ok := r.windows.ClientRect(target)
	if !ok || rect.Zero() {
		return winctl.Rect{}, false
	}
	return rect, true
}

// resolveValue resolves the step payload: a {{input:<name>}} reference
// substitutes the named variable's current value, anything else is the
// literal value.
func (r *Runner) resolveValue(step model.Step) string {
	if kind, name, ok := parseRef(step.InputRef); ok && kind == "input" {
		return r.data[name]
	}
	return step.Value
}
