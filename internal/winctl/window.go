package winctl

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// WindowInfo describes a top-level window and its owning process.
type WindowInfo struct {
	Handle      int64
	Title       string
	ProcessName string
	PID         int
}

// Windows is the narrow window-control capability the recorder and runner
// depend on. Queries are best-effort: on failure they return zero values,
// never an error, because the underlying OS state is inherently racy.
type Windows interface {
	// Foreground returns the currently focused top-level window.
	Foreground() WindowInfo
	// FromPoint returns the top-level window under a screen point.
	FromPoint(x, y int) WindowInfo
	// ClientRect returns the window's client area in screen coordinates.
	ClientRect(handle int64) (Rect, bool)
	// IsValid reports whether the handle still names a live window.
	IsValid(handle int64) bool
	// Raise brings the window to the foreground.
	Raise(handle int64) error
}

// SystemWindows implements Windows against the real desktop using
// PowerShell on Windows and osascript on macOS.
type SystemWindows struct {
	Log *slog.Logger
}

func (w *SystemWindows) logger() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}

const foregroundScript = `
Add-Type @"
using System;
using System.Runtime.InteropServices;
using System.Diagnostics;
using System.Text;

public class WindowQuery {
    [DllImport("user32.dll")]
    public static extern IntPtr GetForegroundWindow();

    [DllImport("user32.dll")]
    public static extern int GetWindowThreadProcessId(IntPtr hWnd, out int processId);

    [DllImport("user32.dll")]
    public static extern int GetWindowText(IntPtr hWnd, StringBuilder text, int count);

    public static string Describe(IntPtr hwnd) {
        int pid = 0;
        GetWindowThreadProcessId(hwnd, out pid);

        string name = "";
        try {
            name = Process.GetProcessById(pid).ProcessName;
        } catch {}

        StringBuilder title = new StringBuilder(256);
        GetWindowText(hwnd, title, 256);

        return string.Format("{0}|{1}|{2}|{3}", hwnd.ToInt64(), pid, name, title.ToString());
    }

    public static string GetForegroundInfo() {
        return Describe(GetForegroundWindow());
    }
}
"@
[WindowQuery]::GetForegroundInfo()
`

const fromPointScript = `
Add-Type @"
using System;
using System.Runtime.InteropServices;
using System.Diagnostics;
using System.Text;

public class PointQuery {
    [StructLayout(LayoutKind.Sequential)]
    public struct POINT { public int X; public int Y; }

    [DllImport("user32.dll")]
    public static extern IntPtr WindowFromPoint(POINT p);

    [DllImport("user32.dll")]
    public static extern IntPtr GetAncestor(IntPtr hWnd, uint flags);

    [DllImport("user32.dll")]
    public static extern int GetWindowThreadProcessId(IntPtr hWnd, out int processId);

    [DllImport("user32.dll")]
    public static extern int GetWindowText(IntPtr hWnd, StringBuilder text, int count);

    public static string AtPoint(int x, int y) {
        POINT p;
        p.X = x;
        p.Y = y;
        IntPtr hwnd = WindowFromPoint(p);
        hwnd = GetAncestor(hwnd, 2); // GA_ROOT: top-level ancestor, not a child control

        int pid = 0;
        GetWindowThreadProcessId(hwnd, out pid);

        string name = "";
        try {
            name = Process.GetProcessById(pid).ProcessName;
        } catch {}

        StringBuilder title = new StringBuilder(256);
        GetWindowText(hwnd, title, 256);

        return string.Format("{0}|{1}|{2}|{3}", hwnd.ToInt64(), pid, name, title.ToString());
    }
}
"@
[PointQuery]::AtPoint(%d, %d)
`

const clientRectScript = `
Add-Type @"
using System;
using System.Runtime.InteropServices;

public class ClientRectQuery {
    [StructLayout(LayoutKind.Sequential)]
    public struct RECT { public int Left; public int Top; public int Right; public int Bottom; }

    [StructLayout(LayoutKind.Sequential)]
    public struct POINT { public int X; public int Y; }

    [DllImport("user32.dll")]
    public static extern bool IsWindow(IntPtr hWnd);

    [DllImport("user32.dll")]
    public static extern bool GetClientRect(IntPtr hWnd, out RECT rect);

    [DllImport("user32.dll")]
    public static extern bool ClientToScreen(IntPtr hWnd, ref POINT point);

    public static string Query(long handle) {
        IntPtr hwnd = new IntPtr(handle);
        if (!IsWindow(hwnd)) {
            return "invalid";
        }

        RECT r;
        if (!GetClientRect(hwnd, out r)) {
            return "invalid";
        }

        POINT origin;
        origin.X = 0;
        origin.Y = 0;
        if (!ClientToScreen(hwnd, ref origin)) {
            return "invalid";
        }

        return string.Format("{0}|{1}|{2}|{3}", origin.X, origin.Y, r.Right - r.Left, r.Bottom - r.Top);
    }
}
"@
[ClientRectQuery]::Query(%d)
`

const isWindowScript = `
Add-Type @"
using System;
using System.Runtime.InteropServices;

public class WindowCheck {
    [DllImport("user32.dll")]
    public static extern bool IsWindow(IntPtr hWnd);
}
"@
[WindowCheck]::IsWindow([IntPtr]::new(%d))
`

const titleScript = `
Add-Type @"
using System;
using System.Runtime.InteropServices;
using System.Text;

public class TitleQuery {
    [DllImport("user32.dll")]
    public static extern int GetWindowText(IntPtr hWnd, StringBuilder text, int count);

    public static string Query(long handle) {
        StringBuilder title = new StringBuilder(256);
        GetWindowText(new IntPtr(handle), title, 256);
        return title.ToString();
    }
}
"@
[TitleQuery]::Query(%d)
`

const raiseScript = `
Add-Type @"
using System;
using System.Runtime.InteropServices;

public class WindowActivator {
    [DllImport("user32.dll")]
    [return: MarshalAs(UnmanagedType.Bool)]
    public static extern bool SetForegroundWindow(IntPtr hWnd);

    [DllImport("user32.dll")]
    public static extern bool ShowWindow(IntPtr hWnd, int nCmdShow);

    [DllImport("user32.dll")]
    public static extern bool IsWindow(IntPtr hWnd);
}
"@

$hwnd = [IntPtr]::new(%d)

if (-not [WindowActivator]::IsWindow($hwnd)) {
    Write-Output "Invalid"
    exit
}

[void][WindowActivator]::ShowWindow($hwnd, 9) # SW_RESTORE
[void][WindowActivator]::SetForegroundWindow($hwnd)
Write-Output "OK"
`

// Foreground returns the focused window, or a zero WindowInfo when the
// query fails.
func (w *SystemWindows) Foreground() WindowInfo {
	switch runtime.GOOS {
	case "windows":
		out, err := runPowershell(foregroundScript)
		if err != nil {
			w.logger().Debug("foreground window query failed", "error", err)
			return WindowInfo{}
		}
		return parseWindowInfo(out)
	case "darwin":
		return foregroundMac()
	default:
		return WindowInfo{}
	}
}

// FromPoint returns the top-level window under the screen point, or a zero
// WindowInfo when the query fails.
func (w *SystemWindows) FromPoint(x, y int) WindowInfo {
	if runtime.GOOS != "windows" {
		// No per-point window query off Windows; callers fall back to the
		// foreground window.
		return w.Foreground()
	}
	out, err := runPowershell(fmt.Sprintf(fromPointScript, x, y))
	if err != nil {
		w.logger().Debug("window-at-point query failed", "error", err)
		return WindowInfo{}
	}
	return parseWindowInfo(out)
}

// ClientRect returns the client area of the window in screen coordinates.
func (w *SystemWindows) ClientRect(handle int64) (Rect, bool) {
	if handle == 0 || runtime.GOOS != "windows" {
		return Rect{}, false
	}
	out, err := runPowershell(fmt.Sprintf(clientRectScript, handle))
	if err != nil || out == "invalid" {
		return Rect{}, false
	}
	parts := strings.Split(out, "|")
	if len(parts) != 4 {
		return Rect{}, false
	}
	r := Rect{
		Left:   atoi(parts[0]),
		Top:    atoi(parts[1]),
		Width:  atoi(parts[2]),
		Height: atoi(parts[3]),
	}
	if r.Zero() {
		return Rect{}, false
	}
	return r, true
}

// Title returns the window's current title, or "" when the query fails.
// Used by the title wait probe.
func (w *SystemWindows) Title(handle int64) string {
	if handle == 0 || runtime.GOOS != "windows" {
		return ""
	}
	out, err := runPowershell(fmt.Sprintf(titleScript, handle))
	if err != nil {
		return ""
	}
	return out
}

// IsValid reports whether the handle still names a live window.
func (w *SystemWindows) IsValid(handle int64) bool {
	if handle == 0 || runtime.GOOS != "windows" {
		return false
	}
	out, err := runPowershell(fmt.Sprintf(isWindowScript, handle))
	if err != nil {
		return false
	}
	return strings.EqualFold(out, "True")
}

// Raise restores and focuses the window. Windows can refuse foreground
// changes, so a clean script run still counts as success.
func (w *SystemWindows) Raise(handle int64) error {
	if handle == 0 {
		return fmt.Errorf("raise: zero window handle")
	}
	if runtime.GOOS != "windows" {
		return fmt.Errorf("raise: unsupported os %s", runtime.GOOS)
	}
	out, err := runPowershell(fmt.Sprintf(raiseScript, handle))
	if err != nil {
		return fmt.Errorf("raise window %d: %w", handle, err)
	}
	if strings.HasPrefix(out, "Invalid") {
		return fmt.Errorf("raise window %d: handle is invalid", handle)
	}
	return nil
}

func foregroundMac() WindowInfo {
	out, err := exec.Command("osascript", "-e", `
		tell application "System Events"
			set frontApp to first process whose frontmost is true
			set frontAppName to name of frontApp
			set frontPid to unix id of frontApp

			try
				set frontWindowTitle to name of first window of frontApp
			on error
				set frontWindowTitle to ""
			end try

			return frontAppName & "|" & frontPid & "|" & frontWindowTitle
		end tell
	`).Output()
	if err != nil {
		return WindowInfo{}
	}
	parts := strings.Split(strings.TrimSpace(string(out)), "|")
	if len(parts) < 2 {
		return WindowInfo{}
	}
	wi := WindowInfo{
		ProcessName: strings.TrimSpace(parts[0]),
		PID:         atoi(parts[1]),
	}
	if len(parts) >= 3 {
		wi.Title = strings.TrimSpace(parts[2])
	}
	return wi
}

func runPowershell(script string) (string, error) {
	out, err := exec.Command("powershell", "-NoProfile", "-Command", script).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// parseWindowInfo decodes the "hwnd|pid|process|title" script output. The
// title is the tail so embedded separators in it survive.
func parseWindowInfo(out string) WindowInfo {
	parts := strings.SplitN(out, "|", 4)
	if len(parts) < 4 {
		return WindowInfo{}
	}
	handle, _ := strconv.ParseInt(parts[0], 10, 64)
	return WindowInfo{
		Handle:      handle,
		PID:         atoi(parts[1]),
		ProcessName: parts[2],
		Title:       parts[3],
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
