package winctl

// Rect is a window client area in screen coordinates.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Zero reports whether the rect has no usable area.
func (r Rect) Zero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Normalize converts a screen point into client-normalized fractions in
// [0..1]. Returns false for a zero-area rect.
func Normalize(r Rect, x, y int) (nx, ny float64, ok bool) {
	if r.Zero() {
		return 0, 0, false
	}
	nx = float64(x-r.Left) / float64(r.Width)
	ny = float64(y-r.Top) / float64(r.Height)
	return nx, ny, true
}

// Denormalize projects client-normalized fractions back onto the current
// client area. Fractions are clamped into [0..1] so rounding or a shrunken
// window cannot land the point outside the client rect.
func Denormalize(r Rect, nx, ny float64) (x, y int) {
	nx = clamp01(nx)
	ny = clamp01(ny)
	x = r.Left + int(nx*float64(r.Width))
	y = r.Top + int(ny*float64(r.Height))
	return x, y
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
