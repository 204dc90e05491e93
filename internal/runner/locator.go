package runner

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	coordsRe    = regexp.MustCompile(`x=(-?\d+)\s*,\s*y=(-?\d+)\s*,\s*button=([a-zA-Z]+)`)
	coordsRelRe = regexp.MustCompile(`nx=([0-9.]+)\s*,\s*ny=([0-9.]+)\s*,\s*button=([a-zA-Z]+)`)
	pointRe     = regexp.MustCompile(`x=(-?\d+)\s*,\s*y=(-?\d+)`)
	relPointRe  = regexp.MustCompile(`nx=([0-9.]+)\s*,\s*ny=([0-9.]+)`)
	refRe       = regexp.MustCompile(`^\{\{(input|output):([a-zA-Z0-9_\-]+)\}\}$`)
)

// parseCoords decodes "x=<int>,y=<int>,button=<name>".
func parseCoords(locator string) (x, y int, button string, ok bool) {
	m := coordsRe.FindStringSubmatch(locator)
	if m == nil {
		return 0, 0, "", false
	}
	x, _ = strconv.Atoi(m[1])
	y, _ = strconv.Atoi(m[2])
	return x, y, strings.ToLower(m[3]), true
}

// parseRelCoords decodes "nx=<float>,ny=<float>,button=<name>".
func parseRelCoords(locator string) (nx, ny float64, button string, ok bool) {
	m := coordsRelRe.FindStringSubmatch(locator)
	if m == nil {
		return 0, 0, "", false
	}
	nx, err1 := strconv.ParseFloat(m[1], 64)
	ny, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, "", false
	}
	return nx, ny, strings.ToLower(m[3]), true
}

// parsePoint decodes the scroll analog "x=<int>,y=<int>" (no button).
func parsePoint(locator string) (x, y int, ok bool) {
	m := pointRe.FindStringSubmatch(locator)
	if m == nil {
		return 0, 0, false
	}
	x, _ = strconv.Atoi(m[1])
	y, _ = strconv.Atoi(m[2])
	return x, y, true
}

// parseRelPoint decodes the scroll analog "nx=<float>,ny=<float>".
func parseRelPoint(locator string) (nx, ny float64, ok bool) {
	m := relPointRe.FindStringSubmatch(locator)
	if m == nil {
		return 0, 0, false
	}
	nx, err1 := strconv.ParseFloat(m[1], 64)
	ny, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return nx, ny, true
}

// parseRef decodes a full-string "{{input:<name>}}" / "{{output:<name>}}"
// variable reference.
func parseRef(ref string) (kind, name string, ok bool) {
	m := refRe.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
