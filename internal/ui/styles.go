package ui

import "fmt"

// ANSI256 color codes used by schedule and run rendering.
const (
	colorNode   = 74  // blue, node names
	colorComm   = 214 // orange, comm primitives
	colorFailed = 160 // red, failed runs
	colorMuted  = 245 // medium gray
)

var noColor bool

// RenderNode returns a node name in the accent color.
func RenderNode(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorNode, s)
}

// RenderComm highlights a comm primitive.
func RenderComm(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorComm, s)
}

// RenderFailed returns s styled as a failure.
func RenderFailed(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorFailed, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorMuted, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
