package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor decides whether schedule and run tables on stdout get ANSI
// color. Environment overrides win over TTY detection: NO_COLOR disables,
// then CLICOLOR_FORCE enables even when piped, then CLICOLOR=0 disables.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) {
	case "", "0":
	default:
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
