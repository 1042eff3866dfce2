// Package output renders the monitor's drained log lines to a terminal:
// colorized timestamp/level styling plus a writev-batched sink.
package output

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sys/unix"
)

// ColorMode controls when colored output is used.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // color when stdout is a terminal
	ColorAlways                  // always use color
	ColorNever                   // never use color
)

// ParseColorMode parses --color's argument.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("output: unknown color mode %q", s)
	}
}

// Resolve picks styled or unstyled output given whether stdout is a terminal.
func (m ColorMode) Resolve(stdoutIsTerminal bool) Styles {
	switch m {
	case ColorAlways:
		return NewStyles()
	case ColorNever:
		return NoStyles()
	default:
		if stdoutIsTerminal {
			return NewStyles()
		}
		return NoStyles()
	}
}

// Styles holds the lipgloss styles used to decorate drained output lines.
type Styles struct {
	Timestamp lipgloss.Style
	Warn      lipgloss.Style
	Error     lipgloss.Style
	Session   lipgloss.Style
}

// NewStyles returns the default color styles for an interactive terminal.
func NewStyles() Styles {
	return Styles{
		Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),           // cyan
		Warn:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")),           // yellow
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true), // bold red
		Session:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),           // magenta
	}
}

// NoStyles returns styles with no coloring, for non-terminal output (a file
// or pipe) or --color=never.
func NoStyles() Styles {
	return Styles{}
}

// IsTerminal checks if the given file descriptor is a terminal using ioctl.
func IsTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}

// StdoutIsTerminal returns true if stdout is a terminal.
func StdoutIsTerminal() bool {
	return IsTerminal(os.Stdout.Fd())
}
