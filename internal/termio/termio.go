// Package termio drives the host terminal on behalf of the monitor loop:
// detecting whether stdin is interactive, switching it into raw mode when
// firmware requests echo-off/line-mode input, and falling back to
// init-script or input-file sources when it is not a terminal at all.
package termio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// IsTerminal reports whether fd refers to a terminal, using go-isatty
// first and falling back to a TCGETS ioctl probe (the teacher's
// output.IsTerminal technique) for platforms go-isatty doesn't special-case.
func IsTerminal(fd uintptr) bool {
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return true
	}
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}

// StdinIsTerminal reports whether stdin is interactive.
func StdinIsTerminal() bool {
	return IsTerminal(os.Stdin.Fd())
}

// Terminal owns the raw/cooked mode transitions for one stdin file
// descriptor across a monitor run, restoring the original state exactly
// once regardless of how many times Restore is called.
type Terminal struct {
	fd       int
	original *term.State
}

// New wraps fd. It does not itself enter raw mode; the monitor calls
// MakeRaw when firmware asserts INPUT_ECHO_OFF.
func New(fd int) *Terminal {
	return &Terminal{fd: fd}
}

// MakeRaw switches the terminal into raw mode, remembering the prior state
// so Restore can undo it. Calling MakeRaw twice without an intervening
// Restore is a no-op; the original state from the first call is kept.
func (t *Terminal) MakeRaw() error {
	if t.original != nil {
		return nil
	}
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return fmt.Errorf("termio: entering raw mode: %w", err)
	}
	t.original = state
	return nil
}

// Restore undoes MakeRaw, if it was ever called. Safe to call unconditionally
// on every cancellation path named in spec.md's cancellation section, since
// it is a no-op when the terminal was never put in raw mode.
func (t *Terminal) Restore() error {
	if t.original == nil {
		return nil
	}
	err := term.Restore(t.fd, t.original)
	t.original = nil
	if err != nil {
		return fmt.Errorf("termio: restoring terminal state: %w", err)
	}
	return nil
}

// Source is anything the monitor can pull bytes from to satisfy a pending
// input request: an interactive terminal, an init script, or an
// --input-file.
type Source interface {
	// ReadLine returns the next line (without its trailing newline) or
	// io.EOF once the source is exhausted.
	ReadLine() (string, error)
}

// lineSource adapts a bufio.Scanner to Source, used for both --input-file
// and stdin-in-cooked-mode.
type lineSource struct {
	scanner *bufio.Scanner
}

func NewLineSource(r io.Reader) Source {
	return &lineSource{scanner: bufio.NewScanner(r)}
}

func (s *lineSource) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// staticSource replays a fixed set of lines, backing --init-script: once
// exhausted the monitor falls through to stdin per the resolution order
// spec.md's §4.3 step 4 describes.
type staticSource struct {
	lines []string
	pos   int
}

func NewStaticSource(lines []string) Source {
	return &staticSource{lines: lines}
}

func (s *staticSource) ReadLine() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

// chainSource reads from primary until it reports io.EOF, then switches to
// fallback for the rest of the run. It backs spec.md §4.3 step 4's
// resolution order: an init-script or input-file source is drained first,
// and an input request arriving after it runs dry still gets served,
// interactively, from fallback instead of going unserved forever.
type chainSource struct {
	primary  Source
	fallback Source
	drained  bool
}

// NewChainSource returns a Source that reads primary until exhausted, then
// falls through to fallback. If fallback is nil, primary is returned as-is.
func NewChainSource(primary, fallback Source) Source {
	if fallback == nil {
		return primary
	}
	return &chainSource{primary: primary, fallback: fallback}
}

func (s *chainSource) ReadLine() (string, error) {
	if !s.drained {
		line, err := s.primary.ReadLine()
		if err == nil {
			return line, nil
		}
		if err != io.EOF {
			return "", err
		}
		s.drained = true
	}
	return s.fallback.ReadLine()
}
