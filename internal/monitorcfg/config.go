// Package monitorcfg holds dmlomon's configuration surface: the §6.3 flag
// set, its validation rules, and the init-script loader that feeds
// internal/termio before falling through to interactive stdin.
package monitorcfg

import (
	"fmt"
	"time"

	"github.com/choco-technologies/dmlog/internal/logx"
	"github.com/choco-technologies/dmlog/internal/output"
)

// Config mirrors the monitor CLI's full flag surface (spec.md §6.3).
type Config struct {
	Host string
	Port int
	Addr uint64

	Interval time.Duration
	Blocking bool
	Snapshot bool
	ShowTime bool

	InputFile  string
	InitScript string

	GDB bool

	TraceLevel string
	Color      string
}

// Validate checks the fields a monitor run cannot proceed without, mirroring
// the teacher's Config.Validate shape: one error per violated rule, returned
// as soon as it is found.
func (c *Config) Validate() error {
	if !c.Snapshot {
		if c.Host == "" {
			return fmt.Errorf("monitorcfg: --host is required")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("monitorcfg: --port %d is out of range", c.Port)
		}
	}
	if c.Addr == 0 {
		return fmt.Errorf("monitorcfg: --addr is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("monitorcfg: --interval must be positive, got %s", c.Interval)
	}
	if _, err := logx.ParseLevel(c.TraceLevel); err != nil {
		return fmt.Errorf("monitorcfg: %w", err)
	}
	if _, err := output.ParseColorMode(c.Color); err != nil {
		return fmt.Errorf("monitorcfg: %w", err)
	}
	return nil
}
