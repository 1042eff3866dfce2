// Command dmlomon is the host-side monitor: it attaches to a target's
// shared memory region over a debug probe, drains firmware's log ring onto
// the terminal, serves input requests, and drives file transfers (spec.md
// §4.3, §6.3).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/choco-technologies/dmlog/internal/logx"
	"github.com/choco-technologies/dmlog/internal/monitor"
	"github.com/choco-technologies/dmlog/internal/monitorcfg"
	"github.com/choco-technologies/dmlog/internal/output"
	"github.com/choco-technologies/dmlog/internal/probe"
	"github.com/choco-technologies/dmlog/internal/probe/gdbremote"
	"github.com/choco-technologies/dmlog/internal/probe/telnet"
	"github.com/choco-technologies/dmlog/internal/termio"
	"github.com/choco-technologies/dmlog/internal/version"
)

var cfg monitorcfg.Config
var addrFlag string

var rootCmd = &cobra.Command{
	Use:     "dmlomon",
	Short:   "Monitor a dmlog shared-memory log/input/file-transfer region over a debug probe",
	Version: version.String(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfg.Host, "host", "", "debug probe host")
	f.IntVar(&cfg.Port, "port", 0, "debug probe port")
	f.StringVar(&addrFlag, "addr", "", "shared region base address, e.g. 0x20000000")
	f.DurationVar(&cfg.Interval, "interval", monitor.DefaultOptions().Interval, "poll interval between loop ticks")
	f.BoolVar(&cfg.Blocking, "blocking", false, "assert BUSY across each tick")
	f.BoolVar(&cfg.Snapshot, "snapshot", false, "read the whole region in one probe round-trip per tick")
	f.BoolVar(&cfg.ShowTime, "time", false, "prefix drained output lines with a timestamp")
	f.StringVar(&cfg.InputFile, "input-file", "", "file to source input-request responses from")
	f.StringVar(&cfg.InitScript, "init-script", "", "file of newline-delimited commands replayed before interactive stdin")
	f.BoolVar(&cfg.GDB, "gdb", false, "use the GDB remote serial protocol backend instead of telnet")
	f.StringVar(&cfg.TraceLevel, "trace-level", "info", "one of error, warn, info, verbose")
	f.StringVar(&cfg.Color, "color", "auto", "one of auto, always, never")
}

func main() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dmlomon:", err)
		if isInterrupted(err) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func isInterrupted(err error) bool {
	return err == context.Canceled
}

func runMonitor(cmd *cobra.Command) error {
	addr, err := parseAddr(addrFlag)
	if err != nil {
		return fmt.Errorf("parsing --addr: %w", err)
	}
	cfg.Addr = addr
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logx.ParseLevel(cfg.TraceLevel)
	if err != nil {
		return err
	}
	logger := logx.New(os.Stderr, level)

	var backend probe.Backend
	if cfg.GDB {
		backend = gdbremote.New()
	} else {
		backend = telnet.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := backend.Connect(ctx, cfg.Host, cfg.Port); err != nil {
		return fmt.Errorf("connecting to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	defer backend.Disconnect()

	term := termio.New(int(os.Stdin.Fd()))
	defer term.Restore()

	input, err := buildInputSource()
	if err != nil {
		return err
	}

	opts := monitor.DefaultOptions()
	opts.Interval = cfg.Interval
	opts.Blocking = cfg.Blocking
	opts.Snapshot = cfg.Snapshot
	opts.ShowTime = cfg.ShowTime

	m := monitor.New(backend, cfg.Addr, opts, logger, input, output.NewWriter())
	if termio.StdinIsTerminal() {
		m.Term = term
	}
	colorMode, _ := output.ParseColorMode(cfg.Color) // validated by cfg.Validate above
	m.Styles = colorMode.Resolve(output.StdoutIsTerminal())

	logger.Info("monitor starting", "addr", fmt.Sprintf("%#x", cfg.Addr), "host", cfg.Host, "port", cfg.Port)
	if err := m.Run(ctx); err != nil {
		if err == context.Canceled {
			logger.Info("interrupted, shutting down")
			return err
		}
		return fmt.Errorf("monitor loop: %w", err)
	}
	return nil
}

// buildInputSource resolves the --init-script/--input-file/stdin order of
// spec.md §4.3 step 4 ("from an init-script file, then stdin"): whichever of
// --init-script or --input-file is given runs first, and once it reports
// io.EOF the monitor falls through to interactive stdin rather than leaving
// a later input request unserved.
func buildInputSource() (termio.Source, error) {
	var primary termio.Source
	switch {
	case cfg.InitScript != "":
		lines, err := monitorcfg.LoadInitScriptLines(cfg.InitScript)
		if err != nil {
			return nil, err
		}
		primary = termio.NewStaticSource(lines)
	case cfg.InputFile != "":
		f, err := os.Open(cfg.InputFile)
		if err != nil {
			return nil, fmt.Errorf("opening --input-file: %w", err)
		}
		primary = termio.NewLineSource(f)
	}

	if !termio.StdinIsTerminal() {
		return primary, nil
	}
	if primary == nil {
		return termio.NewLineSource(os.Stdin), nil
	}
	return termio.NewChainSource(primary, termio.NewLineSource(os.Stdin)), nil
}

func parseAddr(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	var addr uint64
	_, err := fmt.Sscanf(s, "0x%x", &addr)
	if err != nil {
		_, err = fmt.Sscanf(s, "%d", &addr)
	}
	if err != nil {
		return 0, err
	}
	return addr, nil
}
