// Package monitor implements the host side of the protocol: the periodic
// loop that snapshots the shared region's header, drains firmware's output
// ring onto the user's terminal, serves pending input requests, and drives
// file transfers, all through a probe.Backend (spec.md §4.3).
package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/choco-technologies/dmlog/internal/logx"
	"github.com/choco-technologies/dmlog/internal/output"
	"github.com/choco-technologies/dmlog/internal/probe"
	"github.com/choco-technologies/dmlog/internal/region"
	"github.com/choco-technologies/dmlog/internal/ringmath"
	"github.com/choco-technologies/dmlog/internal/termio"
	"github.com/choco-technologies/dmlog/internal/transfer"
)

// Monitor drives one probe.Backend session against one shared region.
type Monitor struct {
	Backend probe.Backend
	Addr    uint64
	Opts    Options
	Log     *logx.Logger
	Input   termio.Source
	Out     io.Writer

	// Term, if set, is switched into raw mode while a request has
	// INPUT_ECHO_OFF asserted and restored otherwise, per §4.3 step 4.
	Term *termio.Terminal

	// Styles colors the timestamp prefix when ShowTime is set. Defaults to
	// output.NoStyles if left zero-valued.
	Styles output.Styles

	driver *transfer.Driver

	pending     []byte // input bytes not yet injected, carried across ticks
	atLineStart bool
}

// New builds a Monitor ready for Run. input may be nil, in which case input
// requests are left unserved (useful for --snapshot or read-only use).
func New(backend probe.Backend, addr uint64, opts Options, log *logx.Logger, input termio.Source, out io.Writer) *Monitor {
	d := transfer.New(backend)
	if opts.TransferPollBudget > 0 {
		d.PollBudget = opts.TransferPollBudget
	}
	return &Monitor{
		Backend:     backend,
		Addr:        addr,
		Opts:        opts,
		Log:         log,
		Input:       input,
		Out:         out,
		driver:      d,
		atLineStart: true,
	}
}

// Run executes the monitor loop until ctx is cancelled or a tick reports a
// fatal error (a probe failure once ctx is done, or a failed snapshot
// read). A header that cannot be read or whose magic is missing, including
// after firmware destroys the region, is warned about and polling
// continues; Run does not return when the region disappears.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.Opts.Interval):
		}
	}
}

// tick runs one iteration of the six-step loop. Returning a non-nil error
// signals a fatal condition; a warned-and-continued condition returns nil
// so Run proceeds to the next tick after its normal sleep.
func (m *Monitor) tick(ctx context.Context) error {
	if m.Opts.Snapshot {
		return m.snapshotTick(ctx)
	}

	hdr, ok, err := m.readHeaderWithRetry(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil // warned already inside readHeaderWithRetry
	}
	if !boundsOK(hdr) {
		m.Log.Warn("header offsets out of range, treating as transient corruption")
		return nil
	}

	busyAsserted := false
	if m.Opts.Blocking {
		if err := setFlagBits(ctx, m.Backend, m.Addr, region.FlagBusy); err != nil {
			return m.warnOrFatal(ctx, "asserting BUSY for blocking mode", err)
		}
		busyAsserted = true
	}
	defer func() {
		if !busyAsserted {
			return
		}
		if err := clearFlagBits(ctx, m.Backend, m.Addr, region.FlagBusy); err != nil {
			m.Log.Warn("releasing BUSY after blocking-mode tick failed", "error", err)
		}
	}()

	if err := m.drainOutput(ctx, hdr); err != nil {
		return m.warnOrFatal(ctx, "draining output", err)
	}
	if err := m.serveInputRequest(ctx, hdr); err != nil {
		return m.warnOrFatal(ctx, "serving input request", err)
	}
	if err := m.driveFileTransfer(ctx, hdr); err != nil {
		return m.warnOrFatal(ctx, "driving file transfer", err)
	}

	return nil
}

// warnOrFatal implements spec.md §7's "Transient probe failures... warn and
// continue the loop" for the steps after the header snapshot: a backend
// error during drain/inject/transfer is treated the same way a checksum
// mismatch or short read is treated inside a single probe call, unless ctx
// itself has already been cancelled or timed out, in which case the error
// is the reason the run is ending and is propagated as fatal.
func (m *Monitor) warnOrFatal(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return err
	}
	m.Log.Warn("transient probe failure, continuing", "step", step, "error", err)
	return nil
}

// readHeaderWithRetry implements §4.3 step 1: read, validate magic, and on
// disagreement back off briefly and retry up to Opts.HeaderRetryBudget
// times before warning and giving up on this tick (ok=false, err=nil).
func (m *Monitor) readHeaderWithRetry(ctx context.Context) (region.Header, bool, error) {
	budget := m.Opts.HeaderRetryBudget
	if budget <= 0 {
		budget = 1
	}
	var lastErr error
	for attempt := 0; attempt < budget; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return region.Header{}, false, ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
		}
		raw, err := m.Backend.ReadMemory(ctx, m.Addr, region.HeaderSize)
		if err != nil {
			lastErr = err
			continue
		}
		hdr, err := region.Decode(raw)
		if err != nil {
			lastErr = err
			continue
		}
		if !hdr.Valid() {
			lastErr = fmt.Errorf("monitor: bad magic %#x", hdr.Magic)
			continue
		}
		return hdr, true, nil
	}
	if lastErr != nil {
		m.Log.Warn("header snapshot failed after retries", "error", lastErr)
	}
	return region.Header{}, false, nil
}

func boundsOK(hdr region.Header) bool {
	return hdr.OutHead < hdr.OutSize && hdr.OutTail < hdr.OutSize &&
		hdr.InHead < hdr.InSize && hdr.InTail < hdr.InSize
}

// drainOutput implements §4.3 step 3.
func (m *Monitor) drainOutput(ctx context.Context, hdr region.Header) error {
	used := ringmath.Used(hdr.OutHead, hdr.OutTail, hdr.OutSize)
	if used == 0 {
		return nil
	}

	spans := ringmath.SplitForRead(hdr.OutTail, used, hdr.OutSize)
	var data []byte
	for _, span := range spans {
		chunk, err := m.Backend.ReadMemory(ctx, hdr.OutBase+uint64(span.Offset), int(span.Len))
		if err != nil {
			return fmt.Errorf("monitor: reading output span at offset %d: %w", span.Offset, err)
		}
		data = append(data, chunk...)
	}

	m.writeOutput(data)

	newTail := ringmath.AdvanceTail(hdr.OutTail, used, hdr.OutSize)
	if err := m.Backend.WriteMemory(ctx, m.Addr+region.OffOutTail, encodeU32(newTail)); err != nil {
		return fmt.Errorf("monitor: publishing out_tail: %w", err)
	}
	return nil
}

// writeOutput renders data to Out, prefixing a timestamp after every
// newline boundary when Opts.ShowTime is set (spec.md §4.3 step 3). A
// partial line torn by the oldest-wins overflow policy (spec.md §9) is
// rendered as-is; the reader is expected to tolerate a ragged first line.
func (m *Monitor) writeOutput(data []byte) {
	if !m.Opts.ShowTime {
		io.WriteString(m.Out, string(data))
		return
	}
	for _, b := range data {
		if m.atLineStart {
			stamp := m.Styles.Timestamp.Render(time.Now().Format(time.RFC3339Nano))
			fmt.Fprintf(m.Out, "[%s] ", stamp)
			m.atLineStart = false
		}
		m.Out.Write([]byte{b})
		if b == '\n' {
			m.atLineStart = true
		}
	}
}

// serveInputRequest implements §4.3 step 4 and the injection rules of §4.4.
func (m *Monitor) serveInputRequest(ctx context.Context, hdr region.Header) error {
	requested := hdr.Flags&region.FlagInputRequested != 0
	available := hdr.Flags&region.FlagInputAvailable != 0

	switch classifyInputState(requested, available) {
	case stateIdle, stateDraining:
		return nil
	case statePrompting:
	}

	if m.Term != nil {
		echoOff := hdr.Flags&region.FlagInputEchoOff != 0
		if echoOff {
			if err := m.Term.MakeRaw(); err != nil {
				m.Log.Warn("entering raw mode failed", "error", err)
			}
		} else if err := m.Term.Restore(); err != nil {
			m.Log.Warn("restoring cooked mode failed", "error", err)
		}
	}

	if len(m.pending) == 0 {
		if m.Input == nil {
			return nil
		}
		line, err := m.Input.ReadLine()
		if err != nil {
			return nil // no input source has anything to offer this tick
		}
		m.pending = append([]byte(line), '\n')
	}

	consumed, err := injectInput(ctx, m.Backend, m.Addr, hdr.InHead, hdr.InTail, hdr.InSize, hdr.InBase, m.pending)
	if err != nil {
		return fmt.Errorf("monitor: injecting input: %w", err)
	}
	m.pending = m.pending[consumed:]

	// Only clear INPUT_REQUESTED once the whole pending line has made it
	// into the ring; otherwise leave it set so the next tick resumes the
	// split write (spec.md §7's "split across ticks" rule).
	if len(m.pending) == 0 {
		if err := clearFlagBits(ctx, m.Backend, m.Addr, region.FlagInputRequested); err != nil {
			return fmt.Errorf("monitor: clearing INPUT_REQUESTED: %w", err)
		}
	}
	return nil
}

// driveFileTransfer implements §4.3 step 5.
func (m *Monitor) driveFileTransfer(ctx context.Context, hdr region.Header) error {
	switch {
	case hdr.Flags&region.FlagFileSend != 0:
		localPath := region.PathString(hdr.PathPC)
		if err := m.driver.ServeSend(ctx, m.Addr, localPath); err != nil {
			return fmt.Errorf("monitor: serving file send: %w", err)
		}
	case hdr.Flags&region.FlagFileRecv != 0:
		localPath := region.PathString(hdr.PathPC)
		chunkSize := int(hdr.FTChunkSize)
		if chunkSize == 0 {
			chunkSize = 256
		}
		if err := m.driver.ServeRecv(ctx, m.Addr, localPath, chunkSize); err != nil {
			return fmt.Errorf("monitor: serving file receive: %w", err)
		}
	}
	return nil
}

// snapshotTick implements the alternate single-round-trip code path: one
// ReadMemory of the whole region backs header validation, bounds-check, and
// output drain; input-request service and file-transfer driving are
// skipped for a snapshot tick, since those require probe writes the
// "fewer round-trips" tradeoff is explicitly willing to forgo.
func (m *Monitor) snapshotTick(ctx context.Context) error {
	total := region.HeaderSize + 65536 // generous upper bound; arenas may be smaller
	raw, err := m.Backend.ReadMemory(ctx, m.Addr, total)
	if err != nil {
		return fmt.Errorf("monitor: snapshot read: %w", err)
	}
	hdr, err := region.Decode(raw)
	if err != nil || !hdr.Valid() {
		m.Log.Warn("snapshot header invalid, skipping tick")
		return nil
	}
	if !boundsOK(hdr) {
		m.Log.Warn("snapshot header offsets out of range, skipping tick")
		return nil
	}

	used := ringmath.Used(hdr.OutHead, hdr.OutTail, hdr.OutSize)
	if used == 0 {
		return nil
	}
	outArenaOff := region.HeaderSize
	spans := ringmath.SplitForRead(hdr.OutTail, used, hdr.OutSize)
	var data []byte
	for _, span := range spans {
		start := outArenaOff + int(span.Offset)
		end := start + int(span.Len)
		if end > len(raw) {
			m.Log.Warn("snapshot buffer too small for output arena, skipping tick")
			return nil
		}
		data = append(data, raw[start:end]...)
	}
	m.writeOutput(data)

	newTail := ringmath.AdvanceTail(hdr.OutTail, used, hdr.OutSize)
	if err := m.Backend.WriteMemory(ctx, m.Addr+region.OffOutTail, encodeU32(newTail)); err != nil {
		return fmt.Errorf("monitor: publishing out_tail after snapshot: %w", err)
	}
	return nil
}
