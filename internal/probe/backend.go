// Package probe declares the debug-probe backend contract the host monitor
// drives against a live target: a minimal memory-read/write surface that
// hides whether the bytes underneath travel over a telnet-style OpenOCD
// session, the GDB remote serial protocol, or (in tests) an in-process
// simulated address space.
package probe

import "context"

// Backend is the contract every debug-probe adapter satisfies. Addresses are
// always uint64; 32-bit-only backends document their own truncation
// behavior rather than narrowing the interface.
type Backend interface {
	// Connect establishes the session against host:port. Implementations
	// that don't use a TCP host/port (e.g. a serial device) may ignore
	// port and interpret host as a device path.
	Connect(ctx context.Context, host string, port int) error

	// Disconnect tears down the session. It is safe to call on a Backend
	// that was never connected.
	Disconnect() error

	// ReadMemory reads n bytes starting at addr.
	ReadMemory(ctx context.Context, addr uint64, n int) ([]byte, error)

	// WriteMemory writes data starting at addr.
	WriteMemory(ctx context.Context, addr uint64, data []byte) error
}
