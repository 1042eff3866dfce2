// Package loopback adapts internal/memspace.Space to the probe.Backend
// contract, standing in for a real telnet or GDB-remote session so
// internal/monitor can be exercised against internal/firmware in the same
// process, the way a real monitor run would be exercised against real
// target RAM over a debug probe.
package loopback

import (
	"context"

	"github.com/choco-technologies/dmlog/internal/memspace"
)

// Backend implements probe.Backend directly against a memspace.Space.
// Connect/Disconnect are no-ops: the simulated address space has no
// session state to establish.
type Backend struct {
	Space *memspace.Space
}

// New wraps space as a probe.Backend.
func New(space *memspace.Space) *Backend {
	return &Backend{Space: space}
}

func (b *Backend) Connect(ctx context.Context, host string, port int) error {
	return nil
}

func (b *Backend) Disconnect() error {
	return nil
}

func (b *Backend) ReadMemory(ctx context.Context, addr uint64, n int) ([]byte, error) {
	return b.Space.Read(addr, n)
}

func (b *Backend) WriteMemory(ctx context.Context, addr uint64, data []byte) error {
	return b.Space.Write(addr, data)
}
