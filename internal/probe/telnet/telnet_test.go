package telnet

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestParseMDWSingleLine(t *testing.T) {
	reply := "0x20000000: deadbeef 12345678\n> "
	values, err := parseMDW(reply, 2)
	if err != nil {
		t.Fatalf("parseMDW: %v", err)
	}
	if values[0] != 0xdeadbeef || values[1] != 0x12345678 {
		t.Fatalf("got %#x %#x", values[0], values[1])
	}
}

func TestParseMDWMultiLine(t *testing.T) {
	reply := "0x20000000: 00000001 00000002\n0x20000008: 00000003\n> "
	values, err := parseMDW(reply, 3)
	if err != nil {
		t.Fatalf("parseMDW: %v", err)
	}
	want := []uint32{1, 2, 3}
	for i, v := range want {
		if values[i] != v {
			t.Fatalf("word %d = %#x, want %#x", i, values[i], v)
		}
	}
}

func TestParseMDWShortReplyErrors(t *testing.T) {
	if _, err := parseMDW("0x20000000: deadbeef\n> ", 2); err == nil {
		t.Fatal("expected an error when the reply has fewer words than requested")
	}
}

// fakeOpenOCD serves one connection, replying to mdw requests with a fixed
// pattern and acking mww requests, mimicking enough of the real telnet
// console to exercise Backend's read/write paths end to end.
func fakeOpenOCD(t *testing.T, conn net.Conn) {
	t.Helper()
	r := bufio.NewReader(conn)
	conn.Write([]byte("Open On-Chip Debugger\n> "))
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "mdw"):
			conn.Write([]byte("0x20000000: 01020304 05060708\n> "))
		case strings.HasPrefix(line, "mww"):
			conn.Write([]byte("> "))
		}
	}
}

func TestBackendReadMemoryIntegration(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	go fakeOpenOCD(t, server)

	b := &Backend{conn: client, reader: bufio.NewReader(client), prompt: defaultPrompt}
	// Drain the greeting, which a fresh Connect() would normally do.
	if _, err := b.readUntilPrompt(); err != nil {
		t.Fatalf("readUntilPrompt: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := b.ReadMemory(ctx, 0x20000000, 8)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	want := []byte{0x04, 0x03, 0x02, 0x01, 0x08, 0x07, 0x06, 0x05}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, data[i], want[i])
		}
	}
}
