package output

import (
	"os"

	"golang.org/x/sys/unix"
)

// Writer writes drained output to stdout using writev. WriteSpans can hand
// several slices (such as a wrap-spanning read's two spans) to one writev
// call; the monitor itself joins the spans and calls Write.
type Writer struct {
	fd int
}

// NewWriter creates a Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{fd: int(os.Stdout.Fd())}
}

// Write implements io.Writer, retrying writev until all of data is written.
func (w *Writer) Write(data []byte) (int, error) {
	total := len(data)
	for len(data) > 0 {
		n, err := unix.Writev(w.fd, [][]byte{data})
		if err != nil {
			return total - len(data), err
		}
		data = data[n:]
	}
	return total, nil
}

// WriteSpans writes multiple byte slices in a single writev call, retrying
// until all of them are written.
func (w *Writer) WriteSpans(spans [][]byte) (int, error) {
	total := 0
	for _, s := range spans {
		total += len(s)
	}
	remaining := total
	for remaining > 0 {
		n, err := unix.Writev(w.fd, spans)
		if err != nil {
			return total - remaining, err
		}
		remaining -= n
		for n > 0 && len(spans) > 0 {
			if n < len(spans[0]) {
				spans[0] = spans[0][n:]
				n = 0
			} else {
				n -= len(spans[0])
				spans = spans[1:]
			}
		}
	}
	return total, nil
}
