package firmware

import (
	"fmt"
	"sync/atomic"
)

// defaultContext is the process-wide ambient sink described in spec.md's
// DESIGN NOTES: formatters that have no caller-supplied Context write
// through here instead. Replacement is atomic so one goroutine publishing a
// freshly created region never races with another reading the old one.
var defaultContext atomic.Pointer[Context]

// SetDefault publishes c as the process-wide default context.
func SetDefault(c *Context) {
	defaultContext.Store(c)
}

// Default returns the current process-wide default context, or nil if none
// has been published.
func Default() *Context {
	return defaultContext.Load()
}

// Printf formats according to format and writes the result through c,
// exactly like Puts(fmt.Sprintf(...)). It is the formatting helper spec.md's
// DESIGN NOTES allude to without naming.
func (c *Context) Printf(format string, args ...any) {
	c.Puts(fmt.Sprintf(format, args...))
}

// Println writes args space-separated, followed by a newline.
func (c *Context) Println(args ...any) {
	c.Puts(fmt.Sprintln(args...))
}
