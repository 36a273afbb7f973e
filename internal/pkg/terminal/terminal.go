// Package terminal provides an append-only terminal output surface.
package terminal

import (
	"errors"
	"io"
	"sync"

	"github.com/muesli/termenv"
)

// UIGray400 is the colour of the greeting and status text.
const UIGray400 = "#8E96A3"

var (
	// ErrNotOpen is returned when writing to a terminal that has no surface.
	ErrNotOpen = errors.New("terminal: not open")
	// ErrAlreadyOpen is returned when opening a terminal twice.
	ErrAlreadyOpen = errors.New("terminal: already open")
	// ErrDisposed is returned when using a disposed terminal.
	ErrDisposed = errors.New("terminal: disposed")
)

// ColorMarker returns the escape sequence switching the foreground to the given hex colour.
func ColorMarker(hex string) []byte {
	return []byte(termenv.CSI + termenv.RGBColor(hex).Sequence(false) + "m")
}

// ResetMarker returns the escape sequence resetting all attributes.
func ResetMarker() []byte {
	return []byte(termenv.CSI + termenv.ResetSeq + "m")
}

// Terminal writes lines and raw bytes to a surface, in call order.
// Bytes are written unmodified; interpreting escape sequences and
// assembling split code points is left to the surface.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	reset    bool
	disposed bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithResetOnDispose writes a reset sequence to the surface on Dispose.
func WithResetOnDispose() Option {
	return func(t *Terminal) {
		t.reset = true
	}
}

// New creates a terminal without a surface.
func New(opts ...Option) *Terminal {
	t := &Terminal{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open attaches the surface the terminal writes to.
func (t *Terminal) Open(surface io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return ErrDisposed
	}
	if t.out != nil {
		return ErrAlreadyOpen
	}

	t.out = surface
	return nil
}

// WriteLine writes text followed by a line break.
func (t *Terminal) WriteLine(text string) error {
	return t.write([]byte(text + "\r\n"))
}

// WriteBytes writes data verbatim.
func (t *Terminal) WriteBytes(data []byte) error {
	return t.write(data)
}

func (t *Terminal) write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return ErrDisposed
	}
	if t.out == nil {
		return ErrNotOpen
	}

	_, err := t.out.Write(data)
	return err
}

// Dispose releases the surface. Further writes fail with ErrDisposed.
// It is safe to call multiple times.
func (t *Terminal) Dispose() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return nil
	}
	t.disposed = true

	var err error
	if t.reset && t.out != nil {
		_, err = t.out.Write(ResetMarker())
	}
	t.out = nil

	return err
}
