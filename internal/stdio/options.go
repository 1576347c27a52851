package stdio

import (
	"io"

	"github.com/rs/zerolog"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger overrides the logger. Logs never go to the protocol writer.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.l = l
	}
}

// WithMaxLineBytes caps the size of a single inbound line.
func WithMaxLineBytes(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxLine = n
		}
	}
}
