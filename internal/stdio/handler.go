// Package stdio frames newline-delimited JSON-RPC over a reader and writer,
// by default the process's standard input and output.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/jsonrpc"
)

// MessageHandler answers one inbound line. A nil return means no response
// is written (notifications).
type MessageHandler interface {
	HandleMessage(ctx context.Context, line []byte) []byte
}

// Handler is a single-connection stdio transport. Lines are processed
// strictly in order: one request is answered before the next is read.
type Handler struct {
	srv     MessageHandler
	r       io.Reader
	w       io.Writer
	l       zerolog.Logger
	maxLine int

	wmu sync.Mutex
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv MessageHandler, opts ...Option) *Handler {
	h := &Handler{
		srv:     srv,
		r:       os.Stdin,
		w:       os.Stdout,
		l:       zerolog.Nop(),
		maxLine: config.DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var errLineTooLong = errors.New("line exceeds maximum size")

type readResult struct {
	line []byte
	err  error
}

// Serve runs the loop until EOF on the reader or the context is canceled.
// EOF is a clean shutdown and returns nil. Oversized lines are answered with
// an invalid-request error and skipped.
func (h *Handler) Serve(ctx context.Context) error {
	br := bufio.NewReader(h.r)
	lines := make(chan readResult)
	go func() {
		defer close(lines)
		for {
			line, err := readLine(br, h.maxLine)
			select {
			case lines <- readResult{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, errLineTooLong) {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-lines:
			if !ok {
				return nil
			}
			switch {
			case res.err == nil:
			case errors.Is(res.err, errLineTooLong):
				h.l.Warn().Int("max_bytes", h.maxLine).Msg("dropping oversized line")
				resp, err := jsonrpc.Encode(jsonrpc.NewError(nil, jsonrpc.InvalidRequest, "Invalid Request: "+errLineTooLong.Error(), nil))
				if err != nil {
					return err
				}
				if err := h.write(resp); err != nil {
					return err
				}
				continue
			case errors.Is(res.err, io.EOF):
				if err := h.process(ctx, res.line); err != nil {
					return err
				}
				h.l.Info().Msg("stdin closed; shutting down")
				return nil
			default:
				return fmt.Errorf("stdio: read: %w", res.err)
			}
			if err := h.process(ctx, res.line); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) process(ctx context.Context, line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	resp := h.srv.HandleMessage(ctx, line)
	if resp == nil {
		return nil
	}
	return h.write(resp)
}

func (h *Handler) write(b []byte) error {
	h.wmu.Lock()
	defer h.wmu.Unlock()
	if _, err := h.w.Write(b); err != nil {
		return fmt.Errorf("stdio: write: %w", err)
	}
	return nil
}

// readLine returns the next line without its terminator. When the line is
// longer than max the rest of it is consumed and errLineTooLong returned.
// At end of input the final unterminated line is returned with io.EOF.
func readLine(br *bufio.Reader, max int) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if len(buf)+len(chunk) > max+1 {
			if errors.Is(err, bufio.ErrBufferFull) {
				if _, derr := br.ReadBytes('\n'); derr != nil && !errors.Is(derr, io.EOF) {
					return nil, derr
				}
			}
			return nil, errLineTooLong
		}
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			return bytes.TrimRight(buf, "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return buf, err
		}
	}
}
