package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// lineWriter serializes newline-delimited JSON writes.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lineWriter) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err = lw.w.Write(append(b, '\n'))
	return err
}

// ServeStdio reads newline-delimited JSON-RPC messages from in and writes
// replies to out until in reaches EOF or ctx is done. Messages are handled
// concurrently; replies may be written out of order.
func ServeStdio(ctx context.Context, h MessageHandler, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "stdio").Logger()
	g, gctx := errgroup.WithContext(ctx)
	w := &lineWriter{w: out}

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		r := bufio.NewReader(in)
		for {
			line, err := r.ReadBytes('\n')
			if line = bytes.TrimSpace(line); len(line) > 0 {
				select {
				case lines <- line:
				case <-gctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	logger.Info().Msg("serving on stdio")
	for {
		select {
		case <-gctx.Done():
			if err := g.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := g.Wait(); err != nil {
					return err
				}
				select {
				case err := <-readErr:
					return err
				default:
				}
				logger.Info().Msg("stdin closed")
				return nil
			}
			g.Go(func() error {
				reply := h.HandleMessage(gctx, line)
				if reply == nil {
					return nil
				}
				return w.write(reply)
			})
		}
	}
}
