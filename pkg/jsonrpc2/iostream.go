package jsonrpc2

import (
	"context"
	"io"
)

// ioStream adapts a raw byte-level io.ReadWriteCloser into a Stream using a
// Framer to do the message-level framing (spec §4.2: transports "expose a
// uniform message-in/message-out channel pair").
type ioStream struct {
	rwc    io.ReadWriteCloser
	reader Reader
	writer Writer
}

// NewIOStream builds a Stream out of a raw duplex byte connection and a
// Framer describing how messages are delimited on it.
func NewIOStream(rwc io.ReadWriteCloser, framer Framer) Stream {
	return &ioStream{
		rwc:    rwc,
		reader: framer.Reader(rwc),
		writer: framer.Writer(rwc),
	}
}

func (s *ioStream) Read(ctx context.Context) (Message, error) { return s.reader.Read(ctx) }
func (s *ioStream) Write(ctx context.Context, msg Message) error {
	return s.writer.Write(ctx, msg)
}
func (s *ioStream) Close() error { return s.rwc.Close() }
