package mcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/mcpcore/mcp-runtime/pkg/jsonrpc2"
)

// StdioTransport serves the single session on the process's own stdin and
// stdout, newline-delimited JSON per line (spec §4.2 "Stdio transport").
// There is exactly one session, with id "stdio" (spec §3).
type StdioTransport struct {
	in     io.Reader
	out    io.Writer
	once   sync.Once
	issued bool
}

// NewStdioTransport builds a StdioTransport over the process's stdin/stdout.
func NewStdioTransport() *StdioTransport {
	return &StdioTransport{in: os.Stdin, out: os.Stdout}
}

type stdioRWC struct {
	in  io.Reader
	out io.Writer
}

func (s *stdioRWC) Read(b []byte) (int, error)  { return s.in.Read(b) }
func (s *stdioRWC) Write(b []byte) (int, error) { return s.out.Write(b) }
func (s *stdioRWC) Close() error                { return nil }

func (t *StdioTransport) Accept(ctx context.Context) (jsonrpc2.Stream, string, error) {
	if t.issued {
		return nil, "", fmt.Errorf("mcp: stdio transport already accepted its one session")
	}
	t.issued = true
	stream := jsonrpc2.NewIOStream(&stdioRWC{in: t.in, out: t.out}, jsonrpc2.NDJSONFramer())
	return stream, "stdio", nil
}

// Connect implements ClientTransport for the client side of a stdio
// connection, i.e. talking to the process's own stdin/stdout (used when the
// client IS the subprocess, as opposed to CommandTransport which launches
// one).
func (t *StdioTransport) Connect(ctx context.Context) (jsonrpc2.Stream, error) {
	return jsonrpc2.NewIOStream(&stdioRWC{in: t.in, out: t.out}, jsonrpc2.NDJSONFramer()), nil
}

// CommandTransport is a ClientTransport that launches a subprocess and
// communicates with it over its stdin/stdout (spec §6 create-client
// "{type: :stdio, command, args?, env?}").
type CommandTransport struct {
	cmd *exec.Cmd
}

// NewCommandTransport returns a CommandTransport that will run cmd,
// starting it during Connect and stopping it when the stream is closed.
func NewCommandTransport(cmd *exec.Cmd) *CommandTransport {
	return &CommandTransport{cmd: cmd}
}

func (t *CommandTransport) Connect(ctx context.Context) (jsonrpc2.Stream, error) {
	stdout, err := t.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stdin, err := t.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := t.cmd.Start(); err != nil {
		return nil, err
	}
	return jsonrpc2.NewIOStream(&subprocessRWC{cmd: t.cmd, stdout: stdout, stdin: stdin}, jsonrpc2.NDJSONFramer()), nil
}

// subprocessRWC implements the client's orderly-shutdown sequence for the
// stdio transport (spec §6 framing note, and the "SHOULD initiate shutdown
// by closing stdin, then SIGTERM, then SIGKILL" sequence this core follows
// from the wider MCP transport spec).
type subprocessRWC struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stdin  io.WriteCloser
}

func (s *subprocessRWC) Read(b []byte) (int, error)  { return s.stdout.Read(b) }
func (s *subprocessRWC) Write(b []byte) (int, error) { return s.stdin.Write(b) }

func (s *subprocessRWC) Close() error {
	if err := s.stdin.Close(); err != nil {
		return fmt.Errorf("closing stdin: %w", err)
	}
	resChan := make(chan error, 1)
	go func() { resChan <- s.cmd.Wait() }()
	wait := func() (error, bool) {
		select {
		case err := <-resChan:
			return err, true
		case <-time.After(5 * time.Second):
			return nil, false
		}
	}
	if err, ok := wait(); ok {
		return err
	}
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err == nil {
		if err, ok := wait(); ok {
			return err
		}
	}
	if err := s.cmd.Process.Kill(); err != nil {
		return err
	}
	if err, ok := wait(); ok {
		return err
	}
	return fmt.Errorf("mcp: subprocess did not exit after SIGKILL")
}
