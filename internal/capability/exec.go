package capability

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"

	"sockcat/util"
)

// waitGrace is how long Close waits for the child after closing its
// stdin before killing it.
const waitGrace = 2 * time.Second

// Exec wires a connection to a child process's stdio.  Either
// Program (-e) or Command (-c) must be set.
type Exec struct {
	Program string // -e: execute a program directly
	Command string // -c: execute via the system shell
	Logger  *util.Logger
}

// Open starts the child.  Its stdout and stderr become the endpoint's
// readable side and its stdin the writable side.
func (e *Exec) Open(ctx context.Context) (Endpoint, error) {
	var cmd *exec.Cmd

	switch {
	case e.Command != "":
		if runtime.GOOS == "windows" {
			cmd = exec.CommandContext(ctx, "cmd.exe", "/C", e.Command)
		} else {
			cmd = exec.CommandContext(ctx, "/bin/sh", "-c", e.Command)
		}
	case e.Program != "":
		cmd = exec.CommandContext(ctx, e.Program)
	default:
		return nil, fmt.Errorf("no command specified for exec mode")
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", cmd.Path, err)
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if e.Logger != nil {
		e.Logger.Debug("exec: %s", cmd.String())
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("exec %q: %w", cmd.Path, err)
	}

	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		out:    util.NewAsyncReader(pr),
		exited: make(chan struct{}),
	}
	go func() {
		p.err = cmd.Wait()
		pw.Close() //nolint:errcheck
		close(p.exited)
	}()
	return p, nil
}

// Process is a running child whose stdio is the Endpoint.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *util.AsyncReader
	exited chan struct{}
	err    error // valid once exited is closed
}

func (p *Process) Read(b []byte) (int, error) { return p.out.Read(b) }

func (p *Process) Write(b []byte) (int, error) {
	select {
	case <-p.exited:
		return 0, io.ErrClosedPipe
	default:
	}
	return p.stdin.Write(b)
}

func (p *Process) Ready() <-chan struct{} { return p.out.Ready() }

// Close closes the child's stdin and waits for it to exit, killing it
// if it lingers.
func (p *Process) Close() error {
	p.stdin.Close() //nolint:errcheck
	select {
	case <-p.exited:
	case <-time.After(waitGrace):
		p.cmd.Process.Kill() //nolint:errcheck
		<-p.exited
	}
	if p.err != nil {
		return fmt.Errorf("exec %q: %w", p.cmd.Path, p.err)
	}
	return nil
}
