package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// process is one ffmpeg-family command. Its stderr is kept for error reports.
type process struct {
	cmd    *exec.Cmd
	stderr bytes.Buffer

	exited chan struct{}
	err    error
}

func newProcess(ctx context.Context, name string, args ...string) *process {
	p := &process{exited: make(chan struct{})}
	p.cmd = exec.CommandContext(ctx, name, args...)
	p.cmd.Stderr = &p.stderr
	p.cmd.WaitDelay = time.Second
	return p
}

func (p *process) start() error {
	if err := p.cmd.Start(); err != nil {
		return err
	}
	go func() {
		err := p.cmd.Wait()
		if err != nil {
			if detail := strings.TrimSpace(p.stderr.String()); detail != "" {
				err = fmt.Errorf("%w: %s", err, detail)
			}
		}
		p.err = err
		close(p.exited)
	}()
	return nil
}

// wait blocks until the process has exited and returns its exit error.
func (p *process) wait() error {
	<-p.exited
	return p.err
}

// interrupt sends SIGINT and kills the process if it is still running after grace.
func (p *process) interrupt(grace time.Duration) {
	select {
	case <-p.exited:
		return
	default:
	}

	_ = p.cmd.Process.Signal(os.Interrupt)
	select {
	case <-p.exited:
	case <-time.After(grace):
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
}

// exitedWithStatus reports whether err is only a non-zero exit status, which
// is what ffmpeg and ffplay return after an interrupt.
func exitedWithStatus(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
