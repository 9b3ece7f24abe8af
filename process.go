// Copyright 2026 The Colony Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package colony

import (
	"bufio"
	"errors"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// DefaultStopTime is how long a child gets between SIGTERM and SIGKILL
// when its spec does not say otherwise.
const DefaultStopTime = 10 * time.Second

// Process wraps a single operating system process.  It is created and
// started by the supervisor loop, delivers exactly one ExitStatus on its
// Done channel when the child exits, and implements the two-phase
// graceful stop protocol (terminate, wait, kill).
//
// A Process is single use.  Restarting a worker means building a fresh
// Process from its spec.
type Process struct {
	spec     ProcessSpec
	cmd      *exec.Cmd
	logger   *log.Logger
	stopTime time.Duration

	done     chan ExitStatus // receives the exit status, exactly once
	waitDone chan struct{}   // closed after the status is latched

	mu      sync.Mutex
	started bool
	exited  bool
}

func newProcess(spec ProcessSpec, logger *log.Logger) *Process {
	st := spec.StopTime
	if st <= 0 {
		st = DefaultStopTime
	}
	return &Process{
		spec:     spec,
		logger:   logger,
		stopTime: st,
		done:     make(chan ExitStatus, 1),
		waitDone: make(chan struct{}),
	}
}

// doLog pumps one output stream of the child into the logger, a line at
// a time.
func (p *Process) doLog(r io.ReadCloser, prefix string) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) != 0 {
			p.logger.Print(prefix, strings.Trim(line, "\n"))
		}
		if err != nil {
			return
		}
	}
}

// Start spawns the child.  A non-nil error means the spawn itself failed
// (executable missing, permission denied); this error class is
// deterministic, so the caller marks the entry Failed and does not
// retry.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("process already started")
	}
	p.cmd = p.spec.command()

	if stdout, e := p.cmd.StdoutPipe(); e != nil {
		p.logger.Printf("Failed to capture stdout: %v", e)
	} else {
		go p.doLog(stdout, "stdout> ")
	}
	if stderr, e := p.cmd.StderrPipe(); e != nil {
		p.logger.Printf("Failed to capture stderr: %v", e)
	} else {
		go p.doLog(stderr, "stderr> ")
	}

	if e := p.cmd.Start(); e != nil {
		return e
	}
	p.started = true
	go p.doWait()
	return nil
}

// doWait reaps the child.  Reaping happens here, not in the supervisor
// loop, so a busy loop can never leak a zombie.
func (p *Process) doWait() {
	e := p.cmd.Wait()
	st := ExitStatus{PID: p.cmd.Process.Pid, When: time.Now()}
	var xe *exec.ExitError
	if errors.As(e, &xe) {
		st.Code = xe.ExitCode()
		st.Err = e
	} else if e != nil {
		st.Code = -1
		st.Err = e
	}

	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()

	close(p.waitDone)
	p.done <- st
}

// Done returns the channel that carries the child's exit status.  The
// status is delivered exactly once.
func (p *Process) Done() <-chan ExitStatus {
	return p.done
}

// PID returns the child's process id, or -1 if there is no child.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.exited {
		return -1
	}
	return p.cmd.Process.Pid
}

// Alive is a cheap liveness probe.
func (p *Process) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && !p.exited
}

// Signal delivers a signal to the live child.  It returns ErrNotRunning
// when there is no child to signal.  A delivery race against an exiting
// child is benign and reported as nil.
func (p *Process) Signal(sig os.Signal) error {
	p.mu.Lock()
	if !p.started || p.exited {
		p.mu.Unlock()
		return ErrNotRunning
	}
	proc := p.cmd.Process
	p.mu.Unlock()

	if e := proc.Signal(sig); e != nil {
		if errors.Is(e, os.ErrProcessDone) {
			return nil
		}
		return e
	}
	return nil
}

// Stop performs the graceful stop protocol: SIGTERM, then after a
// timeout, SIGKILL.  It blocks until the child is gone.  Stopping a
// process that never started, or that already exited, is a no-op.
func (p *Process) Stop() {
	p.mu.Lock()
	if !p.started || p.exited {
		p.mu.Unlock()
		return
	}
	proc := p.cmd.Process
	p.mu.Unlock()

	if e := proc.Signal(syscall.SIGTERM); e != nil &&
		!errors.Is(e, os.ErrProcessDone) {
		p.logger.Printf("Failed sending SIGTERM: %v", e)
	}
	timer := time.AfterFunc(p.stopTime, func() {
		p.logger.Printf("Graceful shutdown timed out, killing")
		if e := proc.Kill(); e != nil &&
			!errors.Is(e, os.ErrProcessDone) {
			p.logger.Printf("Failed killing: %v", e)
		}
	})
	<-p.waitDone
	timer.Stop()
}
