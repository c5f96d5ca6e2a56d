// Package pool implements the bounded-concurrency Command Pool, which runs
// the build's compile and link commands (spec §4.6). Other child processes
// (toolchain probes, module scans, CMake, make/ninja, lipo) are started
// directly through platform.Run. The pool owns output interleaving, MSVC dependency-output filtering, progress
// counters, the first-fail/keep-going policy, and signal propagation.
package pool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"

	"github.com/fatih/color"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/errgroup"

	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/depfile"
	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/platform"
)

// State is the pool's lifecycle state machine (spec §4.6 "State machine").
type State int

const (
	Idle State = iota
	Running
	Draining
	Stopped
)

// DrainReason distinguishes why the pool entered Draining.
type DrainReason int

const (
	DrainNone DrainReason = iota
	DrainBuildFailure
	DrainAborted
)

// Result is returned once a Job finishes draining.
type Result struct {
	Failed  []string // references of commands that failed
	Aborted bool
	Err     error
}

// Pool is a single process-wide bounded-concurrency executor.
type Pool struct {
	maxJobs int

	mu       deadlock.Mutex
	state    State
	reason   DrainReason
	live     map[int]*exec.Cmd // pid -> live child, for signal fan-out
	deregister func()

	counter int64 // monotonic job-submission counter for "[i/total]"
}

// New constructs a Pool with maxJobs concurrent slots. max_jobs = 0 is
// treated as 1 (spec §8 Boundaries).
func New(maxJobs int) *Pool {
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Pool{maxJobs: maxJobs, live: map[int]*exec.Cmd{}}
}

// Run executes job's commands with up to p.maxJobs running concurrently,
// printing "[i/total] <text>" on dispatch and "FAILED: <text>" on a
// non-zero exit, exactly as spec §4.6 describes.
func (p *Pool) Run(ctx context.Context, job *model.Job) Result {
	p.mu.Lock()
	p.state = Running
	p.mu.Unlock()

	deregister := platform.Register(p.onSignal)
	p.deregister = deregister
	defer deregister()

	total := len(job.Commands)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxJobs)

	var failedMu deadlock.Mutex
	var failed []string
	var anyFailure int32

	for i, cmd := range job.Commands {
		i, cmd := i, cmd
		g.Go(func() error {
			if p.isDraining() {
				return nil // cooperative cancellation at submission boundary
			}
			index := job.StartIndex + i + 1
			p.printProgress(index, total, cmd.Output)

			res := p.runOne(gctx, cmd, job.MSVCFilter)
			if res.Err != nil || res.exitCode != 0 {
				atomic.StoreInt32(&anyFailure, 1)
				failedMu.Lock()
				failed = append(failed, cmd.Reference)
				failedMu.Unlock()
				p.printFailure(cmd.Output, res.stderr)

				if !job.KeepGoing {
					p.beginDrain(DrainBuildFailure)
					return fmt.Errorf("pool: command failed: %s", cmd.Reference)
				}
				return nil
			}
			return nil
		})
	}

	err := g.Wait()

	p.mu.Lock()
	aborted := p.reason == DrainAborted
	p.state = Stopped
	p.mu.Unlock()

	if aborted {
		return Result{Failed: failed, Aborted: true, Err: &chkerr.Error{Kind: chkerr.Aborted, Signal: "SIGINT"}}
	}
	if atomic.LoadInt32(&anyFailure) == 1 {
		return Result{Failed: failed, Err: &chkerr.Error{Kind: chkerr.CompileFailure, Command: nil}}
	}
	if err != nil {
		return Result{Failed: failed, Err: err}
	}
	return Result{}
}

func (p *Pool) runOne(ctx context.Context, cmd *model.Cmd, msvcFilter bool) struct {
	exitCode int
	stderr   string
	Err      error
} {
	child, stdout, stderr, err := platform.Spawn("", cmd.Command, nil)
	if err != nil {
		return struct {
			exitCode int
			stderr   string
			Err      error
		}{exitCode: -1, Err: err}
	}

	p.mu.Lock()
	p.live[child.Process.Pid] = child
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.live, child.Process.Pid)
		p.mu.Unlock()
	}()

	waitErr := child.Wait()

	stdoutText := stdout.String()
	if msvcFilter && cmd.Dependency != "" {
		deps, rest := depfile.FilterMSVCIncludes(stdoutText)
		stdoutText = joinLines(rest)
		if len(deps) > 0 {
			_ = depfile.WriteMSVCDepFile(cmd.Dependency, cmd.Reference, deps)
		}
	}
	if stdoutText != "" {
		fmt.Fprint(os.Stdout, stdoutText)
	}

	exitCode := 0
	if waitErr != nil {
		if ee, ok := waitErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			exitCode = -1
		}
	}

	return struct {
		exitCode int
		stderr   string
		Err      error
	}{exitCode: exitCode, stderr: stderr.String(), Err: waitErr}
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}

func (p *Pool) printProgress(i, total int, text string) {
	fmt.Fprintf(os.Stdout, "[%d/%d] %s\n", i, total, text)
}

func (p *Pool) printFailure(text, stderr string) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s %s\n%s", red("FAILED:"), text, stderr)
}

func (p *Pool) isDraining() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == Draining
}

func (p *Pool) beginDrain(reason DrainReason) {
	p.mu.Lock()
	if p.state == Draining {
		p.mu.Unlock()
		return
	}
	p.state = Draining
	p.reason = reason
	live := make([]*exec.Cmd, 0, len(p.live))
	for _, c := range p.live {
		live = append(live, c)
	}
	p.mu.Unlock()

	for _, c := range live {
		_ = platform.KillProcessGroup(c, syscall.SIGTERM)
	}
}

// onSignal is invoked by the process-global SignalDispatcher when
// SIGINT/SIGTERM/SIGABRT arrives; it drains the pool the same way a
// build failure does, but tags the reason as Aborted.
func (p *Pool) onSignal(_ os.Signal) {
	p.beginDrain(DrainAborted)
}
