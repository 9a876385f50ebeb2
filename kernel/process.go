package kernel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/qbaula/project2/loader"
	"github.com/qbaula/project2/log"
	"github.com/qbaula/project2/memory"
	"github.com/qbaula/project2/pkg/waiter"
)

type prockey struct{}

func GetTask(ctx context.Context) (*Task, bool) {
	if v := ctx.Value(prockey{}); v != nil {
		return v.(*Task), true
	}

	return nil, false
}

func SetTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, prockey{}, t)
}

type ProcessState int

const (
	Created ProcessState = iota
	Loading
	Running
	LoadFailed
	Exited
	Reclaimed
)

func (s ProcessState) String() string {
	switch s {
	case Created:
		return "created"
	case Loading:
		return "loading"
	case Running:
		return "running"
	case LoadFailed:
		return "load-failed"
	case Exited:
		return "exited"
	case Reclaimed:
		return "reclaimed"
	default:
		return "unknown"
	}
}

type LoadOutcome int

const (
	LoadPending LoadOutcome = iota
	LoadSuccess
	LoadFailure
)

// ExitStatus is how a process ended. Killed is set when the kernel
// terminated the process rather than the process calling exit.
type ExitStatus struct {
	Code   int
	Killed bool
}

// WaitStatus is the value wait returns for this status.
func (e ExitStatus) WaitStatus() int {
	if e.Killed {
		return -1
	}

	return e.Code
}

// Process is the process control block.
type Process struct {
	Kernel    *Kernel
	Pid       int
	ParentPid int
	Name      string
	Mem       *memory.VirtualMemory

	// refs is guarded by the registry lock.
	refs int

	mu       sync.Mutex
	state    ProcessState
	children map[int]*Process
	files    *FileTable
	exe      loader.Executable

	load waiter.Latch[LoadOutcome]
	exit waiter.Latch[ExitStatus]

	exiting atomic.Bool
}

func (k *Kernel) newProcess(name string) *Process {
	return &Process{
		Kernel:   k,
		Name:     name,
		Mem:      memory.NewVirtualMemory(),
		children: make(map[int]*Process),
		files:    NewFileTable(k.cfg.MaxOpenFiles),
	}
}

func (p *Process) setState(s ProcessState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = s
}

func (p *Process) State() ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Alive reports whether the process has not yet exited.
func (p *Process) Alive() bool {
	_, done := p.exit.Peek()
	return !done
}

// LoadOutcome returns LoadPending until the process has finished loading.
func (p *Process) LoadOutcome() LoadOutcome {
	v, ok := p.load.Peek()
	if !ok {
		return LoadPending
	}

	return v
}

// ExitStatus returns the exit status once the process has exited.
func (p *Process) ExitStatus() (ExitStatus, bool) {
	return p.exit.Peek()
}

// Exited returns a channel closed when the process exits.
func (p *Process) Exited() <-chan struct{} {
	return p.exit.Done()
}

// Children returns the pids this process may still wait on.
func (p *Process) Children() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pids []int
	for pid := range p.children {
		pids = append(pids, pid)
	}

	sort.Ints(pids)

	return pids
}

// Exec starts cmdLine as a child of p and blocks until the child has
// finished loading. It returns the child's pid, or -1 if the load failed.
func (p *Process) Exec(cmdLine string) int {
	child := p.Kernel.spawn(p.Pid, cmdLine)

	if child.load.Wait() != LoadSuccess {
		log.L.Trace("exec-load-failed", "pid", p.Pid, "child", child.Pid)
		p.Kernel.processes.Release(child.Pid)
		return -1
	}

	p.mu.Lock()
	p.children[child.Pid] = child
	p.mu.Unlock()

	return child.Pid
}

// Wait blocks until the direct child pid exits and returns its status. It
// returns -1 at once if pid is not a child of p or was already waited for,
// and -1 after the fact if the kernel killed the child.
func (p *Process) Wait(pid int) int {
	p.mu.Lock()
	child, ok := p.children[pid]
	p.mu.Unlock()

	if !ok {
		return -1
	}

	st := child.exit.Wait()

	p.mu.Lock()
	delete(p.children, pid)
	p.mu.Unlock()

	p.Kernel.processes.Release(pid)

	return st.WaitStatus()
}

// Exit terminates the process with a status of its own choosing.
func (p *Process) Exit(code int) {
	p.terminate(ExitStatus{Code: code})
}

// Kill terminates the process on the kernel's behalf.
func (p *Process) Kill() {
	p.terminate(ExitStatus{Code: -1, Killed: true})
}

// terminate runs the exit path. Only the first call per process does
// anything; it returns whether this call was that one.
func (p *Process) terminate(st ExitStatus) bool {
	if !p.exiting.CompareAndSwap(false, true) {
		return false
	}

	k := p.Kernel

	k.L.Trace("process-exit", "pid", p.Pid, "code", st.Code, "killed", st.Killed)

	if k.cfg.ExitMessages {
		k.console.PutBuf([]byte(fmt.Sprintf("%s: exit(%d)\n", p.Name, st.Code)))
	}

	if err := p.files.CloseAll(); err != nil {
		k.L.Error("error closing files at exit", "pid", p.Pid, "error", err)
	}

	p.mu.Lock()
	exe := p.exe
	p.exe = nil

	orphans := p.children
	p.children = make(map[int]*Process)
	p.mu.Unlock()

	if exe != nil {
		exe.Close()
	}

	for pid := range orphans {
		k.processes.Release(pid)
	}

	p.Mem.Destroy()

	k.processes.MarkExited(p.Pid, st)
	k.processes.Release(p.Pid)

	return true
}
