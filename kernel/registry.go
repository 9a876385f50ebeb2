package kernel

import (
	"sync"

	hclog "github.com/hashicorp/go-hclog"
)

// NoParent is the parent pid of the initial process.
const NoParent = 0

// ProcessRegistry is the system-wide table of live PCBs.
//
// Each PCB starts with two references: one held by the process itself and
// one held by its parent (the kernel, for the initial process). The process
// drops its reference when it finishes exiting; the parent drops its
// reference after a successful wait, a failed load, or its own exit. The
// PCB is reclaimed when the second reference goes.
type ProcessRegistry struct {
	L hclog.Logger

	mu        sync.RWMutex
	highWater int
	processes map[int]*Process
}

func NewProcessRegistry(l hclog.Logger) *ProcessRegistry {
	return &ProcessRegistry{
		L:         l,
		processes: make(map[int]*Process),
	}
}

// Register assigns proc the next pid. Pids increase monotonically and are
// never reused.
func (r *ProcessRegistry) Register(proc *Process, parentPid int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.highWater++
	pid := r.highWater

	proc.Pid = pid
	proc.ParentPid = parentPid
	proc.refs = 2

	r.processes[pid] = proc

	r.L.Trace("process-register", "pid", pid, "parent", parentPid)

	return pid
}

func (r *ProcessRegistry) Lookup(pid int) (*Process, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	proc, ok := r.processes[pid]
	return proc, ok
}

// MarkExited records the final status of pid and wakes its waiter. It
// returns false if pid is unknown or already exited.
func (r *ProcessRegistry) MarkExited(pid int, status ExitStatus) bool {
	proc, ok := r.Lookup(pid)
	if !ok {
		return false
	}

	proc.setState(Exited)

	return proc.exit.Fire(status)
}

// Release drops one reference to pid, reclaiming the PCB with the last one.
func (r *ProcessRegistry) Release(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	proc, ok := r.processes[pid]
	if !ok {
		return
	}

	proc.refs--
	if proc.refs > 0 {
		return
	}

	delete(r.processes, pid)
	proc.setState(Reclaimed)

	r.L.Trace("process-reclaimed", "pid", pid)
}

// Len returns the number of PCBs not yet reclaimed.
func (r *ProcessRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.processes)
}
