package kernel

import (
	"context"

	"github.com/pkg/errors"
)

// errTerminated unwinds a user program's thread once its process has exited
// or the system has halted. It never escapes StartProcess.
var errTerminated = errors.New("process terminated")

// Task is the thread running a process's user program. It is the program's
// machine: stack pointer, memory access and the trap into the kernel.
type Task struct {
	*Process

	sp uint32
}

func (t *Task) SP() uint32 {
	return t.sp
}

func (t *Task) SetSP(sp uint32) {
	t.sp = sp
}

// Load reads user memory. An unmapped address is a page fault: the process
// is killed and the program does not resume.
func (t *Task) Load(addr uint32, b []byte) {
	if _, err := t.Mem.ReadAt(b, int64(addr)); err != nil {
		t.fault(err)
	}
}

// Store writes user memory, faulting on unmapped or read-only addresses.
func (t *Task) Store(addr uint32, b []byte) {
	if _, err := t.Mem.WriteAt(b, int64(addr)); err != nil {
		t.fault(err)
	}
}

func (t *Task) fault(err error) {
	t.Kernel.L.Debug("page fault", "pid", t.Pid, "error", err)

	t.Kill()
	panic(errTerminated)
}

// Trap hands the syscall frame at the stack pointer to the kernel. If the
// call ended the process or halted the system, Trap does not return.
func (t *Task) Trap(ctx context.Context) int32 {
	t.checkTerminated()

	h := t.Kernel.trap
	if h == nil {
		t.Kernel.L.Error("trap with no handler installed", "pid", t.Pid)
		t.Kill()
		panic(errTerminated)
	}

	ret := h.HandleTrap(SetTask(ctx, t), t)

	t.checkTerminated()

	return ret
}

func (t *Task) checkTerminated() {
	if t.exiting.Load() || t.Kernel.isHalted() {
		panic(errTerminated)
	}
}
