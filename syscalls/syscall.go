// Package syscalls is the kernel side of the system call interface. It
// decodes trap frames, validates every user pointer before touching it and
// dispatches to the handlers in this package.
package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/kernel"
)

type SysArgs struct {
	Index int32
	Args  SyscallRequest
}

type SyscallRequest struct {
	R0, R1, R2 uint32
}

// Handler services one system call. Its result is the value the user
// program's trap returns.
type Handler func(context.Context, hclog.Logger, *kernel.Task, SysArgs) int32

type sysent struct {
	nargs int
	impl  Handler
}

var Syscalls [abi.NumSyscalls]sysent

// maxString bounds the file names and command lines copied in from user
// memory.
const maxString = 4096

// fault terminates the process as if it had called exit(-1). Used when a
// user pointer is bad; the trap never returns to the program.
func fault(l hclog.Logger, task *kernel.Task, err error) int32 {
	l.Debug("bad user pointer", "pid", task.Pid, "error", err)

	task.Exit(-1)

	return -1
}

func boolRet(b bool) int32 {
	if b {
		return 1
	}

	return 0
}
