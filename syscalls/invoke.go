package syscalls

import (
	"context"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/kernel"
)

type Invoker struct {
	Kernel *kernel.Kernel
}

// InvokeSyscall runs the handler for args on the task carried by ctx. A
// number with no handler is treated like a bad pointer: the caller exits
// with -1.
func (i *Invoker) InvokeSyscall(ctx context.Context, args SysArgs) int32 {
	p, ok := kernel.GetTask(ctx)
	if !ok {
		i.Kernel.L.Error("syscall outside of a task", "index", args.Index)
		return -1
	}

	if args.Index >= 0 && args.Index < abi.NumSyscalls {
		if f := Syscalls[args.Index].impl; f != nil {
			return f(ctx, i.Kernel.L, p, args)
		}
	}

	i.Kernel.L.Debug("unknown syscall", "pid", p.Pid, "index", args.Index)

	p.Exit(-1)

	return -1
}
