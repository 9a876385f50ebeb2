// Package boundary is where user programs enter the kernel. The gate
// decodes the trap frame a program left at its stack pointer and hands the
// call to the syscall invoker.
package boundary

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/kernel"
	"github.com/qbaula/project2/syscalls"
)

type SyscallInvoker interface {
	InvokeSyscall(context.Context, syscalls.SysArgs) int32
}

type Gate struct {
	L       hclog.Logger
	Invoker SyscallInvoker
}

// NewGate returns a gate dispatching to k and installs it as k's trap
// handler.
func NewGate(k *kernel.Kernel) *Gate {
	g := &Gate{
		L:       k.L.Named("gate"),
		Invoker: &syscalls.Invoker{Kernel: k},
	}

	k.SetTrapHandler(g)

	return g
}

func (g *Gate) invokeSyscall(ctx context.Context, args syscalls.SysArgs) int32 {
	return g.Invoker.InvokeSyscall(ctx, args)
}

// HandleTrap services the trap raised by t. A frame that cannot be read, or
// names no known call, ends the process with exit(-1).
func (g *Gate) HandleTrap(ctx context.Context, t *kernel.Task) int32 {
	args, err := syscalls.DecodeFrame(t)
	if err != nil {
		g.L.Debug("error decoding syscall", "pid", t.Pid, "sp", t.SP(), "error", err)

		t.Exit(-1)
		return -1
	}

	if g.L.IsTrace() {
		g.L.Trace("syscall", "pid", t.Pid, "index", args.Index, "name", abi.Name(args.Index), "req", spew.Sdump(args.Args))
	}

	return g.invokeSyscall(ctx, args)
}

var _ kernel.TrapHandler = (*Gate)(nil)
