package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/kernel"
	"github.com/qbaula/project2/memory"
)

// readString copies in a NUL-terminated string. A string that is merely
// too long is reported with ok set; any other error is a bad pointer.
func readString(task *kernel.Task, addr uint32) (s string, ok bool, err error) {
	b, err := task.Mem.ReadCString(addr, maxString)
	if err != nil {
		if errors.Cause(err) == memory.ErrStringTooLong {
			return "", false, nil
		}

		return "", false, err
	}

	return string(b), true, nil
}

func sysHalt(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	l.Info("halt requested", "pid", task.Pid)

	task.Kernel.Halt()

	return 0
}

func sysExit(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		status = int32(args.Args.R0)
	)

	task.Exit(int(status))

	return 0
}

func sysExec(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		cmdAddr = args.Args.R0
	)

	cmdLine, ok, err := readString(task, cmdAddr)
	if err != nil {
		return fault(l, task, err)
	}

	if !ok {
		l.Debug("exec command line too long", "pid", task.Pid)
		return -1
	}

	return int32(task.Exec(cmdLine))
}

func sysWait(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		pid = int32(args.Args.R0)
	)

	return int32(task.Wait(int(pid)))
}

func init() {
	Syscalls[abi.SysHalt] = sysent{0, sysHalt}
	Syscalls[abi.SysExit] = sysent{1, sysExit}
	Syscalls[abi.SysExec] = sysent{1, sysExec}
	Syscalls[abi.SysWait] = sysent{1, sysWait}
}
