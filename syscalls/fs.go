package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/kernel"
)

func sysCreate(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		nameAddr = args.Args.R0
		size     = args.Args.R1
	)

	name, ok, err := readString(task, nameAddr)
	if err != nil {
		return fault(l, task, err)
	}

	if !ok {
		return 0
	}

	return boolRet(task.Kernel.CreateFile(name, int64(size)))
}

func sysRemove(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		nameAddr = args.Args.R0
	)

	name, ok, err := readString(task, nameAddr)
	if err != nil {
		return fault(l, task, err)
	}

	if !ok {
		return 0
	}

	return boolRet(task.Kernel.RemoveFile(name))
}

func sysOpen(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		nameAddr = args.Args.R0
	)

	name, ok, err := readString(task, nameAddr)
	if err != nil {
		return fault(l, task, err)
	}

	if !ok {
		return -1
	}

	fd, err := task.OpenFile(name)
	if err != nil {
		l.Debug("open failed", "pid", task.Pid, "name", name, "error", err)
		return -1
	}

	return int32(fd)
}

func sysFilesize(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		fd = int32(args.Args.R0)
	)

	f, ok := task.GetFile(int(fd))
	if !ok {
		return -1
	}

	return int32(f.Length())
}

func init() {
	Syscalls[abi.SysCreate] = sysent{2, sysCreate}
	Syscalls[abi.SysRemove] = sysent{1, sysRemove}
	Syscalls[abi.SysOpen] = sysent{1, sysOpen}
	Syscalls[abi.SysFilesize] = sysent{1, sysFilesize}
}
