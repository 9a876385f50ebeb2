package syscalls

import (
	"context"
	"io"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/kernel"
	"github.com/qbaula/project2/memory"
)

func sysRead(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		fd  = int32(args.Args.R0)
		buf = args.Args.R1
		sz  = args.Args.R2
	)

	if !task.Mem.ValidateWritable(buf, sz) {
		return fault(l, task, errors.Wrapf(memory.ErrInvalidMemoryAccess, "read buffer %#x+%d", buf, sz))
	}

	var data []byte

	switch fd {
	case abi.StdinFileno:
		data = task.Kernel.ReadConsole(int(sz))
	case abi.StdoutFileno:
		return -1
	default:
		f, ok := task.GetFile(int(fd))
		if !ok {
			return -1
		}

		tmp := make([]byte, sz)

		n, err := f.Read(tmp)
		if err != nil && err != io.EOF {
			l.Error("error reading", "error", err, "pid", task.Pid, "fd", fd)
			return -1
		}

		data = tmp[:n]
	}

	if _, err := task.Mem.WriteAt(data, int64(buf)); err != nil {
		return fault(l, task, err)
	}

	return int32(len(data))
}

func sysWrite(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		fd  = int32(args.Args.R0)
		ptr = args.Args.R1
		sz  = args.Args.R2
	)

	if !task.Mem.Validate(ptr, sz) {
		return fault(l, task, errors.Wrapf(memory.ErrInvalidMemoryAccess, "write buffer %#x+%d", ptr, sz))
	}

	data := make([]byte, sz)

	if _, err := task.Mem.ReadAt(data, int64(ptr)); err != nil {
		return fault(l, task, err)
	}

	switch fd {
	case abi.StdoutFileno:
		return int32(task.Kernel.WriteConsole(data))
	case abi.StdinFileno:
		return -1
	}

	f, ok := task.GetFile(int(fd))
	if !ok {
		return -1
	}

	n, err := f.Write(data)
	if err != nil {
		l.Error("error writing", "error", err, "pid", task.Pid, "fd", fd)
	}

	return int32(n)
}

func sysSeek(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		fd  = int32(args.Args.R0)
		pos = args.Args.R1
	)

	if f, ok := task.GetFile(int(fd)); ok {
		f.Seek(int64(pos))
	}

	return 0
}

func sysTell(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		fd = int32(args.Args.R0)
	)

	f, ok := task.GetFile(int(fd))
	if !ok {
		return -1
	}

	return int32(uint32(f.Tell()))
}

func sysClose(ctx context.Context, l hclog.Logger, task *kernel.Task, args SysArgs) int32 {
	var (
		fd = int32(args.Args.R0)
	)

	if fd == abi.StdinFileno || fd == abi.StdoutFileno {
		return 0
	}

	err := task.CloseFile(int(fd))
	if err != nil && errors.Cause(err) != kernel.ErrUnknownFile {
		l.Error("error closing fd", "error", err, "pid", task.Pid, "fd", fd)
	}

	return 0
}

func init() {
	Syscalls[abi.SysRead] = sysent{3, sysRead}
	Syscalls[abi.SysWrite] = sysent{3, sysWrite}
	Syscalls[abi.SysSeek] = sysent{2, sysSeek}
	Syscalls[abi.SysTell] = sysent{1, sysTell}
	Syscalls[abi.SysClose] = sysent{1, sysClose}
}
