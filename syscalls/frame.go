package syscalls

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/kernel"
)

var (
	ErrBadFrame       = errors.New("bad syscall frame")
	ErrUnknownSyscall = errors.New("unknown syscall")
)

// DecodeFrame reads the syscall number at the task's stack pointer and as
// many argument words after it as the call takes. Each word is checked
// against the task's mappings before it is read.
func DecodeFrame(task *kernel.Task) (SysArgs, error) {
	var args SysArgs

	sp := task.SP()

	num, err := readWord(task, sp)
	if err != nil {
		return args, err
	}

	args.Index = int32(num)

	if args.Index < 0 || args.Index >= abi.NumSyscalls {
		return args, errors.Wrapf(ErrUnknownSyscall, "number %d", args.Index)
	}

	regs := []*uint32{&args.Args.R0, &args.Args.R1, &args.Args.R2}

	for i := 0; i < Syscalls[args.Index].nargs; i++ {
		*regs[i], err = readWord(task, sp+4*uint32(i+1))
		if err != nil {
			return args, errors.Wrapf(err, "%s argument %d", abi.Name(args.Index), i)
		}
	}

	return args, nil
}

func readWord(task *kernel.Task, addr uint32) (uint32, error) {
	if !task.Mem.Validate(addr, 4) {
		return 0, errors.Wrapf(ErrBadFrame, "word at %#x", addr)
	}

	var buf [4]byte

	if _, err := task.Mem.ReadAt(buf[:], int64(addr)); err != nil {
		return 0, errors.Wrapf(ErrBadFrame, "word at %#x: %s", addr, err)
	}

	return binary.LittleEndian.Uint32(buf[:]), nil
}
