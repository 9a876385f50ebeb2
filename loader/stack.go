package loader

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/qbaula/project2/memory"
)

var ErrArgsTooLong = errors.New("arguments do not fit on the stack")

// setupStack lays out the initial user stack below PhysBase and returns the
// stack pointer. From the top down: the argument strings, padding to a word
// boundary, argv[argc] (null), argv[argc-1]..argv[0], argv, argc, and a fake
// return address. The stack pointer addresses the fake return address.
func setupStack(mem *memory.VirtualMemory, args []string) (uint32, error) {
	var strBytes int
	for _, str := range args {
		strBytes += len(str) + 1
	}

	pad := (4 - strBytes%4) % 4

	ptrArea := 4 + // return address
		4 + // argc
		4 + // argv
		(4 * len(args)) + // argv[]
		4 // null

	total := ptrArea + pad + strBytes

	if total > memory.PageSize {
		return 0, errors.Wrapf(ErrArgsTooLong, "%d bytes of arguments", total)
	}

	base := memory.PhysBase - uint32(total)

	frame := make([]byte, total)

	le := binary.LittleEndian

	argvAddr := base + 12
	nextStr := ptrArea + pad

	le.PutUint32(frame[0:], 0)                 // return address
	le.PutUint32(frame[4:], uint32(len(args))) // argc
	le.PutUint32(frame[8:], argvAddr)          // argv

	ptr := frame[12:]
	for _, str := range args {
		le.PutUint32(ptr, base+uint32(nextStr))
		copy(frame[nextStr:], str)
		frame[nextStr+len(str)] = 0
		nextStr += len(str) + 1
		ptr = ptr[4:]
	}
	le.PutUint32(ptr, 0) // null after argv

	if _, err := mem.WriteAt(frame, int64(base)); err != nil {
		return 0, err
	}

	return base, nil
}
