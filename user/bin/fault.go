package bin

import (
	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/memory"
	"github.com/qbaula/project2/user"
)

// Crash reads kernel memory and is killed for it.
func Crash(p *user.Proc) int {
	var b [4]byte

	p.Machine().Load(memory.PhysBase, b[:])

	return 0
}

// BadPointer hands write a buffer at address zero.
func BadPointer(p *user.Proc) int {
	p.Syscall(abi.SysWrite, abi.StdoutFileno, 0, 16)

	return 0
}
