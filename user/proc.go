// Package user is the syscall library user programs link against. Every
// call builds a trap frame on the program's own stack, traps into the
// kernel and pops the frame again.
package user

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/loader"
)

// stage is the largest buffer copied onto the stack for one read or write.
const stage = 1024

type Proc struct {
	ctx context.Context
	m   loader.Machine
}

func New(ctx context.Context, m loader.Machine) *Proc {
	return &Proc{ctx: ctx, m: m}
}

// Main adapts a function taking a Proc into a loader.Program.
func Main(f func(p *Proc) int) loader.Program {
	return func(ctx context.Context, m loader.Machine) int {
		return f(New(ctx, m))
	}
}

func (p *Proc) Machine() loader.Machine {
	return p.m
}

func (p *Proc) word(addr uint32) uint32 {
	var buf [4]byte
	p.m.Load(addr, buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (p *Proc) cstring(addr uint32) string {
	var (
		out []byte
		c   [1]byte
	)

	for {
		p.m.Load(addr, c[:])
		if c[0] == 0 {
			return string(out)
		}

		out = append(out, c[0])
		addr++
	}
}

// Args returns argv as laid out by the loader. It must be called before the
// program moves its stack pointer.
func (p *Proc) Args() []string {
	sp := p.m.SP()

	argc := p.word(sp + 4)
	argv := p.word(sp + 8)

	args := make([]string, argc)
	for i := range args {
		args[i] = p.cstring(p.word(argv + 4*uint32(i)))
	}

	return args
}

// push reserves n bytes, word aligned, below the stack pointer and returns
// their address.
func (p *Proc) push(n int) uint32 {
	sp := (p.m.SP() - uint32(n)) &^ 3
	p.m.SetSP(sp)
	return sp
}

func (p *Proc) pushBytes(b []byte) uint32 {
	addr := p.push(len(b))
	p.m.Store(addr, b)
	return addr
}

func (p *Proc) pushString(s string) uint32 {
	return p.pushBytes(append([]byte(s), 0))
}

// Syscall traps with the raw number and argument words. Pointer arguments
// are passed through unchecked.
func (p *Proc) Syscall(num int32, args ...uint32) int32 {
	sp := p.m.SP()
	defer p.m.SetSP(sp)

	return p.trap(num, args...)
}

func (p *Proc) trap(num int32, args ...uint32) int32 {
	frame := make([]byte, 4*(len(args)+1))

	binary.LittleEndian.PutUint32(frame, uint32(num))
	for i, a := range args {
		binary.LittleEndian.PutUint32(frame[4*(i+1):], a)
	}

	p.pushBytes(frame)

	return p.m.Trap(p.ctx)
}

func (p *Proc) withString(s string, f func(addr uint32) int32) int32 {
	sp := p.m.SP()
	defer p.m.SetSP(sp)

	return f(p.pushString(s))
}

func (p *Proc) Halt() {
	p.Syscall(abi.SysHalt)
}

func (p *Proc) Exit(status int) {
	p.Syscall(abi.SysExit, uint32(int32(status)))
}

func (p *Proc) Exec(cmdLine string) int {
	return int(p.withString(cmdLine, func(addr uint32) int32 {
		return p.trap(abi.SysExec, addr)
	}))
}

func (p *Proc) Wait(pid int) int {
	return int(p.Syscall(abi.SysWait, uint32(int32(pid))))
}

func (p *Proc) Create(name string, size uint32) bool {
	return p.withString(name, func(addr uint32) int32 {
		return p.trap(abi.SysCreate, addr, size)
	}) != 0
}

func (p *Proc) Remove(name string) bool {
	return p.withString(name, func(addr uint32) int32 {
		return p.trap(abi.SysRemove, addr)
	}) != 0
}

func (p *Proc) Open(name string) int {
	return int(p.withString(name, func(addr uint32) int32 {
		return p.trap(abi.SysOpen, addr)
	}))
}

func (p *Proc) Filesize(fd int) int {
	return int(p.Syscall(abi.SysFilesize, uint32(int32(fd))))
}

// Read fills b from fd. It returns the bytes read, 0 at end of file, or -1.
func (p *Proc) Read(fd int, b []byte) int {
	var total int

	for len(b) > 0 {
		chunk := b
		if len(chunk) > stage {
			chunk = chunk[:stage]
		}

		n := p.readChunk(fd, chunk)
		if n < 0 {
			if total > 0 {
				return total
			}
			return n
		}

		total += n
		b = b[n:]

		if n < len(chunk) {
			break
		}
	}

	return total
}

func (p *Proc) readChunk(fd int, b []byte) int {
	sp := p.m.SP()
	defer p.m.SetSP(sp)

	buf := p.push(len(b))

	n := p.trap(abi.SysRead, uint32(int32(fd)), buf, uint32(len(b)))
	if n > 0 {
		p.m.Load(buf, b[:n])
	}

	return int(n)
}

// Write sends b to fd and returns the bytes written, or -1.
func (p *Proc) Write(fd int, b []byte) int {
	var total int

	for len(b) > 0 {
		chunk := b
		if len(chunk) > stage {
			chunk = chunk[:stage]
		}

		n := p.writeChunk(fd, chunk)
		if n < 0 {
			if total > 0 {
				return total
			}
			return n
		}

		total += n
		b = b[n:]

		if n < len(chunk) {
			break
		}
	}

	return total
}

func (p *Proc) writeChunk(fd int, b []byte) int {
	sp := p.m.SP()
	defer p.m.SetSP(sp)

	buf := p.pushBytes(b)

	return int(p.trap(abi.SysWrite, uint32(int32(fd)), buf, uint32(len(b))))
}

func (p *Proc) Seek(fd int, pos uint32) {
	p.Syscall(abi.SysSeek, uint32(int32(fd)), pos)
}

func (p *Proc) Tell(fd int) uint32 {
	return uint32(p.Syscall(abi.SysTell, uint32(int32(fd))))
}

func (p *Proc) Close(fd int) {
	p.Syscall(abi.SysClose, uint32(int32(fd)))
}

// Printf formats to the console in one write.
func (p *Proc) Printf(format string, args ...interface{}) int {
	return p.Write(abi.StdoutFileno, []byte(fmt.Sprintf(format, args...)))
}
