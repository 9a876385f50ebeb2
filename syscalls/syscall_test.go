package syscalls_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/qbaula/project2/abi"
	"github.com/qbaula/project2/boundary"
	"github.com/qbaula/project2/console"
	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/kernel"
	"github.com/qbaula/project2/loader"
	"github.com/qbaula/project2/memory"
	"github.com/qbaula/project2/user"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.Write(b)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.String()
}

type harness struct {
	k   *kernel.Kernel
	fs  *fs.FileSystem
	out *syncBuffer
}

func boot(t *testing.T, stdin string, progs map[string]loader.Program) *harness {
	fsys := fs.New(1 << 20)
	reg := loader.NewRegistry()

	for name, prog := range progs {
		reg.Register(name, prog)
		require.NoError(t, fsys.WriteFile(name, loader.Build(name, 4096)))
	}

	out := &syncBuffer{}

	k, err := kernel.NewKernel(kernel.DefaultConfig(), fsys, console.New(strings.NewReader(stdin), out), reg)
	require.NoError(t, err)

	boundary.NewGate(k)

	return &harness{k: k, fs: fsys, out: out}
}

// run boots a kernel with prog installed as "prog" and runs it to
// completion, returning its exit status.
func run(t *testing.T, stdin string, prog func(p *user.Proc) int) (*harness, int) {
	h := boot(t, stdin, map[string]loader.Program{"prog": user.Main(prog)})

	code, err := h.k.Run("prog")
	require.NoError(t, err)

	return h, code
}

func TestFileCalls(t *testing.T) {
	n := neko.Modern(t)

	n.It("creates, writes and reads back a file", func(t *testing.T) {
		var (
			created       bool
			fd, size      int
			written, read int
			pos           uint32
		)

		data := make([]byte, 5)

		_, code := run(t, "", func(p *user.Proc) int {
			created = p.Create("notes", 16)

			fd = p.Open("notes")
			size = p.Filesize(fd)

			written = p.Write(fd, []byte("hello world"))
			pos = p.Tell(fd)

			p.Seek(fd, 6)
			read = p.Read(fd, data)

			p.Close(fd)
			return 0
		})

		require.Equal(t, 0, code)

		require.True(t, created)
		require.Equal(t, 2, fd)
		require.Equal(t, 16, size)
		require.Equal(t, 11, written)
		require.Equal(t, uint32(11), pos)
		require.Equal(t, 5, read)
		require.Equal(t, "world", string(data))
	})

	n.It("rejects duplicate and oversized names", func(t *testing.T) {
		var dup, long, removed, again bool

		_, code := run(t, "", func(p *user.Proc) int {
			p.Create("a", 1)

			dup = p.Create("a", 1)
			long = p.Create("this-name-is-too-long", 1)

			removed = p.Remove("a")
			again = p.Remove("a")

			return 0
		})

		require.Equal(t, 0, code)

		require.False(t, dup)
		require.False(t, long)
		require.True(t, removed)
		require.False(t, again)
	})

	n.It("gives independent descriptors and positions", func(t *testing.T) {
		var a, b int
		var posA, posB uint32

		_, code := run(t, "", func(p *user.Proc) int {
			p.Create("f", 20)

			a = p.Open("f")
			b = p.Open("f")

			p.Write(a, []byte("0123456789"))

			posA = p.Tell(a)
			posB = p.Tell(b)

			return 0
		})

		require.Equal(t, 0, code)

		require.NotEqual(t, a, b)
		require.Equal(t, uint32(10), posA)
		require.Equal(t, uint32(0), posB)
	})

	n.It("truncates writes at the end of the file", func(t *testing.T) {
		var first, second int

		_, code := run(t, "", func(p *user.Proc) int {
			p.Create("small", 5)
			fd := p.Open("small")

			first = p.Write(fd, []byte("0123456789"))
			second = p.Write(fd, []byte("x"))

			return 0
		})

		require.Equal(t, 0, code)

		require.Equal(t, 5, first)
		require.Equal(t, 0, second)
	})

	n.It("returns 0 when reading at end of file", func(t *testing.T) {
		var got int

		_, code := run(t, "", func(p *user.Proc) int {
			p.Create("empty", 0)
			fd := p.Open("empty")

			got = p.Read(fd, make([]byte, 8))
			return 0
		})

		require.Equal(t, 0, code)
		require.Equal(t, 0, got)
	})

	n.It("keeps descriptors working after remove", func(t *testing.T) {
		var opened, reopened, got int
		data := make([]byte, 3)

		h, code := run(t, "", func(p *user.Proc) int {
			p.Create("gone", 3)

			opened = p.Open("gone")
			p.Write(opened, []byte("abc"))

			p.Remove("gone")
			reopened = p.Open("gone")

			p.Seek(opened, 0)
			got = p.Read(opened, data)

			return 0
		})

		require.Equal(t, 0, code)

		require.Equal(t, -1, reopened)
		require.Equal(t, 3, got)
		require.Equal(t, "abc", string(data))

		_, err := h.fs.Open("gone")
		require.Error(t, err)
	})

	n.It("returns sentinels for bad descriptors", func(t *testing.T) {
		var (
			missing         int
			sz, rd, wr      int
			stdinW, stdoutR int
			tell            uint32
		)

		_, code := run(t, "", func(p *user.Proc) int {
			missing = p.Open("nope")

			sz = p.Filesize(42)
			rd = p.Read(42, make([]byte, 4))
			wr = p.Write(42, []byte("x"))
			tell = p.Tell(42)

			stdinW = p.Write(0, []byte("x"))
			stdoutR = p.Read(1, make([]byte, 1))

			p.Seek(42, 10)
			p.Close(42)
			p.Close(0)
			p.Close(1)

			return 9
		})

		require.Equal(t, 9, code)

		require.Equal(t, -1, missing)
		require.Equal(t, -1, sz)
		require.Equal(t, -1, rd)
		require.Equal(t, -1, wr)
		require.Equal(t, uint32(0xffffffff), tell)
		require.Equal(t, -1, stdinW)
		require.Equal(t, -1, stdoutR)
	})

	n.It("does not let one process use another's descriptor", func(t *testing.T) {
		var childStatus int

		h := boot(t, "", map[string]loader.Program{
			"child": user.Main(func(p *user.Proc) int {
				return p.Filesize(2)
			}),
			"parent": user.Main(func(p *user.Proc) int {
				p.Create("f", 7)
				p.Open("f")

				childStatus = p.Wait(p.Exec("child"))
				return 0
			}),
		})

		_, err := h.k.Run("parent")
		require.NoError(t, err)

		require.Equal(t, -1, childStatus)
	})

	n.Meow()
}

func TestConsoleCalls(t *testing.T) {
	n := neko.Modern(t)

	n.It("reads the keyboard one byte at a time", func(t *testing.T) {
		var got int
		data := make([]byte, 8)

		_, code := run(t, "hello", func(p *user.Proc) int {
			got = p.Read(0, data)
			return 0
		})

		require.Equal(t, 0, code)
		require.Equal(t, 5, got)
		require.Equal(t, "hello", string(data[:got]))
	})

	n.It("writes to the console", func(t *testing.T) {
		h, code := run(t, "", func(p *user.Proc) int {
			return p.Printf("hi %d\n", 3)
		})

		require.Equal(t, 5, code)
		require.Equal(t, "hi 3\nprog: exit(5)\n", h.out.String())
	})

	n.Meow()
}

func TestProcessCalls(t *testing.T) {
	n := neko.Modern(t)

	n.It("propagates an explicit exit status", func(t *testing.T) {
		var after bool

		h, code := run(t, "", func(p *user.Proc) int {
			p.Exit(3)
			after = true
			return 0
		})

		require.Equal(t, 3, code)
		require.False(t, after)
		require.Equal(t, "prog: exit(3)\n", h.out.String())
	})

	n.It("passes arguments to exec'd children", func(t *testing.T) {
		var status int

		h := boot(t, "", map[string]loader.Program{
			"args": user.Main(func(p *user.Proc) int {
				p.Printf("%s\n", strings.Join(p.Args(), "|"))
				return len(p.Args())
			}),
			"parent": user.Main(func(p *user.Proc) int {
				status = p.Wait(p.Exec("args  one 'two three'"))
				return 0
			}),
		})

		_, err := h.k.Run("parent")
		require.NoError(t, err)

		require.Equal(t, 3, status)
		require.Contains(t, h.out.String(), "args|one|two three\n")
	})

	n.It("halts the system", func(t *testing.T) {
		h := boot(t, "", map[string]loader.Program{
			"halter": user.Main(func(p *user.Proc) int {
				p.Halt()
				return 1
			}),
		})

		_, err := h.k.Run("halter")
		require.Equal(t, kernel.ErrPowerOff, err)

		require.Empty(t, h.out.String())
	})

	n.Meow()
}

func TestBadPointers(t *testing.T) {
	n := neko.Modern(t)

	faults := map[string]func(p *user.Proc) int{
		"null write buffer": func(p *user.Proc) int {
			p.Syscall(abi.SysWrite, 1, 0, 8)
			return 0
		},
		"kernel read buffer": func(p *user.Proc) int {
			p.Syscall(abi.SysRead, 0, memory.PhysBase, 8)
			return 0
		},
		"read into text": func(p *user.Proc) int {
			p.Create("f", 4)
			fd := p.Open("f")

			p.Syscall(abi.SysRead, uint32(fd), loader.CodeBase, 4)
			return 0
		},
		"null file name": func(p *user.Proc) int {
			p.Syscall(abi.SysOpen, 0)
			return 0
		},
		"unmapped create name": func(p *user.Proc) int {
			p.Syscall(abi.SysCreate, 0x10000000, 4)
			return 0
		},
		"exec of kernel pointer": func(p *user.Proc) int {
			p.Syscall(abi.SysExec, memory.PhysBase+16)
			return 0
		},
		"string into kernel space": func(p *user.Proc) int {
			p.Machine().Store(memory.PhysBase-3, []byte("abc"))
			p.Syscall(abi.SysOpen, memory.PhysBase-3)
			return 0
		},
		"unknown syscall": func(p *user.Proc) int {
			p.Syscall(99)
			return 0
		},
		"negative syscall": func(p *user.Proc) int {
			p.Syscall(-1)
			return 0
		},
	}

	for name, prog := range faults {
		prog := prog

		n.It("terminates on "+name, func(t *testing.T) {
			h, code := run(t, "", prog)

			require.Equal(t, -1, code)
			require.Equal(t, "prog: exit(-1)\n", h.out.String())
		})
	}

	n.It("terminates when the stack pointer is unmapped", func(t *testing.T) {
		h := boot(t, "", map[string]loader.Program{
			"prog": func(ctx context.Context, m loader.Machine) int {
				m.SetSP(0x1000)
				m.Trap(ctx)
				return 0
			},
		})

		code, err := h.k.Run("prog")
		require.NoError(t, err)
		require.Equal(t, -1, code)
	})

	n.It("terminates when an argument word is in kernel space", func(t *testing.T) {
		h := boot(t, "", map[string]loader.Program{
			"prog": func(ctx context.Context, m loader.Machine) int {
				var num [4]byte
				binary.LittleEndian.PutUint32(num[:], uint32(abi.SysWrite))

				m.SetSP(memory.PhysBase - 4)
				m.Store(m.SP(), num[:])
				m.Trap(ctx)

				return 0
			},
		})

		code, err := h.k.Run("prog")
		require.NoError(t, err)
		require.Equal(t, -1, code)
	})

	n.It("closes the files of a terminated process", func(t *testing.T) {
		h, code := run(t, "", func(p *user.Proc) int {
			p.Create("held", 100)
			p.Open("held")

			p.Syscall(abi.SysWrite, 1, 0, 8)
			return 0
		})

		require.Equal(t, -1, code)

		free := h.fs.Free()
		require.NoError(t, h.fs.Remove("held"))
		require.Equal(t, free+100, h.fs.Free())
	})

	n.Meow()
}
