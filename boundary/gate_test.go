package boundary_test

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/qbaula/project2/boundary"
	"github.com/qbaula/project2/console"
	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/kernel"
	"github.com/qbaula/project2/loader"
	"github.com/qbaula/project2/user"
	"github.com/qbaula/project2/user/bin"
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

type system struct {
	k   *kernel.Kernel
	fs  *fs.FileSystem
	out *syncBuffer
}

// newSystem boots a kernel carrying the shipped programs plus extra.
func newSystem(t *testing.T, stdin string, extra map[string]func(p *user.Proc) int) *system {
	fsys := fs.New(1 << 20)

	reg := loader.NewRegistry()
	bin.Register(reg)
	require.NoError(t, bin.Install(fsys))

	for name, f := range extra {
		reg.Register(name, user.Main(f))
		require.NoError(t, fsys.WriteFile(name, loader.Build(name, 0)))
	}

	out := &syncBuffer{}

	k, err := kernel.NewKernel(kernel.DefaultConfig(), fsys, console.New(strings.NewReader(stdin), out), reg)
	require.NoError(t, err)

	boundary.NewGate(k)

	return &system{k: k, fs: fsys, out: out}
}

func (s *system) run(t *testing.T, cmdLine string) int {
	code, err := s.k.Run(cmdLine)
	require.NoError(t, err)

	return code
}

func TestGate(t *testing.T) {
	n := neko.Modern(t)

	n.It("returns the exit status of an exec'd child", func(t *testing.T) {
		s := newSystem(t, "", nil)

		require.Equal(t, 7, s.run(t, "run exit 7"))

		require.Equal(t, "exit: exit(7)\nrun: exit(7)\n", s.out.String())
	})

	n.It("fails exec of a missing binary", func(t *testing.T) {
		s := newSystem(t, "", nil)

		require.Equal(t, -1, s.run(t, "run no-such-file"))
		require.Contains(t, s.out.String(), "run: no-such-file: exec failed\n")
	})

	n.It("runs echo with its arguments", func(t *testing.T) {
		s := newSystem(t, "", nil)

		require.Equal(t, 0, s.run(t, "echo x   y z"))
		require.Equal(t, "x y z\necho: exit(0)\n", s.out.String())
	})

	n.It("reports a killed child as -1", func(t *testing.T) {
		s := newSystem(t, "", nil)

		require.Equal(t, -1, s.run(t, "run crash"))
		require.Contains(t, s.out.String(), "crash: exit(-1)\n")
	})

	n.It("exits a process that passes a bad pointer", func(t *testing.T) {
		s := newSystem(t, "", nil)

		require.Equal(t, -1, s.run(t, "run badptr"))
		require.Contains(t, s.out.String(), "badptr: exit(-1)\n")
	})

	n.It("copies files through the descriptor calls", func(t *testing.T) {
		s := newSystem(t, "", nil)

		data := bytes.Repeat([]byte("0123456789"), 300)
		require.NoError(t, s.fs.WriteFile("src", data))

		require.Equal(t, 0, s.run(t, "cp src dst"))

		f, err := s.fs.Open("dst")
		require.NoError(t, err)

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, data, got)
	})

	n.It("cats a file to the console", func(t *testing.T) {
		s := newSystem(t, "", nil)

		require.NoError(t, s.fs.WriteFile("greeting", []byte("hello there\n")))

		require.Equal(t, 0, s.run(t, "cat greeting"))
		require.Equal(t, "hello there\ncat: exit(0)\n", s.out.String())
	})

	n.It("runs commands typed into the shell", func(t *testing.T) {
		s := newSystem(t, "echo hi\nexit\n", nil)

		require.Equal(t, 0, s.run(t, "sh"))

		out := s.out.String()
		require.Contains(t, out, "hi\necho: exit(0)\n")
		require.Contains(t, out, "\"echo hi\": exit code 0\n")
		require.True(t, strings.HasSuffix(out, "sh: exit(0)\n"))
	})

	n.It("powers off on halt", func(t *testing.T) {
		s := newSystem(t, "", nil)

		_, err := s.k.Run("run halt")
		require.Equal(t, kernel.ErrPowerOff, err)
	})

	n.It("keeps concurrent console writes whole", func(t *testing.T) {
		s := newSystem(t, "", map[string]func(p *user.Proc) int{
			"writer": func(p *user.Proc) int {
				letter := p.Args()[1]
				p.Write(1, []byte(strings.Repeat(letter, 200)))
				return 0
			},
		})

		require.Equal(t, 0, s.run(t, "spawn 8 writer q"))

		out := s.out.String()
		require.Equal(t, 8, strings.Count(out, strings.Repeat("q", 200)))
		require.Equal(t, 8, strings.Count(out, "writer: exit(0)\n"))
	})

	n.It("never shows a reader a torn write", func(t *testing.T) {
		var seen []byte

		s := newSystem(t, "", map[string]func(p *user.Proc) int{
			"writer": func(p *user.Proc) int {
				fd := p.Open("f")
				p.Write(fd, []byte("0123456789"))
				return 0
			},
			"reader": func(p *user.Proc) int {
				buf := make([]byte, 10)

				fd := p.Open("f")
				seen = buf[:p.Read(fd, buf)]
				return 0
			},
			"both": func(p *user.Proc) int {
				p.Create("f", 10)

				w := p.Exec("writer")
				r := p.Exec("reader")

				return p.Wait(w) + p.Wait(r)
			},
		})

		require.Equal(t, 0, s.run(t, "both"))

		require.Len(t, seen, 10)

		if seen[0] == 0 {
			require.Equal(t, make([]byte, 10), seen)
		} else {
			require.Equal(t, "0123456789", string(seen))
		}
	})

	n.It("reclaims an orphan that outlives its parent", func(t *testing.T) {
		release := make(chan struct{})

		s := newSystem(t, "", map[string]func(p *user.Proc) int{
			"sleeper": func(p *user.Proc) int {
				<-release
				return 0
			},
			"parent": func(p *user.Proc) int {
				p.Exec("sleeper")
				return 0
			},
		})

		require.Equal(t, 0, s.run(t, "parent"))

		require.Eventually(t, func() bool {
			return s.k.Processes().Len() == 1
		}, 2*time.Second, 10*time.Millisecond)

		close(release)

		require.Eventually(t, func() bool {
			return s.k.Processes().Len() == 0
		}, 2*time.Second, 10*time.Millisecond)
	})

	n.Meow()
}
