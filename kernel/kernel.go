package kernel

import (
	"context"
	"sync"

	"github.com/google/uuid"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/loader"
	"github.com/qbaula/project2/log"
)

var ErrPowerOff = errors.New("system halted")

// Console is the console driver the kernel writes fd 1 to and reads fd 0
// from.
type Console interface {
	PutBuf(b []byte) error
	Getc() (byte, error)
}

// TrapHandler services a trap raised by a user program. The syscall frame
// is at the task's stack pointer.
type TrapHandler interface {
	HandleTrap(ctx context.Context, t *Task) int32
}

type Config struct {
	// ConsoleChunk is the largest console write emitted as a single
	// atomic unit.
	ConsoleChunk int

	// MaxOpenFiles caps each process's file descriptor table.
	MaxOpenFiles int

	// StackPages is the size of each user stack in pages.
	StackPages int

	// ExitMessages prints "name: exit(status)" when a process exits.
	ExitMessages bool
}

func DefaultConfig() Config {
	return Config{
		ConsoleChunk: 256,
		MaxOpenFiles: 128,
		StackPages:   8,
		ExitMessages: true,
	}
}

type Kernel struct {
	L      hclog.Logger
	BootID uuid.UUID

	cfg Config
	ctx context.Context

	fs        *lockedFS
	console   Console
	loader    *loader.Loader
	processes *ProcessRegistry
	trap      TrapHandler

	halted   chan struct{}
	haltOnce sync.Once
	powerOff func()
}

func NewKernel(cfg Config, fsys *fs.FileSystem, console Console, progs *loader.Registry) (*Kernel, error) {
	if fsys == nil {
		return nil, errors.New("no filesystem")
	}

	if console == nil {
		return nil, errors.New("no console")
	}

	def := DefaultConfig()

	if cfg.ConsoleChunk <= 0 {
		cfg.ConsoleChunk = def.ConsoleChunk
	}

	if cfg.MaxOpenFiles <= 0 {
		cfg.MaxOpenFiles = def.MaxOpenFiles
	}

	if cfg.StackPages <= 0 {
		cfg.StackPages = def.StackPages
	}

	id := uuid.New()

	k := &Kernel{
		L:       log.L.With("boot", id.String()),
		BootID:  id,
		cfg:     cfg,
		ctx:     context.Background(),
		fs:      &lockedFS{fs: fsys},
		console: console,
		loader:  loader.NewLoader(loader.NewLoaderCache(), progs, cfg.StackPages),
		halted:  make(chan struct{}),
	}

	k.processes = NewProcessRegistry(k.L)

	return k, nil
}

func (k *Kernel) Config() Config {
	return k.cfg
}

func (k *Kernel) Processes() *ProcessRegistry {
	return k.processes
}

func (k *Kernel) SetTrapHandler(h TrapHandler) {
	k.trap = h
}

// OnPowerOff registers f to run when the system halts.
func (k *Kernel) OnPowerOff(f func()) {
	k.powerOff = f
}

// Run boots the initial process from cmdLine and returns once it exits,
// with the status a parent's wait would observe. If any process halts the
// system first, Run returns ErrPowerOff.
func (k *Kernel) Run(cmdLine string) (int, error) {
	first := k.spawn(NoParent, cmdLine)

	select {
	case <-first.exit.Done():
		st := first.exit.Wait()
		k.processes.Release(first.Pid)

		k.L.Debug("initial process exited", "pid", first.Pid, "code", st.Code, "killed", st.Killed)
		return st.WaitStatus(), nil
	case <-k.halted:
		return 0, ErrPowerOff
	}
}

// Halt powers the system off immediately. No process is cleaned up:
// descriptors stay open, exit messages are not printed and waiting parents
// are not woken.
func (k *Kernel) Halt() {
	k.haltOnce.Do(func() {
		k.L.Info("powering off")

		if k.powerOff != nil {
			k.powerOff()
		}

		close(k.halted)
	})
}

// Halted returns a channel closed once the system has halted.
func (k *Kernel) Halted() <-chan struct{} {
	return k.halted
}

func (k *Kernel) isHalted() bool {
	select {
	case <-k.halted:
		return true
	default:
		return false
	}
}
