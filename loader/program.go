package loader

import (
	"context"
	"sort"
	"sync"
)

// Machine is what a running user program sees: its stack pointer, its
// memory, and the trap instruction. Load and Store fault on unmapped or
// read-only addresses, and a faulting program does not get control back.
type Machine interface {
	SP() uint32
	SetSP(sp uint32)

	Load(addr uint32, b []byte)
	Store(addr uint32, b []byte)

	// Trap enters the kernel with the syscall frame at SP and returns the
	// result register.
	Trap(ctx context.Context) int32
}

// Program is the entry point of a user executable. Its return value is
// passed to exit.
type Program func(ctx context.Context, m Machine) int

// Registry maps entry point names stored in executable images to programs.
type Registry struct {
	mu    sync.RWMutex
	progs map[string]Program
}

func NewRegistry() *Registry {
	return &Registry{
		progs: make(map[string]Program),
	}
}

func (r *Registry) Register(name string, prog Program) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progs[name] = prog
}

func (r *Registry) Lookup(name string) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prog, ok := r.progs[name]
	return prog, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name := range r.progs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
