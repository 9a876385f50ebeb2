package memory

import (
	"sync"

	"github.com/pkg/errors"
)

const (
	PageSize = 4096

	// PhysBase is the first kernel address. Every user address lies below it.
	PhysBase uint32 = 0xC0000000
)

var (
	ErrInvalidMemoryAccess = errors.New("invalid memory access")
	ErrReadOnly            = errors.New("write to read-only memory")
	ErrStringTooLong       = errors.New("string exceeds limit")
	ErrBadRegionRequest    = errors.New("bad region request")
)

type Region struct {
	Start, Size uint32
	Writable    bool

	linear []byte
}

func (reg *Region) Contains(x uint32) bool {
	if x < reg.Start {
		return false
	}

	return x-reg.Start < reg.Size
}

func (reg *Region) end() uint64 {
	return uint64(reg.Start) + uint64(reg.Size)
}

func pageRound(sz uint32) uint32 {
	if sz == 0 {
		return PageSize
	}

	diff := sz % PageSize
	if diff == 0 {
		return sz
	}

	return sz + (PageSize - diff)
}

// PageDown returns the start of the page containing addr.
func PageDown(addr uint32) uint32 {
	return addr &^ (PageSize - 1)
}

// Project returns the bytes backing [addr, addr+sz). The range must lie
// entirely within the region. Access rights are not checked; this is the
// kernel's own view of the mapping.
func (reg *Region) Project(addr, sz uint32) []byte {
	offset := addr - reg.Start

	return reg.linear[offset : offset+sz]
}

// VirtualMemory is the user half of one process's address space.
type VirtualMemory struct {
	mu sync.RWMutex

	regions []*Region
	size    uint32
}

func NewVirtualMemory() *VirtualMemory {
	return &VirtualMemory{}
}

func (vm *VirtualMemory) Size() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return int(vm.size)
}

func (vm *VirtualMemory) findRegion(addr uint32) (*Region, bool) {
	for _, reg := range vm.regions {
		if reg.Contains(addr) {
			return reg, true
		}
	}

	return nil, false
}

func (vm *VirtualMemory) FindRegion(addr uint32) (*Region, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.findRegion(addr)
}

// NewRegion maps a zero-filled region covering [addr, addr+size), widened to
// page boundaries. The region may not overlap an existing one or reach into
// kernel space.
func (vm *VirtualMemory) NewRegion(addr, size uint32, writable bool) (*Region, error) {
	start := PageDown(addr)
	size = pageRound(size + (addr - start))

	if uint64(start)+uint64(size) > uint64(PhysBase) {
		return nil, errors.Wrapf(ErrBadRegionRequest, "region %#x+%#x crosses into kernel space", start, size)
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	for _, reg := range vm.regions {
		if uint64(start) < reg.end() && reg.Start < start+size {
			return nil, errors.Wrapf(ErrBadRegionRequest, "region %#x+%#x overlaps %#x", start, size, reg.Start)
		}
	}

	reg := &Region{
		Start:    start,
		Size:     size,
		Writable: writable,
		linear:   make([]byte, size),
	}

	vm.regions = append(vm.regions, reg)
	vm.size += size

	return reg, nil
}

// Destroy unmaps every region. Later accesses fault.
func (vm *VirtualMemory) Destroy() {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.regions = nil
	vm.size = 0
}

func (vm *VirtualMemory) check(addr, size uint32, write bool) error {
	end := uint64(addr) + uint64(size)
	if end > uint64(PhysBase) {
		return errors.Wrapf(ErrInvalidMemoryAccess, "address=%#x, size=%#x reaches kernel space", addr, size)
	}

	if size == 0 {
		return nil
	}

	cur := uint64(addr)
	for cur < end {
		reg, ok := vm.findRegion(uint32(cur))
		if !ok {
			return errors.Wrapf(ErrInvalidMemoryAccess, "address=%#x unmapped", cur)
		}

		if write && !reg.Writable {
			return errors.Wrapf(ErrReadOnly, "address=%#x", cur)
		}

		cur = reg.end()
	}

	return nil
}

// Validate reports whether every byte of [addr, addr+size) is mapped user
// memory.
func (vm *VirtualMemory) Validate(addr, size uint32) bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.check(addr, size, false) == nil
}

// ValidateWritable is Validate for a range the kernel is about to store into.
func (vm *VirtualMemory) ValidateWritable(addr, size uint32) bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.check(addr, size, true) == nil
}

func (vm *VirtualMemory) copy(b []byte, addr uint32, write bool) (int, error) {
	if err := vm.check(addr, uint32(len(b)), write); err != nil {
		return 0, err
	}

	var n int

	for n < len(b) {
		cur := addr + uint32(n)
		reg, _ := vm.findRegion(cur)

		chunk := uint32(len(b) - n)
		if left := uint32(reg.end() - uint64(cur)); chunk > left {
			chunk = left
		}

		mem := reg.Project(cur, chunk)
		if write {
			copy(mem, b[n:])
		} else {
			copy(b[n:], mem)
		}

		n += int(chunk)
	}

	return n, nil
}

// ReadAt copies user memory at off into b, failing without side effects if
// any byte is not mapped.
func (vm *VirtualMemory) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 || off > int64(PhysBase) {
		return 0, errors.Wrapf(ErrInvalidMemoryAccess, "address=%#x", off)
	}

	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.copy(b, uint32(off), false)
}

// WriteAt copies b into user memory at off. Every byte must be mapped
// writable.
func (vm *VirtualMemory) WriteAt(b []byte, off int64) (int, error) {
	if off < 0 || off > int64(PhysBase) {
		return 0, errors.Wrapf(ErrInvalidMemoryAccess, "address=%#x", off)
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.copy(b, uint32(off), true)
}

// ReadCString reads a NUL-terminated string starting at addr. The length is
// unknown up front, so each region is checked before any of its bytes are
// read and the scan never steps onto an unmapped page. At most max bytes,
// excluding the terminator, are accepted.
func (vm *VirtualMemory) ReadCString(addr uint32, max int) ([]byte, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	var buf []byte

	cur := uint64(addr)
	for {
		if cur >= uint64(PhysBase) {
			return nil, errors.Wrapf(ErrInvalidMemoryAccess, "string at %#x runs into kernel space", addr)
		}

		reg, ok := vm.findRegion(uint32(cur))
		if !ok {
			return nil, errors.Wrapf(ErrInvalidMemoryAccess, "string at %#x, address=%#x unmapped", addr, cur)
		}

		mem := reg.Project(uint32(cur), uint32(reg.end()-cur))

		for _, b := range mem {
			if b == 0 {
				return buf, nil
			}

			if len(buf) == max {
				return nil, errors.Wrapf(ErrStringTooLong, "string at %#x longer than %d", addr, max)
			}

			buf = append(buf, b)
		}

		cur = reg.end()
	}
}
