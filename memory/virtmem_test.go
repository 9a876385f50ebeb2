package memory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestVirtualMemory(t *testing.T) {
	n := neko.Modern(t)

	n.It("rounds regions out to whole pages", func(t *testing.T) {
		vm := NewVirtualMemory()

		reg, err := vm.NewRegion(0x08048010, 10, false)
		require.NoError(t, err)

		require.Equal(t, uint32(0x08048000), reg.Start)
		require.Equal(t, uint32(PageSize), reg.Size)
		require.Equal(t, PageSize, vm.Size())
	})

	n.It("rejects overlapping and kernel regions", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0x1000, PageSize*2, true)
		require.NoError(t, err)

		_, err = vm.NewRegion(0x2000, PageSize, true)
		require.Equal(t, ErrBadRegionRequest, errors.Cause(err))

		_, err = vm.NewRegion(PhysBase-PageSize, PageSize*2, true)
		require.Equal(t, ErrBadRegionRequest, errors.Cause(err))
	})

	n.It("validates ranges spanning adjacent regions", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0x1000, PageSize, true)
		require.NoError(t, err)

		_, err = vm.NewRegion(0x2000, PageSize, false)
		require.NoError(t, err)

		require.True(t, vm.Validate(0x1ff0, 0x20))
		require.False(t, vm.ValidateWritable(0x1ff0, 0x20))
		require.True(t, vm.ValidateWritable(0x1ff0, 0x10))

		require.False(t, vm.Validate(0x2ff0, 0x20))
		require.False(t, vm.Validate(0, 1))
	})

	n.It("never validates kernel addresses", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(PhysBase-PageSize, PageSize, true)
		require.NoError(t, err)

		require.True(t, vm.Validate(PhysBase-4, 4))
		require.False(t, vm.Validate(PhysBase-4, 5))
		require.False(t, vm.Validate(PhysBase, 1))
		require.False(t, vm.Validate(0xffffffff, 2))
	})

	n.It("copies in and out across regions", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0x1000, PageSize*2, true)
		require.NoError(t, err)

		_, err = vm.NewRegion(0x3000, PageSize, true)
		require.NoError(t, err)

		data := []byte("crossing a boundary")

		cnt, err := vm.WriteAt(data, 0x3000-5)
		require.NoError(t, err)
		require.Equal(t, len(data), cnt)

		out := make([]byte, len(data))
		_, err = vm.ReadAt(out, 0x3000-5)
		require.NoError(t, err)

		require.Equal(t, data, out)
	})

	n.It("refuses to store into read-only memory", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0x1000, PageSize, false)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte{1}, 0x1000)
		require.Equal(t, ErrReadOnly, errors.Cause(err))
	})

	n.It("reads strings that end exactly at the last mapped byte", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0x1000, PageSize, true)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte("edge\x00"), 0x2000-5)
		require.NoError(t, err)

		str, err := vm.ReadCString(0x2000-5, 64)
		require.NoError(t, err)
		require.Equal(t, "edge", string(str))
	})

	n.It("faults on a string running off the mapping", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0x1000, PageSize, true)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte("nonul"), 0x2000-5)
		require.NoError(t, err)

		_, err = vm.ReadCString(0x2000-5, 64)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))
	})

	n.It("limits string length", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0x1000, PageSize, true)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte("0123456789\x00"), 0x1000)
		require.NoError(t, err)

		_, err = vm.ReadCString(0x1000, 4)
		require.Equal(t, ErrStringTooLong, errors.Cause(err))
	})

	n.It("faults everything after destroy", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.NewRegion(0x1000, PageSize, true)
		require.NoError(t, err)

		vm.Destroy()

		require.False(t, vm.Validate(0x1000, 1))
	})

	n.Meow()
}
