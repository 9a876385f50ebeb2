package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qbaula/project2/fs"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestHost(t *testing.T) {
	n := neko.Modern(t)

	n.It("puts and gets files", func(t *testing.T) {
		dir := t.TempDir()

		src := filepath.Join(dir, "sample.txt")
		require.NoError(t, os.WriteFile(src, []byte("from the host"), 0644))

		fsys := fs.New(1 << 16)

		require.NoError(t, Put(fsys, src, ""))

		dst := filepath.Join(dir, "out.txt")
		require.NoError(t, Get(fsys, "sample.txt", dst))

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		require.Equal(t, "from the host", string(data))
	})

	n.It("fails on missing host files", func(t *testing.T) {
		fsys := fs.New(1 << 16)

		require.Error(t, Put(fsys, filepath.Join(t.TempDir(), "nope"), "x"))
	})

	n.Meow()
}
