// Package fs is a small flat filesystem of fixed-size files.
//
// It is not safe for concurrent use. The kernel serializes every call
// behind a single lock.
package fs

import (
	"github.com/pkg/errors"
)

var ErrNoSpace = errors.New("filesystem full")

type FileSystem struct {
	root *Directory

	capacity int64
	used     int64
	nextIno  uint64
}

// New returns an empty filesystem able to hold capacity bytes of file data.
func New(capacity int64) *FileSystem {
	return &FileSystem{
		root:     NewDirectory(),
		capacity: capacity,
		nextIno:  1,
	}
}

// Create adds a zero-filled file of the given size. It does not open it.
func (f *FileSystem) Create(name string, size int64) error {
	if size < 0 {
		return errors.Errorf("negative size %d", size)
	}

	if _, err := f.root.Lookup(name); err == nil {
		return errors.Wrapf(ErrExists, "name: %s", name)
	} else if errors.Cause(err) != ErrUnknownPath {
		return err
	}

	if f.used+size > f.capacity {
		return errors.Wrapf(ErrNoSpace, "need %d bytes, %d free", size, f.Free())
	}

	inode := &Inode{
		ID:   f.nextIno,
		data: make([]byte, size),
	}

	if err := f.root.Add(name, inode); err != nil {
		return err
	}

	f.nextIno++
	f.used += size

	return nil
}

// WriteFile creates name holding data. Used to populate images.
func (f *FileSystem) WriteFile(name string, data []byte) error {
	if err := f.Create(name, int64(len(data))); err != nil {
		return err
	}

	ent, err := f.root.Lookup(name)
	if err != nil {
		return err
	}

	copy(ent.Inode.data, data)

	return nil
}

// Open returns a new handle positioned at the start of the file.
func (f *FileSystem) Open(name string) (*File, error) {
	ent, err := f.root.Lookup(name)
	if err != nil {
		return nil, err
	}

	ent.Inode.openCount++

	return &File{fs: f, inode: ent.Inode}, nil
}

// Remove unlinks name. Open handles keep working; the space is reclaimed
// when the last one closes.
func (f *FileSystem) Remove(name string) error {
	ent, err := f.root.Remove(name)
	if err != nil {
		return err
	}

	ent.Inode.removed = true

	if ent.Inode.openCount == 0 {
		f.reclaim(ent.Inode)
	}

	return nil
}

func (f *FileSystem) reclaim(i *Inode) {
	f.used -= i.Length()
	i.data = nil
}

func (f *FileSystem) List() []Dirent {
	return f.root.List()
}

func (f *FileSystem) Free() int64 {
	return f.capacity - f.used
}

func (f *FileSystem) Capacity() int64 {
	return f.capacity
}
