package fs

import (
	"io"

	"github.com/pkg/errors"
)

var ErrClosed = errors.New("file already closed")

// File is an open handle on an inode with its own position.
type File struct {
	fs    *FileSystem
	inode *Inode

	pos    int64
	denied bool
	closed bool
}

func (f *File) Inode() *Inode {
	return f.inode
}

// Read fills p from the current position. At or past the end of the file
// it returns 0, io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}

	if f.pos >= f.inode.Length() {
		return 0, io.EOF
	}

	n := copy(p, f.inode.data[f.pos:])
	f.pos += int64(n)

	return n, nil
}

// Write stores p at the current position without extending the file. It
// returns the number of bytes written, which is short when the write hits
// the end of the file and zero while writes are denied.
func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}

	if f.inode.denyWrite > 0 || f.pos >= f.inode.Length() {
		return 0, nil
	}

	n := copy(f.inode.data[f.pos:], p)
	f.pos += int64(n)

	return n, nil
}

// Seek moves the position. Positions past the end are legal.
func (f *File) Seek(pos int64) {
	if pos < 0 {
		pos = 0
	}

	f.pos = pos
}

func (f *File) Tell() int64 {
	return f.pos
}

func (f *File) Length() int64 {
	return f.inode.Length()
}

// DenyWrite blocks writes to the inode through every handle until this
// handle is closed.
func (f *File) DenyWrite() {
	if f.denied || f.closed {
		return
	}

	f.denied = true
	f.inode.denyWrite++
}

func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}

	f.closed = true

	if f.denied {
		f.inode.denyWrite--
	}

	f.inode.openCount--
	if f.inode.openCount == 0 && f.inode.removed {
		f.fs.reclaim(f.inode)
	}

	return nil
}
