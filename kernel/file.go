package kernel

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/qbaula/project2/abi"
)

const (
	StdinFileno  = abi.StdinFileno
	StdoutFileno = abi.StdoutFileno

	firstFileno = 2
)

var (
	ErrUnknownFile  = errors.New("unknown file")
	ErrTooManyFiles = errors.New("too many open files")
)

// File is one open file description. It is never shared between
// descriptors or processes, so each has its own position.
type File struct {
	Name string

	h *lockedFile
}

func (f *File) Read(p []byte) (int, error) {
	return f.h.Read(p)
}

func (f *File) Write(p []byte) (int, error) {
	return f.h.Write(p)
}

func (f *File) Seek(pos int64) {
	f.h.Seek(pos)
}

func (f *File) Tell() int64 {
	return f.h.Tell()
}

func (f *File) Length() int64 {
	return f.h.Length()
}

func (f *File) Close() error {
	return f.h.Close()
}

var _ io.ReadWriteCloser = (*File)(nil)

// FileTable maps a process's descriptors to open files. Descriptors 0 and
// 1 belong to the console and never appear in the table. Numbers are handed
// out in increasing order and not reused.
type FileTable struct {
	mu    sync.Mutex
	next  int
	max   int
	files map[int]*File
}

func NewFileTable(max int) *FileTable {
	return &FileTable{
		next:  firstFileno,
		max:   max,
		files: make(map[int]*File),
	}
}

func (ft *FileTable) Install(f *File) (int, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if len(ft.files) >= ft.max {
		return -1, ErrTooManyFiles
	}

	fd := ft.next
	ft.next++

	ft.files[fd] = f

	return fd, nil
}

func (ft *FileTable) Get(fd int) (*File, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	f, ok := ft.files[fd]
	return f, ok
}

func (ft *FileTable) Remove(fd int) (*File, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	f, ok := ft.files[fd]
	if ok {
		delete(ft.files, fd)
	}

	return f, ok
}

func (ft *FileTable) Len() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	return len(ft.files)
}

// CloseAll closes and removes every entry, returning the first error.
func (ft *FileTable) CloseAll() error {
	ft.mu.Lock()
	files := ft.files
	ft.files = make(map[int]*File)
	ft.mu.Unlock()

	var err error

	for _, f := range files {
		if se := f.Close(); se != nil && err == nil {
			err = se
		}
	}

	return err
}

// OpenFile opens name and binds it to a fresh descriptor.
func (p *Process) OpenFile(name string) (int, error) {
	h, err := p.Kernel.fs.Open(name)
	if err != nil {
		return -1, err
	}

	fd, err := p.files.Install(&File{Name: name, h: h})
	if err != nil {
		h.Close()
		return -1, err
	}

	return fd, nil
}

func (p *Process) GetFile(fd int) (*File, bool) {
	return p.files.Get(fd)
}

func (p *Process) CloseFile(fd int) error {
	f, ok := p.files.Remove(fd)
	if !ok {
		return ErrUnknownFile
	}

	return f.Close()
}

// OpenFiles returns the number of descriptors the process holds.
func (p *Process) OpenFiles() int {
	return p.files.Len()
}
