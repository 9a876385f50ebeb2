package kernel

import (
	"sync"

	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/loader"
)

// lockedFS owns the single lock serializing every call into the
// filesystem, including calls on open handles. Console I/O does not take
// it.
type lockedFS struct {
	mu sync.Mutex
	fs *fs.FileSystem
}

func (l *lockedFS) Create(name string, size int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fs.Create(name, size)
}

func (l *lockedFS) Remove(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fs.Remove(name)
}

func (l *lockedFS) Open(name string) (*lockedFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.fs.Open(name)
	if err != nil {
		return nil, err
	}

	return &lockedFile{l: l, f: f}, nil
}

func (l *lockedFS) OpenExecutable(name string) (loader.Executable, error) {
	f, err := l.Open(name)
	if err != nil {
		return nil, err
	}

	return f, nil
}

type lockedFile struct {
	l *lockedFS
	f *fs.File
}

func (lf *lockedFile) Read(p []byte) (int, error) {
	lf.l.mu.Lock()
	defer lf.l.mu.Unlock()

	return lf.f.Read(p)
}

func (lf *lockedFile) Write(p []byte) (int, error) {
	lf.l.mu.Lock()
	defer lf.l.mu.Unlock()

	return lf.f.Write(p)
}

func (lf *lockedFile) Seek(pos int64) {
	lf.l.mu.Lock()
	defer lf.l.mu.Unlock()

	lf.f.Seek(pos)
}

func (lf *lockedFile) Tell() int64 {
	lf.l.mu.Lock()
	defer lf.l.mu.Unlock()

	return lf.f.Tell()
}

func (lf *lockedFile) Length() int64 {
	lf.l.mu.Lock()
	defer lf.l.mu.Unlock()

	return lf.f.Length()
}

func (lf *lockedFile) DenyWrite() {
	lf.l.mu.Lock()
	defer lf.l.mu.Unlock()

	lf.f.DenyWrite()
}

func (lf *lockedFile) Close() error {
	lf.l.mu.Lock()
	defer lf.l.mu.Unlock()

	return lf.f.Close()
}

// CreateFile creates name with size zero bytes. It reports success.
func (k *Kernel) CreateFile(name string, size int64) bool {
	err := k.fs.Create(name, size)
	if err != nil {
		k.L.Debug("create failed", "name", name, "size", size, "error", err)
		return false
	}

	return true
}

// RemoveFile unlinks name. Descriptors already open on it keep working.
func (k *Kernel) RemoveFile(name string) bool {
	err := k.fs.Remove(name)
	if err != nil {
		k.L.Debug("remove failed", "name", name, "error", err)
		return false
	}

	return true
}
