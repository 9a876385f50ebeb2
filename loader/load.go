package loader

import (
	"context"
	"encoding/base64"
	"io"
	"sync"

	"github.com/google/shlex"
	hclog "github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/qbaula/project2/log"
	"github.com/qbaula/project2/memory"
)

var (
	ErrEmptyCommand = errors.New("empty command line")
	ErrUnknownEntry = errors.New("unknown entry point")
)

// Executable is an open executable file. The loader reads it from the
// start and denies writes to it on success.
type Executable interface {
	io.Reader
	Length() int64
	DenyWrite()
	Close() error
}

// Opener opens executables by file name.
type Opener interface {
	OpenExecutable(name string) (Executable, error)
}

type LoaderCache struct {
	mu sync.RWMutex

	cache *lru.ARCCache
}

func NewLoaderCache() *LoaderCache {
	cache, err := lru.NewARC(100)
	if err != nil {
		panic(err)
	}

	return &LoaderCache{cache: cache}
}

func (l *LoaderCache) Lookup(key string) (*PreparedImage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	val, ok := l.cache.Get(key)
	if !ok {
		return nil, false
	}

	return val.(*PreparedImage), true
}

func (l *LoaderCache) Set(key string, m *PreparedImage) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Add(key, m)
}

func (l *LoaderCache) Len() int {
	return l.cache.Len()
}

// Image is a program ready to run in a freshly populated address space.
type Image struct {
	Name  string
	Args  []string
	Entry Program
	SP    uint32

	// File stays open with writes denied for as long as the program runs.
	File Executable
}

type Loader struct {
	L          hclog.Logger
	cache      *LoaderCache
	progs      *Registry
	stackPages int
}

func NewLoader(cache *LoaderCache, progs *Registry, stackPages int) *Loader {
	if stackPages <= 0 {
		stackPages = 1
	}

	return &Loader{
		L:          log.L.Named("loader"),
		cache:      cache,
		progs:      progs,
		stackPages: stackPages,
	}
}

// SplitCommandLine breaks a command line into words using shell quoting.
func SplitCommandLine(cmdLine string) ([]string, error) {
	args, err := shlex.Split(cmdLine)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing command line %q", cmdLine)
	}

	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}

	return args, nil
}

func (l *Loader) prepare(data []byte) (*PreparedImage, error) {
	var cacheKey string

	if l.cache != nil {
		sum := blake2b.Sum256(data)
		cacheKey = base64.URLEncoding.EncodeToString(sum[:])

		if pm, ok := l.cache.Lookup(cacheKey); ok {
			l.L.Trace("using cached image", "key", cacheKey)
			return pm, nil
		}
	}

	pm, err := prepare(data)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.L.Debug("cached image", "key", cacheKey, "entry", pm.Entry)
		l.cache.Set(cacheKey, pm)
	}

	return pm, nil
}

// Load opens the executable named by the first word of cmdLine, maps it into
// mem and builds the argument stack.
func (l *Loader) Load(ctx context.Context, fsys Opener, cmdLine string, mem *memory.VirtualMemory) (*Image, error) {
	args, err := SplitCommandLine(cmdLine)
	if err != nil {
		return nil, err
	}

	f, err := fsys.OpenExecutable(args[0])
	if err != nil {
		return nil, errors.Wrapf(err, "%s: open failed", args[0])
	}

	img, err := l.load(f, args, mem)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "%s: load failed", args[0])
	}

	f.DenyWrite()

	return img, nil
}

func (l *Loader) load(f Executable, args []string, mem *memory.VirtualMemory) (*Image, error) {
	data := make([]byte, f.Length())

	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}

	pm, err := l.prepare(data)
	if err != nil {
		return nil, err
	}

	prog, ok := l.progs.Lookup(pm.Entry)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntry, "entry %q", pm.Entry)
	}

	text, err := mem.NewRegion(CodeBase, pm.Size, false)
	if err != nil {
		return nil, err
	}

	copy(text.Project(CodeBase, pm.Size), data)

	if pm.Header.DataSize > 0 {
		_, err = mem.NewRegion(text.Start+text.Size, pm.Header.DataSize, true)
		if err != nil {
			return nil, err
		}
	}

	stackSize := uint32(l.stackPages * memory.PageSize)

	_, err = mem.NewRegion(memory.PhysBase-stackSize, stackSize, true)
	if err != nil {
		return nil, err
	}

	sp, err := setupStack(mem, args)
	if err != nil {
		return nil, err
	}

	l.L.Trace("loaded image", "name", args[0], "entry", pm.Entry, "sp", sp)

	return &Image{
		Name:  args[0],
		Args:  args,
		Entry: prog,
		SP:    sp,
		File:  f,
	}, nil
}
