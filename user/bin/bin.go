// Package bin holds the user programs shipped on every disk image.
package bin

import (
	"github.com/pkg/errors"

	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/loader"
	"github.com/qbaula/project2/user"
)

// dataSize is the writable data segment given to every shipped image.
const dataSize = 4096

var Programs = map[string]loader.Program{
	"echo":   user.Main(Echo),
	"cat":    user.Main(Cat),
	"cp":     user.Main(Copy),
	"rm":     user.Main(Rm),
	"mkfile": user.Main(MkFile),
	"halt":   user.Main(Halt),
	"exit":   user.Main(Exit),
	"run":    user.Main(Run),
	"spawn":  user.Main(Spawn),
	"sh":     user.Main(Shell),
	"crash":  user.Main(Crash),
	"badptr": user.Main(BadPointer),
}

// Register adds every program to reg under its own name.
func Register(reg *loader.Registry) {
	for name, prog := range Programs {
		reg.Register(name, prog)
	}
}

// Install writes an executable image for each program into fsys. Names
// already present are left alone.
func Install(fsys *fs.FileSystem) error {
	for name := range Programs {
		err := fsys.WriteFile(name, loader.Build(name, dataSize))
		if err != nil && errors.Cause(err) != fs.ErrExists {
			return errors.Wrapf(err, "installing %s", name)
		}
	}

	return nil
}
