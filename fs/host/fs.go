// Package host copies files between the host and the simulated filesystem.
package host

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/log"
)

// Put copies the host file at path into fsys. An empty name uses the base
// name of path.
func Put(fsys *fs.FileSystem, path, name string) error {
	if name == "" {
		name = filepath.Base(path)
	}

	log.L.Trace("put host file", "path", path, "name", name)

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading host file %s", path)
	}

	return fsys.WriteFile(name, data)
}

// Get writes the simulated file name out to the host at path.
func Get(fsys *fs.FileSystem, name, path string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}

	defer f.Close()

	data := make([]byte, f.Length())

	if _, err := f.Read(data); err != nil && f.Length() > 0 {
		return errors.Wrapf(err, "reading %s", name)
	}

	log.L.Trace("get host file", "name", name, "path", path, "size", len(data))

	return os.WriteFile(path, data, 0644)
}
