package fs

import (
	"sort"

	"github.com/pkg/errors"
)

// NameMax is the longest permitted file name.
const NameMax = 14

var (
	ErrUnknownPath = errors.New("unknown path")
	ErrExists      = errors.New("file exists")
	ErrBadName     = errors.New("bad file name")
)

// Directory is the single flat directory of the filesystem.
type Directory struct {
	entries map[string]*Dirent
}

func NewDirectory() *Directory {
	return &Directory{
		entries: make(map[string]*Dirent),
	}
}

func checkName(name string) error {
	if name == "" {
		return errors.Wrap(ErrBadName, "empty name")
	}

	if len(name) > NameMax {
		return errors.Wrapf(ErrBadName, "name %q longer than %d", name, NameMax)
	}

	return nil
}

func (d *Directory) Lookup(name string) (*Dirent, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	ent, ok := d.entries[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPath, "name: %s", name)
	}

	return ent, nil
}

func (d *Directory) Add(name string, inode *Inode) error {
	if err := checkName(name); err != nil {
		return err
	}

	if _, ok := d.entries[name]; ok {
		return errors.Wrapf(ErrExists, "name: %s", name)
	}

	d.entries[name] = &Dirent{Name: name, Inode: inode}

	return nil
}

func (d *Directory) Remove(name string) (*Dirent, error) {
	ent, err := d.Lookup(name)
	if err != nil {
		return nil, err
	}

	delete(d.entries, name)

	return ent, nil
}

// List returns the entries sorted by name.
func (d *Directory) List() []Dirent {
	out := make([]Dirent, 0, len(d.entries))

	for _, ent := range d.entries {
		out = append(out, *ent)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}
