// Package tarfs moves filesystem contents to and from tar disk images.
package tarfs

import (
	"archive/tar"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/log"
)

type entry struct {
	hdr  *tar.Header
	body []byte
}

func (e *entry) String() string {
	return spew.Sdump(e.hdr)
}

func cleanName(name string) string {
	if len(name) > 2 && name[:2] == "./" {
		name = name[2:]
	}

	if len(name) >= 1 && name[0] == '/' {
		name = name[1:]
	}

	return name
}

// Load copies every regular file in the archive into fsys. Directories are
// skipped since the filesystem is flat; nested files keep only their base
// name.
func Load(r io.Reader, fsys *fs.FileSystem) (int, error) {
	tr := tar.NewReader(r)

	var count int

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return count, errors.Wrap(err, "reading disk image")
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return count, errors.Wrapf(err, "reading %s", hdr.Name)
		}

		e := &entry{hdr: hdr, body: data}

		log.L.Trace("tarfs-load", "entry", e)

		name := cleanName(hdr.Name)
		if strings.Contains(name, "/") {
			name = filepath.Base(name)
		}

		if err := fsys.WriteFile(name, e.body); err != nil {
			return count, errors.Wrapf(err, "installing %s", name)
		}

		count++
	}

	return count, nil
}

// Save writes every file in fsys to w as a tar archive.
func Save(w io.Writer, fsys *fs.FileSystem) error {
	tw := tar.NewWriter(w)

	now := time.Now()

	for _, ent := range fsys.List() {
		body := ent.Inode.Bytes()

		hdr := &tar.Header{
			Name:     ent.Name,
			Mode:     0644,
			Size:     int64(len(body)),
			ModTime:  now,
			Typeflag: tar.TypeReg,
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Wrapf(err, "writing header for %s", ent.Name)
		}

		if _, err := tw.Write(body); err != nil {
			return errors.Wrapf(err, "writing %s", ent.Name)
		}
	}

	return tw.Close()
}
