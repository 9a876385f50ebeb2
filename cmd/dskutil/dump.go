package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/fs/host"
	"github.com/qbaula/project2/fs/tarfs"
	"github.com/qbaula/project2/loader"
	"github.com/qbaula/project2/user/bin"
)

func openImage(path string) (*fs.FileSystem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	fsys := fs.New(st.Size())

	if _, err := tarfs.Load(f, fsys); err != nil {
		return nil, err
	}

	return fsys, nil
}

func readFile(fsys *fs.FileSystem, name string) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}

	defer f.Close()

	data := make([]byte, f.Length())
	if len(data) > 0 {
		if _, err := f.Read(data); err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
	}

	return data, nil
}

func list(args []string) error {
	if len(args) != 1 {
		return errors.New("expected IMAGE")
	}

	fsys, err := openImage(args[0])
	if err != nil {
		return err
	}

	tr := tabwriter.NewWriter(os.Stdout, 4, 8, 1, ' ', 0)

	fmt.Fprintf(tr, "inode\tsize\tname\ttype\n")

	for _, ent := range fsys.List() {
		kind := "data"
		if hdr, ok := header(ent.Inode.Bytes()); ok {
			kind = fmt.Sprintf("exec v%d", hdr.Version)
		}

		fmt.Fprintf(tr, "%d\t%d\t%s\t%s\n", ent.Inode.ID, ent.Inode.Length(), ent.Name, kind)
	}

	return tr.Flush()
}

func cat(args []string) error {
	if len(args) != 2 {
		return errors.New("expected IMAGE NAME")
	}

	fsys, err := openImage(args[0])
	if err != nil {
		return err
	}

	data, err := readFile(fsys, args[1])
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(data)
	return err
}

func header(data []byte) (loader.Header, bool) {
	var hdr loader.Header

	if len(data) < binary.Size(hdr) {
		return hdr, false
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &hdr); err != nil {
		return hdr, false
	}

	return hdr, string(hdr.Magic[:]) == loader.Magic
}

func dump(args []string) error {
	if len(args) != 2 {
		return errors.New("expected IMAGE NAME")
	}

	fsys, err := openImage(args[0])
	if err != nil {
		return err
	}

	data, err := readFile(fsys, args[1])
	if err != nil {
		return err
	}

	hdr, ok := header(data)
	if !ok {
		return errors.Wrapf(loader.ErrBadImage, "%s", args[1])
	}

	start := binary.Size(hdr)
	end := start + int(hdr.EntryLen)
	if end > len(data) {
		return errors.Wrapf(loader.ErrBadImage, "%s: entry length %d", args[1], hdr.EntryLen)
	}

	fmt.Printf("\n[header]\n")

	tr := tabwriter.NewWriter(os.Stdout, 4, 8, 1, ' ', 0)
	fmt.Fprintf(tr, "magic\t%q\n", hdr.Magic[:])
	fmt.Fprintf(tr, "version\t%d\n", hdr.Version)
	fmt.Fprintf(tr, "entry\t%s\n", data[start:end])
	fmt.Fprintf(tr, "text\t%d bytes at %#x\n", len(data), loader.CodeBase)
	fmt.Fprintf(tr, "data\t%d bytes\n", hdr.DataSize)
	tr.Flush()

	if rest := data[end:]; len(rest) > 0 {
		fmt.Printf("\n[text]\n%s", hexdump(rest))
	}

	return nil
}

func hexdump(b []byte) string {
	var sb strings.Builder

	for off := 0; off < len(b); off += 16 {
		line := b[off:]
		if len(line) > 16 {
			line = line[:16]
		}

		fmt.Fprintf(&sb, "%08x  % x\n", off, line)
	}

	return sb.String()
}

func mkimg(args []string) error {
	flags := pflag.NewFlagSet("mkimg", pflag.ContinueOnError)

	var (
		withBin  = flags.Bool("bin", false, "install the shipped programs")
		entries  = flags.StringSlice("entry", nil, "add an executable NAME running ENTRY")
		capacity = flags.Int64("capacity", 4<<20, "filesystem capacity in bytes")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) < 1 {
		return errors.New("expected IMAGE")
	}

	fsys := fs.New(*capacity)

	if *withBin {
		if err := bin.Install(fsys); err != nil {
			return err
		}
	}

	for _, spec := range *entries {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 {
			return errors.Errorf("bad entry %q, want NAME=ENTRY", spec)
		}

		if err := fsys.WriteFile(parts[0], loader.Build(parts[1], 0)); err != nil {
			return err
		}
	}

	for _, path := range rest[1:] {
		if err := host.Put(fsys, path, ""); err != nil {
			return err
		}
	}

	f, err := os.Create(rest[0])
	if err != nil {
		return err
	}

	if err := tarfs.Save(f, fsys); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
