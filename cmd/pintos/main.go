package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/qbaula/project2/boundary"
	"github.com/qbaula/project2/console"
	"github.com/qbaula/project2/fs"
	"github.com/qbaula/project2/fs/host"
	"github.com/qbaula/project2/fs/tarfs"
	"github.com/qbaula/project2/kernel"
	"github.com/qbaula/project2/loader"
	clog "github.com/qbaula/project2/log"
	"github.com/qbaula/project2/settings"
	"github.com/qbaula/project2/user/bin"
)

var (
	fConfig   = pflag.StringP("config", "c", "", "settings file")
	fDisk     = pflag.StringP("disk", "d", "", "tar disk image to boot from")
	fFormat   = pflag.Bool("format", false, "start from an empty filesystem, ignoring the image")
	fSave     = pflag.Bool("save", false, "write the filesystem back to the image on power off")
	fPut      = pflag.StringSliceP("put", "p", nil, "copy a host file in before boot, as PATH or PATH:NAME")
	fGet      = pflag.StringSliceP("get", "g", nil, "copy a file out after power off, as NAME or NAME:PATH")
	fQuiet    = pflag.BoolP("quiet", "q", false, "do not print exit messages")
	fLogLevel = pflag.String("log-level", "", "log level (trace, debug, info, warn, error)")
)

// crlf turns bare newlines into CRLF for a terminal in raw mode.
type crlf struct {
	w *os.File
}

func (c crlf) Write(b []byte) (int, error) {
	_, err := c.w.Write([]byte(strings.ReplaceAll(string(b), "\n", "\r\n")))
	if err != nil {
		return 0, err
	}

	return len(b), nil
}

func split(spec string) (string, string) {
	if i := strings.LastIndexByte(spec, ':'); i >= 0 {
		return spec[:i], spec[i+1:]
	}

	return spec, ""
}

func loadSettings() (*settings.AppSettings, error) {
	s := settings.Default()

	if *fConfig != "" {
		var err error

		s, err = settings.LoadSettings(*fConfig)
		if err != nil {
			return nil, err
		}
	}

	if *fDisk != "" {
		s.Disk.Image = *fDisk
	}

	if *fSave {
		s.Disk.Save = true
	}

	if *fQuiet {
		s.Kernel.ExitMessages = false
	}

	if *fLogLevel != "" {
		s.Kernel.LogLevel = *fLogLevel
	}

	if errs := s.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}

	return s, nil
}

func loadDisk(s *settings.AppSettings) (*fs.FileSystem, error) {
	fsys := fs.New(s.Disk.Capacity)

	if s.Disk.Image != "" && !*fFormat {
		f, err := os.Open(s.Disk.Image)
		switch {
		case err == nil:
			defer f.Close()

			cnt, err := tarfs.Load(f, fsys)
			if err != nil {
				return nil, err
			}

			clog.L.Debug("loaded disk image", "path", s.Disk.Image, "files", cnt)
		case os.IsNotExist(err):
			clog.L.Info("disk image missing, starting empty", "path", s.Disk.Image)
		default:
			return nil, errors.Wrapf(err, "opening disk image")
		}
	}

	if err := bin.Install(fsys); err != nil {
		return nil, err
	}

	for _, spec := range *fPut {
		path, name := split(spec)

		if err := host.Put(fsys, path, name); err != nil {
			return nil, err
		}
	}

	return fsys, nil
}

func saveDisk(s *settings.AppSettings, fsys *fs.FileSystem) error {
	for _, spec := range *fGet {
		name, path := split(spec)
		if path == "" {
			path = name
		}

		if err := host.Get(fsys, name, path); err != nil {
			return errors.Wrapf(err, "getting %s", name)
		}
	}

	if !s.Disk.Save {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Disk.Image), ".disk")
	if err != nil {
		return err
	}

	defer os.Remove(tmp.Name())

	if err := tarfs.Save(tmp, fsys); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.Disk.Image)
}

func run() int {
	pflag.Parse()

	s, err := loadSettings()
	if err != nil {
		log.Print(err)
		return 2
	}

	clog.SetLevel(s.Kernel.LogLevel)

	cmdLine := strings.Join(pflag.Args(), " ")
	if cmdLine == "" {
		cmdLine = "sh"
	}

	fsys, err := loadDisk(s)
	if err != nil {
		log.Print(err)
		return 1
	}

	reg := loader.NewRegistry()
	bin.Register(reg)

	var out = os.Stdout

	cons := console.New(os.Stdin, out)

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			log.Print(err)
			return 1
		}

		defer term.Restore(fd, state)

		clog.Redirect(crlf{os.Stderr})
		cons = console.New(os.Stdin, crlf{out})
	}

	k, err := kernel.NewKernel(s.KernelConfig(), fsys, cons, reg)
	if err != nil {
		log.Print(err)
		return 1
	}

	boundary.NewGate(k)

	k.OnPowerOff(func() {
		cons.PutBuf([]byte("Powering off...\n"))
	})

	k.L.Info("booting", "cmdline", cmdLine, "files", len(fsys.List()))

	var code int

	g, ctx := errgroup.WithContext(context.Background())

	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)

		var err error

		code, err = k.Run(cmdLine)
		if err == kernel.ErrPowerOff {
			code = 0
			return nil
		}

		return err
	})

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		defer signal.Stop(sig)

		select {
		case <-sig:
			k.Halt()
		case <-done:
		case <-ctx.Done():
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		log.Print(err)
		return 1
	}

	if err := saveDisk(s, fsys); err != nil {
		log.Print(err)
		return 1
	}

	return code
}

func main() {
	cpuprofile := os.Getenv("CPUPROFILE")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		fmt.Printf("pprof: profiling started\n")
	}

	code := run()

	if cpuprofile != "" {
		pprof.StopCPUProfile()
		fmt.Printf("pprof: profiling finished\n")
	}

	os.Exit(code)
}
