package bin

import (
	"strconv"
	"strings"

	"github.com/qbaula/project2/user"
)

func Echo(p *user.Proc) int {
	args := p.Args()

	p.Printf("%s\n", strings.Join(args[1:], " "))

	return 0
}

// copyFd streams everything readable from in to out.
func copyFd(p *user.Proc, in, out int) bool {
	buf := make([]byte, 512)

	for {
		n := p.Read(in, buf)
		if n < 0 {
			return false
		}

		if n == 0 {
			return true
		}

		if p.Write(out, buf[:n]) != n {
			return false
		}
	}
}

func Cat(p *user.Proc) int {
	args := p.Args()

	for _, name := range args[1:] {
		fd := p.Open(name)
		if fd < 0 {
			p.Printf("cat: %s: cannot open\n", name)
			return 1
		}

		ok := copyFd(p, fd, 1)
		p.Close(fd)

		if !ok {
			p.Printf("cat: %s: read error\n", name)
			return 1
		}
	}

	return 0
}

func Copy(p *user.Proc) int {
	args := p.Args()
	if len(args) != 3 {
		p.Printf("usage: cp SRC DST\n")
		return 1
	}

	src := p.Open(args[1])
	if src < 0 {
		p.Printf("cp: %s: cannot open\n", args[1])
		return 1
	}
	defer p.Close(src)

	if !p.Create(args[2], uint32(p.Filesize(src))) {
		p.Printf("cp: %s: cannot create\n", args[2])
		return 1
	}

	dst := p.Open(args[2])
	if dst < 0 {
		p.Printf("cp: %s: cannot open\n", args[2])
		return 1
	}
	defer p.Close(dst)

	if !copyFd(p, src, dst) {
		return 1
	}

	return 0
}

func Rm(p *user.Proc) int {
	status := 0

	for _, name := range p.Args()[1:] {
		if !p.Remove(name) {
			p.Printf("rm: %s: cannot remove\n", name)
			status = 1
		}
	}

	return status
}

// MkFile creates NAME with SIZE zero bytes.
func MkFile(p *user.Proc) int {
	args := p.Args()
	if len(args) != 3 {
		p.Printf("usage: mkfile NAME SIZE\n")
		return 1
	}

	size, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		p.Printf("mkfile: bad size %q\n", args[2])
		return 1
	}

	if !p.Create(args[1], uint32(size)) {
		p.Printf("mkfile: %s: cannot create\n", args[1])
		return 1
	}

	return 0
}
