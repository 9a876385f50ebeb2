package bin

import (
	"strconv"
	"strings"

	"github.com/qbaula/project2/user"
)

func Halt(p *user.Proc) int {
	p.Halt()

	return 0
}

// Exit calls exit with its argument rather than returning it.
func Exit(p *user.Proc) int {
	args := p.Args()

	code := 0
	if len(args) > 1 {
		code, _ = strconv.Atoi(args[1])
	}

	p.Exit(code)

	return 0
}

// Run executes its arguments as a command line and returns the child's
// status.
func Run(p *user.Proc) int {
	args := p.Args()
	if len(args) < 2 {
		p.Printf("usage: run CMD [ARGS...]\n")
		return -1
	}

	pid := p.Exec(strings.Join(args[1:], " "))
	if pid < 0 {
		p.Printf("run: %s: exec failed\n", args[1])
		return -1
	}

	return p.Wait(pid)
}

// Spawn starts N copies of a command, then waits for all of them. It
// returns the number of children that did not exit with 0.
func Spawn(p *user.Proc) int {
	args := p.Args()
	if len(args) < 3 {
		p.Printf("usage: spawn N CMD [ARGS...]\n")
		return -1
	}

	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		p.Printf("spawn: bad count %q\n", args[1])
		return -1
	}

	cmd := strings.Join(args[2:], " ")

	var pids []int
	for i := 0; i < n; i++ {
		pid := p.Exec(cmd)
		if pid < 0 {
			p.Printf("spawn: %s: exec failed\n", args[2])
			return -1
		}

		pids = append(pids, pid)
	}

	failed := 0
	for _, pid := range pids {
		if p.Wait(pid) != 0 {
			failed++
		}
	}

	return failed
}

// readLine reads one line from the keyboard. ok is false once input ends
// with nothing read.
func readLine(p *user.Proc) (line string, ok bool) {
	var (
		sb strings.Builder
		c  [1]byte
	)

	for {
		if p.Read(0, c[:]) <= 0 {
			return sb.String(), sb.Len() > 0
		}

		switch c[0] {
		case '\r', '\n':
			p.Write(1, []byte("\n"))
			return sb.String(), true
		case 0x7f, '\b':
			if sb.Len() > 0 {
				s := sb.String()
				sb.Reset()
				sb.WriteString(s[:len(s)-1])
				p.Write(1, []byte("\b \b"))
			}
		default:
			sb.WriteByte(c[0])
			p.Write(1, c[:])
		}
	}
}

// Shell runs each command line typed on the keyboard and waits for it.
func Shell(p *user.Proc) int {
	for {
		p.Printf("--")

		line, ok := readLine(p)
		if !ok {
			return 0
		}

		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == "exit":
			return 0
		}

		pid := p.Exec(line)
		if pid < 0 {
			p.Printf("\"%s\": exec failed\n", line)
			continue
		}

		p.Printf("\"%s\": exit code %d\n", line, p.Wait(pid))
	}
}
