// Package console is the console driver: whole-buffer writes to the
// display and single-byte reads from the keyboard.
package console

import (
	"bufio"
	"io"
	"sync"
)

type Console struct {
	mu  sync.Mutex
	out io.Writer

	inMu sync.Mutex
	in   *bufio.Reader
}

func New(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out}

	if in != nil {
		c.in = bufio.NewReader(in)
	}

	return c
}

// PutBuf writes b as one uninterrupted unit. Concurrent callers never see
// their bytes interleaved.
func (c *Console) PutBuf(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.out.Write(b)
	return err
}

// Getc returns the next keyboard byte, blocking until one is available.
func (c *Console) Getc() (byte, error) {
	if c.in == nil {
		return 0, io.EOF
	}

	c.inMu.Lock()
	defer c.inMu.Unlock()

	return c.in.ReadByte()
}
