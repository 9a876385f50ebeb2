package kernel

import "io"

// WriteConsole writes b to the console in chunks of at most ConsoleChunk
// bytes, each emitted atomically, and returns the bytes written.
func (k *Kernel) WriteConsole(b []byte) int {
	var written int

	for len(b) > 0 {
		chunk := b
		if len(chunk) > k.cfg.ConsoleChunk {
			chunk = chunk[:k.cfg.ConsoleChunk]
		}

		if err := k.console.PutBuf(chunk); err != nil {
			k.L.Error("console write failed", "error", err)
			break
		}

		written += len(chunk)
		b = b[len(chunk):]
	}

	return written
}

// ReadConsole reads up to n keyboard bytes one at a time, stopping early
// when input runs out.
func (k *Kernel) ReadConsole(n int) []byte {
	buf := make([]byte, 0, n)

	for len(buf) < n {
		c, err := k.console.Getc()
		if err != nil {
			if err != io.EOF {
				k.L.Error("console read failed", "error", err)
			}
			break
		}

		buf = append(buf, c)
	}

	return buf
}
