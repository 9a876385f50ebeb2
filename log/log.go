package log

import (
	"io"
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

// L is the logger shared by every kernel subsystem.
var L hclog.Logger

func init() {
	L = hclog.New(&hclog.LoggerOptions{
		Name:   "kernel",
		Output: os.Stderr,
	})
	L.SetLevel(hclog.Info)

	if str := os.Getenv("TRACE"); str != "" {
		L.SetLevel(hclog.Trace)
	}
}

// Redirect replaces L with a logger writing to w. Used by the CLI to keep
// kernel diagnostics off the simulated console.
func Redirect(w io.Writer) {
	level := L.GetLevel()

	L = hclog.New(&hclog.LoggerOptions{
		Name:   "kernel",
		Output: w,
		Level:  level,
	})
}
