package log

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

func EnableDebug() {
	if str := os.Getenv("TRACE"); str != "" {
		L.SetLevel(hclog.Trace)
	}
}

// SetLevel applies a textual level such as "debug" or "warn". Unknown
// values leave the current level in place. TRACE in the environment wins.
func SetLevel(level string) {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		return
	}

	L.SetLevel(lvl)

	EnableDebug()
}
