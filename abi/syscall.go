// Package abi holds the system call numbers shared by the kernel's
// dispatcher and the user syscall library.
package abi

const (
	SysHalt int32 = iota
	SysExit
	SysExec
	SysWait
	SysCreate
	SysRemove
	SysOpen
	SysFilesize
	SysRead
	SysWrite
	SysSeek
	SysTell
	SysClose

	NumSyscalls = iota
)

// Console descriptors. They are never allocated to files.
const (
	StdinFileno  = 0
	StdoutFileno = 1
)

var SyscallNames = [NumSyscalls]string{
	SysHalt:     "halt",
	SysExit:     "exit",
	SysExec:     "exec",
	SysWait:     "wait",
	SysCreate:   "create",
	SysRemove:   "remove",
	SysOpen:     "open",
	SysFilesize: "filesize",
	SysRead:     "read",
	SysWrite:    "write",
	SysSeek:     "seek",
	SysTell:     "tell",
	SysClose:    "close",
}

// Name returns the name of syscall n, or "unknown".
func Name(n int32) string {
	if n < 0 || n >= NumSyscalls {
		return "unknown"
	}

	return SyscallNames[n]
}
