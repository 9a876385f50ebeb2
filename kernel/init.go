package kernel

import (
	"strings"
)

// spawn registers a new process as a child of parentPid and starts its
// thread, which loads cmdLine and runs it. The caller learns the outcome of
// the load through the process's load latch.
func (k *Kernel) spawn(parentPid int, cmdLine string) *Process {
	name := cmdLine
	if fields := strings.Fields(cmdLine); len(fields) > 0 {
		name = fields[0]
	}

	proc := k.newProcess(name)

	k.processes.Register(proc, parentPid)

	go k.StartProcess(proc, cmdLine)

	return proc
}

// StartProcess is the body of a process's thread. It loads the executable,
// publishes the load outcome, runs the program and exits with its return
// value. Every way out of the program funnels into the exit path, except a
// system halt.
func (k *Kernel) StartProcess(proc *Process, cmdLine string) {
	task := &Task{Process: proc}

	ctx := SetTask(k.ctx, task)

	defer func() {
		r := recover()
		if r == nil || r == errTerminated {
			return
		}

		k.L.Error("user program crashed", "pid", proc.Pid, "panic", r)
		proc.Kill()
	}()

	proc.setState(Loading)

	img, err := k.loader.Load(ctx, k.fs, cmdLine, proc.Mem)
	if err != nil {
		k.L.Info("load failed", "pid", proc.Pid, "error", err)

		proc.setState(LoadFailed)
		proc.load.Fire(LoadFailure)

		proc.Kill()
		return
	}

	proc.mu.Lock()
	proc.Name = img.Name
	proc.exe = img.File
	proc.mu.Unlock()

	task.sp = img.SP

	proc.setState(Running)
	proc.load.Fire(LoadSuccess)

	code := img.Entry(ctx, task)

	if k.isHalted() {
		return
	}

	proc.Exit(code)
}
