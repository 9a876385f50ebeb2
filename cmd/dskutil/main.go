package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

type command struct {
	usage string
	run   func(args []string) error
}

var commands = map[string]command{
	"ls":    {"ls IMAGE", list},
	"cat":   {"cat IMAGE NAME", cat},
	"dump":  {"dump IMAGE NAME", dump},
	"mkimg": {"mkimg [--bin] [--entry NAME=ENTRY] IMAGE [HOSTFILE...]", mkimg},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: dskutil COMMAND ARGS\n\n")
	for _, name := range []string{"ls", "cat", "dump", "mkimg"} {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func main() {
	pflag.Usage = usage
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cmd, ok := commands[args[0]]
	if !ok {
		usage()
		os.Exit(2)
	}

	if err := cmd.run(args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "dskutil %s: %s\n", args[0], err)
		os.Exit(1)
	}
}
