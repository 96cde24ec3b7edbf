package main

import (
	"flag"
	"fmt"
	"os"
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func fatalUsage(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	sfcb <command> [arguments]

Commands:
	info	identify the attached flash chip
	read	raw read of flash, bypassing any queue
	add	append one record to a circular-buffer queue
	get	read the oldest record out of a circular-buffer queue
	erase	maintenance: erase one sector, or the whole chip
`)
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	switch cmd := flag.Arg(0); cmd {
	case "info":
		infoCmd(flag.Args()[1:])
	case "read":
		readCmd(flag.Args()[1:])
	case "add":
		addCmd(flag.Args()[1:])
	case "get":
		getCmd(flag.Args()[1:])
	case "erase":
		eraseCmd(flag.Args()[1:])
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", cmd)
		usage()
	}
}
