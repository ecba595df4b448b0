package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitInvalidArgs = 2
)

// stdout receives the integer status code of a download.
var stdout io.Writer = os.Stdout

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "download":
		return runDownload(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: nsisdl <command> [options]

Commands:
  download  Fetch a URL into a local file or bucket object and print the status code

Status codes:
  0         success
  1         local I/O failure (partial file may remain)
  499       transport failure (no HTTP status received)
  other     HTTP status of a non-2xx response

Run 'nsisdl <command> -h' for command-specific help.`)
}
