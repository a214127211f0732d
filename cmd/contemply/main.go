package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/smertiens/contemply/pkg/console"
)

// Version is set at build time.
var Version = "1.0.0"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut, logger: slog.Default()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, console.ErrInterrupted):
		fmt.Fprintln(out, "Goodbye")
		return 0
	default:
		a.logger.Debug("fatal", "error", err)
		fmt.Fprintln(errOut, console.Error(err.Error()))
		return 1
	}
}
