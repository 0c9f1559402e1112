package config

import (
	"fmt"
	"io"
	"os"
)

var (
	exit        = os.Exit
	defaultExit = os.Exit
)

// Exitf prints a fatal command error to stderr and exits with status 1.
func Exitf(format string, args ...any) {
	Fexitf(os.Stderr, format, args...)
}

// Fexitf is Exitf writing to w.
func Fexitf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
	exit(1)
}
