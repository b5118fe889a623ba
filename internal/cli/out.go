// internal/cli/out.go
package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Output receives everything the terminal client prints. Tests swap it
// for a buffer.
var Output io.Writer = color.Output

var (
	bold   = color.New(color.Bold)
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

// Normf prints a normal message.
func Normf(format string, v ...interface{}) {
	fmt.Fprintf(Output, format, v...)
}

// Boldf prints a bold message.
func Boldf(format string, v ...interface{}) {
	bold.Fprintf(Output, format, v...)
}

// Valuf prints a value or an example.
func Valuf(format string, v ...interface{}) {
	cyan.Fprintf(Output, format, v...)
}

// Succf prints a success message.
func Succf(format string, v ...interface{}) {
	green.Fprintf(Output, format, v...)
}

// Warnf prints a warning message.
func Warnf(format string, v ...interface{}) {
	yellow.Fprintf(Output, format, v...)
}

// Errof prints an error message.
func Errof(format string, v ...interface{}) {
	red.Fprintf(Output, format, v...)
}
