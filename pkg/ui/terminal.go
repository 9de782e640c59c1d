package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════════╗
    ║ ████████╗████████╗███████╗ ██████╗██████╗  █████╗ ██████╗  ║
    ║ ╚══██╔══╝╚══██╔══╝██╔════╝██╔════╝██╔══██╗██╔══██╗██╔══██╗ ║
    ║    ██║      ██║   ███████╗██║     ██████╔╝███████║██████╔╝ ║
    ║    ██║      ██║   ╚════██║██║     ██╔══██╗██╔══██║██╔═══╝  ║
    ║    ██║      ██║   ███████║╚██████╗██║  ██║██║  ██║██║      ║
    ║    ╚═╝      ╚═╝   ╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝      ║
    ║              POST ARCHIVE UTILITY · RESUMABLE              ║
    ╚═══════════════════════════════════════════════════════════╝
`

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

var colorDisabled atomic.Bool

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		colorDisabled.Store(true)
	}
}

// SetColor turns ANSI colors on or off for every helper in this package
func SetColor(enabled bool) {
	colorDisabled.Store(!enabled)
}

// Color functions for terminal output
var (
	Cyan    = colorize("36")
	Yellow  = colorize("33")
	Red     = colorize("31")
	Green   = colorize("32")
	Magenta = colorize("35")
	Dim     = colorize("2")
)

func colorize(code string) func(string) string {
	return func(text string) string {
		if colorDisabled.Load() {
			return text
		}
		return "\033[" + code + "m" + text + "\033[0m"
	}
}

// PrintLogo prints the ASCII logo
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints msg in red, followed by its cause when one is given
func PrintError(msg string, args ...interface{}) {
	fmt.Fprintln(Output, Red(withCause(msg, args)))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints msg in yellow, followed by its cause when one is given
func PrintWarning(msg string, args ...interface{}) {
	fmt.Fprintln(Output, Yellow(withCause(msg, args)))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

func withCause(msg string, args []interface{}) string {
	if len(args) == 0 || args[0] == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, args[0])
}
