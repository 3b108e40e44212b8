package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"albumscan/pkg/engine"
)

// ASCII logo for the application
const ASCIILogo = `
  █████╗ ██╗     ██████╗ ██╗   ██╗███╗   ███╗███████╗ ██████╗ █████╗ ███╗   ██╗
 ██╔══██╗██║     ██╔══██╗██║   ██║████╗ ████║██╔════╝██╔════╝██╔══██╗████╗  ██║
 ███████║██║     ██████╔╝██║   ██║██╔████╔██║███████╗██║     ███████║██╔██╗ ██║
 ██╔══██║██║     ██╔══██╗██║   ██║██║╚██╔╝██║╚════██║██║     ██╔══██║██║╚██╗██║
 ██║  ██║███████╗██████╔╝╚██████╔╝██║ ╚═╝ ██║███████║╚██████╗██║  ██║██║ ╚████║
 ╚═╝  ╚═╝╚══════╝╚═════╝  ╚═════╝ ╚═╝     ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═══╝
                     album traversal & capture utility
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

// PrintSummary prints the outcome of a session
func PrintSummary(res *engine.Result) {
	fmt.Fprintln(Output)
	PrintHighlight("═══ SESSION SUMMARY ═══")
	PrintInfo("Session", res.SessionID)
	PrintInfo("Finished", string(res.Reason))
	PrintInfo("Captured", fmt.Sprintf("%d", len(res.Assets)))
	PrintInfo("Iterations", fmt.Sprintf("%d", res.Iterations))
	PrintInfo("Elapsed", res.Elapsed.Round(time.Second).String())
	if res.HandoffErr != nil {
		PrintError("Handoff failed", res.HandoffErr)
		return
	}
	if res.HandoffKey != "" {
		PrintInfo("Handoff key", res.HandoffKey)
	}
}
