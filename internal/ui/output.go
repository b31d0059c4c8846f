// Package ui prints human-facing progress for the CLI.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const lineLength = 60

var (
	out = color.Output

	headerColor  = color.New(color.FgCyan, color.Bold)
	stepColor    = color.New(color.FgMagenta, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgWhite)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	blue         = color.New(color.FgBlue).SprintFunc()
	yellow       = color.New(color.FgYellow).SprintFunc()
)

// SetOutput redirects all output; nil restores the terminal
func SetOutput(w io.Writer) {
	if w == nil {
		w = color.Output
	}
	out = w
}

// center left-pads text so it sits in the middle of width columns
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}

// Header prints a framed title
func Header(text string) {
	line := strings.Repeat("=", lineLength)
	headerColor.Fprintln(out, line)
	headerColor.Fprintln(out, center(text, lineLength))
	headerColor.Fprintln(out, line)
}

// Step prints a numbered progress step such as "[2/5] Detecting format"
func Step(n, total int, text string) {
	stepColor.Fprintf(out, "[%d/%d] ", n, total)
	fmt.Fprintln(out, text)
}

// Success prints a confirmation line
func Success(text string) {
	successColor.Fprintln(out, "✓ "+text)
}

// Info prints a neutral line
func Info(text string) {
	infoColor.Fprintln(out, "  "+text)
}

// Warning prints a warning line
func Warning(text string) {
	warningColor.Fprintln(out, "! "+text)
}

// Error prints an error line
func Error(text string) {
	errorColor.Fprintln(out, "✗ "+text)
}

// BlueText returns text colored blue
func BlueText(text string) string {
	return blue(text)
}

// YellowText returns text colored yellow
func YellowText(text string) string {
	return yellow(text)
}
