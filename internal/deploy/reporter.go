package deploy

import (
	"fmt"
	"io"
	"strings"
)

// Reporter prints deployment progress as numbered steps.
type Reporter struct {
	w    io.Writer
	step int
}

// NewReporter writes progress to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Header prints a title banner.
func (r *Reporter) Header(title string) {
	fmt.Fprintf(r.w, "%s\n%s\n", title, strings.Repeat("=", 60))
}

// Step starts the next numbered step.
func (r *Reporter) Step(description string) {
	r.step++
	fmt.Fprintf(r.w, "\nStep %d: %s\n", r.step, description)
}

// Info prints an indented detail line.
func (r *Reporter) Info(format string, args ...any) {
	fmt.Fprintf(r.w, "   "+format+"\n", args...)
}

// OK prints a completed check.
func (r *Reporter) OK(format string, args ...any) {
	fmt.Fprintf(r.w, "ok: "+format+"\n", args...)
}

// Fail prints a failure with suggested fixes.
func (r *Reporter) Fail(message string, fixes ...string) {
	fmt.Fprintf(r.w, "error: %s\n", message)
	if len(fixes) > 0 {
		fmt.Fprintln(r.w, "\nCommon fixes:")
		for _, fix := range fixes {
			fmt.Fprintf(r.w, "   - %s\n", fix)
		}
	}
}

// Success prints the closing banner.
func (r *Reporter) Success(title string) {
	fmt.Fprintf(r.w, "\n%s\n", strings.ToUpper(title))
}

// Summary prints a titled list of key/value lines.
func (r *Reporter) Summary(title string, lines ...string) {
	fmt.Fprintf(r.w, "\n%s:\n", title)
	for _, l := range lines {
		fmt.Fprintf(r.w, "   %s\n", l)
	}
}
