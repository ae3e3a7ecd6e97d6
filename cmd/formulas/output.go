package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/funvibe/formulas/pkg/formula"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
)

// printProblems writes one line per problem followed by the source with
// the span of the problem underlined.
func printProblems(w io.Writer, res *formula.Result, color bool) {
	for _, p := range res.Problems {
		severity := p.Severity.String()
		if color {
			c := colorYellow
			if p.IsError() {
				c = colorRed
			}
			severity = c + severity + colorReset
		}
		fmt.Fprintf(w, "%s [%s] %s: %s\n", severity, p.Kind, p.Loc, p.Message())
		if p.Loc != nil {
			fmt.Fprintln(w, "  "+res.Source)
			fmt.Fprintln(w, "  "+underline(res.Source, p.Loc.Start, p.Loc.End))
		}
	}
}

// underline marks the runes start..end (inclusive) of source.
func underline(source string, start, end int) string {
	n := len([]rune(source))
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if end < start {
		end = start
	}
	return strings.Repeat(" ", start) + strings.Repeat("^", end-start+1)
}
