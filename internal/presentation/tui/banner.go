package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the bbscript banner to w, colored when w is a terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{` _     _                   _       _   `, "#34d399"},
		{`| |__ | |__  ___  ___ _ __(_)_ __ | |_ `, "#2dd4bf"},
		{`| '_ \| '_ \/ __|/ __| '__| | '_ \| __|`, "#22d3ee"},
		{`| |_) | |_) \__ \ (__| |  | | |_) | |_ `, "#38bdf8"},
		{`|_.__/|_.__/|___/\___|_|  |_| .__/ \__|`, "#60a5fa"},
		{`                            |_|        `, "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
