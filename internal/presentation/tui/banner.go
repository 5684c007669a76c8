package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the chaptree banner with the version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`       _                 _              `, "#818cf8"},
		{`   ___| |__   __ _ _ __ | |_ _ __ ___  ___ `, "#a78bfa"},
		{`  / __| '_ \ / _' | '_ \| __| '__/ _ \/ _ \`, "#c084fc"},
		{` | (__| | | | (_| | |_) | |_| | |  __/  __/`, "#e879f9"},
		{`  \___|_| |_|\__,_| .__/ \__|_|  \___|\___|`, "#f472b6"},
		{`                  |_|                      `, "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  version "+version).Faint())
	fmt.Fprintln(w)
}
