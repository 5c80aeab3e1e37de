package bundler

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/gookit/color"
)

// StatsOptions control the human-readable summary.
type StatsOptions struct {
	// Chunks includes per-chunk detail.
	Chunks bool
	// Colors enables ANSI colors when the terminal supports them.
	Colors bool
}

// String renders the summary the way a bundler CLI would print it.
func (s *Stats) String(opts StatsOptions) string {
	if s == nil {
		return ""
	}

	paint := func(style color.Color, text string) string {
		if !opts.Colors {
			return text
		}
		return style.Sprint(text)
	}

	var b strings.Builder
	if s.Hash != "" {
		fmt.Fprintf(&b, "Hash: %s\n", paint(color.Bold, s.Hash))
	}
	fmt.Fprintf(&b, "Time: %s\n", paint(color.Bold, s.Duration().String()))

	if len(s.Assets) > 0 {
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Asset\tSize\t\tChunk Names\t")
		for _, a := range s.Assets {
			emitted := ""
			if a.Emitted {
				emitted = paint(color.Green, "[emitted]")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
				paint(color.Green, a.Name), HumanSize(a.Size), emitted, strings.Join(a.Names, ", "))
		}
		_ = tw.Flush()
	}

	if opts.Chunks {
		for _, c := range s.Chunks {
			kind := "rendered"
			if c.Initial {
				kind = "entry"
			}
			fmt.Fprintf(&b, "chunk {%v} %s (%s) %s [%s]\n",
				c.ID, strings.Join(c.Files, ", "), strings.Join(c.Names, ", "), HumanSize(c.Size), kind)
		}
	}

	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "\n%s %s\n", paint(color.Yellow, "WARNING in"), w.String())
	}
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "\n%s %s\n", paint(color.Red, "ERROR in"), e.String())
	}

	return strings.TrimRight(b.String(), "\n")
}

// HumanSize formats a byte count in binary units.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d bytes", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
