package devserver

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/bundlekit/internal/build"
	"github.com/conneroisu/bundlekit/internal/bundler"
)

// StatusView is what the status page shows.
type StatusView struct {
	Project   string
	URL       string
	Entries   map[string][]string
	Last      *build.Outcome
	Metrics   build.MetricsSnapshot
	Clients   int
	StartedAt time.Time
}

var titleCaser = cases.Title(language.English)

// displayName turns an entry or project name such as "admin-panel" into
// "Admin Panel".
func displayName(name string) string {
	return titleCaser.String(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}

// StatusPage renders the dev server's status page.
func StatusPage(v StatusView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		esc := templ.EscapeString

		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		fmt.Fprintf(&b, `<title>%s · bundlekit</title>`, esc(displayName(v.Project)))
		b.WriteString(`<style>body{font:14px/1.5 system-ui,sans-serif;margin:2rem;color:#222}` +
			`.done{color:#2b8a3e}.failed{color:#c92a2a}pre{background:#f8f9fa;padding:1rem;overflow:auto}` +
			`td,th{padding:.25rem 1rem .25rem 0;text-align:left}</style></head><body>`)

		fmt.Fprintf(&b, `<h1>%s</h1>`, esc(displayName(v.Project)))
		fmt.Fprintf(&b, `<p>Serving at <a href="%[1]s">%[1]s</a> since %s · %d live-reload client(s)</p>`,
			esc(v.URL), esc(v.StartedAt.Format(time.RFC3339)), v.Clients)

		b.WriteString(`<h2>Entries</h2><table><tr><th>Name</th><th>Modules</th></tr>`)
		names := make([]string, 0, len(v.Entries))
		for name := range v.Entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td></tr>`,
				esc(displayName(name)), esc(strings.Join(v.Entries[name], ", ")))
		}
		b.WriteString(`</table>`)

		b.WriteString(`<h2>Last build</h2>`)
		if v.Last == nil {
			b.WriteString(`<p>Compiling…</p>`)
		} else {
			renderOutcome(&b, v.Last)
		}

		fmt.Fprintf(&b, `<p>%d compilation(s): %d done, %d failed.</p>`,
			v.Metrics.TotalCompiles, v.Metrics.Done, v.Metrics.Failed)
		b.WriteString(`</body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func renderOutcome(b *strings.Builder, o *build.Outcome) {
	esc := templ.EscapeString
	state := o.State.String()
	fmt.Fprintf(b, `<p class="%s">#%d %s in %s at %s</p>`,
		state, o.Sequence, esc(strings.ToUpper(state)), o.Duration, esc(o.FinishedAt.Format(time.Kitchen)))
	if o.Stats != nil {
		fmt.Fprintf(b, `<pre>%s</pre>`, esc(o.Stats.String(bundler.StatsOptions{Chunks: true})))
	}
	for _, d := range o.Classification.Diagnostics {
		if o.Stats != nil && containsDiagnostic(o.Stats.Errors, d) {
			// already part of the stats summary
			continue
		}
		fmt.Fprintf(b, `<pre class="failed">%s</pre>`, esc(d.String()))
	}
}

func containsDiagnostic(list []bundler.Diagnostic, d bundler.Diagnostic) bool {
	for _, x := range list {
		if x == d {
			return true
		}
	}
	return false
}
