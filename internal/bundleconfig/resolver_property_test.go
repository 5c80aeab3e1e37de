//go:build property
// +build property

package bundleconfig

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
)

func genEntries() gopter.Gen {
	return gen.MapOf(gen.Identifier(), gen.Identifier()).Map(func(m map[string]string) map[string]EntryPoint {
		out := make(map[string]EntryPoint, len(m))
		for k, v := range m {
			out[k] = EntryPoint{"src/" + v + ".js"}
		}
		return out
	})
}

// TestResolveProperties checks the resolver's invariants over generated
// overrides.
func TestResolveProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	resolver := func() *Resolver {
		return &Resolver{
			Base:          testBase(),
			Root:          testRoot,
			OverridesFile: "bundle.overrides.yml",
			FS:            afero.NewMemMapFs(),
		}
	}

	properties.Property("output path always comes from base", prop.ForAll(
		func(path, filename string) bool {
			r := resolver()
			cfg, err := r.Resolve(&Config{Output: Output{Path: path, Filename: filename}})
			return err == nil && cfg.Output.Path == r.Base.Output.Path
		},
		gen.AnyString(),
		gen.AlphaString(),
	))

	properties.Property("override entry replaces base entry", prop.ForAll(
		func(entries map[string]EntryPoint) bool {
			if len(entries) == 0 {
				return true
			}
			cfg, err := resolver().Resolve(&Config{Entry: entries})
			return err == nil && reflect.DeepEqual(cfg.Entry, entries)
		},
		genEntries(),
	))

	properties.Property("override without entry keeps base entry", prop.ForAll(
		func(devtool string, exts []string) bool {
			r := resolver()
			cfg, err := r.Resolve(&Config{Devtool: devtool, Resolve: Resolve{Extensions: exts}})
			return err == nil && reflect.DeepEqual(cfg.Entry, r.Base.Entry)
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
