package bundleconfig

import (
	"dario.cat/mergo"
)

// Merge combines base and override into a new configuration. Neither input
// is modified.
//
// Struct fields are merged recursively and scalars the override sets
// replace the base's. Lists are appended, except that a rule whose test and
// enforce match a base rule is merged into it. The entry map is the
// exception to deep merging: when the override defines entry it replaces
// the base's entry wholesale.
func Merge(base, override *Config) (*Config, error) {
	out := base.Clone()
	if out == nil {
		out = &Config{}
	}
	if override == nil {
		return out, nil
	}

	src := override.Clone()
	rules := src.Module.Rules
	entry := src.Entry
	src.Module.Rules = nil
	src.Entry = nil

	if err := mergo.Merge(out, src, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, err
	}

	merged, err := mergeRules(out.Module.Rules, rules)
	if err != nil {
		return nil, err
	}
	out.Module.Rules = merged

	out.Resolve.Extensions = dedupe(out.Resolve.Extensions)
	out.ResolveLoader.Modules = dedupe(out.ResolveLoader.Modules)

	if entry != nil {
		out.Entry = entry
	}

	return out, nil
}

func mergeRules(base, override []Rule) ([]Rule, error) {
	for _, rule := range override {
		idx := -1
		for i, existing := range base {
			if existing.Test == rule.Test && existing.Enforce == rule.Enforce {
				idx = i
				break
			}
		}
		if idx < 0 {
			base = append(base, rule)
			continue
		}

		target := base[idx]
		// A rule that switches loaders replaces the loader chain
		// instead of appending to it.
		if rule.Loader != "" || len(rule.Use) > 0 {
			target.Loader = ""
			target.Use = nil
		}
		if err := mergo.Merge(&target, rule, mergo.WithOverride); err != nil {
			return nil, err
		}
		base[idx] = target
	}

	return base, nil
}

func dedupe(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
