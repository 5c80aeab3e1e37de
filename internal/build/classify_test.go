package build

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/bundlekit/internal/bundler"
)

func statsWithErrors(msgs ...string) *bundler.Stats {
	s := &bundler.Stats{}
	for _, m := range msgs {
		s.Errors = append(s.Errors, bundler.Diagnostic{Message: m})
	}
	return s
}

func TestIsFatalOnly(t *testing.T) {
	tests := []struct {
		name     string
		stats    *bundler.Stats
		expected bool
	}{
		{"nil stats", nil, false},
		{"no diagnostics", statsWithErrors(), false},
		{"syntax error", statsWithErrors("SyntaxError: Unexpected token"), true},
		{"lint error", statsWithErrors("6:2 error Missing semicolon"), false},
		{"parsing error", statsWithErrors("  1:1  error  Parsing error: The keyword 'import' is reserved"), true},
		{"template", statsWithErrors("Error compiling template:\n<div>"), true},
		{"module build failed", statsWithErrors("Module build failed: Error: Cannot find module 'babel-core'"), true},
		{"case insensitive", statsWithErrors("UNEXPECTED TOKEN <"), true},
		{"one fatal among advisories", statsWithErrors("2:1 error no-unused-vars", "Syntax error in app.vue"), true},
		{"warnings only", &bundler.Stats{Warnings: []bundler.Diagnostic{{Message: "SyntaxError"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatalOnly(tt.stats))
		})
	}
}

func TestFatalPatternsIsACopy(t *testing.T) {
	patterns := FatalPatterns()
	assert.Len(t, patterns, 6)

	patterns[0] = "mutated"
	assert.Equal(t, "syntax error", FatalPatterns()[0])
}
