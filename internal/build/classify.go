package build

import (
	"strings"

	"github.com/conneroisu/bundlekit/internal/bundler"
)

// fatalPatterns are lower-case substrings marking a diagnostic as a
// syntax or parse failure rather than a style check.
var fatalPatterns = []string{
	"syntax error",
	"parsing error",
	"unexpected token",
	"error compiling template",
	"syntaxerror",
	"module build failed",
}

// FatalPatterns returns the substrings IsFatalOnly looks for.
func FatalPatterns() []string {
	return append([]string(nil), fatalPatterns...)
}

// IsFatalOnly reports whether any error diagnostic in stats looks like a
// syntax or parse failure.
//
// Bundlers report broken syntax and lint failures through the same error
// list, so this is a best-effort match on message text. A lint rule whose
// message happens to contain one of the patterns is reported as fatal.
func IsFatalOnly(stats *bundler.Stats) bool {
	if stats == nil || len(stats.Errors) == 0 {
		return false
	}
	for _, d := range stats.Errors {
		if isFatalMessage(d.Message) {
			return true
		}
	}
	return false
}

func isFatalMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range fatalPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Classification is the classified result of one compilation.
type Classification struct {
	// Fatal is the IsFatalOnly result for the compilation's stats.
	Fatal bool
	// Diagnostics are the extracted errors, a top-level failure first.
	Diagnostics []bundler.Diagnostic
}
