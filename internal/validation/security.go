// Package validation provides the checks bundlekit applies to user-supplied
// commands, arguments, paths and origins before they reach a subprocess or
// the dev server.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

var shellMetachars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}

// ValidateArgument rejects arguments carrying shell metacharacters or
// parent-directory traversal. Arguments are passed to exec directly, never
// through a shell, so this guards against configuration that was written
// for one.
func ValidateArgument(arg string) error {
	for _, char := range shellMetachars {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %q", char)
		}
	}

	if strings.Contains(filepath.ToSlash(arg), "../") || arg == ".." {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	return nil
}

// ValidateCommand validates an executable name. When allowed is non-nil the
// command's base name must be in it.
func ValidateCommand(command string, allowed map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if allowed != nil && !allowed[filepath.Base(command)] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateRelativePath checks that path stays inside the project root.
func ValidateRelativePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)
	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path should be relative: %s", path)
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %s", path)
	}

	for _, char := range []string{";", "&", "|", "$", "`", "<", ">"} {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateHost rejects host names with shell or URL metacharacters.
func ValidateHost(host string) error {
	for _, char := range shellMetachars {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %q", char)
		}
	}
	if strings.ContainsAny(host, " /?#") {
		return fmt.Errorf("host contains invalid character: %s", host)
	}

	return nil
}

// ValidateOrigin validates a WebSocket origin against the allowed list.
// Entries may be full origins ("http://localhost:8080") or bare hosts
// ("localhost:8080").
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
