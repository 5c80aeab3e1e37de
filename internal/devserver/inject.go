// Package devserver serves development builds with live reload.
//
// Every configured entry point is prefixed with a small browser client that
// connects back to the server over a websocket and reloads the page after
// each successful rebuild.
package devserver

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
)

// ClientFile is the live-reload client's path relative to the cache
// directory.
const ClientFile = "livereload/client.js"

//go:embed assets/client.js
var clientScript []byte

// ClientRef is the entry reference for the live-reload client. The bundler
// exposes the query part to the client, which reads the server URL from it.
func ClientRef(clientPath, host string, port int) string {
	return fmt.Sprintf("%s?http://%s:%d", clientPath, host, port)
}

// InjectEntries returns a copy of cfg whose every entry is [clientRef,
// absolute path of the original entry]. An entry that was already a list
// keeps only its main module.
func InjectEntries(cfg *bundleconfig.Config, clientRef, root string) *bundleconfig.Config {
	out := cfg.Clone()
	if out == nil {
		return nil
	}
	for name, entry := range out.Entry {
		main := entry.Main()
		if !filepath.IsAbs(main) {
			main = filepath.Join(root, main)
		}
		out.Entry[name] = bundleconfig.EntryPoint{clientRef, main}
	}
	return out
}

// WriteClient writes the live-reload client under cacheDir and returns its
// absolute path.
func WriteClient(cacheDir string) (string, error) {
	path := filepath.Join(cacheDir, filepath.FromSlash(ClientFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, clientScript, 0o644); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}
