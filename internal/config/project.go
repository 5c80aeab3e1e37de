package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// PackageName returns the "name" field of root/package.json, falling back
// to the directory's base name.
func PackageName(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err == nil {
		var pkg struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(data, &pkg) == nil && pkg.Name != "" {
			return pkg.Name
		}
	}

	return filepath.Base(root)
}

// LoadDotEnv loads root/.env into the process environment without
// overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return godotenv.Load(path)
}
