// Package scaffolding creates the starter files of a new bundlekit project.
package scaffolding

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates
var templateFS embed.FS

// files maps template names to their project-relative destinations.
var files = map[string]string{
	"templates/src/entry.js.tmpl":    "src/entry.js",
	"templates/src/styles.scss.tmpl": "src/styles.scss",
	"templates/index.html.tmpl":      "index.html",
	"templates/eslintrc.json.tmpl":   ".eslintrc.json",
}

// TemplateContext is the data the starter templates are rendered with.
type TemplateContext struct {
	ProjectName string
	Title       string
	PublicPath  string
}

// ProjectGenerator writes the starter files into a project directory.
type ProjectGenerator struct {
	FS      afero.Fs
	Root    string
	Context TemplateContext
	// Force overwrites existing files instead of skipping them.
	Force bool
}

// Result lists what Generate did, as project-relative paths.
type Result struct {
	Created []string
	Skipped []string
}

// NewProjectGenerator creates a generator writing to the OS filesystem.
func NewProjectGenerator(root, projectName, publicPath string) *ProjectGenerator {
	if publicPath == "" {
		publicPath = "/dist/"
	}
	return &ProjectGenerator{
		FS:   afero.NewOsFs(),
		Root: root,
		Context: TemplateContext{
			ProjectName: projectName,
			Title:       cases.Title(language.English).String(projectName),
			PublicPath:  publicPath,
		},
	}
}

// Files returns the project-relative paths Generate writes.
func Files() []string {
	out := make([]string, 0, len(files))
	for _, dest := range files {
		out = append(out, dest)
	}
	sort.Strings(out)
	return out
}

// Generate renders every template into the project. Existing files are
// left alone unless Force is set.
func (g *ProjectGenerator) Generate() (*Result, error) {
	if err := g.FS.MkdirAll(filepath.Join(g.Root, "src"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create src directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &Result{}
	for _, name := range names {
		dest := files[name]
		path := filepath.Join(g.Root, filepath.FromSlash(dest))

		exists, err := afero.Exists(g.FS, path)
		if err != nil {
			return result, fmt.Errorf("failed to check %s: %w", dest, err)
		}
		if exists && !g.Force {
			result.Skipped = append(result.Skipped, dest)
			continue
		}

		if err := g.generateFile(path, name); err != nil {
			return result, fmt.Errorf("failed to generate %s: %w", dest, err)
		}
		result.Created = append(result.Created, dest)
	}

	return result, nil
}

// generateFile renders template name to path.
func (g *ProjectGenerator) generateFile(path, name string) error {
	tmpl, err := template.ParseFS(templateFS, name)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, g.Context); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	if err := g.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(g.FS, path, buf.Bytes(), os.FileMode(0o644))
}
