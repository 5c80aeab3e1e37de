package bundleconfig

import (
	"path/filepath"
)

// BaseOptions parameterizes the base configuration.
type BaseOptions struct {
	// Env is "dev" or "prod".
	Env string
	// Root is the absolute project root.
	Root string
	// Name is the project's package name; output goes to dist/<Name>.
	Name string
	// ToolModules is where the bundler should look for loaders shipped
	// alongside bundlekit, searched before the project's node_modules.
	ToolModules string
	// Test marks builds running under the test-suppression flag.
	Test bool
}

var targetBrowsers = []any{
	"Chrome >= 41",
	"Firefox > 57",
	"iOS > 7",
	"Safari >= 9",
	"Explorer >= 11",
	"Edge >= 15",
}

// Base returns the default build configuration for the given environment.
func Base(opts BaseOptions) *Config {
	dev := opts.Env == "dev"
	prod := opts.Env == "prod"

	filename := "[name].bundle.js"
	if prod {
		filename = "[name].bundle-[hash].js"
	}
	cssFilename := "[name].bundle.css"
	if !dev {
		cssFilename = "[name].bundle-[contenthash].css"
	}
	devtool := "source-map"
	if dev {
		devtool = "eval-source-map"
	}
	sassStyle := "nested"
	if prod {
		sassStyle = "compressed"
	}

	loaderModules := []string{filepath.Join(opts.Root, "node_modules")}
	if opts.ToolModules != "" {
		loaderModules = append([]string{opts.ToolModules}, loaderModules...)
	}

	postcss := Loader{Loader: "postcss-loader", Options: map[string]any{
		"plugins": []any{"postcss-import", "autoprefixer"},
	}}

	return &Config{
		Entry: map[string]EntryPoint{
			"app": {filepath.Join(opts.Root, "src", "entry.js")},
		},
		Output: Output{
			Path:       filepath.Join(opts.Root, "dist", opts.Name),
			Filename:   filename,
			PublicPath: "/dist/",
		},
		Resolve: Resolve{
			Extensions: []string{".js", ".json", ".vue", ".scss", ".css"},
		},
		Devtool: devtool,
		ResolveLoader: ResolveLoader{
			Modules: loaderModules,
		},
		Module: Module{
			Rules: []Rule{
				{
					Test:    `\.js|\.jsx$`,
					Exclude: "(node_modules)",
					Use: []Loader{{Loader: "babel-loader", Options: map[string]any{
						"cacheDirectory": filepath.Join(opts.Root, ".babelcache"),
						"presets": []any{
							[]any{"babel-preset-env", map[string]any{
								"targets": map[string]any{"browsers": targetBrowsers},
							}},
							"babel-preset-es2015-riot",
						},
					}}},
				},
				{
					Enforce: "pre",
					Test:    `\.jsx?$`,
					Include: opts.Root,
					Use: []Loader{{Loader: "eslint-loader", Options: map[string]any{
						"fix":           false,
						"failOnWarning": false,
						"failOnError":   false,
						"emitError":     false,
						"emitWarning":   false,
					}}},
				},
				{Test: `\.tag$`, Exclude: "node_modules", Loader: "riot-tag-loader"},
				{Test: `\.vue$`, Exclude: "node_modules", Loader: "vue-loader"},
				{
					Test: `\.(s[ac]|c)ss$`,
					Use: []Loader{
						{Loader: "css-loader"},
						postcss,
						{Loader: "sass-loader", Options: map[string]any{"outputStyle": sassStyle}},
					},
				},
				{
					Test: `\.less$`,
					Use: []Loader{
						{Loader: "css-loader", Options: map[string]any{
							"minimize":  prod,
							"sourceMap": !prod,
						}},
						postcss,
						{Loader: "less-loader"},
					},
				},
				{Test: `\.svg$`, Loader: "file-loader", Options: map[string]any{"emitFile": false}},
			},
		},
		Plugins: []Plugin{
			{Name: "extract-text", Options: map[string]any{"filename": cssFilename}},
			{Name: "asset-tag-frag", Options: map[string]any{"test": opts.Test}},
			{Name: "manifest"},
			{Name: "uglifyjs", Options: map[string]any{
				"sourceMap":     prod,
				"uglifyOptions": map[string]any{"compress": prod},
			}},
		},
	}
}
