package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/bundlekit/internal/build"
	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/devserver"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "dev"},
	Short:   "Start the live-reload development server",
	Long: `Compile in watch mode with a live-reload client injected into every entry
point and serve the output. Browsers reload after each successful rebuild
and show compile errors in an overlay otherwise.

Routes:
  <publicPath>    bundle output
  /__livereload   live-reload websocket
  /__status       build status page
  /metrics        Prometheus metrics
  /health         health check

Examples:
  bundlekit serve                   # http://localhost:8080
  bundlekit serve --port 3000
  BUNDLEKIT_DEVSERVER_HOST=0.0.0.0 bundlekit serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("host", "H", "localhost", "Host to bind to")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	_ = viper.BindPFlag("devserver.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("devserver.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	metrics := build.NewMetrics(nil)
	controller := newController(settings, config.Command{Watch: true, Env: settings.Env}, metrics)

	server := devserver.New(devserver.Options{
		Settings:   settings.DevServer,
		Project:    settings.Project.Name,
		Root:       settings.Project.Root,
		CacheDir:   cacheDir(settings),
		Controller: controller,
		Metrics:    metrics,
		Logger:     logger,
	})

	return server.Start(cmd.Context())
}
