package config

// Command describes what the caller asked for. It is built once by the CLI
// layer and not modified afterwards.
type Command struct {
	// Watch keeps the compiler running and recompiles on change. For the
	// test command it switches the runner to its watch mode.
	Watch bool
	// Cover runs the test runner under the coverage instrument.
	Cover bool
	// Env is the build environment, dev or prod.
	Env string
}
