package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateArgument(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		wantErr bool
	}{
		{name: "plain flag", arg: "--mode=production", wantErr: false},
		{name: "relative path", arg: "./webpack", wantErr: false},
		{name: "absolute path", arg: "/tmp/bundle.config.json", wantErr: false},
		{name: "semicolon", arg: "build; rm -rf /", wantErr: true},
		{name: "pipe", arg: "build | cat", wantErr: true},
		{name: "backtick", arg: "build`whoami`", wantErr: true},
		{name: "subshell", arg: "$(id)", wantErr: true},
		{name: "traversal", arg: "../../etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgument(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	allowed := map[string]bool{"webpack": true, "esbuild": true}

	assert.NoError(t, ValidateCommand("webpack", allowed))
	assert.NoError(t, ValidateCommand("node_modules/.bin/webpack", allowed))
	assert.NoError(t, ValidateCommand("rollup", nil))
	assert.Error(t, ValidateCommand("rollup", allowed))
	assert.Error(t, ValidateCommand("", nil))
	assert.Error(t, ValidateCommand("webpack;ls", nil))
}

func TestValidateRelativePath(t *testing.T) {
	assert.NoError(t, ValidateRelativePath(".bundlekit/cache"))
	assert.NoError(t, ValidateRelativePath("bundle.overrides.yml"))
	assert.Error(t, ValidateRelativePath(""))
	assert.Error(t, ValidateRelativePath("/var/cache"))
	assert.Error(t, ValidateRelativePath("../outside"))
	assert.Error(t, ValidateRelativePath("cache;rm"))
}

func TestValidateHost(t *testing.T) {
	assert.NoError(t, ValidateHost("localhost"))
	assert.NoError(t, ValidateHost("127.0.0.1"))
	assert.Error(t, ValidateHost("localhost;rm"))
	assert.Error(t, ValidateHost("local host"))
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"http://localhost:8080", "127.0.0.1:8080"}

	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{"exact origin", "http://localhost:8080", false},
		{"host match", "http://127.0.0.1:8080", false},
		{"other port", "http://localhost:9000", true},
		{"bad scheme", "file://localhost:8080", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrigin(tt.origin, allowed)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
