package config

import (
	"os"
	"path/filepath"
	"testing"

	"ddsconv/contracts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, EnvConfigPath)
	unsetenv(t, EnvLogLevel)

	res, err := NewLoader().WithDotEnv("").Load("")
	require.NoError(t, err)
	assert.Equal(t, contracts.DefaultInputFlags(), res.Flags)
	assert.Empty(t, res.Path)
}

func TestLoadYAML(t *testing.T) {
	unsetenv(t, EnvLogLevel)
	path := writeFile(t, "ddsconv.yaml", `
input: ./textures
output: ./png
resize: 128x64
saturation: 150
sharpen: true
workers: 4
`)

	res, err := NewLoader().WithDotEnv("").Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "./textures", res.Flags.InputDir)
	assert.Equal(t, "./png", res.Flags.OutputDir)
	assert.Equal(t, "128x64", res.Flags.Resize)
	assert.Equal(t, 150, res.Flags.Saturation)
	assert.Equal(t, 4, res.Flags.Workers)
	assert.True(t, res.Flags.Sharpen)
	assert.True(t, res.Flags.KeepAlpha)
	assert.Equal(t, "dds2png", res.Flags.Mode)
}

func TestLoadEmptyYAML(t *testing.T) {
	unsetenv(t, EnvLogLevel)
	res, err := NewLoader().WithDotEnv("").Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, contracts.DefaultInputFlags(), res.Flags)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	for name, content := range map[string]string{
		"unknown key": "quality: 90\n",
		"bad type":    "workers: many\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader().WithDotEnv("").Load(writeFile(t, "bad.yaml", content))
			require.Error(t, err)
			assert.True(t, contracts.IsKind(err, contracts.KindValidation))
		})
	}

	_, err := NewLoader().WithDotEnv("").Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, contracts.IsKind(err, contracts.KindValidation))
}

func TestLoadFromEnvironment(t *testing.T) {
	path := writeFile(t, "env.yaml", "mode: png2dds\nlog_level: warn\n")
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvLogLevel, "debug")

	res, err := NewLoader().WithDotEnv("").Load("")
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "png2dds", res.Flags.Mode)
	assert.Equal(t, "debug", res.Flags.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	unsetenv(t, EnvConfigPath)
	unsetenv(t, EnvLogLevel)
	yamlPath := writeFile(t, "from-dotenv.yaml", "blur: true\n")
	dotEnv := writeFile(t, ".env", EnvConfigPath+"="+yamlPath+"\n"+EnvLogLevel+"=error\n")

	res, err := NewLoader().WithDotEnv(dotEnv).Load("")
	require.NoError(t, err)
	assert.True(t, res.Flags.Blur)
	assert.Equal(t, "error", res.Flags.LogLevel)

	_, err = NewLoader().WithDotEnv(filepath.Join(t.TempDir(), ".env")).Load("")
	assert.NoError(t, err)
}

func TestMerge(t *testing.T) {
	base := contracts.DefaultInputFlags()
	base.InputDir = "from-yaml"
	base.Saturation = 150

	cli := contracts.DefaultInputFlags()
	cli.InputDir = "from-flag"
	cli.KeepAlpha = false
	cli.Saturation = 100

	got := Merge(base, cli, map[string]bool{"input": true, "keep-alpha": true})
	assert.Equal(t, "from-flag", got.InputDir)
	assert.False(t, got.KeepAlpha)
	assert.Equal(t, 150, got.Saturation)
}

func TestMergeKnowsEveryFlag(t *testing.T) {
	for _, name := range []string{
		"mode", "input", "output", "keep-alpha", "resize", "brightness", "contrast",
		"saturation", "sharpen", "blur", "png-compression", "workers", "contact-sheet",
		"log-level", "log-json",
	} {
		assert.Contains(t, setters, name)
	}
}
