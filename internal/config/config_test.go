package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_DSN", "postgres://localhost/auditline")
	t.Setenv("OPENAI_CHAT_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, 500, cfg.OpenAI.MaxTokens)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, "gpt-4o-realtime-preview", cfg.Voice.Model)
	assert.Equal(t, 24000, cfg.Voice.SampleRate)
}

// chdir switches to dir for the duration of the test, restoring the
// previous working directory on cleanup. Equivalent to t.Chdir, which
// requires Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoad_ReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := "OPENAI_API_KEY=sk-from-file\nDATABASE_DSN=postgres://localhost/fromfile\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))
	chdir(t, dir)

	// t.Setenv registers the restore; the unset makes the keys absent so
	// the file values are visible.
	for _, key := range []string{"OPENAI_API_KEY", "DATABASE_DSN"} {
		t.Setenv(key, "placeholder")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "postgres://localhost/fromfile", cfg.Database.DSN)
}

func TestLoad_EnvironmentWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "OPENAI_API_KEY=sk-from-file\nDATABASE_DSN=postgres://localhost/fromfile\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))
	chdir(t, dir)

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("DATABASE_DSN", "postgres://localhost/fromenv")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "postgres://localhost/fromenv", cfg.Database.DSN)
}

func TestLoad_MissingAPIKeyFails(t *testing.T) {
	// t.Setenv registers the restore; the unset makes the key absent
	// rather than empty, which is what env-required checks.
	t.Setenv("OPENAI_API_KEY", "placeholder")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("DATABASE_DSN", "postgres://localhost/auditline")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_DSN", "postgres://localhost/auditline")
	t.Setenv("OPENAI_MAX_TOKENS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}
