package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	LoadDefault()

	assert.Equal(t, "info", Logger().Level)
	assert.Equal(t, 1337, Http().Port)
	assert.Equal(t, "quill", Postgres().Database)
	assert.Equal(t, "admin-registration", Admin().Registration.EmailTemplate)
}

func TestLoadFromFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "quill.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
common:
  http:
    port: 9090
  admin:
    registration:
      from: admins@example.com
`), 0o600))

	require.NoError(t, LoadFromFile(file))

	assert.Equal(t, 9090, Http().Port)
	assert.Equal(t, "admins@example.com", Admin().Registration.From)
	// untouched values keep their defaults
	assert.Equal(t, "localhost", Postgres().Host)
}

func TestApplyEnvOverridesWins(t *testing.T) {
	LoadDefault()

	t.Setenv("QUILL_DB_HOST", "db.internal")
	t.Setenv("QUILL_HTTP_PORT", "8081")
	t.Setenv("QUILL_REGISTRATION_REPLY_TO", "support@example.com")

	ApplyEnvOverrides()

	assert.Equal(t, "db.internal", Postgres().Host)
	assert.Equal(t, 8081, Http().Port)
	assert.Equal(t, "support@example.com", Admin().Registration.ReplyTo)
}
