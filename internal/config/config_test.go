package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
  mode: debug
jwt:
  secret: test-secret
  expire_hours: 2
storage:
  type: minio
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 6, cfg.Verification.CodeLength)
	assert.Equal(t, 10*time.Minute, cfg.Verification.CodeTTL())
	assert.Equal(t, 60*time.Second, cfg.Verification.ResendCooldown())
	assert.Equal(t, 30*time.Minute, cfg.Verification.GateTTL())
	assert.Equal(t, int64(10<<20), cfg.Notes.MaxUploadBytes())
	assert.Equal(t, 1, cfg.Admin.MinLevel)
}

func TestLoadConfigRejectsShortSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
storage:
  type: minio
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadCodeLength(t *testing.T) {
	dir := writeConfig(t, `
jwt:
  secret: test-secret
storage:
  type: minio
verification:
  code_length: 2
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
