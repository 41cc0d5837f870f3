package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, config.DefaultAuthorityHost, cfg.Verification.AuthorityHost)
	assert.Equal(t, config.DefaultSponsorKeyword, cfg.Verification.SponsorKeyword)
	assert.Equal(t, config.DefaultPremiumMonths, cfg.Premium.DurationMonths)
	assert.Equal(t, 2*time.Minute, cfg.Media.TTL())
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxIdle())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sambot.toml")
	content := `
[log]
level = "debug"
format = "json"

[telegram]
token = "123:abc"
admin_chat_id = 42

[verification]
max_age_months = 6

[media]
ttl_seconds = 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminChatID)
	assert.Equal(t, 6, cfg.Verification.MaxAgeMonths)
	assert.Equal(t, 30*time.Second, cfg.Media.TTL())
	// untouched sections keep defaults
	assert.Equal(t, config.DefaultAIModel, cfg.AI.Model)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sambot.toml")
	require.NoError(t, os.WriteFile(path, []byte("[media]\nmax_bytes = -1\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}
