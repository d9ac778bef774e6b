package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBotConfig_File(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("GUILD_ID", "")
	t.Setenv("SETTINGS_PATH", "")

	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
token: abc
guild_id: "123"
attribution: stream
sweep_interval: 1m
redis:
  addr: localhost:6379
`), 0o644))

	cfg, err := LoadBotConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, "123", cfg.GuildID)
	assert.Equal(t, AttributionStream, cfg.Attribution)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "!", cfg.CommandPrefix, "defaults survive a partial file")
	assert.Equal(t, BackendFile, cfg.SettingsBackend)
}

func TestLoadBotConfig_EnvOnly(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "envtoken")
	t.Setenv("GUILD_ID", "456")
	t.Setenv("SETTINGS_PATH", "/tmp/antinuke.json")

	cfg, err := LoadBotConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "envtoken", cfg.Token)
	assert.Equal(t, "456", cfg.GuildID)
	assert.Equal(t, "/tmp/antinuke.json", cfg.SettingsPath)
	assert.Equal(t, AttributionLookup, cfg.Attribution)
}

func TestLoadBotConfig_Invalid(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("GUILD_ID", "")
	t.Setenv("SETTINGS_PATH", "")

	cases := map[string]string{
		"no token":       `guild_id: "1"`,
		"guild not id":   "token: x\nguild_id: general",
		"bad mode":       "token: x\nguild_id: \"1\"\nattribution: guess",
		"bad backend":    "token: x\nguild_id: \"1\"\nsettings_backend: sqlite",
		"lookup too big": "token: x\nguild_id: \"1\"\naudit_lookup_limit: 500",
		"not yaml":       "token: [x",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bot.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadBotConfig(path)
			assert.Error(t, err)
		})
	}
}
