package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"discord-antinuke-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	ctx := context.Background()

	s := Settings{
		BanThreshold:      5,
		DeletionThreshold: 2,
		TimeWindow:        30,
		LogChannelID:      123456789012345678,
		Whitelist:         []models.ActorID{3, 1, 3},
	}
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.BanThreshold)
	assert.Equal(t, 2, loaded.DeletionThreshold)
	assert.Equal(t, 30, loaded.TimeWindow)
	assert.Equal(t, uint64(123456789012345678), loaded.LogChannelID)
	assert.Equal(t, []models.ActorID{1, 3}, loaded.Whitelist)
}

func TestFileStore_Missing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":        "{threshold_bans: 3",
		"not an object":   "[1,2,3]",
		"wrong type":      `{"threshold_bans": "three"}`,
		"invalid values":  `{"time_window": 0}`,
		"window overflow": `{"time_window": 9300000000}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := NewFileStore(path).Load(context.Background())
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFileStore_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"threshold_bans": 7}`), 0o644))

	s, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, s.BanThreshold)
	assert.Equal(t, DefaultDeletionThreshold, s.DeletionThreshold)
	assert.Equal(t, DefaultTimeWindow, s.TimeWindow)
	assert.Empty(t, s.LogChannel())
}

func TestFileStore_SaveToMissingDir(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope", "config.json"))
	err := store.Save(context.Background(), DefaultSettings())
	assert.ErrorIs(t, err, ErrConfigIO)
}
