package main

import (
	"bytes"
	"testing"

	"discord-antinuke-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const scenarioYAML = `
settings:
  threshold_bans: 3
  time_window: 60
  whitelist: [99]
self: 1
events:
  - {at: 0s, actor: 7, category: ban}
  - {at: 20s, actor: 7, category: ban}
  - {at: 40s, actor: 7, category: ban}
  - {at: 41s, actor: 99, category: ban}
  - {at: 42s, actor: 1, category: ban}
  - {at: 65s, actor: 7, category: ban}
  - {at: 66s, actor: 8, category: channel_deletion}
  - {at: 67s, actor: 8, category: role_deletion}
  - {at: 68s, actor: 8, category: role_deletion}
`

func TestReplay_Scenario(t *testing.T) {
	var sc Scenario
	require.NoError(t, yaml.Unmarshal([]byte(scenarioYAML), &sc))
	require.Len(t, sc.Events, 9)

	results, err := Replay(sc)
	require.NoError(t, err)

	var triggered []int
	for i, r := range results {
		if r.Report != nil {
			triggered = append(triggered, i)
		}
	}
	assert.Equal(t, []int{2, 5, 8}, triggered)
	assert.Equal(t, 3, results[5].Report.Count, "t=0 is purged at t=65")
	assert.Equal(t, models.CategoryRoleDeletion, results[8].Report.Category)

	var out bytes.Buffer
	require.NoError(t, Print(&out, results))
	assert.Contains(t, out.String(), "BAN: Mass ban (3 bans in 60 seconds)")
}

func TestReplay_RejectsBadInput(t *testing.T) {
	_, err := Replay(Scenario{Events: []ScenarioEvent{
		{At: 10, Actor: 1, Category: models.CategoryBan},
		{At: 5, Actor: 1, Category: models.CategoryBan},
	}})
	assert.Error(t, err)

	_, err = Replay(Scenario{Settings: ScenarioSettings{TimeWindow: -1}})
	assert.Error(t, err)

	var sc Scenario
	assert.Error(t, yaml.Unmarshal([]byte("events: [{category: kick}]"), &sc))
}
