package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCommandStructure(t *testing.T) {
	assert.NotNil(t, statsCmd)
	assert.Equal(t, "stats", statsCmd.Use)
	assert.NotEmpty(t, statsCmd.Short)
	assert.NotEmpty(t, statsCmd.Long)
	assert.NotNil(t, statsCmd.RunE)
}

func TestStatsCommandFlags(t *testing.T) {
	outFlag := statsCmd.Flags().Lookup("out")
	require.NotNil(t, outFlag)
	assert.Equal(t, "", outFlag.DefValue)
}

func TestStatsIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "stats" {
			found = true
			break
		}
	}
	assert.True(t, found, "stats command should be added to root command")
}

func TestRunStatsWithoutQueries(t *testing.T) {
	writeFixtures(t, testConfigYAML, testSchemaYAML)

	err := runStats(statsCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no src-stats queries configured")
}
