package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageError(t *testing.T) {
	t.Parallel()

	app, err := New()
	require.NoError(t, err)

	// Test when SilenceUsage is true
	app.cmd.SilenceUsage = true
	assert.False(t, app.UsageError())

	// Test when SilenceUsage is false
	app.cmd.SilenceUsage = false
	assert.True(t, app.UsageError())
}

func TestRootCmd(t *testing.T) {
	t.Parallel()

	app, err := New()
	require.NoError(t, err)

	cmd := app.RootCmd()

	assert.NotNil(t, cmd, "Returned root cmd should not be nil")
	assert.Equal(t, "nifcloud", cmd.Name())
	for _, sub := range []string{"services", "regions", "operations", "call", "wait", "docs", "version"} {
		found, _, err := cmd.Find([]string{sub})
		require.NoError(t, err, "Subcommand %s should exist", sub)
		assert.Equal(t, sub, found.Name())
	}
}
