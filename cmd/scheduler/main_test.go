package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdFlags(t *testing.T) {
	t.Setenv("STATS_AGGREGATE_INTERVAL", "10m")
	cmd := newRootCmd()

	interval, err := cmd.Flags().GetDuration("interval")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, interval)

	once, err := cmd.Flags().GetBool("once")
	require.NoError(t, err)
	assert.False(t, once)
}

func TestRunOnceWithoutServiceKeyFails(t *testing.T) {
	t.Setenv("STATS_SERVICE_KEY", "")
	t.Setenv("LOG_LEVEL", "fatal")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--once", "--url", "http://127.0.0.1:1/api/internal/stats/aggregate"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	assert.Error(t, cmd.Execute())
}
