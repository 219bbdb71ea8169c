// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("A2A_HOST", "")
	t.Setenv("A2A_PORT", "")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultHost, c.Host)
	require.Equal(t, DefaultPort, c.Port)
	require.Equal(t, DefaultQueueCapacityPerTask, c.QueueCapacityPerTask)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("A2A_PORT", "9090")
	t.Setenv("A2A_PEERS", "weather=http://localhost:9001,time=http://localhost:9002")
	t.Setenv("A2A_AUTH_SCHEMES", "bearer, apikey")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, c.Port)
	require.Len(t, c.Peers, 2)
	require.Equal(t, "weather", c.Peers[0].Name)
	require.Equal(t, []string{"bearer", "apikey"}, c.AuthSchemes)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("A2A_PORT", "99999")
	_, err := Load()
	require.Error(t, err)
}
