// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	assert.Equal(t, "api.tomtom.com", c.BaseURL)
	assert.Equal(t, 1, c.Version)
	assert.Equal(t, "", c.Key)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 60*time.Second, c.QueueLoopDuration)
	assert.Nil(t, c.Proxy)
	assert.Contains(t, c.HomeFolder, ".tomtom-api")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TOMTOM_API_BASE_URL", "stats.example.com")
	t.Setenv("TOMTOM_API_VERSION", "2")
	t.Setenv("TOMTOM_API_KEY", "secret")
	t.Setenv("TOMTOM_API_LOG_LEVEL", "debug")
	t.Setenv("TOMTOM_API_HOME_FOLDER", "/var/lib/tomtom")
	t.Setenv("TOMTOM_API_QUEUE_LOOP_DURATION", "5")

	c, err := New()
	require.NoError(t, err)

	assert.Equal(t, "stats.example.com", c.BaseURL)
	assert.Equal(t, 2, c.Version)
	assert.Equal(t, "secret", c.Key)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "/var/lib/tomtom", c.HomeFolder)
	assert.Equal(t, 5*time.Second, c.QueueLoopDuration)
}

func TestProxyAllOrNone(t *testing.T) {
	t.Setenv("TOMTOM_API_PROXY_IP", "10.0.0.1")
	t.Setenv("TOMTOM_API_PROXY_PORT", "3128")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOMTOM_API_PROXY_USERNAME")

	t.Setenv("TOMTOM_API_PROXY_USERNAME", "user")
	t.Setenv("TOMTOM_API_PROXY_PASSWORD", "pass")

	c, err := New()
	require.NoError(t, err)
	require.NotNil(t, c.Proxy)
	assert.Equal(t, "10.0.0.1", c.Proxy.IP)
	assert.Equal(t, 3128, c.Proxy.Port)
	assert.Equal(t, "user", c.Proxy.Username)
	assert.Equal(t, "pass", c.Proxy.Password)
}

func TestHomeFolderPaths(t *testing.T) {
	t.Setenv("TOMTOM_API_HOME_FOLDER", "/var/lib/tomtom")

	c, err := New()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/var/lib/tomtom", "db.parquet"), c.DatabaseFile())
	assert.Equal(t, filepath.Join("/var/lib/tomtom", "payloads"), c.PayloadFolder())
	assert.Equal(t, filepath.Join("/var/lib/tomtom", "daemon.log"), c.DaemonLogFile())
	assert.Equal(t, filepath.Join("/var/lib/tomtom", "daemon.pid"), c.PidFile())
}

func TestEnvVarNames(t *testing.T) {
	assert.Equal(t, "TOMTOM_API_BASE_URL", EnvVar(KeyBaseURL))
	assert.Equal(t, "TOMTOM_API_QUEUE_LOOP_DURATION", EnvVar(KeyQueueLoopDuration))
	assert.Len(t, EnvVars(), 11)
}
