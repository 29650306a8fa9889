// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePID(t *testing.T) {
	dir := t.TempDir()

	pidFilePath := filepath.Join(dir, "this_should_be_created", "daemon.pid")
	err := WritePID(pidFilePath)
	assert.NoError(t, err)
	data, err := os.ReadFile(pidFilePath)
	assert.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	assert.NoError(t, err)
	assert.Equal(t, pid, os.Getpid())
}

func TestWritePIDRefusesLiveProcess(t *testing.T) {
	pidFilePath := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, WritePID(pidFilePath))

	// the recorded pid is our own, so it is alive
	assert.Error(t, WritePID(pidFilePath))
}

func TestWritePIDReplacesStaleFile(t *testing.T) {
	pidFilePath := filepath.Join(t.TempDir(), "daemon.pid")
	// pids are recycled long before this value on any supported platform
	require.NoError(t, os.WriteFile(pidFilePath, []byte("4194304\n"), 0644))

	assert.NoError(t, WritePID(pidFilePath))
	pid, err := ReadPID(pidFilePath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsProcess(t *testing.T) {
	assert.True(t, isProcess(os.Getpid()))
}

func TestRemoveMissing(t *testing.T) {
	assert.NoError(t, Remove(filepath.Join(t.TempDir(), "nope.pid")))
}
