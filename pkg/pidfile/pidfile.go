// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

// Package pidfile guards the daemon against double starts through a pid file.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// WritePID writes the current process pid to the given path. The parent
// directory is created if needed. An existing pid file whose process is
// still alive is an error; a stale one is replaced.
func WritePID(pidFilePath string) error {
	if pid, err := ReadPID(pidFilePath); err == nil {
		if isProcess(pid) {
			return fmt.Errorf("pid file %s already exists and process %d is running", pidFilePath, pid)
		}
		// stale pid file, take it over
		os.Remove(pidFilePath) //nolint:errcheck
	}

	if err := os.MkdirAll(filepath.Dir(pidFilePath), os.FileMode(0755)); err != nil {
		return err
	}

	return os.WriteFile(pidFilePath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// ReadPID returns the pid recorded in the given pid file.
func ReadPID(pidFilePath string) (int, error) {
	data, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", pidFilePath, err)
	}
	return pid, nil
}

// IsProcessAlive reports whether the pid recorded in the given pid file
// belongs to a running process.
func IsProcessAlive(pidFilePath string) bool {
	pid, err := ReadPID(pidFilePath)
	if err != nil {
		return false
	}
	return isProcess(pid)
}

// Remove deletes the pid file. A missing file is not an error.
func Remove(pidFilePath string) error {
	err := os.Remove(pidFilePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func isProcess(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}
