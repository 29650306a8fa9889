// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

// Package version holds the build version, set through ldflags at release.
package version

var (
	// Version is the version of the tomtom binary.
	Version = "0.9.0"
	// Commit is the git commit the binary was built from.
	Commit = ""
)
