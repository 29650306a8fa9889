// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macq/tomtom-api/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Commit != "" {
			fmt.Printf("tomtom %s (%s)\n", version.Version, version.Commit)
			return
		}
		fmt.Printf("tomtom %s\n", version.Version)
	},
}

func init() {
	TomtomCmd.AddCommand(versionCmd)
}
