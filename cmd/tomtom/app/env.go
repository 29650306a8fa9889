// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/macq/tomtom-api/pkg/config"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the recognized environment variables and their current values",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range config.EnvVars() {
			value, set := os.LookupEnv(name)
			if !set {
				fmt.Printf("%s (unset)\n", name)
				continue
			}
			fmt.Printf("%s=%s\n", name, value)
		}
		return nil
	},
}

func init() {
	TomtomCmd.AddCommand(envCmd)
}
