// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package main

import (
	"os"

	"github.com/macq/tomtom-api/cmd/tomtom/app"
	"github.com/macq/tomtom-api/pkg/util/log"
)

func main() {
	defer log.Flush()

	if err := app.TomtomCmd.Execute(); err != nil {
		log.Error(err) //nolint:errcheck
		os.Exit(-1)
	}
}
