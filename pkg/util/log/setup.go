// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package log

import (
	"fmt"
	"strings"

	"github.com/cihub/seelog"
)

const logFileMaxSize = 10 * 1024 * 1024         // 10MB
const logDateFormat = "2006-01-02 15:04:05 MST" // see time.Format for format syntax

// BuildLogger returns a seelog logger writing to the console. If logFile is
// not empty a size-capped rolling file receiver is added.
func BuildLogger(logLevel, logFile string) (seelog.LoggerInterface, error) {
	configTemplate := `<seelog minlevel="%s">
    <outputs formatid="common">
        <console />`
	if logFile != "" {
		configTemplate += fmt.Sprintf(`<rollingfile type="size" filename="%s" maxsize="%d" maxrolls="1" />`, logFile, logFileMaxSize)
	}
	configTemplate += `</outputs>
    <formats>
        <format id="common" format="%%Date(%s) | %%LEVEL | (%%RelFile:%%Line) | %%Msg%%n"/>
    </formats>
</seelog>`
	config := fmt.Sprintf(configTemplate, strings.ToLower(logLevel), logDateFormat)

	return seelog.LoggerFromConfigAsString(config)
}

// BuildFileLogger returns a seelog logger appending to the given file only.
// The daemon registers it as an additional logger once it owns its home
// directory.
func BuildFileLogger(logLevel, logFile string) (seelog.LoggerInterface, error) {
	config := fmt.Sprintf(`<seelog minlevel="%s">
    <outputs formatid="common">
        <file path="%s" />
    </outputs>
    <formats>
        <format id="common" format="%%Date(%s) | %%LEVEL | (%%RelFile:%%Line) | %%Msg%%n"/>
    </formats>
</seelog>`, strings.ToLower(logLevel), logFile, logDateFormat)

	return seelog.LoggerFromConfigAsString(config)
}
