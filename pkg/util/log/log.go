// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

// Package log exposes a process-wide logger backed by seelog. All packages
// log through the package-level functions; the daemon registers an extra
// file receiver at startup so its output also lands in daemon.log.
package log

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cihub/seelog"
)

var (
	logger *wrappedLogger

	defaultStackDepth = 3
)

// wrappedLogger guards the seelog logger and the optional additional
// receivers behind a lock so CLI goroutines and the daemon loop can share it.
type wrappedLogger struct {
	inner seelog.LoggerInterface
	level seelog.LogLevel
	extra map[string]seelog.LoggerInterface
	l     sync.RWMutex
}

// SetupLogger installs the given seelog logger as the process logger.
func SetupLogger(l seelog.LoggerInterface, level string) {
	logger = &wrappedLogger{
		inner: l,
		extra: make(map[string]seelog.LoggerInterface),
	}

	lvl, ok := seelog.LogLevelFromString(level)
	if !ok {
		lvl = seelog.InfoLvl
	}
	logger.level = lvl

	// The exported functions add two frames between the caller and seelog.
	logger.inner.SetAdditionalStackDepth(defaultStackDepth) //nolint:errcheck
}

func (sw *wrappedLogger) shouldLog(level seelog.LogLevel) bool {
	sw.l.RLock()
	defer sw.l.RUnlock()
	return level >= sw.level
}

func (sw *wrappedLogger) log(level seelog.LogLevel, s string) error {
	sw.l.Lock()
	defer sw.l.Unlock()

	var err error
	switch level {
	case seelog.TraceLvl:
		sw.inner.Trace(s)
	case seelog.DebugLvl:
		sw.inner.Debug(s)
	case seelog.InfoLvl:
		sw.inner.Info(s)
	case seelog.WarnLvl:
		err = sw.inner.Warn(s)
	case seelog.ErrorLvl:
		err = sw.inner.Error(s)
	case seelog.CriticalLvl:
		err = sw.inner.Critical(s)
	}

	for _, l := range sw.extra {
		switch level {
		case seelog.TraceLvl:
			l.Trace(s)
		case seelog.DebugLvl:
			l.Debug(s)
		case seelog.InfoLvl:
			l.Info(s)
		case seelog.WarnLvl:
			l.Warn(s) //nolint:errcheck
		case seelog.ErrorLvl:
			l.Error(s) //nolint:errcheck
		case seelog.CriticalLvl:
			l.Critical(s) //nolint:errcheck
		}
	}
	return err
}

func logAt(level seelog.LogLevel, v ...interface{}) {
	if logger == nil || logger.inner == nil || !logger.shouldLog(level) {
		return
	}
	logger.log(level, fmt.Sprint(v...)) //nolint:errcheck
}

func logfAt(level seelog.LogLevel, format string, params ...interface{}) {
	if logger == nil || logger.inner == nil || !logger.shouldLog(level) {
		return
	}
	logger.log(level, fmt.Sprintf(format, params...)) //nolint:errcheck
}

// Trace logs at the trace level
func Trace(v ...interface{}) { logAt(seelog.TraceLvl, v...) }

// Tracef logs with format at the trace level
func Tracef(format string, params ...interface{}) { logfAt(seelog.TraceLvl, format, params...) }

// Debug logs at the debug level
func Debug(v ...interface{}) { logAt(seelog.DebugLvl, v...) }

// Debugf logs with format at the debug level
func Debugf(format string, params ...interface{}) { logfAt(seelog.DebugLvl, format, params...) }

// Info logs at the info level
func Info(v ...interface{}) { logAt(seelog.InfoLvl, v...) }

// Infof logs with format at the info level
func Infof(format string, params ...interface{}) { logfAt(seelog.InfoLvl, format, params...) }

// Warn logs at the warn level and returns an error containing the log message
func Warn(v ...interface{}) error {
	logAt(seelog.WarnLvl, v...)
	return errors.New(fmt.Sprint(v...))
}

// Warnf logs with format at the warn level and returns an error containing the log message
func Warnf(format string, params ...interface{}) error {
	logfAt(seelog.WarnLvl, format, params...)
	return fmt.Errorf(format, params...)
}

// Error logs at the error level and returns an error containing the log message
func Error(v ...interface{}) error {
	logAt(seelog.ErrorLvl, v...)
	return errors.New(fmt.Sprint(v...))
}

// Errorf logs with format at the error level and returns an error containing the log message
func Errorf(format string, params ...interface{}) error {
	logfAt(seelog.ErrorLvl, format, params...)
	return fmt.Errorf(format, params...)
}

// Critical logs at the critical level and returns an error containing the log message
func Critical(v ...interface{}) error {
	logAt(seelog.CriticalLvl, v...)
	return errors.New(fmt.Sprint(v...))
}

// Criticalf logs with format at the critical level and returns an error containing the log message
func Criticalf(format string, params ...interface{}) error {
	logfAt(seelog.CriticalLvl, format, params...)
	return fmt.Errorf(format, params...)
}

// ChangeLogLevel changes the level of the current logger.
func ChangeLogLevel(level string) error {
	if logger == nil || logger.inner == nil {
		return errors.New("cannot change loglevel: logger not initialized")
	}

	lvl, ok := seelog.LogLevelFromString(level)
	if !ok {
		return errors.New("bad log level")
	}

	logger.l.Lock()
	defer logger.l.Unlock()
	logger.level = lvl
	return nil
}

// RegisterAdditionalLogger registers an additional logger under a name. Every
// log line is mirrored to all registered loggers.
func RegisterAdditionalLogger(n string, l seelog.LoggerInterface) error {
	if logger == nil || logger.inner == nil {
		return errors.New("cannot register: logger not initialized")
	}

	logger.l.Lock()
	defer logger.l.Unlock()

	if _, ok := logger.extra[n]; ok {
		return errors.New("logger already registered with that name")
	}
	l.SetAdditionalStackDepth(defaultStackDepth) //nolint:errcheck
	logger.extra[n] = l
	return nil
}

// UnregisterAdditionalLogger removes the additional logger with name n.
func UnregisterAdditionalLogger(n string) error {
	if logger == nil || logger.inner == nil {
		return errors.New("cannot unregister: logger not initialized")
	}

	logger.l.Lock()
	defer logger.l.Unlock()
	delete(logger.extra, n)
	return nil
}

// Flush flushes the underlying seelog loggers.
func Flush() {
	if logger == nil || logger.inner == nil {
		return
	}

	logger.l.Lock()
	defer logger.l.Unlock()
	logger.inner.Flush()
	for _, l := range logger.extra {
		l.Flush()
	}
}
