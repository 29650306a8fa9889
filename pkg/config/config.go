// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

// Package config loads the process configuration from TOMTOM_API_*
// environment variables. Everything is configured through the environment;
// there is no configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "TOMTOM_API"

// Known option keys. The matching environment variable is the upper-cased
// key prefixed with TOMTOM_API_ (e.g. base_url -> TOMTOM_API_BASE_URL).
const (
	KeyBaseURL           = "base_url"
	KeyVersion           = "version"
	KeyAPIKey            = "key"
	KeyLogLevel          = "log_level"
	KeyTmpFolder         = "tmp_folder"
	KeyHomeFolder        = "home_folder"
	KeyProxyIP           = "proxy_ip"
	KeyProxyPort         = "proxy_port"
	KeyProxyUsername     = "proxy_username"
	KeyProxyPassword     = "proxy_password"
	KeyQueueLoopDuration = "queue_loop_duration"
)

// Proxy holds the forward-proxy settings. Either all four values are
// configured or the proxy is unset.
type Proxy struct {
	IP       string
	Port     int
	Username string
	Password string
}

// Config is the resolved process configuration.
type Config struct {
	BaseURL    string
	Version    int
	Key        string
	LogLevel   string
	TmpFolder  string
	HomeFolder string
	Proxy      *Proxy

	// QueueLoopDuration is the daemon tick period.
	QueueLoopDuration time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvAndSetDefault(v, KeyBaseURL, "api.tomtom.com")
	bindEnvAndSetDefault(v, KeyVersion, 1)
	bindEnvAndSetDefault(v, KeyAPIKey, "")
	bindEnvAndSetDefault(v, KeyLogLevel, "info")
	bindEnvAndSetDefault(v, KeyTmpFolder, os.TempDir())
	bindEnvAndSetDefault(v, KeyHomeFolder, "")
	bindEnvAndSetDefault(v, KeyProxyIP, "")
	bindEnvAndSetDefault(v, KeyProxyPort, 0)
	bindEnvAndSetDefault(v, KeyProxyUsername, "")
	bindEnvAndSetDefault(v, KeyProxyPassword, "")
	bindEnvAndSetDefault(v, KeyQueueLoopDuration, 60)

	return v
}

func bindEnvAndSetDefault(v *viper.Viper, key string, val interface{}) {
	v.SetDefault(key, val)
	v.BindEnv(key) //nolint:errcheck
}

// New resolves the configuration from the environment. A partially supplied
// proxy block is a configuration error.
func New() (*Config, error) {
	v := newViper()

	home := v.GetString(KeyHomeFolder)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home folder: %w", err)
		}
		home = filepath.Join(userHome, ".tomtom-api")
	}

	c := &Config{
		BaseURL:           v.GetString(KeyBaseURL),
		Version:           v.GetInt(KeyVersion),
		Key:               v.GetString(KeyAPIKey),
		LogLevel:          v.GetString(KeyLogLevel),
		TmpFolder:         v.GetString(KeyTmpFolder),
		HomeFolder:        home,
		QueueLoopDuration: time.Duration(v.GetInt(KeyQueueLoopDuration)) * time.Second,
	}

	proxySet := []bool{
		v.GetString(KeyProxyIP) != "",
		v.GetInt(KeyProxyPort) != 0,
		v.GetString(KeyProxyUsername) != "",
		v.GetString(KeyProxyPassword) != "",
	}
	any, all := false, true
	for _, set := range proxySet {
		any = any || set
		all = all && set
	}
	if any && !all {
		return nil, fmt.Errorf("some of the proxy settings were given, but not all of them: "+
			"check %s, %s, %s and %s", EnvVar(KeyProxyIP), EnvVar(KeyProxyPort),
			EnvVar(KeyProxyUsername), EnvVar(KeyProxyPassword))
	}
	if all {
		c.Proxy = &Proxy{
			IP:       v.GetString(KeyProxyIP),
			Port:     v.GetInt(KeyProxyPort),
			Username: v.GetString(KeyProxyUsername),
			Password: v.GetString(KeyProxyPassword),
		}
	}

	return c, nil
}

// EnvVar returns the environment variable name for an option key.
func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(key)
}

// EnvVars lists the recognized environment variables.
func EnvVars() []string {
	keys := []string{
		KeyBaseURL,
		KeyVersion,
		KeyAPIKey,
		KeyLogLevel,
		KeyTmpFolder,
		KeyHomeFolder,
		KeyProxyIP,
		KeyProxyPort,
		KeyProxyUsername,
		KeyProxyPassword,
		KeyQueueLoopDuration,
	}
	vars := make([]string, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, EnvVar(k))
	}
	return vars
}

// DatabaseFile is the queue table location under the home folder.
func (c *Config) DatabaseFile() string { return filepath.Join(c.HomeFolder, "db.parquet") }

// PayloadFolder is the payload blob directory under the home folder.
func (c *Config) PayloadFolder() string { return filepath.Join(c.HomeFolder, "payloads") }

// DaemonLogFile is the daemon log location under the home folder.
func (c *Config) DaemonLogFile() string { return filepath.Join(c.HomeFolder, "daemon.log") }

// PidFile is the daemon pid file location under the home folder.
func (c *Config) PidFile() string { return filepath.Join(c.HomeFolder, "daemon.pid") }
