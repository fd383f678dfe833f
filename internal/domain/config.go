// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// InstanceConfig describes one qBittorrent instance quiver connects to.
type InstanceConfig struct {
	ID            int    `mapstructure:"id" json:"id"`
	Name          string `mapstructure:"name" json:"name"`
	Host          string `mapstructure:"host" json:"host"`
	Username      string `mapstructure:"username" json:"username"`
	Password      string `mapstructure:"password" json:"-"`
	TLSSkipVerify bool   `mapstructure:"tlsSkipVerify" json:"tlsSkipVerify"`
}

type Config struct {
	Version string `mapstructure:"-" json:"version"`

	Host    string `mapstructure:"host" json:"host"`
	Port    int    `mapstructure:"port" json:"port"`
	BaseURL string `mapstructure:"baseUrl" json:"baseUrl"`

	LogLevel      string `mapstructure:"logLevel" json:"logLevel"`
	LogPath       string `mapstructure:"logPath" json:"logPath"`
	LogMaxSize    int    `mapstructure:"logMaxSize" json:"logMaxSize"`
	LogMaxBackups int    `mapstructure:"logMaxBackups" json:"logMaxBackups"`

	DataDir      string `mapstructure:"dataDir" json:"dataDir"`
	PprofEnabled bool   `mapstructure:"pprofEnabled" json:"pprofEnabled"`

	// PollInterval is the file list refresh cadence in seconds.
	PollInterval int `mapstructure:"pollInterval" json:"pollInterval"`

	Instances []InstanceConfig `mapstructure:"instances" json:"instances"`
}
