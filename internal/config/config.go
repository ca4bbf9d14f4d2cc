// go-mctp
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-mctp.
//
// go-mctp is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-mctp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-mctp; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config loads mctpd configuration from file and environment
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// Transport kinds
const (
	TransportUART = "uart"
	TransportI2C  = "i2c"
)

// TransportConfig selects and configures the serial link
type TransportConfig struct {
	Kind        string        `mapstructure:"kind"`
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baudRate"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
	OpenRetries int           `mapstructure:"openRetries"`
	I2CBus      string        `mapstructure:"i2cBus"`
	I2CAddress  uint16        `mapstructure:"i2cAddress"`
	Crystal     int           `mapstructure:"crystal"`
}

// VersionConfig is a four part version entry
type VersionConfig struct {
	Major  uint8 `mapstructure:"major"`
	Minor  uint8 `mapstructure:"minor"`
	Update uint8 `mapstructure:"update"`
	Alpha  uint8 `mapstructure:"alpha"`
}

// EndpointConfig sizes the endpoint buffers and lists extra message types
type EndpointConfig struct {
	TransmissionUnit int            `mapstructure:"transmissionUnit"`
	Events           bool           `mapstructure:"events"`
	EventCapacity    int            `mapstructure:"eventCapacity"`
	PLDM             *VersionConfig `mapstructure:"pldm"`
}

// LoopConfig configures the endpoint actor
type LoopConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	BurstLimit int           `mapstructure:"burstLimit"`
	EventQueue int           `mapstructure:"eventQueue"`
}

// LumberjackConfig configures rolling file output
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig sets log level and outputs
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
	Path   string `mapstructure:"path"`
}

// Config is the top level configuration
type Config struct {
	Transport TransportConfig `mapstructure:"transport"`
	Endpoint  EndpointConfig  `mapstructure:"endpoint"`
	Loop      LoopConfig      `mapstructure:"loop"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Load reads configuration from a YAML/TOML/JSON file and MCTP_ environment
// variables. With an empty path, MCTP_CONFIG names the file; otherwise
// ./mctpd.yaml or ./configs/mctpd.yaml is used if present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MCTP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("mctpd")
	}

	if err := v.ReadInConfig(); err != nil {
		// running without a config file is allowed
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transport.kind", TransportUART)
	v.SetDefault("transport.port", "/dev/ttyUSB0")
	v.SetDefault("transport.baudRate", 115200)
	v.SetDefault("transport.readTimeout", "50ms")
	v.SetDefault("transport.openRetries", 3)
	v.SetDefault("transport.i2cBus", "")
	v.SetDefault("transport.i2cAddress", 0x48)
	v.SetDefault("transport.crystal", 14745600)

	v.SetDefault("endpoint.transmissionUnit", 64)
	v.SetDefault("endpoint.events", false)
	v.SetDefault("endpoint.eventCapacity", 0)

	v.SetDefault("loop.interval", "1ms")
	v.SetDefault("loop.burstLimit", 64)
	v.SetDefault("loop.eventQueue", 8)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.addr", ":9108")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate rejects configurations the daemon cannot run with
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportUART:
		if c.Transport.Port == "" {
			return fmt.Errorf("%w: transport.port is required for uart", ErrInvalidConfig)
		}
	case TransportI2C:
		if c.Transport.I2CAddress == 0 || c.Transport.I2CAddress > 0x7F {
			return fmt.Errorf("%w: transport.i2cAddress 0x%X", ErrInvalidConfig, c.Transport.I2CAddress)
		}
	default:
		return fmt.Errorf("%w: transport.kind %q", ErrInvalidConfig, c.Transport.Kind)
	}
	if c.Transport.BaudRate <= 0 {
		return fmt.Errorf("%w: transport.baudRate %d", ErrInvalidConfig, c.Transport.BaudRate)
	}

	if unit := c.Endpoint.TransmissionUnit; unit < 16 || unit > 255 {
		return fmt.Errorf("%w: endpoint.transmissionUnit %d", ErrInvalidConfig, unit)
	}
	if c.Endpoint.EventCapacity < 0 {
		return fmt.Errorf("%w: endpoint.eventCapacity %d", ErrInvalidConfig, c.Endpoint.EventCapacity)
	}

	if c.Loop.Interval <= 0 || c.Loop.BurstLimit < 1 {
		return fmt.Errorf("%w: loop interval %v burst %d", ErrInvalidConfig, c.Loop.Interval, c.Loop.BurstLimit)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if c.Metrics.Enable && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalidConfig)
	}
	return nil
}
