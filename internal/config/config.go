// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Playback PlaybackConfig `yaml:"playback"`
	Source   SourceConfig   `yaml:"source"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind         string   `yaml:"bind" env:"REPLAY_BIND"`
	AllowOrigins []string `yaml:"allow_origins" env:"REPLAY_ALLOW_ORIGINS" envSeparator:","`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" env:"REPLAY_LOG_LEVEL"`
	Format string `yaml:"format" env:"REPLAY_LOG_FORMAT"` // console | json
	Frames bool   `yaml:"frames"`                         // 每帧输出 debug 日志
}

// PlaybackConfig 回放默认参数
type PlaybackConfig struct {
	MinDelayMs     uint64 `yaml:"min_delay_ms"`
	MaxDelayMs     uint64 `yaml:"max_delay_ms"`
	NominalDelayMs uint64 `yaml:"nominal_delay_ms"`
	WindowSize     int    `yaml:"window_size"`
	JournalLines   int    `yaml:"journal_lines"`
	Autoplay       bool   `yaml:"autoplay"`
}

// SourceConfig 日志来源
type SourceConfig struct {
	LogFile    string   `yaml:"log_file" env:"REPLAY_LOG_FILE"`
	SQLitePath string   `yaml:"sqlite_path" env:"REPLAY_SQLITE_PATH"`
	Allow      []string `yaml:"allow"`
	Block      []string `yaml:"block"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Bind: ":8080", AllowOrigins: []string{"*"}},
		Log:    LogConfig{Level: "info", Format: "console"},
		Playback: PlaybackConfig{
			MinDelayMs:     10,
			MaxDelayMs:     2000,
			NominalDelayMs: 1000,
			WindowSize:     30,
			JournalLines:   100,
		},
		Source: SourceConfig{LogFile: "sensor_log.json"},
	}
}

// Load 从 YAML 文件加载配置，文件不存在时使用默认配置
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.fill()
	return cfg, nil
}

// ParseEnv 用环境变量覆盖配置
func (c *Config) ParseEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.fill()
	return nil
}

// 填充空值
func (c *Config) fill() {
	def := Default()

	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if len(c.Server.AllowOrigins) == 0 {
		c.Server.AllowOrigins = def.Server.AllowOrigins
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Playback.MinDelayMs == 0 {
		c.Playback.MinDelayMs = def.Playback.MinDelayMs
	}
	if c.Playback.MaxDelayMs == 0 {
		c.Playback.MaxDelayMs = def.Playback.MaxDelayMs
	}
	if c.Playback.NominalDelayMs == 0 {
		c.Playback.NominalDelayMs = def.Playback.NominalDelayMs
	}
	if c.Playback.WindowSize <= 0 {
		c.Playback.WindowSize = def.Playback.WindowSize
	}
	if c.Playback.JournalLines <= 0 {
		c.Playback.JournalLines = def.Playback.JournalLines
	}
}
