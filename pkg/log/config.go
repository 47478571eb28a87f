// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLogMaxSize = 300 // MB

	FormatJSON    = "json"
	FormatConsole = "console"
)

// FileLogConfig 为文件日志配置。Filename 为空表示不写文件。
type FileLogConfig struct {
	RootPath   string `mapstructure:"rootpath" yaml:"rootpath" json:"rootpath"`
	Filename   string `mapstructure:"filename" yaml:"filename" json:"filename"`
	MaxSize    int    `mapstructure:"max-size" yaml:"max-size" json:"max-size"`
	MaxDays    int    `mapstructure:"max-days" yaml:"max-days" json:"max-days"`
	MaxBackups int    `mapstructure:"max-backups" yaml:"max-backups" json:"max-backups"`
}

// Config 是日志配置，对应配置文件中的 logging 段。
type Config struct {
	// Level 为日志级别，trace 按 debug 处理。
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	// Format 可选 json 或 console，默认 console。
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	// DisableTimestamp 关闭时间戳字段。
	DisableTimestamp bool `mapstructure:"disable-timestamp" yaml:"disable-timestamp" json:"disable-timestamp"`
	// Stdout 表示是否输出到标准输出。
	Stdout bool          `mapstructure:"stdout" yaml:"stdout" json:"stdout"`
	File   FileLogConfig `mapstructure:"file" yaml:"file" json:"file"`
	// Development 为 true 时 DPanic 会真正 panic，并在 Warn 级别采集堆栈。
	Development   bool `mapstructure:"development" yaml:"development" json:"development"`
	DisableCaller bool `mapstructure:"disable-caller" yaml:"disable-caller" json:"disable-caller"`
	// DisableStacktrace 完全关闭堆栈采集。
	DisableStacktrace bool `mapstructure:"disable-stacktrace" yaml:"disable-stacktrace" json:"disable-stacktrace"`
	// Sampling 以秒为单位采样，参考 zapcore.NewSampler。
	Sampling *zap.SamplingConfig `mapstructure:"sampling" yaml:"sampling" json:"sampling"`
}

// ZapProperties 记录全局 Logger 的 core、输出与可调级别。
type ZapProperties struct {
	Core   zapcore.Core
	Syncer zapcore.WriteSyncer
	Level  zap.AtomicLevel
}

func (cfg *Config) encoderConfig() zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "name",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000 -07:00"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.DisableTimestamp {
		ec.TimeKey = ""
	}
	return ec
}

func (cfg *Config) newEncoder() zapcore.Encoder {
	if strings.EqualFold(cfg.Format, FormatJSON) {
		return zapcore.NewJSONEncoder(cfg.encoderConfig())
	}
	return zapcore.NewConsoleEncoder(cfg.encoderConfig())
}

func (cfg *Config) buildOptions(errSink zapcore.WriteSyncer) []zap.Option {
	opts := []zap.Option{zap.ErrorOutput(errSink)}

	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	if !cfg.DisableCaller {
		opts = append(opts, zap.AddCaller())
	}

	stackLevel := zap.ErrorLevel
	if cfg.Development {
		stackLevel = zap.WarnLevel
	}
	if !cfg.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(stackLevel))
	}

	if cfg.Sampling != nil {
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(core, time.Second, cfg.Sampling.Initial, cfg.Sampling.Thereafter, zapcore.SamplerHook(cfg.Sampling.Hook))
		}))
	}
	return opts
}
