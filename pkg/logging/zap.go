// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package logging builds the zap.Logger used by the rk-bootinfo CLI and
// passed into bootinfo.Open, so that every log line the library and the
// driver emit shares one configuration.
package logging

import (
	"io"
	"os"

	"github.com/siderolabs/gen/xslices"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogDestination pairs a log level with an encoder config and writer.
type LogDestination struct {
	level  zapcore.LevelEnabler
	writer io.Writer
	config zapcore.EncoderConfig
}

// EncoderOption mutates a log destination's encoder config.
type EncoderOption func(config *zapcore.EncoderConfig)

// WithoutTimestamp disables the timestamp field, for environments (journald,
// most init systems) that already stamp log lines on the way in.
func WithoutTimestamp() EncoderOption {
	return func(config *zapcore.EncoderConfig) {
		config.EncodeTime = nil
	}
}

// NewLogDestination builds a LogDestination writing to writer at logLevel.
func NewLogDestination(writer io.Writer, logLevel zapcore.LevelEnabler, options ...EncoderOption) *LogDestination {
	config := zap.NewProductionEncoderConfig()
	config.TimeKey = "time"
	config.EncodeTime = zapcore.ISO8601TimeEncoder

	for _, option := range options {
		option(&config)
	}

	return &LogDestination{
		level:  logLevel,
		config: config,
		writer: writer,
	}
}

// ZapLogger builds a zap.Logger tee-ing JSON output to every destination
// given.
func ZapLogger(dests ...*LogDestination) *zap.Logger {
	if len(dests) == 0 {
		panic("at least one log destination must be defined")
	}

	cores := xslices.Map(dests, func(dest *LogDestination) zapcore.Core {
		return zapcore.NewCore(
			zapcore.NewJSONEncoder(dest.config),
			zapcore.AddSync(dest.writer),
			dest.level,
		)
	})

	return zap.New(zapcore.NewTee(cores...))
}

// ConsoleLogger builds a human-readable logger at logLevel, writing to
// stderr. This is the CLI's default; JSON output is opt-in via --log-json.
func ConsoleLogger(logLevel zapcore.LevelEnabler) *zap.Logger {
	config := zap.NewDevelopmentEncoderConfig()
	config.ConsoleSeparator = " "
	config.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(config),
		zapcore.AddSync(os.Stderr),
		logLevel,
	)

	return zap.New(core)
}

// Component tags a logger field with the emitting subsystem's name.
func Component(name string) zapcore.Field {
	return zap.String("component", name)
}
