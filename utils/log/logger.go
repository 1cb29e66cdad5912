// Package log builds the zap loggers used across the socket faults server.
package log

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var Emoji = "\U0001F4A5" + " socket-faults:"

// Options controls where and how log entries are written.
type Options struct {
	LogFile     string
	DisableANSI bool
}

var logCfg zap.Config

var osOpenFile = os.OpenFile

func New(opts Options) (*zap.Logger, error) {
	_ = zap.RegisterEncoder("colorConsole", func(config zapcore.EncoderConfig) (zapcore.Encoder, error) {
		return newANSIEncoder(config), nil
	})

	logCfg = zap.NewDevelopmentConfig()

	logCfg.Encoding = "colorConsole"
	logCfg.EncoderConfig.EncodeTime = customTimeEncoder
	logCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.DisableANSI {
		logCfg.Encoding = "console"
		logCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logCfg.OutputPaths = []string{"stdout"}
	if opts.LogFile != "" {
		// zap opens the file in append mode but does not create missing files with sane permissions.
		f, err := osOpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create the log file: %w", err)
		}
		_ = f.Close()
		logCfg.OutputPaths = append(logCfg.OutputPaths, opts.LogFile)
	}

	logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	logCfg.DisableStacktrace = true
	logCfg.EncoderConfig.EncodeCaller = nil

	logger, err := logCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build config for logger: %w", err)
	}
	return logger, nil
}

func ChangeLogLevel(level zapcore.Level) (*zap.Logger, error) {
	logCfg.Level = zap.NewAtomicLevelAt(level)
	if level == zap.DebugLevel {
		logCfg.DisableStacktrace = false
		logCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	}

	logger, err := logCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build config for logger: %w", err)
	}
	return logger, nil
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(Emoji + " " + t.Format(time.RFC3339) + " ")
}

var escapedESC = []byte(`\u001b`)

// ansiEncoder is a console encoder that lets highlighted field values keep their
// colour escapes instead of printing them as JSON-escaped text.
type ansiEncoder struct {
	zapcore.Encoder
}

func newANSIEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return ansiEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

func (e ansiEncoder) Clone() zapcore.Encoder {
	return ansiEncoder{Encoder: e.Encoder.Clone()}
}

func (e ansiEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := e.Encoder.EncodeEntry(ent, fields)
	if err != nil || !bytes.Contains(buf.Bytes(), escapedESC) {
		return buf, err
	}
	out := bytes.ReplaceAll(buf.Bytes(), escapedESC, []byte{0x1b})
	buf.Reset()
	_, _ = buf.Write(out)
	return buf, nil
}
