package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesToLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "socket-faults.log")

	logger, err := New(Options{LogFile: logFile, DisableANSI: true})
	require.NoError(t, err)

	logger.Info("listener started", zap.String("scenario", "immediate-termination"))
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "listener started")
	assert.Contains(t, string(data), "immediate-termination")
}

func TestNew_LogFileCreationFailure(t *testing.T) {
	original := osOpenFile
	defer func() { osOpenFile = original }()

	osOpenFile = func(string, int, os.FileMode) (*os.File, error) {
		return nil, errors.New("permission denied")
	}

	logger, err := New(Options{LogFile: "unused.log"})
	assert.Nil(t, logger)
	assert.ErrorContains(t, err, "permission denied")
}

func TestANSIEncoder_KeepsEscapesAfterClone(t *testing.T) {
	enc := newANSIEncoder(zapcore.EncoderConfig{MessageKey: "msg"})

	clone := enc.Clone()
	require.IsType(t, ansiEncoder{}, clone)
	clone.AddString("scenario", "\x1b[32mimmediate-termination\x1b[0m")

	buf, err := clone.EncodeEntry(zapcore.Entry{Message: "listener started"}, []zapcore.Field{
		zap.String("port", "\x1b[33m9001\x1b[0m"),
	})
	require.NoError(t, err)
	defer buf.Free()

	line := buf.String()
	assert.Contains(t, line, "\x1b[32mimmediate-termination\x1b[0m")
	assert.Contains(t, line, "\x1b[33m9001\x1b[0m")
	assert.NotContains(t, line, `\u001b`)
}

func TestChangeLogLevel_EnablesDebug(t *testing.T) {
	_, err := New(Options{DisableANSI: true})
	require.NoError(t, err)

	logger, err := ChangeLogLevel(zap.DebugLevel)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestModuleLoggerFactory_FiltersDebugPerModule(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	factory := NewModuleLoggerFactory(zap.New(core), false, []string{ModuleListener})

	factory.GetLogger(ModuleListener).Debug("listener debug")
	factory.GetLogger(ModuleRegistry).Debug("registry debug")
	factory.GetLogger(ModuleRegistry).Info("registry info")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "listener debug", entries[0].Message)
	assert.Equal(t, "listener", entries[0].LoggerName)
	assert.Equal(t, "registry info", entries[1].Message)
}

func TestModuleLoggerFactory_GlobalDebug(t *testing.T) {
	factory := NewModuleLoggerFactory(zap.NewNop(), true, nil)
	assert.True(t, factory.IsDebugEnabled(ModuleAdmin))
}
