// Package utils provides utility functions for the socket faults server.
package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

var Version string

var ConfigGuide = `
# Each key under faults.socket activates one scenario on the given TCP port.
# Remove a key (or pass --disable <name>) to keep that scenario offline.
#
#faults:
#  socket:
#    timeout-after-http-request:
#      port: 8090
#      # per scenario override of faults.pause
#      pause: 30s
#
# Run "socket-faults scenarios" to list every scenario with its behaviour.
`

func CheckFileExists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return true
}

// LogError logs the error together with the message, skipping the error field when
// there is no underlying error.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if logger == nil {
		return
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Error(msg, fields...)
}

// InitSentry enables panic reporting when a DSN is configured.
func InitSentry(dsn string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          Version,
		TracesSampleRate: 1.0,
	})
}

// HandlePanic is meant to be deferred in main.
func HandlePanic() {
	if r := recover(); r != nil {
		sentry.CaptureException(errors.New(fmt.Sprint(r)))
		fmt.Fprintln(os.Stderr, "Recovered from:", r, "\nstack trace:\n", string(debug.Stack()))
		sentry.Flush(time.Second * 2)
	}
}

// Recover must be deferred directly. It swallows a panic raised while handling a
// single connection so that the owning loop keeps going.
func Recover(logger *zap.Logger, msg string, fields ...zap.Field) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("panic: %v", r)
	sentry.CaptureException(err)
	fields = append(fields, zap.ByteString("stack", debug.Stack()))
	LogError(logger, err, msg, fields...)
}

// AskForConfirmation keeps prompting until the answer is yes or no.
func AskForConfirmation(in io.Reader, out io.Writer, s string) (bool, error) {
	reader := bufio.NewReader(in)

	for {
		fmt.Fprintf(out, "%s [y/n]: ", s)

		response, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}

		response = strings.ToLower(strings.TrimSpace(response))

		if response == "y" || response == "yes" {
			return true, nil
		} else if response == "n" || response == "no" {
			return false, nil
		}
	}
}
