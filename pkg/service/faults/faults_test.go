package faults

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"go.faultline.dev/socketfaults/config"
	"go.faultline.dev/socketfaults/pkg/models"
)

const fullRequest = "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"

func testConfig(pause, grace time.Duration, names ...string) *config.Config {
	cfg := &config.Config{Faults: config.Faults{
		Host:          "127.0.0.1",
		Pause:         pause,
		ShutdownGrace: grace,
		Socket:        map[string]config.SocketFault{},
	}}
	for _, name := range names {
		cfg.Faults.Socket[name] = config.SocketFault{Port: 0}
	}
	return cfg
}

// start runs the coordinator in the background and waits until it has bound its
// sockets.
func start(t *testing.T, f *Faults) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.Run(ctx)
	}()
	select {
	case <-f.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("faults never became ready")
	}
	return cancel, done
}

func waitRun(t *testing.T, done <-chan error, within time.Duration) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(within):
		t.Fatalf("Run did not return within %s", within)
		return nil
	}
}

func addressOf(t *testing.T, f *Faults, name string) string {
	t.Helper()
	for _, s := range f.Status() {
		if s.Name == name {
			return s.Address
		}
	}
	t.Fatalf("scenario %s is not active", name)
	return ""
}

func TestRun_ServesConfiguredScenarios(t *testing.T) {
	f := New(zaptest.NewLogger(t), testConfig(200*time.Millisecond, time.Second,
		models.ValidHTTPResponse, models.ImmediateTermination))
	cancel, done := start(t, f)

	status := f.Status()
	require.Len(t, status, 2)
	assert.Equal(t, models.ImmediateTermination, status[0].Name)
	assert.Equal(t, models.ValidHTTPResponse, status[1].Name)

	resp, err := http.Get("http://" + addressOf(t, f, models.ValidHTTPResponse) + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	_, err = http.Get("http://" + addressOf(t, f, models.ImmediateTermination) + "/")
	assert.Error(t, err)

	cancel()
	assert.NoError(t, waitRun(t, done, 5*time.Second))
}

func TestRun_StopsAcceptingOnShutdown(t *testing.T) {
	f := New(zaptest.NewLogger(t), testConfig(time.Second, time.Second, models.ValidHTTPResponse))
	cancel, done := start(t, f)
	addr := addressOf(t, f, models.ValidHTTPResponse)

	cancel()
	require.NoError(t, waitRun(t, done, 5*time.Second))

	_, err := net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err, "the server socket is closed")
}

func TestRun_InFlightConnectionFinishesWithinGrace(t *testing.T) {
	f := New(zaptest.NewLogger(t), testConfig(200*time.Millisecond, 5*time.Second, models.TimeoutBeforeHTTPRequest))
	cancel, done := start(t, f)

	c, err := net.Dial("tcp", addressOf(t, f, models.TimeoutBeforeHTTPRequest))
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte(fullRequest))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return f.Status()[0].State == models.ListenerHandling
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = io.ReadAll(c)
	assert.NoError(t, err, "the pause completes and the connection closes gracefully")
	assert.NoError(t, waitRun(t, done, 5*time.Second))
}

func TestRun_InFlightConnectionDroppedAfterGrace(t *testing.T) {
	f := New(zaptest.NewLogger(t), testConfig(time.Minute, 100*time.Millisecond, models.TimeoutAfterHTTPRequest))
	cancel, done := start(t, f)

	c, err := net.Dial("tcp", addressOf(t, f, models.TimeoutAfterHTTPRequest))
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte(fullRequest))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return f.Status()[0].State == models.ListenerHandling
	}, 2*time.Second, 5*time.Millisecond)

	begin := time.Now()
	cancel()
	assert.NoError(t, waitRun(t, done, 5*time.Second))
	assert.Less(t, time.Since(begin), 5*time.Second)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = io.ReadAll(c)
	assert.Error(t, err, "the connection is reset")
}

func TestRun_NoListeners(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := New(zap.New(core), testConfig(time.Second, time.Second))
	cancel, done := start(t, f)

	assert.Empty(t, f.Status())
	assert.Eventually(t, func() bool {
		return logs.FilterMessageSnippet("no scenario is active").Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, waitRun(t, done, 5*time.Second))
}

func TestRun_RequireListeners(t *testing.T) {
	cfg := testConfig(time.Second, time.Second)
	cfg.Faults.RequireListeners = true
	f := New(zaptest.NewLogger(t), cfg)

	err := f.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoListeners)
}

func TestRun_BindFailureLeavesOthersRunning(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := testConfig(time.Second, time.Second, models.ValidHTTPResponse)
	cfg.Faults.Socket[models.ResetAfterHTTPRequest] = config.SocketFault{Port: uint32(taken.Addr().(*net.TCPAddr).Port)}
	f := New(zaptest.NewLogger(t), cfg)
	cancel, done := start(t, f)

	status := f.Status()
	require.Len(t, status, 1)
	assert.Equal(t, models.ValidHTTPResponse, status[0].Name)

	cancel()
	assert.NoError(t, waitRun(t, done, 5*time.Second))
}

func TestRun_WarnsAboutUnknownScenarios(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := testConfig(time.Second, time.Second, models.ValidHTTPResponse)
	cfg.Faults.Socket["reset-after-lunch"] = config.SocketFault{Port: 0}
	f := New(zap.New(core), cfg)
	cancel, done := start(t, f)

	assert.Len(t, f.Status(), 1)
	warnings := logs.FilterMessageSnippet("unknown scenario").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "reset-after-lunch", warnings[0].ContextMap()["scenario"])

	cancel()
	assert.NoError(t, waitRun(t, done, 5*time.Second))
}

func TestRun_PerScenarioPause(t *testing.T) {
	cfg := testConfig(time.Minute, time.Second)
	cfg.Faults.Socket[models.TimeoutAfterHTTPRequest] = config.SocketFault{Port: 0, Pause: 100 * time.Millisecond}
	f := New(zaptest.NewLogger(t), cfg)
	cancel, done := start(t, f)
	defer func() {
		cancel()
		assert.NoError(t, waitRun(t, done, 5*time.Second))
	}()

	c, err := net.Dial("tcp", addressOf(t, f, models.TimeoutAfterHTTPRequest))
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte(fullRequest))
	require.NoError(t, err)

	begin := time.Now()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _ = io.ReadAll(c)
	assert.Less(t, time.Since(begin), 5*time.Second)
}

func TestCatalog(t *testing.T) {
	cfg := testConfig(time.Second, time.Second)
	cfg.Faults.Socket[models.ImmediateTermination] = config.SocketFault{Port: 9001}
	f := New(zaptest.NewLogger(t), cfg)

	entries := f.Catalog()
	require.Len(t, entries, 12)
	assert.Equal(t, models.ImmediateTermination, entries[0].Name)
	assert.True(t, entries[0].Configured)
	assert.False(t, entries[0].Active)
	assert.Equal(t, uint32(9001), entries[0].Port)
	for _, e := range entries[1:] {
		assert.False(t, e.Configured, e.Name)
		assert.NotEmpty(t, e.Description, e.Name)
	}
}

func TestCatalog_ReportsBoundPort(t *testing.T) {
	f := New(zaptest.NewLogger(t), testConfig(time.Second, time.Second, models.ValidHTTPResponse))
	cancel, done := start(t, f)

	var entry models.CatalogEntry
	for _, e := range f.Catalog() {
		if e.Name == models.ValidHTTPResponse {
			entry = e
		}
	}
	assert.True(t, entry.Active)
	assert.NotZero(t, entry.Port)

	cancel()
	assert.NoError(t, waitRun(t, done, 5*time.Second))
}
