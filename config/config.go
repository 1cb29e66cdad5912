// Package config provides configuration structures for the application.
package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Debug        bool     `json:"debug" yaml:"debug" mapstructure:"debug"`
	DebugModules []string `json:"debugModules" yaml:"debugModules" mapstructure:"debugModules"`
	DisableANSI  bool     `json:"disableANSI" yaml:"disableANSI" mapstructure:"disableANSI"`
	ConfigPath   string   `json:"configPath" yaml:"configPath" mapstructure:"configPath"`
	LogFile      string   `json:"logFile" yaml:"logFile" mapstructure:"logFile"`
	SentryDSN    string   `json:"sentryDSN" yaml:"sentryDSN" mapstructure:"sentryDSN"`
	Faults       Faults   `json:"faults" yaml:"faults" mapstructure:"faults"`
	Admin        Admin    `json:"admin" yaml:"admin" mapstructure:"admin"`
}

type Faults struct {
	Host             string                 `json:"host" yaml:"host" mapstructure:"host"`
	Pause            time.Duration          `json:"pause" yaml:"pause" mapstructure:"pause"`
	ShutdownGrace    time.Duration          `json:"shutdownGrace" yaml:"shutdownGrace" mapstructure:"shutdownGrace"`
	RequireListeners bool                   `json:"requireListeners" yaml:"requireListeners" mapstructure:"requireListeners"`
	ReusePort        bool                   `json:"reusePort" yaml:"reusePort" mapstructure:"reusePort"`
	AcceptBackoff    Backoff                `json:"acceptBackoff" yaml:"acceptBackoff" mapstructure:"acceptBackoff"`
	Socket           map[string]SocketFault `json:"socket" yaml:"socket" mapstructure:"socket"`
}

// SocketFault holds the per scenario settings found under faults.socket.<name>.
type SocketFault struct {
	Port  uint32        `json:"port" yaml:"port" mapstructure:"port"`
	Pause time.Duration `json:"pause,omitempty" yaml:"pause,omitempty" mapstructure:"pause"`
}

type Backoff struct {
	Min time.Duration `json:"min" yaml:"min" mapstructure:"min"`
	Max time.Duration `json:"max" yaml:"max" mapstructure:"max"`
}

type Admin struct {
	Port uint32 `json:"port" yaml:"port" mapstructure:"port"`
}

// SocketPort resolves the port configured for a scenario. A missing key means the
// scenario is not activated.
func (c *Config) SocketPort(name string) (uint32, bool) {
	if c == nil || c.Faults.Socket == nil {
		return 0, false
	}
	sf, ok := c.Faults.Socket[strings.ToLower(name)]
	if !ok {
		return 0, false
	}
	return sf.Port, true
}

// PauseFor returns the stall duration used by the timeout scenarios.
func (c *Config) PauseFor(name string) time.Duration {
	if sf, ok := c.Faults.Socket[strings.ToLower(name)]; ok && sf.Pause > 0 {
		return sf.Pause
	}
	return c.Faults.Pause
}

// SetSocketPorts overrides the configured ports with the ones given on the command line.
func SetSocketPorts(conf *Config, ports map[string]int) error {
	if conf.Faults.Socket == nil {
		conf.Faults.Socket = make(map[string]SocketFault)
	}
	for name, port := range ports {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %d for socket %q", port, name)
		}
		key := strings.ToLower(strings.TrimSpace(name))
		sf := conf.Faults.Socket[key]
		sf.Port = uint32(port)
		conf.Faults.Socket[key] = sf
	}
	return nil
}

// DisableSockets removes the given scenarios from the active set.
func DisableSockets(conf *Config, names []string) {
	for _, name := range names {
		delete(conf.Faults.Socket, strings.ToLower(strings.TrimSpace(name)))
	}
}
