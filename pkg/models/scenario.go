package models

// Scenario names. They double as configuration keys (faults.socket.<name>.port) and
// are relied upon by external test harnesses, so they must never change.
const (
	ImmediateTermination               = "immediate-termination"
	ResetAfterHTTPRequestLine          = "reset-after-http-request-line"
	ResetAfterHTTPRequestHeaders       = "reset-after-http-request-headers"
	ResetAfterHTTPRequest              = "reset-after-http-request"
	ResetAfterHTTPResponseLine         = "reset-after-http-response-line"
	ResetIncompleteHTTPResponse        = "reset-incomplete-http-response"
	ResetWithChoppedHTTPResponseHeader = "reset-with-chopped-http-response-header"
	ResetWithChoppedHTTPResponseLine   = "reset-with-chopped-http-response-line"
	TimeoutBeforeHTTPRequest           = "timeout-before-http-request"
	TimeoutAfterHTTPRequest            = "timeout-after-http-request"
	TimeoutAfterHTTPResponseHeaders    = "timeout-after-http-response-headers"
	ValidHTTPResponse                  = "valid-http-response"
)

type ListenerState string

const (
	ListenerIdle      ListenerState = "idle"
	ListenerAccepting ListenerState = "accepting"
	ListenerHandling  ListenerState = "handling"
	ListenerStopped   ListenerState = "stopped"
)

// ListenerStatus is a point in time snapshot of one scenario listener.
type ListenerStatus struct {
	Name         string        `json:"name" yaml:"name"`
	Port         uint32        `json:"port" yaml:"port"`
	Address      string        `json:"address" yaml:"address"`
	State        ListenerState `json:"state" yaml:"state"`
	Connections  uint64        `json:"connections" yaml:"connections"`
	ConnErrors   uint64        `json:"connErrors" yaml:"connErrors"`
	AcceptErrors uint64        `json:"acceptErrors" yaml:"acceptErrors"`
}

// CatalogEntry describes a scenario and whether it is currently served.
type CatalogEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Port        uint32 `json:"port,omitempty" yaml:"port,omitempty"`
	Configured  bool   `json:"configured" yaml:"configured"`
	Active      bool   `json:"active" yaml:"active"`
}
