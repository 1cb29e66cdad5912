package socket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agnivade/levenshtein"

	"go.faultline.dev/socketfaults/pkg/models"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// Options carries the per binding settings a handler may need.
type Options struct {
	Pause time.Duration
}

// Handler runs one scenario script over an accepted connection. It owns the
// connection until it returns.
type Handler func(ctx context.Context, c *Conn, opts Options) error

// Scenario is a named, stateless connection behaviour.
type Scenario struct {
	Name        string
	Description string
	Handle      Handler
}

var scenarios = []Scenario{
	{
		Name:        models.ImmediateTermination,
		Description: "accept, then reset without reading or writing",
		Handle:      immediateTermination,
	},
	{
		Name:        models.ResetAfterHTTPRequestLine,
		Description: "read the request line, then reset",
		Handle:      resetAfterRequestLine,
	},
	{
		Name:        models.ResetAfterHTTPRequestHeaders,
		Description: "read the request line and headers, then reset",
		Handle:      resetAfterRequestHeaders,
	},
	{
		Name:        models.ResetAfterHTTPRequest,
		Description: "read the full request, then reset without responding",
		Handle:      resetAfterRequest,
	},
	{
		Name:        models.ResetAfterHTTPResponseLine,
		Description: "read the full request, send the status line only, then reset",
		Handle:      resetAfterResponseLine,
	},
	{
		Name:        models.ResetIncompleteHTTPResponse,
		Description: "declare Content-Length: 1000, send a shorter body, then reset",
		Handle:      resetIncompleteResponse,
	},
	{
		Name:        models.ResetWithChoppedHTTPResponseHeader,
		Description: "send the status line and a header name fragment, then reset",
		Handle:      resetWithChoppedResponseHeader,
	},
	{
		Name:        models.ResetWithChoppedHTTPResponseLine,
		Description: `send "HTTP/1.1 " without status code or CRLF, then reset`,
		Handle:      resetWithChoppedResponseLine,
	},
	{
		Name:        models.TimeoutBeforeHTTPRequest,
		Description: "stall before reading the request",
		Handle:      timeoutBeforeRequest,
	},
	{
		Name:        models.TimeoutAfterHTTPRequest,
		Description: "read the full request, then stall without responding",
		Handle:      timeoutAfterRequest,
	},
	{
		Name:        models.TimeoutAfterHTTPResponseHeaders,
		Description: "send the response headers, then stall before the body",
		Handle:      timeoutAfterResponseHeaders,
	},
	{
		Name:        models.ValidHTTPResponse,
		Description: "send a well formed 200 response and close gracefully",
		Handle:      validResponse,
	},
}

var scenarioIndex = func() map[string]int {
	index := make(map[string]int, len(scenarios))
	for i, s := range scenarios {
		if _, dup := index[s.Name]; dup {
			panic(fmt.Sprintf("duplicate scenario %q", s.Name))
		}
		index[s.Name] = i
	}
	return index
}()

// Catalog returns every known scenario in a stable order.
func Catalog() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

func Names() []string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	return names
}

func Lookup(name string) (Scenario, bool) {
	i, ok := scenarioIndex[name]
	if !ok {
		return Scenario{}, false
	}
	return scenarios[i], true
}

func IsKnown(name string) bool {
	_, ok := scenarioIndex[name]
	return ok
}

// Get is Lookup for callers that want an error.
func Get(name string) (Scenario, error) {
	s, ok := Lookup(name)
	if !ok {
		if hint := Suggest(name); hint != "" {
			return Scenario{}, fmt.Errorf("%w: %q, did you mean %q", ErrUnknownScenario, name, hint)
		}
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return s, nil
}

// maxSuggestDistance bounds how far a misspelt name may be from a known one.
const maxSuggestDistance = 6

// Suggest returns the closest known scenario name, or "" when nothing is close.
func Suggest(name string) string {
	minDist := maxSuggestDistance + 1
	best := ""
	for _, s := range scenarios {
		dist := levenshtein.ComputeDistance(name, s.Name)
		if dist < minDist {
			minDist = dist
			best = s.Name
		}
	}
	return best
}
