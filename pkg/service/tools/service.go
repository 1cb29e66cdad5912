// Package tools implements the housekeeping commands of the socket faults server.
package tools

import (
	"context"
)

type Service interface {
	CreateConfig(ctx context.Context, filePath string, config string) error
}
