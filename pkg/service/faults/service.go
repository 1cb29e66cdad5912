// Package faults runs the socket fault listeners for the lifetime of the process.
package faults

import (
	"context"

	"go.faultline.dev/socketfaults/pkg/models"
)

type Service interface {
	Run(ctx context.Context) error
	Status() []models.ListenerStatus
	Catalog() []models.CatalogEntry
}
