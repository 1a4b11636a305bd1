// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/esmkit/pkg/catalog"
)

// RecordCatalog is the read side of catalog.Catalog used by the handlers
type RecordCatalog interface {
	Lookup(file, tag, id string) (*catalog.Entry, error)
	Find(id string) ([]*catalog.Entry, error)
	Runs() ([]catalog.Run, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is cancelled or the listener fails
	StartServer(ctx context.Context, cat RecordCatalog, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}

// CatalogOpener opens the record catalog in a data directory
type CatalogOpener interface {
	OpenCatalog(dir string) (*catalog.Catalog, error)
}
