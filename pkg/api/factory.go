// Package api provides factory implementations for dependency injection
package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/esmkit/pkg/catalog"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter. It
// registers metrics on the default Prometheus registry.
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, cat RecordCatalog, config ServerConfig) error {
	return StartServer(ctx, cat, config, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// DefaultCatalogOpener opens catalogs with catalog.Open
type DefaultCatalogOpener struct{}

// NewCatalogOpener creates a new catalog opener
func NewCatalogOpener() CatalogOpener {
	return &DefaultCatalogOpener{}
}

// OpenCatalog opens the catalog stored in dir
func (o *DefaultCatalogOpener) OpenCatalog(dir string) (*catalog.Catalog, error) {
	return catalog.Open(dir)
}
