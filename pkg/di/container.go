// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/esmkit/pkg/api" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	catalogOpener api.CatalogOpener
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		catalogOpener: api.NewCatalogOpener(),
		serverFactory: api.NewServerFactory(),
	}
}

// GetCatalogOpener returns the catalog opener
func (c *Container) GetCatalogOpener() api.CatalogOpener {
	return c.catalogOpener
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetCatalogOpener allows overriding the catalog opener (for testing)
func (c *Container) SetCatalogOpener(opener api.CatalogOpener) {
	c.catalogOpener = opener
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
