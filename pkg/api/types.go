package api

import (
	"github.com/ssargent/esmkit/pkg/catalog"
	"github.com/ssargent/esmkit/pkg/loadorder"
	"github.com/ssargent/esmkit/pkg/records"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// LoadOrderRequest is the body of POST /loadorder
type LoadOrderRequest struct {
	Files        []loadorder.Element `json:"files"`
	MastersFirst bool                `json:"masters_first,omitempty"`
}

// LoadOrderResponse holds a resolved load order
type LoadOrderResponse struct {
	Order []string `json:"order"`
}

// RecordResponse is a catalog entry with its decoded record. Record is
// omitted for records the catalog cannot decode.
type RecordResponse struct {
	*catalog.Entry
	Record records.Record `json:"record,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // empty disables authentication
}
