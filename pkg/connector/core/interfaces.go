// Package core defines the connector contract and the schema model every
// connector speaks. Concrete connectors live in sibling packages and register
// themselves with the registry by name.
package core

import (
	"context"

	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
)

// Connector is the capability set the migration engine drives. Every method
// may block on I/O and must honour ctx.
//
// A Connector instance holds a single session; using one instance from two
// concurrent migrations is undefined. Callers must call Connect before
// ExtractData or LoadData and must call Disconnect on every exit path,
// including after a failed Connect.
type Connector interface {
	// Name returns the connector instance name
	Name() string
	// Type returns the registered connector type (e.g., "postgres")
	Type() string

	// Connect establishes a live session. Failures are ErrorTypeConnection.
	Connect(ctx context.Context) error
	// Disconnect releases the session. It is a no-op when not connected.
	Disconnect(ctx context.Context) error

	// GetSchema returns the objects visible to the session in introspection
	// order. It connects implicitly when the connector is not connected.
	GetSchema(ctx context.Context) ([]SchemaObject, error)

	// ExtractData reads records for a query or an object name.
	ExtractData(ctx context.Context, req ExtractRequest) ([]models.Record, error)

	// LoadData writes records into target atomically: either every record
	// in the call is committed or none is. It returns the committed count.
	LoadData(ctx context.Context, target string, records []models.Record) (int, error)
}

// ExtractRequest selects what ExtractData reads. Exactly one of Query and
// ObjectName must be set. Limit > 0 bounds the number of returned records.
type ExtractRequest struct {
	Query      string
	ObjectName string
	Limit      int
}

// Validate enforces the exactly-one-of rule for Query and ObjectName
func (r ExtractRequest) Validate() error {
	switch {
	case r.Query == "" && r.ObjectName == "":
		return errors.New(errors.ErrorTypeInvalidArgument, "either query or object_name must be provided")
	case r.Query != "" && r.ObjectName != "":
		return errors.New(errors.ErrorTypeInvalidArgument, "query and object_name are mutually exclusive")
	case r.Limit < 0:
		return errors.Newf(errors.ErrorTypeInvalidArgument, "limit must not be negative, got %d", r.Limit)
	}
	return nil
}

// ObjectRequest is shorthand for extracting a whole object
func ObjectRequest(name string) ExtractRequest {
	return ExtractRequest{ObjectName: name}
}
