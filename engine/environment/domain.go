// Package environment models the authenticated execution context a run is
// triggered into. The core only ever reads environments; they are owned
// and mutated by collaborators outside this repository's scope.
package environment

import (
	"context"

	"github.com/nneven/runtrigger/engine/core"
)

// Type enumerates the kinds of environment a project can run in.
type Type string

const (
	TypeDevelopment Type = "DEVELOPMENT"
	TypeProduction  Type = "PRODUCTION"
	TypeStaging     Type = "STAGING"
	TypePreview     Type = "PREVIEW"
)

// IsDevelopment reports whether t is the development environment type.
// Several components (entitlement checks, default TTL, current-worker
// resolution) branch on this specifically.
func (t Type) IsDevelopment() bool {
	return t == TypeDevelopment
}

// Environment is an authenticated execution context belonging to a
// Project which belongs to an Organization. Read-only to the core
// (spec.md §3).
type Environment struct {
	ID                      core.ID
	Type                    Type
	ProjectID               core.ID
	OrganizationID          core.ID
	MaximumConcurrencyLimit int
}

// Repository is the read-only view the core needs of the environment
// store. A real deployment backs this with the same Postgres database
// that owns projects/organizations; the core never writes through it.
type Repository interface {
	Get(ctx context.Context, id core.ID) (*Environment, error)
}
