// package services defines the clients used to talk to the catalog API and its token endpoint
package services

import (
	"context"

	"github.com/desertthunder/spx/internal/models"
)

// Authorizer supplies Authorization header values for catalog requests.
type Authorizer interface {
	// Authorization returns a header value that is valid for at least the next request.
	Authorization(ctx context.Context) (string, error)
}

// Catalog fetches raw entity objects from the catalog API.
type Catalog interface {
	// Item fetches one entity object.
	Item(ctx context.Context, entity models.EntityType, id string) (*APIResponse, error)

	// Several fetches up to entity.MaxBatch() objects in one call.
	// The response body is {"<entity>": [object|null, ...]}.
	Several(ctx context.Context, entity models.EntityType, ids []string) (*APIResponse, error)
}

var (
	_ Authorizer = (*LeaseManager)(nil)
	_ Catalog    = (*CatalogClient)(nil)
)
