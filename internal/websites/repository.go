package websites

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists website records. Lookups return *NotFoundError when
// nothing matches.
type Repository interface {
	GetByPodcast(ctx context.Context, podcastID string) (*Record, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Record, error)
	Create(ctx context.Context, record *Record) (*Record, error)
	Update(ctx context.Context, record *Record) (*Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Replace swaps the record stored under previous for record in one step.
	// When it fails the previous record is left in place.
	Replace(ctx context.Context, previous uuid.UUID, record *Record) (*Record, error)
}
