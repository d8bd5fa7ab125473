package websites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewRecordRepository builds the generic repository over the websites table,
// keyed by podcast id.
func NewRecordRepository(db *bun.DB) repository.Repository[*Record] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Record]{
		NewRecord: func() *Record { return &Record{} },
		GetID: func(r *Record) uuid.UUID {
			return r.ID
		},
		SetID: func(r *Record, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "podcast_id"
		},
		GetIdentifierValue: func(r *Record) string {
			return r.PodcastID
		},
	})
}

const websiteNamespace = "website"

// BunRepository stores websites with bun.
type BunRepository struct {
	db           *bun.DB
	repo         repository.Repository[*Record]
	cacheService cache.CacheService
	cachePrefix  string
}

// NewBunRepository constructs a Repository backed by bun without caching.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache constructs a Repository backed by bun with optional caching.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunRepository {
	base := NewRecordRepository(db)
	r := &BunRepository{
		db:   db,
		repo: wrapWithCache(base, cacheService, keySerializer),
	}
	if cacheService != nil && keySerializer != nil {
		r.cacheService = cacheService
		r.cachePrefix = websiteNamespace + cache.KeySeparator
	}
	return r
}

// Migrate creates the websites table when it does not exist.
func Migrate(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return fmt.Errorf("website repository: database not configured")
	}
	if _, err := db.NewCreateTable().Model((*Record)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create websites table: %w", err)
	}
	return nil
}

func (r *BunRepository) GetByPodcast(ctx context.Context, podcastID string) (*Record, error) {
	key := strings.TrimSpace(podcastID)
	record, err := r.repo.GetByIdentifier(ctx, key)
	if err != nil {
		return nil, mapRepositoryError(err, "website", key)
	}
	return record, nil
}

func (r *BunRepository) GetBySubdomain(ctx context.Context, subdomain string) (*Record, error) {
	key := strings.ToLower(strings.TrimSpace(subdomain))
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.subdomain = ?", key)
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "site", key)
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "site", Key: key}
	}
	return records[0], nil
}

func (r *BunRepository) Create(ctx context.Context, record *Record) (*Record, error) {
	if existing, err := r.GetByPodcast(ctx, record.PodcastID); err == nil && existing != nil {
		return nil, ErrDuplicateWebsite
	}
	toInsert := record.Clone()
	now := time.Now().UTC()
	if toInsert.ID == uuid.Nil {
		toInsert.ID = uuid.New()
	}
	if toInsert.CreatedAt.IsZero() {
		toInsert.CreatedAt = now
	}
	toInsert.UpdatedAt = now
	created, err := r.repo.Create(ctx, toInsert)
	if err != nil {
		return nil, fmt.Errorf("website repository error: %w", err)
	}
	return created, nil
}

func (r *BunRepository) Update(ctx context.Context, record *Record) (*Record, error) {
	toUpdate := record.Clone()
	toUpdate.UpdatedAt = time.Now().UTC()
	updated, err := r.repo.Update(ctx, toUpdate,
		repository.UpdateByID(toUpdate.ID.String()),
		repository.UpdateColumns(
			"revision",
			"status",
			"subdomain",
			"custom_domain",
			"global_css",
			"theme_metadata",
			"sections",
			"last_generated_at",
			"updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "website", toUpdate.ID.String())
	}
	return updated, nil
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.Delete(ctx, &Record{ID: id}); err != nil {
		return mapRepositoryError(err, "website", id.String())
	}
	return nil
}

// Replace deletes previous and inserts record in one transaction. Cached
// lookups are dropped afterwards since the transaction bypasses the cache.
func (r *BunRepository) Replace(ctx context.Context, previous uuid.UUID, record *Record) (*Record, error) {
	if r.db == nil {
		return nil, fmt.Errorf("website repository: database not configured")
	}
	toInsert := record.Clone()
	now := time.Now().UTC()
	if toInsert.ID == uuid.Nil {
		toInsert.ID = uuid.New()
	}
	if toInsert.CreatedAt.IsZero() {
		toInsert.CreatedAt = now
	}
	toInsert.UpdatedAt = now

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*Record)(nil)).
			Where("?TableAlias.id = ?", previous).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete website: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return &NotFoundError{Resource: "website", Key: previous.String()}
		}
		if _, err := tx.NewInsert().Model(toInsert).Exec(ctx); err != nil {
			return fmt.Errorf("insert website: %w", err)
		}
		return nil
	})
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		return nil, fmt.Errorf("website repository error: %w", err)
	}
	if err := r.invalidateCache(ctx); err != nil {
		return nil, err
	}
	return toInsert, nil
}

func (r *BunRepository) invalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}
