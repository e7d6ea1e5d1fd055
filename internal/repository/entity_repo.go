package repository

import (
	"context"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// EntityRepository is the data source for tracked entities and their audit
// trails. The pgx implementation is in pg_entity_repo.go; the in-memory one
// (memory_entity_repo.go) serves fixtures and tests.
//
// Entities returned by List and GetByID are copies: callers may hold them for
// the duration of a request but changes are never written back.
type EntityRepository interface {
	List(ctx context.Context, kind domain.Kind) ([]*domain.TrackedEntity, error)
	GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.TrackedEntity, error)
	Upsert(ctx context.Context, entities []*domain.TrackedEntity) error

	// AppendHistory adds an entry to the entity's history. There is no way
	// to edit or delete history.
	AppendHistory(ctx context.Context, entityID string, entry domain.HistoryEntry) error

	AppendEmailHistory(ctx context.Context, entries []domain.EmailHistoryEntry) error
	ListEmailHistory(ctx context.Context, entityID string) ([]domain.EmailHistoryEntry, error)
}
